// Package console is the interactive inspection shell for a storage
// region. Every command is read-only: the console never constructs an
// engine, so looking at a region cannot trigger the engine's
// self-healing writes.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/trackside/train-logger/internal/codec"
	"github.com/trackside/train-logger/internal/dumpfile"
	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/storage"
)

// Console runs the inspection shell over one storage device.
type Console struct {
	dev    storage.Device
	layout eventlog.Layout
	source string
	out    io.Writer
	rl     *readline.Instance
}

// New creates a console over dev. source is a human label for where
// the region came from, shown by the status command.
func New(dev storage.Device, layout eventlog.Layout, source string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "train-logger> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline: %w", err)
	}

	return &Console{
		dev:    dev,
		layout: layout,
		source: source,
		out:    rl.Stdout(),
		rl:     rl,
	}, nil
}

// Run reads and executes commands until exit or EOF.
func (c *Console) Run() error {
	defer c.rl.Close()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			// EOF or a closed terminal.
			fmt.Fprintln(c.out, "Exiting...")
			return nil
		}
		if c.execute(line) {
			return nil
		}
	}
}

// execute runs one command line and reports whether to quit.
func (c *Console) execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus()

	case "header":
		c.cmdHeader()

	case "records", "r":
		c.cmdRecords(args)

	case "read":
		c.cmdRead(args)

	case "dump", "d":
		c.cmdDump()

	case "interpret", "i":
		c.cmdInterpret(args)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Train Logger Console:
  Inspection:
    status             - Summarize the region (counter, index, events)
    header             - Show the raw header slots
    records [all]      - List event records (all includes empty slots)
    read <address>     - Read one 4-byte slot
    dump               - Print the region as a dump file

  Interpretation:
    interpret <date>   - Map events to wall-clock times; date is the
                         session start as "2006-01-02 15:04:05"

  General:
    help               - Show this help
    exit               - Leave the console`)
}

func (c *Console) cmdStatus() {
	h := eventlog.ReadHeader(c.dev, c.layout)
	first := c.layout.FirstRecordAddress()

	slots := 0
	if h.Capacity > first {
		slots = (h.Capacity - first) / eventlog.RecordSize
	}
	full := "no"
	if h.Index > int32(h.Capacity) {
		full = "yes"
	}

	fmt.Fprintf(c.out, "Source:   %s\n", c.source)
	fmt.Fprintf(c.out, "Capacity: %d bytes\n", h.Capacity)
	fmt.Fprintf(c.out, "Counter:  %d seconds (%s)\n", h.Seconds, dumpfile.FormatDelta(int64(h.Seconds)))
	fmt.Fprintf(c.out, "Index:    %d\n", h.Index)
	fmt.Fprintf(c.out, "Events:   %d of %d slots used\n", h.EventCount, slots)
	fmt.Fprintf(c.out, "Full:     %s\n", full)
}

func (c *Console) cmdHeader() {
	h := eventlog.ReadHeader(c.dev, c.layout)
	fmt.Fprintf(c.out, "[%d] = %d # seconds counter\n", c.layout.CounterAddress, h.Seconds)
	fmt.Fprintf(c.out, "[%d] = %d # event index\n", c.layout.IndexAddress, h.Index)
}

func (c *Console) cmdRecords(args []string) {
	showAll := len(args) > 0 && strings.ToLower(args[0]) == "all"

	n := 0
	for addr := c.layout.FirstRecordAddress(); addr+eventlog.RecordSize <= c.dev.Capacity(); addr += eventlog.RecordSize {
		v, ok := c.readSlot(addr)
		if !ok {
			break
		}
		if v == 0 && !showAll {
			break
		}
		n++
		fmt.Fprintf(c.out, "#%d [%d] = %d (%s)\n", n, addr, v, dumpfile.FormatDelta(int64(v)))
	}
	if n == 0 {
		fmt.Fprintln(c.out, "No events recorded.")
	}
}

func (c *Console) cmdRead(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: read <address>")
		return
	}
	addr, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Bad address: %q\n", args[0])
		return
	}
	v, ok := c.readSlot(addr)
	if !ok {
		fmt.Fprintf(c.out, "Address %d out of range (capacity %d bytes)\n", addr, c.dev.Capacity())
		return
	}
	fmt.Fprintf(c.out, "[%d] = %d\n", addr, v)
}

func (c *Console) cmdDump() {
	if err := dumpfile.Write(c.out, c.dev, c.layout, time.Now()); err != nil {
		fmt.Fprintf(c.out, "Dump failed: %v\n", err)
	}
}

func (c *Console) cmdInterpret(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, `Usage: interpret <YYYY-MM-DD HH:MM:SS>`)
		return
	}
	start, err := time.ParseInLocation(dumpfile.DateLayout, strings.Join(args, " "), time.Local)
	if err != nil {
		fmt.Fprintf(c.out, "Bad start date: %v\n", err)
		return
	}

	rep, err := dumpfile.Interpret(dumpfile.EntriesFromDevice(c.dev, c.layout), start)
	if err != nil {
		fmt.Fprintf(c.out, "Interpret failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "Start date: %s\n", start.Format(dumpfile.DateLayout))
	fmt.Fprintf(c.out, "Uptime: %s\n", rep.Uptime)
	if len(rep.Events) == 0 {
		fmt.Fprintln(c.out, "No events recorded.")
		return
	}
	for _, ev := range rep.Events {
		fmt.Fprintf(c.out, "Event #%d: %s (%s)\n", ev.Number, ev.Date.Format(dumpfile.DateLayout), ev.Delta)
	}
}

func (c *Console) readSlot(address int) (int32, bool) {
	if address < 0 || address+codec.Width > c.dev.Capacity() {
		return 0, false
	}
	var buf [codec.Width]byte
	for i := range buf {
		buf[i] = c.dev.ReadByte(address + i)
	}
	return codec.DecodeLong(buf), true
}
