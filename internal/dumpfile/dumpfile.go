// Package dumpfile reads and writes plain-text memory dumps. A dump
// is one line per four-byte slot in the form "[address] = value";
// blank lines and lines starting with anything else are ignored, and
// a trailing "#" comment on a value line is stripped. The format is
// deliberately simple enough to produce by hand from a serial console.
package dumpfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/trackside/train-logger/internal/codec"
	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/storage"
)

// DateLayout is the wall-clock format used by dump interpretation,
// e.g. "2020-12-04 20:54:00".
const DateLayout = "2006-01-02 15:04:05"

// Entry is one parsed dump line.
type Entry struct {
	Address int
	Value   int32
}

// Write renders every slot of the region as a text dump. The header
// slots named by layout are annotated with a trailing comment.
func Write(w io.Writer, dev storage.Device, layout eventlog.Layout, capturedAt time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# train-logger memory dump\n")
	fmt.Fprintf(bw, "# captured: %s\n", capturedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(bw, "# capacity: %d bytes\n", dev.Capacity())

	cur := eventlog.Dump(dev)
	for {
		r, ok := cur.Next()
		if !ok {
			break
		}
		switch r.Address {
		case layout.CounterAddress:
			fmt.Fprintf(bw, "[%d] = %d # seconds counter\n", r.Address, r.Value)
		case layout.IndexAddress:
			fmt.Fprintf(bw, "[%d] = %d # event index\n", r.Address, r.Value)
		default:
			fmt.Fprintf(bw, "[%d] = %d\n", r.Address, r.Value)
		}
	}
	return bw.Flush()
}

// Parse reads dump entries from r in file order.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, "[") {
			continue
		}

		addrText, rest, ok := strings.Cut(line[1:], "]")
		if !ok {
			return nil, fmt.Errorf("line %d: missing ']': %q", lineNo, line)
		}
		addr, err := strconv.Atoi(strings.TrimSpace(addrText))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad address: %q", lineNo, line)
		}

		_, valText, ok := strings.Cut(rest, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '=': %q", lineNo, line)
		}
		if i := strings.Index(valText, "#"); i >= 0 {
			valText = valText[:i]
		}
		val, err := strconv.ParseInt(strings.TrimSpace(valText), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad value: %q", lineNo, line)
		}

		entries = append(entries, Entry{Address: addr, Value: int32(val)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseFile reads dump entries from the file at path.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// EntriesFromDevice reads the header and event slots of dev in
// interpretation order: counter, index pointer, then the record
// region.
func EntriesFromDevice(dev storage.Device, layout eventlog.Layout) []Entry {
	entries := []Entry{
		{Address: layout.CounterAddress, Value: readSlot(dev, layout.CounterAddress)},
		{Address: layout.IndexAddress, Value: readSlot(dev, layout.IndexAddress)},
	}
	for addr := layout.FirstRecordAddress(); addr+eventlog.RecordSize <= dev.Capacity(); addr += eventlog.RecordSize {
		entries = append(entries, Entry{Address: addr, Value: readSlot(dev, addr)})
	}
	return entries
}

func readSlot(dev storage.Device, address int) int32 {
	var buf [codec.Width]byte
	for i := range buf {
		buf[i] = dev.ReadByte(address + i)
	}
	return codec.DecodeLong(buf)
}
