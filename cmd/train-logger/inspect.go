package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trackside/train-logger/internal/config"
	"github.com/trackside/train-logger/internal/console"
	"github.com/trackside/train-logger/internal/dumpfile"
	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/journal"
	"github.com/trackside/train-logger/internal/storage"
)

func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("storage", "", "Override the storage path")
	cmd.Flags().String("backend", "", "Override the storage backend (file, i2c, memory)")
}

func applyStorageFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("storage") {
		cfg.Storage.Path, _ = cmd.Flags().GetString("storage")
	}
	if cmd.Flags().Changed("backend") {
		cfg.Storage.Backend, _ = cmd.Flags().GetString("backend")
	}
}

// openInspection opens the configured region without ever writing to
// it. The returned label describes the source for display.
func openInspection(cfg *config.Config) (storage.Device, func() error, string, error) {
	label := cfg.Storage.Backend + " " + storageLabel(cfg)
	switch cfg.Storage.Backend {
	case config.BackendFile:
		f, err := storage.OpenFileReadOnly(cfg.Storage.Path)
		if err != nil {
			return nil, nil, "", err
		}
		return f, f.Close, label, nil
	case config.BackendI2C:
		e, err := storage.OpenEEPROM(cfg.Storage.I2C.Bus, cfg.Storage.I2C.Address, cfg.Storage.CapacityBytes)
		if err != nil {
			return nil, nil, "", err
		}
		return e, e.Close, label, nil
	case config.BackendMemory:
		return nil, nil, "", fmt.Errorf("memory backend has no persistent region to inspect")
	}
	return nil, nil, "", fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func newDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the storage region as a text dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyStorageFlags(cmd, cfg)

			dev, closeDev, _, err := openInspection(cfg)
			if err != nil {
				return err
			}
			defer closeDev()

			return dumpfile.Write(os.Stdout, dev, cfg.Layout(), time.Now())
		},
	}
	addStorageFlags(cmd)
	return cmd
}

func newReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Interpret the event log against a session start date",
		RunE: func(cmd *cobra.Command, args []string) error {
			startText, _ := cmd.Flags().GetString("start")
			start, err := time.ParseInLocation(dumpfile.DateLayout, startText, time.Local)
			if err != nil {
				return fmt.Errorf("bad --start date (want %q): %w", dumpfile.DateLayout, err)
			}

			var entries []dumpfile.Entry
			if dumpPath, _ := cmd.Flags().GetString("file"); dumpPath != "" {
				entries, err = dumpfile.ParseFile(dumpPath)
				if err != nil {
					return err
				}
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				applyStorageFlags(cmd, cfg)

				dev, closeDev, _, err := openInspection(cfg)
				if err != nil {
					return err
				}
				defer closeDev()
				entries = dumpfile.EntriesFromDevice(dev, cfg.Layout())
			}

			rep, err := dumpfile.Interpret(entries, start)
			if err != nil {
				return err
			}
			printReport(os.Stdout, rep)
			return nil
		},
	}
	cmd.Flags().String("start", "", `Session start date as "2006-01-02 15:04:05" (required)`)
	cmd.Flags().String("file", "", "Interpret a saved dump file instead of storage")
	cmd.MarkFlagRequired("start")
	addStorageFlags(cmd)
	return cmd
}

func printReport(w io.Writer, rep *dumpfile.Report) {
	fmt.Fprintf(w, "Start date: %s\n", rep.Start.Format(dumpfile.DateLayout))
	fmt.Fprintf(w, "Uptime: %s\n", rep.Uptime)
	if len(rep.Events) == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return
	}
	for _, ev := range rep.Events {
		fmt.Fprintf(w, "Event #%d: %s (%s)\n", ev.Number, ev.Date.Format(dumpfile.DateLayout), ev.Delta)
	}
}

func newEraseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase the event log (counter, index, and all records)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyStorageFlags(cmd, cfg)

			if cfg.Storage.Backend == config.BackendMemory {
				return fmt.Errorf("memory backend has no persistent region to erase")
			}
			if cfg.Storage.Backend == config.BackendFile {
				if _, err := os.Stat(cfg.Storage.Path); err != nil {
					return fmt.Errorf("no storage region at %s", cfg.Storage.Path)
				}
			}

			dev, closeDev, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer closeDev()

			engine := eventlog.New(dev, cfg.Layout())
			engine.Init()
			count := engine.EventCount()

			force, _ := cmd.Flags().GetBool("force")
			if !force && !confirmErase(os.Stdin, os.Stdout, count, dev.Capacity()) {
				fmt.Println("Aborted.")
				return nil
			}

			engine.Erase()

			if cfg.Diagnostics.JournalPath != "" {
				if fl, err := journal.NewFileLogger(cfg.Diagnostics.JournalPath); err == nil {
					fl.Log(journal.Event{
						Timestamp: time.Now(),
						SessionID: uuid.NewString(),
						Type:      journal.TypeErase,
						Detail:    fmt.Sprintf("%d events erased", count),
					})
					fl.Close()
				}
			}

			fmt.Printf("Erased %d events.\n", count)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Skip the confirmation prompt")
	addStorageFlags(cmd)
	return cmd
}

// confirmErase asks for explicit confirmation before destroying the
// log.
func confirmErase(in io.Reader, out io.Writer, count, capacity int) bool {
	fmt.Fprintf(out, "This erases %d recorded events and resets the %d-byte region. Type 'yes' to continue: ", count, capacity)
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		return false
	}
	return strings.TrimSpace(sc.Text()) == "yes"
}

func newConsoleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Open the interactive inspection console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyStorageFlags(cmd, cfg)

			dev, closeDev, label, err := openInspection(cfg)
			if err != nil {
				return err
			}
			defer closeDev()

			c, err := console.New(dev, cfg.Layout(), label)
			if err != nil {
				return err
			}
			return c.Run()
		},
	}
	addStorageFlags(cmd)
	return cmd
}

func newJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print diagnostic journal events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.Diagnostics.JournalPath
			if cmd.Flags().Changed("path") {
				path, _ = cmd.Flags().GetString("path")
			}
			if path == "" {
				return fmt.Errorf("no journal configured; set diagnostics.journal_path or pass --path")
			}

			filter, err := journalFilter(cmd)
			if err != nil {
				return err
			}

			r, err := journal.NewFilteredReader(path, filter)
			if err != nil {
				return err
			}
			defer r.Close()

			count := 0
			for {
				e, err := r.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("read journal: %w", err)
				}
				fmt.Println(formatJournalEvent(e))
				count++
			}
			if count == 0 {
				fmt.Println("No matching events.")
			}
			return nil
		},
	}
	cmd.Flags().String("path", "", "Journal file (defaults to the configured path)")
	cmd.Flags().String("session", "", "Only events from this boot session")
	cmd.Flags().String("type", "", "Only events of this type (STARTUP, TRAIN_DETECTED, ...)")
	cmd.Flags().String("since", "", `Only events at or after this time ("2006-01-02 15:04:05")`)
	cmd.Flags().String("until", "", `Only events before this time ("2006-01-02 15:04:05")`)
	return cmd
}

func journalFilter(cmd *cobra.Command) (journal.Filter, error) {
	var filter journal.Filter

	filter.SessionID, _ = cmd.Flags().GetString("session")

	if s, _ := cmd.Flags().GetString("type"); s != "" {
		typ, err := parseEventType(s)
		if err != nil {
			return filter, err
		}
		filter.Type = &typ
	}
	if s, _ := cmd.Flags().GetString("since"); s != "" {
		ts, err := time.ParseInLocation(dumpfile.DateLayout, s, time.Local)
		if err != nil {
			return filter, fmt.Errorf("bad --since: %w", err)
		}
		filter.TimeStart = &ts
	}
	if s, _ := cmd.Flags().GetString("until"); s != "" {
		ts, err := time.ParseInLocation(dumpfile.DateLayout, s, time.Local)
		if err != nil {
			return filter, fmt.Errorf("bad --until: %w", err)
		}
		filter.TimeEnd = &ts
	}
	return filter, nil
}

func parseEventType(s string) (journal.EventType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range []journal.EventType{
		journal.TypeStartup,
		journal.TypeTrainDetected,
		journal.TypeModeChange,
		journal.TypeStorageReseed,
		journal.TypeMemoryFull,
		journal.TypeErase,
		journal.TypeShutdown,
	} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

func formatJournalEvent(e journal.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Timestamp.Format(time.RFC3339), e.Type)
	if e.Mode != "" {
		fmt.Fprintf(&b, " mode=%s", e.Mode)
	}
	if e.Seconds != 0 {
		fmt.Fprintf(&b, " seconds=%d", e.Seconds)
	}
	if e.Address != 0 {
		fmt.Fprintf(&b, " address=%d", e.Address)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " detail=%q", e.Detail)
	}
	if e.SessionID != "" {
		fmt.Fprintf(&b, " session=%s", e.SessionID)
	}
	return b.String()
}
