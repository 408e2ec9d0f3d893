package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trackside/train-logger/internal/config"
	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/gpio"
	"github.com/trackside/train-logger/internal/journal"
	"github.com/trackside/train-logger/internal/logic"
	"github.com/trackside/train-logger/internal/mode"
	"github.com/trackside/train-logger/internal/mqtt"
	"github.com/trackside/train-logger/internal/status"
	"github.com/trackside/train-logger/internal/storage"
	"github.com/trackside/train-logger/internal/web"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the train detection daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().String("storage", "", "Override the storage path")
	cmd.Flags().String("backend", "", "Override the storage backend (file, i2c, memory)")
	cmd.Flags().String("http", "", "Override the HTTP status address")
	cmd.Flags().String("broker", "", "Override the MQTT broker URL")
	cmd.Flags().String("journal", "", "Override the journal path")
	cmd.Flags().Bool("simulate", false, "Use the simulated sensor instead of GPIO")
	cmd.Flags().Bool("force-read-only", false, "Latch read-only mode without sampling the switch")

	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("storage") {
		cfg.Storage.Path, _ = flags.GetString("storage")
	}
	if flags.Changed("backend") {
		cfg.Storage.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("http") {
		cfg.Diagnostics.HTTPAddr, _ = flags.GetString("http")
	}
	if flags.Changed("broker") {
		cfg.Diagnostics.MQTT.Broker, _ = flags.GetString("broker")
	}
	if flags.Changed("journal") {
		cfg.Diagnostics.JournalPath, _ = flags.GetString("journal")
	}
	if flags.Changed("simulate") {
		cfg.Sensor.Simulate.Enabled, _ = flags.GetBool("simulate")
	}
	if flags.Changed("force-read-only") {
		cfg.ReadOnlySwitch.Force, _ = flags.GetBool("force-read-only")
	}
}

func run(cfg *config.Config) error {
	sessionID := uuid.NewString()
	startTime := time.Now()

	dev, closeStorage, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStorage()
	faulter, _ := dev.(faultProber)

	var jl journal.Logger = journal.NoopLogger{}
	if cfg.Diagnostics.JournalPath != "" {
		fl, err := journal.NewFileLogger(cfg.Diagnostics.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer fl.Close()
		jl = fl
	}

	// The maintenance switch is sampled exactly once; read-only can
	// only be left by a restart.
	readOnly := cfg.ReadOnlySwitch.Force
	if !readOnly && !cfg.Sensor.Simulate.Enabled {
		on, err := gpio.ReadSwitch(cfg.ReadOnlySwitch.Chip, cfg.ReadOnlySwitch.Pin)
		if err != nil {
			log.Printf("read-only switch unreadable, assuming normal mode: %v", err)
		} else {
			readOnly = on
		}
	}

	layout := cfg.Layout()
	engine := eventlog.New(dev, layout)
	controller := mode.NewController(readOnly)
	detector := logic.NewDetector(cfg.Cooldown())
	tracker := status.NewTracker(startTime, sessionID, statusConfig(cfg))

	// Read-only disables every write for the process lifetime,
	// including startup self-healing, so the header is only read.
	var roState status.EngineState
	if readOnly {
		h := eventlog.ReadHeader(dev, layout)
		roState = status.EngineState{
			Seconds:      h.Seconds,
			IndexPointer: h.Index,
			EventCount:   h.EventCount,
			Capacity:     h.Capacity,
			Full:         h.Index > int32(h.Capacity),
		}
	} else {
		res := engine.Init()
		tracker.SetInitResult(res.CounterReseeded, res.IndexReseeded)
		if detail := reseedDetail(res); detail != "" {
			log.Printf("storage header reseeded: %s", detail)
			jl.Log(journal.Event{
				Timestamp: time.Now(),
				SessionID: sessionID,
				Type:      journal.TypeStorageReseed,
				Mode:      controller.Mode().String(),
				Detail:    detail,
			})
		}
	}
	tracker.SetRecords(loadRecords(dev, layout))

	var pub mqtt.Publisher
	var pubStatus mqtt.ConnectionStatus
	if cfg.Diagnostics.MQTT.Broker != "" {
		rp, err := mqtt.NewRealPublisher(cfg.Diagnostics.MQTT.Broker, cfg.Diagnostics.MQTT.ClientID, cfg.Diagnostics.MQTT.TopicPrefix)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer rp.Close()
		pub = rp
		pubStatus = rp
	}

	d := &daemon{
		engine:         engine,
		detector:       detector,
		controller:     controller,
		indicator:      gpio.NoopIndicator{},
		tracker:        tracker,
		publisher:      pub,
		mqttStatus:     pubStatus,
		journal:        jl,
		faulter:        faulter,
		sessionID:      sessionID,
		ticksPerSecond: cfg.TicksPerSecond(),
		blinkSeconds:   cfg.Indicator.BlinkIntervalSeconds,
		readOnly:       readOnly,
		roState:        roState,
	}

	controller.OnChange(d.onModeChange)

	// Sensor and indicator. Read-only performs no sensor polling at
	// all, so the line is never even requested.
	if !readOnly {
		if cfg.Sensor.Simulate.Enabled {
			d.sensor = gpio.NewSimReader(cfg.Sensor.Simulate.PeriodTicks, cfg.Sensor.Simulate.BurstTicks)
			log.Printf("using simulated sensor: period=%d ticks burst=%d ticks",
				cfg.Sensor.Simulate.PeriodTicks, cfg.Sensor.Simulate.BurstTicks)
		} else {
			sensor, err := gpio.NewRealReader(cfg.Sensor.Chip, cfg.Sensor.Pin, cfg.Sensor.ActiveLow)
			if err != nil {
				return fmt.Errorf("init sensor: %w", err)
			}
			defer sensor.Close()
			d.sensor = sensor
		}
	}
	if !cfg.Indicator.Disabled && !cfg.Sensor.Simulate.Enabled {
		ind, err := gpio.NewRealIndicator(cfg.Indicator.Chip, cfg.Indicator.Pin)
		if err != nil {
			log.Printf("indicator unavailable, continuing without: %v", err)
		} else {
			defer ind.Close()
			d.indicator = ind
		}
	}

	d.publishState(controller.Mode())

	jl.Log(journal.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Type:      journal.TypeStartup,
		Mode:      controller.Mode().String(),
		Seconds:   d.seconds(),
	})

	if pub != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := pub.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	if cfg.Diagnostics.HTTPAddr != "" {
		srv := web.New(cfg.Diagnostics.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.Diagnostics.HTTPAddr)

		if cfg.Diagnostics.MDNS {
			if ann := announce(cfg.Diagnostics.HTTPAddr, sessionID); ann != nil {
				defer ann.Shutdown()
			}
		}
	}

	log.Printf("started: mode=%s poll=%v cooldown=%d ticks storage=%s/%s capacity=%d session=%s",
		controller.Mode(), cfg.TickerInterval(), cfg.Cooldown(),
		cfg.Storage.Backend, storageLabel(cfg), dev.Capacity(), sessionID)

	ticker := time.NewTicker(cfg.TickerInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(time.Now, ticker.C, sigCh)
}

// faultProber is the optional storage self-check surfaced by backends
// that can observe transaction failures.
type faultProber interface {
	Faulted() bool
}

// daemon holds the wired components of one run.
type daemon struct {
	engine     *eventlog.Engine
	detector   *logic.Detector
	controller *mode.Controller
	sensor     gpio.Reader
	indicator  gpio.Indicator
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	journal    journal.Logger
	faulter    faultProber
	sessionID  string

	ticksPerSecond int
	blinkSeconds   int

	// Read-only keeps the engine untouched, so the header snapshot
	// taken at startup stands in for engine state.
	readOnly bool
	roState  status.EngineState

	pollCount    int
	ledPhase     bool
	ledErrLogged bool
}

// runLoop is the cooperative polling loop. Each tick on the tick
// channel is one poll; a signal publishes the shutdown event and
// returns.
func (d *daemon) runLoop(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			name := signalName(s)
			d.journal.Log(journal.Event{
				Timestamp: now(),
				SessionID: d.sessionID,
				Type:      journal.TypeShutdown,
				Mode:      d.controller.Mode().String(),
				Seconds:   d.seconds(),
				Detail:    name,
			})
			if d.publisher != nil {
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
				snap := d.tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  now(),
					Event:      "SHUTDOWN",
					Reason:     name,
					Retained:   true,
					RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
				}
				if err := d.publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case <-tick:
			d.step(now)
		}
	}
}

// step runs one polling tick.
func (d *daemon) step(now func() time.Time) {
	switch m := d.controller.Mode(); m {
	case mode.ReadOnly:
		// No sensor polling and no counter ticking. The indicator
		// alternates every tick as the distinct idle cadence.
		d.ledPhase = !d.ledPhase
		d.setLED(m)
		d.publishState(m)
		return
	case mode.MemoryFull:
		d.setLED(m)
		d.publishState(m)
		return
	}

	triggered, err := d.sensor.Read()
	if err != nil {
		log.Printf("sensor read error: %v", err)
		return
	}

	if d.detector.Process(triggered) {
		if d.engine.Full() {
			// The mode latch below stops polling next tick; the
			// engine's own append check is only a backstop.
			log.Printf("event dropped: log full")
		} else if addr, err := d.engine.Append(); err != nil {
			log.Printf("append failed: %v", err)
		} else {
			d.recordDetection(addr, now())
		}
	}

	d.pollCount++
	if d.pollCount >= d.ticksPerSecond {
		d.pollCount = 0
		d.engine.TickSecond()
	}

	m := d.controller.Observe(d.engine.Full())
	d.setLED(m)
	d.publishState(m)
}

// recordDetection fans a fresh event record out to the tracker,
// journal, and broker. The storage write already happened; everything
// here is observational.
func (d *daemon) recordDetection(address int, at time.Time) {
	rec := eventlog.Record{Address: address, Value: d.engine.Seconds()}
	log.Printf("train detected: seconds=%d address=%d", rec.Value, rec.Address)

	d.tracker.AddRecord(rec, at)
	d.journal.Log(journal.Event{
		Timestamp: at,
		SessionID: d.sessionID,
		Type:      journal.TypeTrainDetected,
		Mode:      d.controller.Mode().String(),
		Seconds:   rec.Value,
		Address:   rec.Address,
	})
	if d.publisher != nil {
		event := mqtt.TrainEvent{RecordedAt: at, Seconds: rec.Value, Address: rec.Address}
		if err := d.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
}

// onModeChange is installed on the mode controller. Entering
// MEMORY_FULL is the transition operators care about, so it gets a
// dedicated journal type and a retained broker event; everything else
// is an ordinary mode-change journal line.
func (d *daemon) onModeChange(from, to mode.Mode) {
	log.Printf("mode change: %s -> %s", from, to)
	if to != mode.MemoryFull {
		d.journal.Log(journal.Event{
			Timestamp: time.Now(),
			SessionID: d.sessionID,
			Type:      journal.TypeModeChange,
			Mode:      to.String(),
			Seconds:   d.seconds(),
		})
		return
	}
	d.journal.Log(journal.Event{
		Timestamp: time.Now(),
		SessionID: d.sessionID,
		Type:      journal.TypeMemoryFull,
		Mode:      to.String(),
		Seconds:   d.seconds(),
		Detail:    "event log exhausted",
	})
	if d.publisher != nil {
		snap := d.tracker.Snapshot()
		ev := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "MEMORY_FULL",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "MEMORY_FULL", ""),
		}
		if err := d.publisher.PublishSystem(ev); err != nil {
			log.Printf("failed to publish memory-full event: %v", err)
		}
	}
}

func (d *daemon) publishState(m mode.Mode) {
	d.tracker.Update(m, d.engineState(), status.DetectorState{
		State:      d.detector.State(),
		Pulses:     d.detector.PulseCount(),
		Suppressed: d.detector.SuppressedCount(),
	})
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	if d.faulter != nil {
		d.tracker.SetStorageFault(d.faulter.Faulted())
	}
}

func (d *daemon) engineState() status.EngineState {
	if d.readOnly {
		return d.roState
	}
	return status.EngineState{
		Seconds:      d.engine.Seconds(),
		IndexPointer: d.engine.IndexPointer(),
		EventCount:   d.engine.EventCount(),
		Capacity:     d.engine.Capacity(),
		Full:         d.engine.Full(),
	}
}

func (d *daemon) seconds() int32 {
	if d.readOnly {
		return d.roState.Seconds
	}
	return d.engine.Seconds()
}

func (d *daemon) setLED(m mode.Mode) {
	if err := d.indicator.Set(ledLevel(m, d.seconds(), d.blinkSeconds, d.ledPhase)); err != nil {
		if !d.ledErrLogged {
			d.ledErrLogged = true
			log.Printf("indicator error (suppressing further): %v", err)
		}
	}
}

// ledLevel decides the indicator level for one tick. Normal mode
// blinks on every second divisible by the blink interval, read-only
// alternates with the per-tick phase, and a full log is solid on.
func ledLevel(m mode.Mode, seconds int32, blinkSeconds int, phase bool) bool {
	switch m {
	case mode.ReadOnly:
		return phase
	case mode.MemoryFull:
		return true
	default:
		if blinkSeconds < 1 {
			return false
		}
		return seconds%int32(blinkSeconds) == 0
	}
}

func openStorage(cfg *config.Config) (storage.Device, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		f, err := storage.OpenFile(cfg.Storage.Path, cfg.Storage.CapacityBytes, cfg.Storage.Durability == "always")
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	case config.BackendI2C:
		e, err := storage.OpenEEPROM(cfg.Storage.I2C.Bus, cfg.Storage.I2C.Address, cfg.Storage.CapacityBytes)
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	case config.BackendMemory:
		return storage.NewMemory(cfg.Storage.CapacityBytes), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// loadRecords collects the event records already in the region in
// append order, stopping at the first empty slot.
func loadRecords(dev storage.Device, layout eventlog.Layout) []eventlog.Record {
	var out []eventlog.Record
	for _, r := range eventlog.Records(dev) {
		if r.Address < layout.FirstRecordAddress() {
			continue
		}
		if r.Value == 0 {
			break
		}
		out = append(out, r)
	}
	return out
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		PollMs:        cfg.PollIntervalMs,
		CooldownTicks: cfg.Cooldown(),
		BlinkSeconds:  cfg.Indicator.BlinkIntervalSeconds,
		Backend:       cfg.Storage.Backend,
		StoragePath:   storageLabel(cfg),
		Broker:        cfg.Diagnostics.MQTT.Broker,
		HTTPAddr:      cfg.Diagnostics.HTTPAddr,
		JournalPath:   cfg.Diagnostics.JournalPath,
	}
}

// storageLabel is the human label for where the region lives.
func storageLabel(cfg *config.Config) string {
	switch cfg.Storage.Backend {
	case config.BackendI2C:
		bus := cfg.Storage.I2C.Bus
		if bus == "" {
			bus = "auto"
		}
		return fmt.Sprintf("%s@%#x", bus, cfg.Storage.I2C.Address)
	case config.BackendMemory:
		return "volatile"
	}
	return cfg.Storage.Path
}

// announce registers the status server in mDNS. Failures are logged
// and swallowed: discovery is a convenience, not a dependency.
func announce(httpAddr, sessionID string) *web.Announcer {
	port, err := web.PortFromAddr(httpAddr)
	if err != nil {
		log.Printf("mdns disabled: %v", err)
		return nil
	}
	instance, err := os.Hostname()
	if err != nil || instance == "" {
		instance = "train-logger"
	}
	ann, err := web.Announce(instance, port, []string{"session=" + sessionID})
	if err != nil {
		log.Printf("mdns announce failed: %v", err)
		return nil
	}
	log.Printf("mdns announced %q on port %d", instance, port)
	return ann
}

func reseedDetail(res eventlog.InitResult) string {
	switch {
	case res.CounterReseeded && res.IndexReseeded:
		return "counter and index reseeded"
	case res.CounterReseeded:
		return "counter reseeded"
	case res.IndexReseeded:
		return "index reseeded"
	}
	return ""
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
