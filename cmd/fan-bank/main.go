// Command fan-bank drives a bank of PWM fans, reads their FG
// tachometer lines, and publishes telemetry to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/fan-bank/internal/bank"
	"github.com/sweeney/fan-bank/internal/config"
	"github.com/sweeney/fan-bank/internal/edge"
	"github.com/sweeney/fan-bank/internal/mqtt"
	"github.com/sweeney/fan-bank/internal/pwm"
	"github.com/sweeney/fan-bank/internal/recorder"
	"github.com/sweeney/fan-bank/internal/stability"
	"github.com/sweeney/fan-bank/internal/status"
	"github.com/sweeney/fan-bank/internal/tacho"
	"github.com/sweeney/fan-bank/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults used when empty)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config, \"off\" disables)")
	poll := flag.Duration("poll", 0, "Tachometer polling interval (overrides config)")
	record := flag.String("record", "", "CSV file to record fan status to (empty disables)")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	cfg = applyOverrides(cfg, *broker, *httpAddr, *poll)

	if err := run(cfg, *record); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyOverrides layers non-empty flag values over the config.
func applyOverrides(cfg config.Config, broker, httpAddr string, poll time.Duration) config.Config {
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	if httpAddr == "off" {
		cfg.HTTP.Addr = ""
	} else if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if poll > 0 {
		cfg.Tacho.Poll = config.Duration(poll)
	}
	return cfg
}

func run(cfg config.Config, recordPath string) error {
	counter := tacho.NewCounter(cfg.Channels())

	// FG feedback is the core measurement; without it there is nothing
	// to run.
	source, err := edge.NewRealSource(cfg.Fans.Feedback.Chip, cfg.Fans.Feedback.Offsets, counter.OnEdge)
	if err != nil {
		return fmt.Errorf("init fg lines: %w", err)
	}
	defer source.Close()

	// A fan whose PWM fails to initialize stays in the bank as
	// unavailable so the other seven keep working.
	outputs := make([]pwm.Output, cfg.Channels())
	for i, pin := range cfg.Fans.Control {
		out, err := pwm.NewPin(pin.Chip, pin.Channel, cfg.PWM.PeriodNs, cfg.PWM.MaxDuty)
		if err != nil {
			log.Printf("fan %d: pwm init (chip %d ch %d): %v", i, pin.Chip, pin.Channel, err)
			continue
		}
		outputs[i] = out
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Close()
			}
		}
	}()

	est := tacho.NewEstimator(counter, cfg.Tacho.EdgesPerPulse, cfg.Tacho.PulsesPerRev, time.Now)
	fans := bank.New(outputs, cfg.PWM.MaxDuty, est)

	client := mqtt.NewRealClient(cfg.MQTT.Broker)
	if err := client.Connect(); err != nil {
		// Paho reconnects in the background; queued messages flush then.
		log.Printf("mqtt connect: %v (will retry)", err)
	}
	defer client.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:        cfg.Tacho.Poll.Std().Milliseconds(),
		Channels:      cfg.Channels(),
		MaxDuty:       cfg.PWM.MaxDuty,
		EdgesPerPulse: cfg.Tacho.EdgesPerPulse,
		PulsesPerRev:  cfg.Tacho.PulsesPerRev,
		HealthRPM:     cfg.Tacho.HealthRPM,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		RecordPath:    recordPath,
	})

	var rec *recorder.Recorder
	if recordPath != "" {
		rec, err = recorder.New(recordPath, cfg.Channels())
		if err != nil {
			return fmt.Errorf("init recorder: %w", err)
		}
		defer rec.Close()
		log.Printf("recording fan status to %s", recordPath)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: fans=%d poll=%v broker=%s health=%.0frpm",
		cfg.Channels(), cfg.Tacho.Poll.Std(), cfg.MQTT.Broker, cfg.Tacho.HealthRPM)

	ticker := time.NewTicker(cfg.Tacho.Poll.Std())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(fans, est, client, client, client.Commands(), tracker, rec, cfg, time.Now, ticker.C, sigCh)
}

func runLoop(fans *bank.Bank, est *tacho.Estimator, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, commands <-chan mqtt.Command, tracker *status.Tracker, rec *recorder.Recorder, cfg config.Config, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	monitors := make(map[int]*stability.Monitor)
	alarmed := make(map[int]bool)
	warmed := false
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			for _, err := range fans.EmergencyStop() {
				log.Printf("emergency stop: %v", err)
			}
			name := signalName(s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    name,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.Update(fans.StatusReport(cfg.Tacho.HealthRPM))
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", name)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case cmd := <-commands:
			handleCommand(fans, publisher, monitors, cfg, now, cmd, tracker)

		case <-tick:
			t := now()

			for ch := 0; ch < fans.Channels(); ch++ {
				sample, err := est.Sample(ch)
				if err != nil {
					log.Printf("fan %d: sample: %v", ch, err)
					continue
				}
				stepMonitor(publisher, monitors, ch, sample, fans)
			}

			report := fans.StatusReport(cfg.Tacho.HealthRPM)

			// The first poll only primes the counters; alarm checks
			// start on the second.
			if warmed {
				checkAlarms(publisher, alarmed, report, t)
			}
			warmed = true

			if tracker != nil {
				tracker.Update(report)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if rec != nil {
				if err := rec.Append(t, recorderRow(report)); err != nil {
					log.Printf("record: %v", err)
				}
			}

			if hb := cfg.MQTT.Heartbeat.Std(); hb > 0 && t.Sub(lastHeartbeat) >= hb {
				lastHeartbeat = t
				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// handleCommand applies one MQTT control command to the bank.
func handleCommand(fans *bank.Bank, publisher mqtt.Publisher, monitors map[int]*stability.Monitor, cfg config.Config, now func() time.Time, cmd mqtt.Command, tracker *status.Tracker) {
	switch cmd.Cmd {
	case mqtt.CmdStop:
		log.Printf("command: emergency stop")
		for _, err := range fans.EmergencyStop() {
			log.Printf("emergency stop: %v", err)
		}
		// Pending stabilization runs are moot once everything is off.
		for ch := range monitors {
			delete(monitors, ch)
		}
		event := mqtt.SystemEvent{
			Timestamp: now(),
			Event:     "EMERGENCY_STOP",
			Retained:  true,
		}
		if tracker != nil {
			tracker.Update(fans.StatusReport(cfg.Tacho.HealthRPM))
			event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "EMERGENCY_STOP", "")
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("emergency stop publish error: %v", err)
		}

	case mqtt.CmdSet:
		if err := fans.SetSpeed(cmd.Fan, cmd.Speed); err != nil {
			log.Printf("command: set fan %d to %d%%: %v", cmd.Fan, cmd.Speed, err)
			return
		}
		log.Printf("command: fan %d set to %d%%", cmd.Fan, cmd.Speed)
		if cmd.TargetRPM > 0 {
			monitors[cmd.Fan] = stability.NewMonitor(cmd.TargetRPM, cfg.Stability.ToleranceRPM, cfg.Stability.Required, cfg.Stability.Timeout.Std())
		}

	case mqtt.CmdSetAll:
		speeds := cmd.Speeds
		if len(speeds) == 0 {
			speeds = make([]int, fans.Channels())
			for i := range speeds {
				speeds[i] = cmd.Speed
			}
		}
		if err := fans.SetAll(speeds); err != nil {
			log.Printf("command: set all: %v", err)
			return
		}
		log.Printf("command: all fans set to %v", speeds)
	}
}

// stepMonitor advances a pending stabilization run for a channel and
// publishes its outcome.
func stepMonitor(publisher mqtt.Publisher, monitors map[int]*stability.Monitor, ch int, sample tacho.Sample, fans *bank.Bank) {
	mon, ok := monitors[ch]
	if !ok {
		return
	}

	state := mon.Step(sample)
	if state == stability.Sampling {
		return
	}
	delete(monitors, ch)

	eventName := mqtt.EventStable
	if state == stability.TimedOut {
		eventName = mqtt.EventStabilizeTimeout
	}
	log.Printf("fan %d: stabilization %s (target=%.0frpm last=%.0frpm)", ch, state, mon.TargetRPM(), sample.RPM)

	percent := 0
	if c := fans.Channel(ch); c != nil {
		percent = c.Commanded()
	}
	event := mqtt.Telemetry{
		Timestamp: sample.SampledAt,
		Event:     eventName,
		Channel:   ch,
		Percent:   percent,
		Hz:        sample.Hz,
		RPM:       sample.RPM,
		TargetRPM: mon.TargetRPM(),
	}
	if err := publisher.Publish(event); err != nil {
		log.Printf("publish error: %v", err)
	}
}

// checkAlarms raises an alarm for any powered fan with no healthy
// feedback, and clears it once feedback returns or the fan is stopped.
func checkAlarms(publisher mqtt.Publisher, alarmed map[int]bool, report bank.Report, t time.Time) {
	for _, ch := range report.Channels {
		if !ch.Available {
			continue
		}
		inAlarm := ch.Percent > 0 && !ch.Healthy

		if inAlarm && !alarmed[ch.ID] {
			alarmed[ch.ID] = true
			log.Printf("fan %d: ALARM (commanded %d%%, measured %.0frpm)", ch.ID, ch.Percent, ch.RPM)
			publishTelemetry(publisher, mqtt.Telemetry{
				Timestamp: t,
				Event:     mqtt.EventAlarm,
				Channel:   ch.ID,
				Percent:   ch.Percent,
				Hz:        ch.Hz,
				RPM:       ch.RPM,
			})
		} else if !inAlarm && alarmed[ch.ID] {
			delete(alarmed, ch.ID)
			log.Printf("fan %d: alarm cleared (%.0frpm)", ch.ID, ch.RPM)
			publishTelemetry(publisher, mqtt.Telemetry{
				Timestamp: t,
				Event:     mqtt.EventAlarmCleared,
				Channel:   ch.ID,
				Percent:   ch.Percent,
				Hz:        ch.Hz,
				RPM:       ch.RPM,
			})
		}
	}
}

func publishTelemetry(publisher mqtt.Publisher, event mqtt.Telemetry) {
	if err := publisher.Publish(event); err != nil {
		log.Printf("publish error: %v", err)
	}
}

func recorderRow(report bank.Report) recorder.Row {
	row := recorder.Row{
		Percents:   make([]int, len(report.Channels)),
		RPMs:       make([]float64, len(report.Channels)),
		ActiveFans: report.ActiveFans(),
		Stopped:    report.Stopped,
	}
	for i, ch := range report.Channels {
		row.Percents[i] = ch.Percent
		row.RPMs[i] = ch.RPM
	}
	return row
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
