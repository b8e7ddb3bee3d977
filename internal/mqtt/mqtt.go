// Package mqtt publishes fan telemetry and receives control commands,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for per-fan telemetry events.
const Topic = "fans/bank/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "fans/bank/system"

// TopicCommand is the MQTT topic the daemon subscribes to for control
// commands.
const TopicCommand = "fans/bank/command"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a fan telemetry event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Telemetry) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Telemetry event names.
const (
	EventAlarm            = "ALARM"
	EventAlarmCleared     = "ALARM_CLEARED"
	EventStable           = "STABLE"
	EventStabilizeTimeout = "STABILIZE_TIMEOUT"
)

// Telemetry is one per-fan event published on the events topic.
type Telemetry struct {
	Timestamp time.Time
	Event     string // e.g. "ALARM", "STABLE"
	Channel   int
	Percent   int     // commanded speed percent at the time of the event
	Hz        float64 // measured FG frequency
	RPM       float64 // measured speed
	TargetRPM float64 // stabilization events only, 0 otherwise
}

// SystemEvent represents a system lifecycle event (e.g. startup,
// shutdown, emergency stop, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "EMERGENCY_STOP", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the telemetry message payload structure.
type Payload struct {
	Fan FanPayload `json:"fan"`
}

// FanPayload contains the telemetry event details.
type FanPayload struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	Channel   int     `json:"channel"`
	Percent   int     `json:"percent"`
	Hz        float64 `json:"hz"`
	RPM       float64 `json:"rpm"`
	TargetRPM float64 `json:"target_rpm,omitempty"`
}

// FormatPayload creates the JSON payload for a telemetry event.
func FormatPayload(event Telemetry) ([]byte, error) {
	payload := Payload{
		Fan: FanPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Channel:   event.Channel,
			Percent:   event.Percent,
			Hz:        event.Hz,
			RPM:       event.RPM,
			TargetRPM: event.TargetRPM,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
