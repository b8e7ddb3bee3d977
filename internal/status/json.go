package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Stopped       bool       `json:"stopped"`
	ActiveFans    int        `json:"active_fans"`
	Fans          []FanJSON  `json:"fans"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// FanJSON is the JSON representation of one fan channel.
type FanJSON struct {
	ID        int     `json:"id"`
	Percent   int     `json:"percent"`
	Hz        float64 `json:"hz"`
	RPM       float64 `json:"rpm"`
	Healthy   bool    `json:"healthy"`
	Available bool    `json:"available"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64   `json:"poll_ms"`
	Channels      int     `json:"channels"`
	MaxDuty       uint32  `json:"max_duty"`
	EdgesPerPulse int     `json:"edges_per_pulse"`
	PulsesPerRev  int     `json:"pulses_per_rev"`
	HealthRPM     float64 `json:"health_rpm"`
	Broker        string  `json:"broker"`
	HTTPAddr      string  `json:"http_addr"`
	RecordPath    string  `json:"record_path,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	fans := make([]FanJSON, 0, len(snap.Report.Channels))
	for _, ch := range snap.Report.Channels {
		fans = append(fans, FanJSON{
			ID:        ch.ID,
			Percent:   ch.Percent,
			Hz:        ch.Hz,
			RPM:       ch.RPM,
			Healthy:   ch.Healthy,
			Available: ch.Available,
		})
	}

	return StatusInner{
		Stopped:       snap.Report.Stopped,
		ActiveFans:    snap.Report.ActiveFans(),
		Fans:          fans,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			Channels:      snap.Config.Channels,
			MaxDuty:       snap.Config.MaxDuty,
			EdgesPerPulse: snap.Config.EdgesPerPulse,
			PulsesPerRev:  snap.Config.PulsesPerRev,
			HealthRPM:     snap.Config.HealthRPM,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			RecordPath:    snap.Config.RecordPath,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
