// Package config loads the daemon configuration. All values have
// defaults matching the reference 8-fan deployment; a YAML file
// overrides them, and flags override the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that YAML decodes from "500ms" style
// strings or plain nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("bad duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Fans      FansConfig      `yaml:"fans"`
	PWM       PWMConfig       `yaml:"pwm"`
	Tacho     TachoConfig     `yaml:"tacho"`
	Stability StabilityConfig `yaml:"stability"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
}

type FansConfig struct {
	// Control lists one sysfs PWM (chip, channel) pair per fan.
	Control []ControlPin `yaml:"control"`
	// Feedback names the GPIO chip and the FG line offset per fan.
	// Offsets[i] is the feedback line for Control[i].
	Feedback FeedbackConfig `yaml:"feedback"`
}

type ControlPin struct {
	Chip    int `yaml:"chip"`
	Channel int `yaml:"channel"`
}

type FeedbackConfig struct {
	Chip    string `yaml:"chip"`
	Offsets []int  `yaml:"offsets"`
}

type PWMConfig struct {
	PeriodNs uint32 `yaml:"period_ns"`
	MaxDuty  uint32 `yaml:"max_duty"`
}

type TachoConfig struct {
	EdgesPerPulse int           `yaml:"edges_per_pulse"`
	PulsesPerRev  int           `yaml:"pulses_per_rev"`
	Poll          Duration      `yaml:"poll"`
	HealthRPM     float64       `yaml:"health_rpm"`
}

type StabilityConfig struct {
	ToleranceRPM float64       `yaml:"tolerance_rpm"`
	Required     int           `yaml:"required_consecutive"`
	Timeout      Duration      `yaml:"timeout"`
}

type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	Heartbeat Duration      `yaml:"heartbeat"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Channels returns the number of fan positions configured.
func (c Config) Channels() int {
	return len(c.Fans.Control)
}

// Default returns the reference 8-fan deployment: two PWM channels per
// pwmchip, FG lines on gpiochip0.
func Default() Config {
	return Config{
		Fans: FansConfig{
			Control: []ControlPin{
				{Chip: 0, Channel: 0}, {Chip: 0, Channel: 1},
				{Chip: 1, Channel: 0}, {Chip: 1, Channel: 1},
				{Chip: 2, Channel: 0}, {Chip: 2, Channel: 1},
				{Chip: 3, Channel: 0}, {Chip: 3, Channel: 1},
			},
			Feedback: FeedbackConfig{
				Chip:    "gpiochip0",
				Offsets: []int{19, 18, 5, 17, 16, 4, 2, 15},
			},
		},
		PWM: PWMConfig{
			PeriodNs: 40000, // 25kHz
			MaxDuty:  1023,
		},
		Tacho: TachoConfig{
			EdgesPerPulse: 2,
			PulsesPerRev:  2,
			Poll:          Duration(500 * time.Millisecond),
			HealthRPM:     500,
		},
		Stability: StabilityConfig{
			ToleranceRPM: 50,
			Required:     3,
			Timeout:      Duration(10 * time.Second),
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			Heartbeat: Duration(15 * time.Minute),
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural invariants the rest of the daemon relies
// on.
func (c Config) Validate() error {
	if len(c.Fans.Control) == 0 {
		return fmt.Errorf("no fans configured")
	}
	if len(c.Fans.Feedback.Offsets) != len(c.Fans.Control) {
		return fmt.Errorf("%d feedback offsets for %d fans", len(c.Fans.Feedback.Offsets), len(c.Fans.Control))
	}
	if c.PWM.PeriodNs == 0 {
		return fmt.Errorf("pwm period must be positive")
	}
	if c.PWM.MaxDuty == 0 {
		return fmt.Errorf("pwm max duty must be positive")
	}
	if c.Tacho.EdgesPerPulse < 1 {
		return fmt.Errorf("edges_per_pulse must be >= 1, got %d", c.Tacho.EdgesPerPulse)
	}
	if c.Tacho.PulsesPerRev < 1 {
		return fmt.Errorf("pulses_per_rev must be >= 1, got %d", c.Tacho.PulsesPerRev)
	}
	if c.Tacho.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Tacho.Poll)
	}
	if c.Stability.Required < 1 {
		return fmt.Errorf("required_consecutive must be >= 1, got %d", c.Stability.Required)
	}
	if c.Stability.Timeout <= 0 {
		return fmt.Errorf("stability timeout must be positive, got %v", c.Stability.Timeout)
	}
	return nil
}
