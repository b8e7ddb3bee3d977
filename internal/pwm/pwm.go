// Package pwm drives fan control pins with hardware abstraction.
// The real implementation writes the Linux sysfs PWM class.
// The fake implementation allows testing without hardware.
package pwm

// Output is a single PWM control pin. Duty values run 0..maxDuty on
// the scale the pin was created with.
type Output interface {
	// WriteDuty applies a raw duty value to the pin.
	WriteDuty(duty uint32) error

	// ReadDuty returns the duty value currently applied to the pin.
	ReadDuty() (uint32, error)

	// Close disables the output and releases the pin.
	Close() error
}

// Defaults for 4-pin PC fans: the control input expects a fixed 25kHz
// carrier, and duty is commonly expressed on a 10-bit scale.
const (
	DefaultPeriodNs = 40000
	DefaultMaxDuty  = 1023
)
