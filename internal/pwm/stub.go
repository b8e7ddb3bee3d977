//go:build !linux

package pwm

import "errors"

// Pin is not available on non-Linux platforms.
type Pin struct{}

// NewPin returns an error on non-Linux platforms.
func NewPin(chip, channel int, periodNs, maxDuty uint32) (*Pin, error) {
	return nil, errors.New("pwm: not supported on this platform (requires Linux)")
}

// WriteDuty is not implemented on non-Linux platforms.
func (p *Pin) WriteDuty(duty uint32) error {
	return errors.New("pwm: not supported")
}

// ReadDuty is not implemented on non-Linux platforms.
func (p *Pin) ReadDuty() (uint32, error) {
	return 0, errors.New("pwm: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *Pin) Close() error {
	return nil
}
