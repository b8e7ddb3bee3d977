package bank

import (
	"errors"
	"fmt"
)

// Sentinel errors for command validation, matched with errors.Is.
// Hardware write failures are not sentinels; match those with
// errors.As on *WriteError.
var (
	ErrInvalidChannel     = errors.New("channel out of range")
	ErrInvalidSpeed       = errors.New("speed percent out of range")
	ErrChannelUnavailable = errors.New("channel hardware unavailable")
)

// WriteError reports a failed PWM write on one channel. Other channels
// are unaffected.
type WriteError struct {
	Channel int
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("fan %d: pwm write: %v", e.Channel, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
