//go:build !linux

package edge

import "errors"

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(chip string, offsets []int, handler Handler) (*RealSource, error) {
	return nil, errors.New("edge: not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (s *RealSource) Close() error {
	return nil
}
