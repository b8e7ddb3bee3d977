package pwm

// FakeOutput records duty writes for test assertions.
type FakeOutput struct {
	// Duty is the last value written.
	Duty uint32

	// Writes contains every value written, in order.
	Writes []uint32

	// WriteError, if set, will be returned by WriteDuty.
	WriteError error

	// ReadError, if set, will be returned by ReadDuty.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput at duty 0.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// WriteDuty records the duty value.
func (f *FakeOutput) WriteDuty(duty uint32) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Duty = duty
	f.Writes = append(f.Writes, duty)
	return nil
}

// ReadDuty returns the last written duty value.
func (f *FakeOutput) ReadDuty() (uint32, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.Duty, nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and errors.
func (f *FakeOutput) Reset() {
	f.Duty = 0
	f.Writes = nil
	f.WriteError = nil
	f.ReadError = nil
	f.Closed = false
}
