package gpio

import "errors"

// FakeReader is a test double that returns scripted trigger samples.
type FakeReader struct {
	// Samples contains scripted logical trigger values. Each call to
	// Read consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeIndicator records every level written to the LED.
type FakeIndicator struct {
	// Levels contains each value passed to Set, in order.
	Levels []bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set
	SetError error
}

// NewFakeIndicator creates an indicator that records Set calls.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the level.
func (f *FakeIndicator) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, on)
	return nil
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// NoopIndicator satisfies Indicator when no LED is configured.
type NoopIndicator struct{}

// Set does nothing.
func (NoopIndicator) Set(on bool) error { return nil }

// Close does nothing.
func (NoopIndicator) Close() error { return nil }

var (
	_ Reader    = (*FakeReader)(nil)
	_ Indicator = (*FakeIndicator)(nil)
	_ Indicator = NoopIndicator{}
)
