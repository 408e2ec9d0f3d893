package gpio

// SimReader is a synthetic trigger source for bench runs without a
// sensor attached: it holds the line triggered for burstTicks polling
// ticks at the start of every periodTicks window, imitating a train
// shaking the sensor and then a long quiet gap.
type SimReader struct {
	periodTicks int
	burstTicks  int
	tick        int
}

var _ Reader = (*SimReader)(nil)

// NewSimReader creates a simulated trigger source. periodTicks is the
// full cycle length; burstTicks is how long the line stays triggered
// at the start of each cycle.
func NewSimReader(periodTicks, burstTicks int) *SimReader {
	if periodTicks < 1 {
		periodTicks = 1
	}
	if burstTicks < 0 {
		burstTicks = 0
	}
	if burstTicks > periodTicks {
		burstTicks = periodTicks
	}
	return &SimReader{periodTicks: periodTicks, burstTicks: burstTicks}
}

// Read returns the synthetic trigger state for the current tick.
func (s *SimReader) Read() (bool, error) {
	triggered := s.tick%s.periodTicks < s.burstTicks
	s.tick++
	return triggered, nil
}

// Close does nothing.
func (s *SimReader) Close() error {
	return nil
}
