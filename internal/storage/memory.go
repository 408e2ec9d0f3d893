package storage

// Memory is an in-memory Device for tests and bench runs. It counts
// landed writes so tests can assert that a full log stops touching
// storage, and counts out-of-range accesses so a bounds bug in the
// caller cannot pass silently.
type Memory struct {
	data []byte

	// WriteCount is the number of WriteByte calls that landed in range.
	WriteCount int

	// OutOfRange is the number of reads and writes rejected for being
	// outside the region.
	OutOfRange int
}

var _ Device = (*Memory)(nil)

// NewMemory returns a zero-filled in-memory region of the given
// capacity, matching factory-fresh storage.
func NewMemory(capacity int) *Memory {
	return &Memory{data: make([]byte, capacity)}
}

// NewMemoryFrom returns an in-memory region seeded with a copy of
// data, for tests that start from a previously persisted image.
func NewMemoryFrom(data []byte) *Memory {
	m := &Memory{data: make([]byte, len(data))}
	copy(m.data, data)
	return m
}

// ReadByte returns the byte at address, or 0 if address is out of
// range.
func (m *Memory) ReadByte(address int) byte {
	if address < 0 || address >= len(m.data) {
		m.OutOfRange++
		return 0
	}
	return m.data[address]
}

// WriteByte stores b at address. Out-of-range writes are dropped.
func (m *Memory) WriteByte(address int, b byte) {
	if address < 0 || address >= len(m.data) {
		m.OutOfRange++
		return
	}
	m.data[address] = b
	m.WriteCount++
}

// Capacity returns the region size in bytes.
func (m *Memory) Capacity() int {
	return len(m.data)
}

// ResetCounters clears the write and out-of-range counters without
// touching the stored bytes.
func (m *Memory) ResetCounters() {
	m.WriteCount = 0
	m.OutOfRange = 0
}

// Bytes returns a copy of the region contents.
func (m *Memory) Bytes() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
