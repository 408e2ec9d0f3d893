package eventlog

import "github.com/trackside/train-logger/internal/storage"

// Record is one decoded 4-byte slot of the region.
type Record struct {
	Address int
	Value   int32
}

// Header is the decoded fixed-offset state of a region, read without
// an engine and without any self-healing writes. Inspection tools use
// it so that looking at a region can never mutate it.
type Header struct {
	Seconds    int32
	Index      int32
	Capacity   int
	EventCount int
}

// ReadHeader decodes the header fields of dev under the given layout.
func ReadHeader(dev storage.Device, layout Layout) Header {
	h := Header{
		Seconds:  readLong(dev, layout.CounterAddress),
		Index:    readLong(dev, layout.IndexAddress),
		Capacity: dev.Capacity(),
	}
	if h.Index > int32(layout.IndexAddress) {
		h.EventCount = int(h.Index-int32(layout.IndexAddress)) / RecordSize
	}
	return h
}

// Cursor walks every 4-byte-aligned slot of a region from offset 0 up
// to capacity, lazily and read-only.
type Cursor struct {
	dev  storage.Device
	next int
}

// Dump returns a cursor over dev. It works on a bare device so that
// inspection never constructs an engine and never triggers the
// engine's self-healing writes.
func Dump(dev storage.Device) *Cursor {
	return &Cursor{dev: dev}
}

// Next returns the next slot and true, or a zero Record and false
// once every slot that fits inside the region has been returned.
func (c *Cursor) Next() (Record, bool) {
	if c.next+RecordSize > c.dev.Capacity() {
		return Record{}, false
	}
	r := Record{Address: c.next, Value: readLong(c.dev, c.next)}
	c.next += RecordSize
	return r, true
}

// Reset rewinds the cursor to offset 0.
func (c *Cursor) Reset() {
	c.next = 0
}

// Records drains a fresh cursor over dev into a slice.
func Records(dev storage.Device) []Record {
	var out []Record
	cur := Dump(dev)
	for {
		r, ok := cur.Next()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}
