package dumpfile

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackside/train-logger/internal/codec"
	"github.com/trackside/train-logger/internal/eventlog"
	"github.com/trackside/train-logger/internal/storage"
)

// seedRegion builds a 24-byte region with counter 412, pointer 16 and
// events 128 and 196.
func seedRegion(t *testing.T) *storage.Memory {
	t.Helper()
	mem := storage.NewMemory(24)
	writeSlot(mem, 0, 412)
	writeSlot(mem, 4, 16)
	writeSlot(mem, 8, 128)
	writeSlot(mem, 12, 196)
	return mem
}

func writeSlot(dev storage.Device, address int, v int32) {
	buf := codec.EncodeLong(v)
	for i := 0; i < codec.Width; i++ {
		dev.WriteByte(address+i, buf[i])
	}
}

func TestWriteFormat(t *testing.T) {
	mem := seedRegion(t)
	capturedAt := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, mem, eventlog.DefaultLayout(), capturedAt))

	want := `# train-logger memory dump
# captured: 2026-08-23T10:00:00Z
# capacity: 24 bytes
[0] = 412 # seconds counter
[4] = 16 # event index
[8] = 128
[12] = 196
[16] = 0
[20] = 0
`
	assert.Equal(t, want, buf.String())
}

func TestWriteParseRoundTrip(t *testing.T) {
	mem := seedRegion(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, mem, eventlog.DefaultLayout(), time.Now()))

	entries, err := Parse(&buf)
	require.NoError(t, err)

	records := eventlog.Records(mem)
	require.Len(t, entries, len(records))
	for i, rec := range records {
		assert.Equal(t, rec.Address, entries[i].Address)
		assert.Equal(t, rec.Value, entries[i].Value)
	}
}

func TestParseSkipsNoise(t *testing.T) {
	entries, err := Parse(strings.NewReader(`
# a comment line
Start date: 2020-12-04 20:54:00

[0] = 1000
some stray console output
[4] = 16
`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Address: 0, Value: 1000}, entries[0])
	assert.Equal(t, Entry{Address: 4, Value: 16}, entries[1])
}

func TestParseTrailingComment(t *testing.T) {
	entries, err := Parse(strings.NewReader("[0] = 1000 # Actual timestamp\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int32(1000), entries[0].Value)
}

func TestParseNegativeValue(t *testing.T) {
	entries, err := Parse(strings.NewReader("[8] = -5\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int32(-5), entries[0].Value)
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"[x] = 5\n",
		"[8] 128\n",
		"[8 = 128\n",
		"[8] = many\n",
		"[8] = \n",
	}
	for _, input := range cases {
		_, err := Parse(strings.NewReader(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestEntriesFromDevice(t *testing.T) {
	mem := seedRegion(t)

	entries := EntriesFromDevice(mem, eventlog.DefaultLayout())

	want := []Entry{
		{Address: 0, Value: 412},
		{Address: 4, Value: 16},
		{Address: 8, Value: 128},
		{Address: 12, Value: 196},
		{Address: 16, Value: 0},
		{Address: 20, Value: 0},
	}
	assert.Equal(t, want, entries)
}

func TestEntriesFromDeviceCustomLayout(t *testing.T) {
	// Header parked at 16/20, records from 24.
	mem := storage.NewMemory(32)
	writeSlot(mem, 16, 99)
	writeSlot(mem, 20, 24)
	writeSlot(mem, 24, 7)

	entries := EntriesFromDevice(mem, eventlog.Layout{CounterAddress: 16, IndexAddress: 20})

	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Address: 16, Value: 99}, entries[0])
	assert.Equal(t, Entry{Address: 20, Value: 24}, entries[1])
	assert.Equal(t, Entry{Address: 24, Value: 7}, entries[2])
	assert.Equal(t, Entry{Address: 28, Value: 0}, entries[3])
}

func TestInterpret(t *testing.T) {
	start, err := time.Parse(DateLayout, "2020-12-04 20:54:00")
	require.NoError(t, err)

	entries := []Entry{
		{Address: 0, Value: 412},
		{Address: 4, Value: 16},
		{Address: 8, Value: 128},
		{Address: 12, Value: 196},
		{Address: 16, Value: 0},
		{Address: 20, Value: 77},
	}

	rep, err := Interpret(entries, start)
	require.NoError(t, err)

	assert.Equal(t, int32(412), rep.CounterSeconds)
	assert.Equal(t, "0d 0h 6m 52s", rep.Uptime)
	assert.Equal(t, int32(16), rep.IndexPointer)

	// The zero slot at [16] ends the log; the 77 after it is stale.
	require.Len(t, rep.Events, 2)

	first := rep.Events[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 8, first.Address)
	assert.Equal(t, int32(128), first.Seconds)
	assert.Equal(t, "2020-12-04 20:56:08", first.Date.Format(DateLayout))
	assert.Equal(t, "0d 0h 2m 8s", first.Delta)

	second := rep.Events[1]
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, "2020-12-04 20:57:16", second.Date.Format(DateLayout))
}

func TestInterpretZeroHeaderSlots(t *testing.T) {
	// A freshly erased region has zero counter and a reset pointer.
	// That is reportable state, not a missing dump.
	start := time.Date(2020, 12, 4, 20, 54, 0, 0, time.UTC)
	entries := []Entry{
		{Address: 0, Value: 0},
		{Address: 4, Value: 4},
		{Address: 8, Value: 60},
	}

	rep, err := Interpret(entries, start)
	require.NoError(t, err)
	assert.Equal(t, "0d 0h 0m 0s", rep.Uptime)
	require.Len(t, rep.Events, 1)
	assert.Equal(t, int32(60), rep.Events[0].Seconds)
}

func TestInterpretTooShort(t *testing.T) {
	_, err := Interpret([]Entry{{Address: 0, Value: 412}}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dump too short")
}

func TestInterpretNoEvents(t *testing.T) {
	rep, err := Interpret([]Entry{
		{Address: 0, Value: 30},
		{Address: 4, Value: 4},
	}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, rep.Events)
}

func TestFormatDelta(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0d 0h 0m 0s"},
		{59, "0d 0h 0m 59s"},
		{60, "0d 0h 1m 0s"},
		{3600, "0d 1h 0m 0s"},
		{86400, "1d 0h 0m 0s"},
		{93784, "1d 2h 3m 4s"},
		{-61, "0d 0h 1m 1s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDelta(tc.seconds), "seconds=%d", tc.seconds)
	}
}
