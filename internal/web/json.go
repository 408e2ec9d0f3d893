package web

import (
	"encoding/json"

	"github.com/trackside/train-logger/internal/status"
)

// RecordsJSON is the document served at /records.json.
type RecordsJSON struct {
	Records []RecordJSON `json:"records"`
	Count   int          `json:"count"`
	// Truncated reports that the daemon's record list hit its display
	// cap and older records were dropped from this view. The log in
	// storage is complete regardless.
	Truncated bool `json:"truncated,omitempty"`
}

// RecordJSON is one logged event.
type RecordJSON struct {
	Address int   `json:"address"`
	Seconds int32 `json:"seconds"`
}

func formatRecordsJSON(snap status.Snapshot) []byte {
	records := make([]RecordJSON, 0, len(snap.Records))
	for _, r := range snap.Records {
		records = append(records, RecordJSON{Address: r.Address, Seconds: r.Value})
	}

	out := RecordsJSON{
		Records:   records,
		Count:     len(records),
		Truncated: snap.RecordsTruncated,
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}
