package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/trackside/train-logger/internal/status"
)

// formatSeconds renders a second count the way the dump tooling does,
// e.g. "2d 3h 10m 5s".
func formatSeconds(total int64) string {
	if total < 0 {
		total = 0
	}
	days := total / 86400
	h := total % 86400 / 3600
	m := total % 3600 / 60
	s := total % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		return formatSeconds(int64(d.Truncate(time.Second).Seconds()))
	},
	"secs": func(v int32) string {
		return formatSeconds(int64(v))
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Train Logger</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.normal { color: green; font-weight: bold; }
.readonly { color: orange; font-weight: bold; }
.full { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.warn { color: red; }
.note { color: orange; }
</style>
</head>
<body>
<h1>Train Logger</h1>

{{if .StorageFault}}<p class="warn">Storage backend reported a write fault. Logged data may be incomplete.</p>{{end}}
{{if .CounterReseeded}}<p class="note">Seconds counter was reset at startup (invalid stored value).</p>{{end}}
{{if .IndexReseeded}}<p class="note">Event index was reset at startup (invalid stored value).</p>{{end}}

<h2>State</h2>
<table>
<tr><th>Mode</th><td class="{{.ModeClass}}">{{.Mode.String}}</td></tr>
<tr><th>Seconds counter</th><td>{{secs .Engine.Seconds}} ({{.Engine.Seconds}}s)</td></tr>
<tr><th>Debounce</th><td>{{.Detector.State}}</td></tr>
</table>

<h2>Event Log</h2>
<table>
<tr><th>Events logged</th><td>{{.Engine.EventCount}}</td></tr>
<tr><th>Index pointer</th><td>{{.Engine.IndexPointer}}</td></tr>
<tr><th>Capacity</th><td>{{.Engine.Capacity}} bytes ({{pct .UsedPercent}} used)</td></tr>
<tr><th>Full</th><td>{{if .Engine.Full}}yes{{else}}no{{end}}</td></tr>
<tr><th>Pulses this run</th><td>{{.Detector.Pulses}}</td></tr>
<tr><th>Suppressed triggers</th><td>{{.Detector.Suppressed}}</td></tr>
</table>

<h2>Recent Events</h2>
{{if .RecentRows}}<table>
<tr><th>Address</th><th>Counter</th><th>Age</th></tr>
{{range .RecentRows}}<tr><td>{{.Address}}</td><td>{{.Seconds}}s</td><td>{{.Age}}</td></tr>
{{end}}</table>
{{if .RecordsTruncated}}<p class="note">Older events omitted from this view. The log in storage is complete.</p>{{end}}
{{else}}<p>No events logged.</p>{{end}}

{{if .Config.Broker}}<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Session</th><td>{{.SessionID}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Cooldown</th><td>{{.Config.CooldownTicks}} ticks</td></tr>
<tr><th>Blink</th><td>{{.Config.BlinkSeconds}}s</td></tr>
<tr><th>Storage</th><td>{{.Config.Backend}}{{if .Config.StoragePath}} ({{.Config.StoragePath}}){{end}}</td></tr>
{{if .Config.JournalPath}}<tr><th>Journal</th><td>{{.Config.JournalPath}}</td></tr>{{end}}
</table>

<p><a href="/status.json">status.json</a> | <a href="/records.json">records.json</a></p>
</body>
</html>
`

// maxRecentRows caps the table on the HTML page. The JSON endpoint
// serves the full tracked list.
const maxRecentRows = 20

type recordRow struct {
	Address int
	Seconds int32
	Age     string
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	used := 0.0
	if snap.Engine.Capacity > 0 {
		p := int(snap.Engine.IndexPointer)
		if p > snap.Engine.Capacity {
			p = snap.Engine.Capacity
		}
		if p < 0 {
			p = 0
		}
		used = float64(p) / float64(snap.Engine.Capacity) * 100
	}

	// Newest first for the table.
	rows := make([]recordRow, 0, maxRecentRows)
	for i := len(snap.Records) - 1; i >= 0 && len(rows) < maxRecentRows; i-- {
		rec := snap.Records[i]
		age := snap.Engine.Seconds - rec.Value
		rows = append(rows, recordRow{
			Address: rec.Address,
			Seconds: rec.Value,
			Age:     formatSeconds(int64(age)),
		})
	}

	modeClass := "normal"
	switch snap.Mode.String() {
	case "READ_ONLY":
		modeClass = "readonly"
	case "MEMORY_FULL":
		modeClass = "full"
	}

	data := struct {
		status.Snapshot
		Uptime      time.Duration
		UsedPercent float64
		RecentRows  []recordRow
		ModeClass   string
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		UsedPercent: used,
		RecentRows:  rows,
		ModeClass:   modeClass,
	}
	indexTmpl.Execute(w, data)
}
