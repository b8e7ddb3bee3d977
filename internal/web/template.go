package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/fan-bank/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
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
	},
	"rpm": func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	},
	"hz": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Fan Bank</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.healthy { color: green; font-weight: bold; }
.unhealthy { color: red; font-weight: bold; }
.idle { color: #888; }
.unavailable { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.stopped { color: red; font-weight: bold; }
</style>
</head>
<body>
<h1>Fan Bank{{if .Report.Stopped}} <span class="stopped">[STOPPED]</span>{{end}}</h1>

<h2>Fans</h2>
<table>
<tr><th>Fan</th><th>Speed</th><th>FG</th><th>RPM</th><th>Status</th></tr>
{{range .Report.Channels}}
<tr>
<td>{{.ID}}</td>
{{if .Available}}
<td>{{.Percent}}%</td>
<td>{{hz .Hz}} Hz</td>
<td>{{rpm .RPM}}</td>
<td class="{{if .Healthy}}healthy{{else if gt .Percent 0}}unhealthy{{else}}idle{{end}}">{{if .Healthy}}OK{{else if gt .Percent 0}}STALLED{{else}}idle{{end}}</td>
{{else}}
<td colspan="4" class="unavailable">unavailable</td>
{{end}}
</tr>
{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Active fans</th><td>{{.Report.ActiveFans}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Edges/pulse</th><td>{{.Config.EdgesPerPulse}}</td></tr>
<tr><th>Pulses/rev</th><td>{{.Config.PulsesPerRev}}</td></tr>
<tr><th>Health RPM</th><td>{{rpm .Config.HealthRPM}}</td></tr>
<tr><th>Recording</th><td>{{if .Config.RecordPath}}{{.Config.RecordPath}}{{else}}disabled{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
