package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/smartchime/internal/status"
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
	"ago": func(t, now time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return now.Sub(t).Truncate(time.Second).String() + " ago"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Smartchime</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.panel { image-rendering: pixelated; width: 100%; background: #000; border: 1px solid #444; }
</style>
</head>
<body>
<h1>Smartchime</h1>
{{if .HasFrame}}
<img class="panel" src="/display.png" alt="status display">
{{end}}

<h2>Audio</h2>
<table>
<tr><th>Volume</th><td>{{if .Muted}}<span class="off">MUTE</span> ({{.Volume}}%){{else}}{{.Volume}}%{{end}}</td></tr>
<tr><th>Doorbell sound</th><td>{{if .Sound}}{{.Sound}}{{else}}none{{end}}</td></tr>
<tr><th>Playing</th><td>{{if .Playing}}<span class="on">{{.Playing}}</span>{{else}}idle{{end}}</td></tr>
</table>

<h2>Activity</h2>
<table>
<tr><th>Message</th><td>{{if .Message}}{{.Message}}{{else}}<span class="off">none</span>{{end}}</td></tr>
<tr><th>Motion</th><td>{{if .MotionActive}}<span class="on">active</span>{{else}}{{ago .LastMotion .Now}}{{end}}</td></tr>
<tr><th>Doorbell</th><td>{{ago .LastDoorbell .Now}}</td></tr>
{{if .Track}}<tr><th>Now playing</th><td>{{.Track}}</td></tr>{{end}}
<tr><th>Video</th><td>{{if .Large.Visible}}<span class="on">{{.Large.Source}}</span> ({{.Large.TriggeredBy}}{{if .Large.Manual}}, manual{{end}}){{else}}<span class="off">off</span>{{end}}</td></tr>
</table>

<h2>Controls</h2>
<table>
{{range .Encoders}}<tr><th>{{.Name}}</th><td>pos {{.Position}}, steps {{.Steps}}, presses {{.Presses}}, throttled {{.Throttled}}, bounces {{.Bounces}}</td></tr>
{{else}}<tr><th>Encoders</th><td>none</td></tr>
{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Doorbell</th><td>{{.Counts.Doorbell}}</td></tr>
<tr><th>Motion</th><td>{{.Counts.Motion}}</td></tr>
<tr><th>Message</th><td>{{.Counts.Message}}</td></tr>
<tr><th>Track</th><td>{{.Counts.Track}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sounds</th><td>{{.Config.SoundDir}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, hasFrame bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		HasFrame bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		HasFrame: hasFrame,
	}
	indexTmpl.Execute(w, data)
}
