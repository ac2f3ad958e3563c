package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
mqtt:
  broker: tcp://192.168.1.200:1883
  topics:
    doorbell: frigate/doorbell
    motion: frigate/motion
    message: smartchime/message
audio:
  directory: /opt/smartchime/sounds
video:
  default_stream: rtsp://camera/stream
gpio:
  encoders:
    - name: volume
      clk: 17
      dt: 18
      sw: 27
      rotate: volume
      press: mute
    - name: select
      clk: 22
      dt: 23
      sw: 5
      rotate: sound_select
      press: display_toggle
`

func TestParseMinimal(t *testing.T) {
	cfg, warnings, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)
	assert.Equal(t, "frigate/doorbell", cfg.MQTT.Topics.Doorbell)
	require.Len(t, cfg.GPIO.Encoders, 2)
	assert.Equal(t, "display_toggle", cfg.GPIO.Encoders[1].Press)

	// Defaults survive.
	assert.Equal(t, 50*time.Millisecond, cfg.Controls.Tick)
	assert.Equal(t, 5, cfg.Audio.VolumeStep)
	assert.Len(t, cfg.Displays.OLED.Widgets, 3)
}

func TestThrottleTicksAndDurations(t *testing.T) {
	doc := minimalYAML + `
controls:
  tick: 50ms
  throttle:
    volume: 10
    doorbell: 3s
`
	cfg, _, err := Parse([]byte(doc))
	require.NoError(t, err)

	iv := cfg.Intervals()
	assert.Equal(t, 500*time.Millisecond, iv["volume"], "10 ticks at 50ms")
	assert.Equal(t, 3*time.Second, iv["doorbell"])
	// Unspecified categories keep their defaults.
	assert.Equal(t, 5*time.Second, iv["motion"])
	assert.Equal(t, time.Second, iv["default"])
}

func TestIntervalRejectsGarbage(t *testing.T) {
	doc := minimalYAML + `
controls:
  throttle:
    volume: soon
`
	_, _, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttle interval")
}

func TestValidateMissingRequired(t *testing.T) {
	_, _, err := Parse([]byte("mqtt:\n  broker: \"\"\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	for _, want := range []string{
		"mqtt.broker is required",
		"mqtt.topics.doorbell is required",
		"audio.directory is required",
		"at least one encoder",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateBindings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown rotate function",
			mutate:  func(c *Config) { c.GPIO.Encoders[0].Rotate = "brightness" },
			wantErr: `unknown function "brightness"`,
		},
		{
			name:    "unknown press function",
			mutate:  func(c *Config) { c.GPIO.Encoders[1].Press = "reboot" },
			wantErr: `unknown function "reboot"`,
		},
		{
			name:    "shared pin",
			mutate:  func(c *Config) { c.GPIO.Encoders[1].CLK = 17 },
			wantErr: "pin 17 already used by volume.clk",
		},
		{
			name:    "duplicate name",
			mutate:  func(c *Config) { c.GPIO.Encoders[1].Name = "volume" },
			wantErr: `duplicate name "volume"`,
		},
		{
			name:    "unknown widget",
			mutate:  func(c *Config) { c.Displays.OLED.Widgets[0].Kind = "weather" },
			wantErr: `unknown kind "weather"`,
		},
		{
			name:    "unknown auto show trigger",
			mutate:  func(c *Config) { c.Displays.HDMI.AutoShow = []string{"package"} },
			wantErr: `unknown trigger "package"`,
		},
		{
			name:    "missing stream with hdmi",
			mutate:  func(c *Config) { c.Video.DefaultStream = "" },
			wantErr: "video.default_stream is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, err := Parse([]byte(minimalYAML))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClampOutOfRange(t *testing.T) {
	doc := strings.Replace(minimalYAML, "  directory: /opt/smartchime/sounds\n",
		"  directory: /opt/smartchime/sounds\n  volume_step: 500\n  initial_volume: -3\n", 1) +
		"  steps_per_detent: 9\n"
	cfg, warnings, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Audio.VolumeStep)
	assert.Equal(t, 0, cfg.Audio.InitialVolume)
	assert.Equal(t, 4, cfg.GPIO.StepsPerDetent)
	assert.Len(t, warnings, 3)
}

func TestClampWidgetsOntoPanel(t *testing.T) {
	doc := strings.Replace(minimalYAML, "  directory: /opt/smartchime/sounds\n",
		"  directory: /opt/smartchime/sounds\n  max_playback: 0s\n", 1) + `
displays:
  oled:
    width: 128
    height: 32
    widgets:
      - {kind: clock, x: 0, y: 0, width: 96}
      - {kind: message, x: 198, y: 40, width: 64, scroll: true}
`
	cfg, warnings, err := Parse([]byte(doc))
	require.NoError(t, err)

	w := cfg.Displays.OLED.Widgets[1]
	assert.Equal(t, 127, w.X)
	assert.Equal(t, 31, w.Y)
	assert.Equal(t, 1, w.Width)
	assert.Equal(t, WidgetConfig{Kind: "clock", Width: 96}, cfg.Displays.OLED.Widgets[0], "in-range widgets are untouched")
	assert.Equal(t, 30*time.Second, cfg.Audio.MaxPlayback)
	assert.Len(t, warnings, 4)
}

func TestAutoShows(t *testing.T) {
	cfg, _, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.True(t, cfg.AutoShows("doorbell"))
	assert.False(t, cfg.AutoShows("motion"))

	cfg.Displays.HDMI.Enabled = false
	assert.False(t, cfg.AutoShows("doorbell"), "disabled display never auto-shows")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smartchime/message", cfg.MQTT.Topics.Message)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, warnings, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Len(t, cfg.GPIO.Encoders, 2)
	assert.True(t, cfg.AutoShows("doorbell"))
	assert.False(t, cfg.AutoShows("motion"))
	iv := cfg.Intervals()
	assert.Equal(t, 100*time.Millisecond, iv["volume"])
	assert.Equal(t, 2*time.Second, iv["doorbell"])
	assert.Equal(t, time.Second, iv["default"])
}
