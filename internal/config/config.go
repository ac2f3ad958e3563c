// Package config loads the smartchime YAML configuration.
// A Config is immutable once Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "/etc/smartchime/config.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete daemon configuration.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Audio    AudioConfig    `yaml:"audio"`
	Displays DisplaysConfig `yaml:"displays"`
	Video    VideoConfig    `yaml:"video"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Controls ControlsConfig `yaml:"controls"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// MQTTConfig holds broker settings.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"` // e.g. tcp://192.168.1.200:1883
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	ClientID  string        `yaml:"client_id"` // empty = generated
	Topics    Topics        `yaml:"topics"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
}

// Topics names the subscribed and published topics.
type Topics struct {
	Doorbell string `yaml:"doorbell"`
	Motion   string `yaml:"motion"`
	Message  string `yaml:"message"`
	Track    string `yaml:"track"`  // optional
	System   string `yaml:"system"` // optional, lifecycle/status events
}

// AudioConfig holds sound and mixer settings.
type AudioConfig struct {
	Directory     string        `yaml:"directory"`
	DefaultSound  string        `yaml:"default_sound"`
	MotionSound   string        `yaml:"motion_sound"` // empty = motion is silent
	VolumeStep    int           `yaml:"volume_step"`
	InitialVolume int           `yaml:"initial_volume"`
	MaxPlayback   time.Duration `yaml:"max_playback"`
	Player        string        `yaml:"player"`
	Mixer         MixerConfig   `yaml:"mixer"`
}

// MixerConfig names the ALSA mixer control.
type MixerConfig struct {
	Device  string `yaml:"device"`
	Control string `yaml:"control"`
	Command string `yaml:"command"`
}

// DisplaysConfig groups both displays.
type DisplaysConfig struct {
	OLED OLEDConfig `yaml:"oled"`
	HDMI HDMIConfig `yaml:"hdmi"`
}

// OLEDConfig describes the always-on status display.
type OLEDConfig struct {
	Enabled        bool           `yaml:"enabled"`
	SPIPort        string         `yaml:"spi_port"`
	DCPin          string         `yaml:"dc_pin"`
	ResetPin       string         `yaml:"reset_pin"`
	Width          int            `yaml:"width"`
	Height         int            `yaml:"height"`
	Font           string         `yaml:"font"` // TrueType path, empty = built-in 7x13
	FontSize       float64        `yaml:"font_size"`
	ScrollStep     int            `yaml:"scroll_step"`
	ClockFormat    string         `yaml:"clock_format"` // Go time layout
	Timezone       string         `yaml:"timezone"`
	NoticeDuration time.Duration  `yaml:"notice_duration"`
	Widgets        []WidgetConfig `yaml:"widgets"`
}

// WidgetConfig places one widget slot.
type WidgetConfig struct {
	Kind   string `yaml:"kind"` // clock, motion, message
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"` // 0 = to the right edge
	Scroll bool   `yaml:"scroll"`
}

// HDMIConfig describes the on-demand video display.
type HDMIConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Framebuffer  string        `yaml:"framebuffer"`
	Player       string        `yaml:"player"`
	PlayerArgs   []string      `yaml:"player_args"`
	PowerCommand string        `yaml:"power_command"`
	AutoShow     []string      `yaml:"auto_show"` // doorbell, motion
	Hold         time.Duration `yaml:"hold"`
	ManualHold   time.Duration `yaml:"manual_hold"` // 0 = until toggled again
}

// VideoConfig holds the stream used for manual and fallback display.
type VideoConfig struct {
	DefaultStream string `yaml:"default_stream"`
}

// GPIOConfig holds encoder wiring.
type GPIOConfig struct {
	Chip           string          `yaml:"chip"`
	Poll           time.Duration   `yaml:"poll"`
	Debounce       time.Duration   `yaml:"debounce"`
	StepsPerDetent int             `yaml:"steps_per_detent"`
	Encoders       []EncoderConfig `yaml:"encoders"`
}

// EncoderConfig binds one rotary encoder's pins to functions.
type EncoderConfig struct {
	Name   string `yaml:"name"`
	CLK    int    `yaml:"clk"`
	DT     int    `yaml:"dt"`
	SW     int    `yaml:"sw"`
	Rotate string `yaml:"rotate"` // volume, sound_select
	Press  string `yaml:"press"`  // mute, display_toggle
}

// ControlsConfig holds loop cadence and throttle windows.
type ControlsConfig struct {
	Tick      time.Duration       `yaml:"tick"`
	QueueSize int                 `yaml:"queue_size"`
	Throttle  map[string]Interval `yaml:"throttle"`
}

// HTTPConfig holds the status server address.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with every optional field populated.
func Default() *Config {
	c := &Config{}
	c.MQTT.Broker = "tcp://localhost:1883"
	c.MQTT.Heartbeat = 15 * time.Minute
	c.Audio.VolumeStep = 5
	c.Audio.InitialVolume = 50
	c.Audio.MaxPlayback = 30 * time.Second
	c.Audio.Player = "aplay"
	c.Audio.Mixer = MixerConfig{Device: "0", Control: "Digital", Command: "amixer"}
	c.Displays.OLED = OLEDConfig{
		Enabled:        true,
		SPIPort:        "",
		DCPin:          "GPIO24",
		ResetPin:       "GPIO25",
		Width:          128,
		Height:         32,
		FontSize:       9,
		ScrollStep:     1,
		ClockFormat:    "Mon 01/02 3:04PM",
		Timezone:       "Local",
		NoticeDuration: 5 * time.Second,
		Widgets: []WidgetConfig{
			{Kind: "clock", X: 0, Y: 0, Width: 96},
			{Kind: "motion", X: 96, Y: 0},
			{Kind: "message", X: 0, Y: 16, Scroll: true},
		},
	}
	c.Displays.HDMI = HDMIConfig{
		Enabled:      true,
		Framebuffer:  "/dev/fb0",
		Player:       "cvlc",
		PowerCommand: "vcgencmd",
		AutoShow:     []string{"doorbell"},
		Hold:         2 * time.Minute,
	}
	c.GPIO = GPIOConfig{
		Chip:           "gpiochip0",
		Poll:           2 * time.Millisecond,
		Debounce:       30 * time.Millisecond,
		StepsPerDetent: 4,
	}
	c.Controls.Tick = 50 * time.Millisecond
	c.Controls.QueueSize = 32
	c.Controls.Throttle = map[string]Interval{
		"volume":       {Ticks: 2},
		"sound_select": {Ticks: 4},
		"toggle":       {Ticks: 10},
		"doorbell":     {Duration: 2 * time.Second},
		"motion":       {Duration: 5 * time.Second},
		"default":      {Ticks: 20},
	}
	c.HTTP.Addr = ":8080"
	c.Log.Level = "info"
	return c
}

// Load reads and validates the YAML file at path. Values absent from the
// file keep their defaults; out-of-range values are clamped and reported in
// the returned warnings.
func Load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Config, []string, error) {
	cfg := Default()
	throttleDefaults := cfg.Controls.Throttle
	cfg.Controls.Throttle = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}
	// Merge rather than replace so a partial throttle section keeps the
	// remaining categories.
	merged := make(map[string]Interval, len(throttleDefaults))
	for k, v := range throttleDefaults {
		merged[k] = v
	}
	for k, v := range cfg.Controls.Throttle {
		merged[k] = v
	}
	cfg.Controls.Throttle = merged

	warnings := cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// Intervals resolves every throttle entry against the loop tick.
func (c *Config) Intervals() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.Controls.Throttle))
	for k, v := range c.Controls.Throttle {
		out[k] = v.Resolve(c.Controls.Tick)
	}
	return out
}

// AutoShows reports whether kind ("doorbell" or "motion") auto-shows the
// large display.
func (c *Config) AutoShows(kind string) bool {
	if !c.Displays.HDMI.Enabled {
		return false
	}
	for _, k := range c.Displays.HDMI.AutoShow {
		if k == kind {
			return true
		}
	}
	return false
}

// Interval is a throttle window given either as a whole number of loop ticks
// (`10`) or as a duration (`"2s"`).
type Interval struct {
	Ticks    int
	Duration time.Duration
}

// UnmarshalYAML accepts an integer tick count or a duration string.
func (i *Interval) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: throttle interval must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!int" {
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*i = Interval{Ticks: n}
		return nil
	}
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: throttle interval %q: %w", node.Line, node.Value, err)
	}
	*i = Interval{Duration: d}
	return nil
}

// MarshalYAML writes the interval back in the form it was given.
func (i Interval) MarshalYAML() (interface{}, error) {
	if i.Duration == 0 {
		return i.Ticks, nil
	}
	return i.Duration.String(), nil
}

// Resolve converts the interval to a duration for the given tick length.
func (i Interval) Resolve(tick time.Duration) time.Duration {
	if i.Duration != 0 {
		return i.Duration
	}
	return time.Duration(i.Ticks) * tick
}
