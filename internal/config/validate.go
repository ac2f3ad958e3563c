package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate reports missing required settings and inconsistent bindings.
// Any error here is fatal at startup.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.MQTT.Broker == "" {
		add("mqtt.broker is required")
	}
	if c.MQTT.Topics.Doorbell == "" {
		add("mqtt.topics.doorbell is required")
	}
	if c.MQTT.Topics.Motion == "" {
		add("mqtt.topics.motion is required")
	}
	if c.MQTT.Topics.Message == "" {
		add("mqtt.topics.message is required")
	}
	if c.Audio.Directory == "" {
		add("audio.directory is required")
	}
	if c.Controls.Tick <= 0 {
		add("controls.tick must be positive")
	}
	if c.Displays.HDMI.Enabled && c.Video.DefaultStream == "" {
		add("video.default_stream is required when displays.hdmi is enabled")
	}
	for _, k := range c.Displays.HDMI.AutoShow {
		if k != "doorbell" && k != "motion" {
			add("displays.hdmi.auto_show: unknown trigger %q", k)
		}
	}
	for i, w := range c.Displays.OLED.Widgets {
		switch w.Kind {
		case "clock", "motion", "message":
		default:
			add("displays.oled.widgets[%d]: unknown kind %q", i, w.Kind)
		}
	}
	if c.Displays.OLED.Timezone != "" {
		if _, err := time.LoadLocation(c.Displays.OLED.Timezone); err != nil {
			add("displays.oled.timezone: %v", err)
		}
	}

	if len(c.GPIO.Encoders) == 0 {
		add("gpio.encoders: at least one encoder is required")
	}
	pins := make(map[int]string)
	names := make(map[string]bool)
	for i, e := range c.GPIO.Encoders {
		label := e.Name
		if label == "" {
			add("gpio.encoders[%d]: name is required", i)
			label = fmt.Sprintf("encoders[%d]", i)
		} else if names[e.Name] {
			add("gpio.encoders[%d]: duplicate name %q", i, e.Name)
		}
		names[e.Name] = true

		for _, p := range []struct {
			role string
			pin  int
		}{{"clk", e.CLK}, {"dt", e.DT}, {"sw", e.SW}} {
			if p.pin <= 0 {
				add("gpio.encoders[%d].%s: pin is required", i, p.role)
				continue
			}
			if other, ok := pins[p.pin]; ok {
				add("gpio.encoders[%d].%s: pin %d already used by %s", i, p.role, p.pin, other)
			}
			pins[p.pin] = label + "." + p.role
		}
		switch e.Rotate {
		case "volume", "sound_select":
		default:
			add("gpio.encoders[%d].rotate: unknown function %q", i, e.Rotate)
		}
		switch e.Press {
		case "mute", "display_toggle":
		default:
			add("gpio.encoders[%d].press: unknown function %q", i, e.Press)
		}
	}

	for k, v := range c.Controls.Throttle {
		if v.Ticks < 0 || v.Duration < 0 {
			add("controls.throttle.%s: must not be negative", k)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// clamp pulls out-of-range values back into range and describes each change.
func (c *Config) clamp() []string {
	var warnings []string
	clampInt := func(name string, v *int, lo, hi int) {
		switch {
		case *v < lo:
			warnings = append(warnings, fmt.Sprintf("%s=%d below %d, using %d", name, *v, lo, lo))
			*v = lo
		case *v > hi:
			warnings = append(warnings, fmt.Sprintf("%s=%d above %d, using %d", name, *v, hi, hi))
			*v = hi
		}
	}

	clampInt("audio.volume_step", &c.Audio.VolumeStep, 1, 50)
	clampInt("audio.initial_volume", &c.Audio.InitialVolume, 0, 100)
	clampInt("displays.oled.scroll_step", &c.Displays.OLED.ScrollStep, 1, 64)
	clampInt("displays.oled.width", &c.Displays.OLED.Width, 8, 1024)
	clampInt("displays.oled.height", &c.Displays.OLED.Height, 8, 1024)
	clampInt("gpio.steps_per_detent", &c.GPIO.StepsPerDetent, 1, 4)
	clampInt("controls.queue_size", &c.Controls.QueueSize, 1, 1024)

	oled := &c.Displays.OLED
	for i := range oled.Widgets {
		w := &oled.Widgets[i]
		name := fmt.Sprintf("displays.oled.widgets[%d]", i)
		clampInt(name+".x", &w.X, 0, oled.Width-1)
		clampInt(name+".y", &w.Y, 0, oled.Height-1)
		clampInt(name+".width", &w.Width, 0, oled.Width-w.X)
	}

	if c.Audio.MaxPlayback <= 0 {
		warnings = append(warnings, fmt.Sprintf("audio.max_playback=%v not positive, using 30s", c.Audio.MaxPlayback))
		c.Audio.MaxPlayback = 30 * time.Second
	}
	if c.GPIO.Poll <= 0 {
		warnings = append(warnings, fmt.Sprintf("gpio.poll=%v not positive, using 2ms", c.GPIO.Poll))
		c.GPIO.Poll = 2 * time.Millisecond
	}
	if c.Displays.OLED.FontSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("displays.oled.font_size=%v not positive, using 9", c.Displays.OLED.FontSize))
		c.Displays.OLED.FontSize = 9
	}
	return warnings
}
