package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// DeviceConfig names the external programs that drive the sound card.
type DeviceConfig struct {
	Player       string // e.g. aplay
	MixerCommand string // e.g. amixer
	Card         string // ALSA card index
	Control      string // mixer control name
}

// Device plays files with an external player process and sets the mixer
// with amixer. At most one playback runs at a time.
type Device struct {
	cfg DeviceConfig

	// command builds processes; replaced in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDevice creates a Device.
func NewDevice(cfg DeviceConfig) *Device {
	if cfg.Player == "" {
		cfg.Player = "aplay"
	}
	if cfg.MixerCommand == "" {
		cfg.MixerCommand = "amixer"
	}
	return &Device{cfg: cfg, command: exec.CommandContext}
}

// Play starts the player on path, stopping any current playback first.
func (d *Device) Play(path string) (<-chan struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := d.command(ctx, d.cfg.Player, "-q", path)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", d.cfg.Player, err)
	}

	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	go func() {
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			slog.Warn("player exited with error", "player", d.cfg.Player, "path", path, "error", err)
		}
		cancel()
		close(done)
	}()
	return done, nil
}

// Stop kills the current player process and waits for it to exit.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

func (d *Device) stopLocked() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
}

// SetVolume sets the mixer control to level percent.
func (d *Device) SetVolume(level int) error {
	return d.mixer(strconv.Itoa(level) + "%")
}

// SetMuted switches the mixer control off or on.
func (d *Device) SetMuted(muted bool) error {
	if muted {
		return d.mixer("mute")
	}
	return d.mixer("unmute")
}

func (d *Device) mixer(value string) error {
	args := []string{"-q"}
	if d.cfg.Card != "" {
		args = append(args, "-c", d.cfg.Card)
	}
	args = append(args, "sset", d.cfg.Control, value)

	out, err := d.command(context.Background(), d.cfg.MixerCommand, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s sset %s %s: %w: %s", d.cfg.MixerCommand, d.cfg.Control, value, err, out)
	}
	return nil
}
