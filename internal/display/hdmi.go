package display

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

// HDMIConfig names the programs that drive the video display.
type HDMIConfig struct {
	PowerCommand string   // e.g. vcgencmd; empty skips power control
	Player       string   // e.g. cvlc
	PlayerArgs   []string // empty = framebuffer defaults
	Framebuffer  string
}

// HDMI powers the display with vcgencmd and plays streams with an external
// player process.
type HDMI struct {
	cfg HDMIConfig

	// command builds processes; replaced in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHDMI creates an HDMI display.
func NewHDMI(cfg HDMIConfig) *HDMI {
	if cfg.Player == "" {
		cfg.Player = "cvlc"
	}
	if len(cfg.PlayerArgs) == 0 {
		cfg.PlayerArgs = []string{"--fullscreen", "--no-osd", "--no-audio"}
		if cfg.Framebuffer != "" {
			cfg.PlayerArgs = append(cfg.PlayerArgs, "--vout", "fb", "--fb-dev", cfg.Framebuffer)
		}
	}
	return &HDMI{cfg: cfg, command: exec.CommandContext}
}

// Show powers the display on and plays src.URL, replacing any running
// player.
func (h *HDMI) Show(src Source) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	if err := h.power(true); err != nil {
		return err
	}
	if src.URL == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	args := append(append([]string(nil), h.cfg.PlayerArgs...), src.URL)
	cmd := h.command(ctx, h.cfg.Player, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", h.cfg.Player, err)
	}

	done := make(chan struct{})
	h.cancel = cancel
	h.done = done
	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			slog.Warn("video player exited", "player", h.cfg.Player, "url", src.URL, "error", err)
		}
		cancel()
		close(done)
	}()
	return nil
}

// Hide stops the player and powers the display off.
func (h *HDMI) Hide() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
	return h.power(false)
}

func (h *HDMI) stopLocked() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
	h.cancel = nil
	h.done = nil
}

func (h *HDMI) power(on bool) error {
	if h.cfg.PowerCommand == "" {
		return nil
	}
	state := "0"
	if on {
		state = "1"
	}
	out, err := h.command(context.Background(), h.cfg.PowerCommand, "display_power", state).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s display_power %s: %w: %s", h.cfg.PowerCommand, state, err, out)
	}
	return nil
}
