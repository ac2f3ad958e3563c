package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/smartchime/internal/event"
	"github.com/sweeney/smartchime/internal/gpio"
	"github.com/sweeney/smartchime/internal/metrics"
	"github.com/sweeney/smartchime/internal/throttle"
)

// Rotate functions.
const (
	RotateVolume      = "volume"
	RotateSoundSelect = "sound_select"
)

// Press functions.
const (
	PressMute          = "mute"
	PressDisplayToggle = "display_toggle"
)

// State is the per-encoder signal state. It never leaves the controller.
type State struct {
	Position   int
	LastCLK    bool
	LastDT     bool
	Switch     bool // debounced pressed level
	LastSwitch bool // raw pressed level at the previous sample
}

// Binding maps an encoder's motion to functions.
type Binding struct {
	Name   string
	Rotate string // RotateVolume or RotateSoundSelect
	Press  string // PressMute or PressDisplayToggle
}

// Acquirer is the throttle gate as seen by a producer.
type Acquirer interface {
	TryAcquire(c throttle.Category, now time.Time) bool
}

// Counts tracks accepted and suppressed input since startup.
type Counts struct {
	Steps     int
	Presses   int
	Throttled int
	Bounces   int
}

// button is the debounce state for the push switch.
type button struct {
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
}

// Controller decodes one encoder. Each encoder runs its own Controller in
// its own goroutine; State and Counts may be read from any goroutine.
type Controller struct {
	binding        Binding
	gate           Acquirer
	stepsPerDetent int
	debounce       time.Duration

	mu        sync.Mutex
	state     State
	detent    int
	btn       button
	started   bool
	counts    Counts
	readFault bool
}

// NewController creates a Controller. stepsPerDetent is the number of legal
// transitions per mechanical click (1..4).
func NewController(b Binding, gate Acquirer, stepsPerDetent int, debounce time.Duration) (*Controller, error) {
	switch b.Rotate {
	case RotateVolume, RotateSoundSelect:
	default:
		return nil, fmt.Errorf("encoder %s: unknown rotate function %q", b.Name, b.Rotate)
	}
	switch b.Press {
	case PressMute, PressDisplayToggle:
	default:
		return nil, fmt.Errorf("encoder %s: unknown press function %q", b.Name, b.Press)
	}
	if stepsPerDetent < 1 {
		stepsPerDetent = 1
	}
	return &Controller{
		binding:        b,
		gate:           gate,
		stepsPerDetent: stepsPerDetent,
		debounce:       debounce,
	}, nil
}

// Name returns the configured encoder name.
func (c *Controller) Name() string {
	return c.binding.Name
}

// State returns a copy of the signal state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Counts returns a copy of the counters.
func (c *Controller) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Process applies one sample and returns the intents it produced.
// The first sample only establishes the resting phase.
func (c *Controller) Process(l gpio.Levels, now time.Time) []event.Intent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		c.state.LastCLK = l.CLK
		c.state.LastDT = l.DT
		c.state.LastSwitch = l.Pressed
		c.started = true
		c.processButton(l.Pressed, now)
		return nil
	}

	var intents []event.Intent

	before := phase(c.state.LastCLK, c.state.LastDT)
	delta := c.state.step(l.CLK, l.DT)
	if delta == 0 && before != phase(l.CLK, l.DT) {
		c.counts.Bounces++
	}
	if delta != 0 {
		c.detent += delta
		if c.detent >= c.stepsPerDetent || c.detent <= -c.stepsPerDetent {
			cw := c.detent > 0
			c.detent = 0
			c.counts.Steps++
			if in, ok := c.accept(c.rotateCategory(), c.rotateKind(cw), now); ok {
				intents = append(intents, in)
			}
		}
	}

	if c.processButton(l.Pressed, now) {
		c.counts.Presses++
		if in, ok := c.accept(throttle.Toggle, c.pressKind(), now); ok {
			intents = append(intents, in)
		}
	}
	c.state.LastSwitch = l.Pressed

	return intents
}

// accept asks the gate for permission. Denied actions are counted and
// dropped; the underlying state has already been updated.
func (c *Controller) accept(cat throttle.Category, kind event.IntentKind, now time.Time) (event.Intent, bool) {
	if !c.gate.TryAcquire(cat, now) {
		c.counts.Throttled++
		metrics.RecordThrottleDenied(string(cat))
		slog.Debug("encoder input throttled", "encoder", c.binding.Name, "intent", kind, "category", cat)
		return event.Intent{}, false
	}
	return event.Intent{Kind: kind, Encoder: c.binding.Name, At: now}, true
}

// processButton debounces the switch. It reports true only on an accepted
// released -> pressed transition; a new press needs an accepted release first.
func (c *Controller) processButton(pressed bool, now time.Time) bool {
	b := &c.btn

	if !b.baselined {
		if !b.hasPending || b.pending != pressed {
			b.pending = pressed
			b.hasPending = true
			b.pendingSince = now
			return false
		}
		if now.Sub(b.pendingSince) >= c.debounce {
			c.state.Switch = pressed
			b.baselined = true
			b.hasPending = false
		}
		return false
	}

	if pressed == c.state.Switch {
		b.hasPending = false
		return false
	}

	if !b.hasPending || b.pending != pressed {
		b.pending = pressed
		b.hasPending = true
		b.pendingSince = now
		if c.debounce > 0 {
			return false
		}
	}

	if now.Sub(b.pendingSince) >= c.debounce {
		c.state.Switch = pressed
		b.hasPending = false
		return pressed
	}
	return false
}

func (c *Controller) rotateCategory() throttle.Category {
	if c.binding.Rotate == RotateVolume {
		return throttle.Volume
	}
	return throttle.SoundSelect
}

func (c *Controller) rotateKind(cw bool) event.IntentKind {
	switch {
	case c.binding.Rotate == RotateVolume && cw:
		return event.VolumeUp
	case c.binding.Rotate == RotateVolume:
		return event.VolumeDown
	case cw:
		return event.NextSound
	default:
		return event.PreviousSound
	}
}

func (c *Controller) pressKind() event.IntentKind {
	if c.binding.Press == PressMute {
		return event.MuteToggle
	}
	return event.DisplayToggle
}

// Run samples reader on every poll tick and every edge until ctx is done,
// handing intents to out without blocking. A full queue drops the intent.
// Read errors are logged once per fault period and never stop the loop.
func (c *Controller) Run(ctx context.Context, reader gpio.Reader, poll time.Duration, now func() time.Time, out chan<- event.Intent) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	slog.Info("encoder started", "encoder", c.binding.Name, "rotate", c.binding.Rotate, "press", c.binding.Press)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-reader.Edges():
		}
		c.sample(reader, now(), out)
	}
}

func (c *Controller) sample(reader gpio.Reader, t time.Time, out chan<- event.Intent) {
	l, err := reader.Read()
	if err != nil {
		if !c.readFault {
			slog.Warn("encoder read error", "encoder", c.binding.Name, "error", err)
			metrics.RecordDeviceError("gpio")
			c.readFault = true
		}
		return
	}
	if c.readFault {
		slog.Info("encoder read recovered", "encoder", c.binding.Name)
		c.readFault = false
	}

	for _, in := range c.Process(l, t) {
		select {
		case out <- in:
			metrics.RecordIntent(string(in.Kind))
		default:
			metrics.RecordQueueDropped("encoder")
			slog.Warn("intent queue full, dropping", "encoder", c.binding.Name, "intent", in.Kind)
		}
	}
}
