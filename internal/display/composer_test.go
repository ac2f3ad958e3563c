package display

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 15, 15, 4, 0, 0, time.UTC)

const tick = 50 * time.Millisecond

func defaultSlots() []Slot {
	return []Slot{
		{Kind: Clock, X: 0, Y: 0, Width: 96},
		{Kind: Motion, X: 96, Y: 0},
		{Kind: Message, X: 0, Y: 16, Scroll: true},
	}
}

func newComposer(t *testing.T, step int) *Composer {
	t.Helper()
	c, err := NewComposer(ComposerConfig{
		Width:          128,
		Height:         32,
		ScrollStep:     step,
		ClockFormat:    "Mon 01/02 3:04PM",
		Location:       time.UTC,
		NoticeDuration: 5 * time.Second,
		Slots:          defaultSlots(),
	}, DefaultFont())
	require.NoError(t, err)
	return c
}

func messageWidget(f Frame) Widget {
	for _, w := range f.Widgets {
		if w.Kind == Message {
			return w
		}
	}
	return Widget{}
}

func TestNewComposerRejectsUnknownKind(t *testing.T) {
	_, err := NewComposer(ComposerConfig{Width: 128, Slots: []Slot{{Kind: "weather"}}}, nil)
	assert.Error(t, err)
}

func TestZeroWidthSlotExtendsToEdge(t *testing.T) {
	c := newComposer(t, 1)
	f := c.Tick(t0)
	assert.Equal(t, 32, f.Widgets[1].Width)
	assert.Equal(t, 128, f.Widgets[2].Width)
}

func TestClockAndMotionText(t *testing.T) {
	c := newComposer(t, 1)

	f := c.Tick(t0)
	assert.Equal(t, "Mon 01/15 3:04PM", f.Widgets[0].Text)
	assert.Equal(t, "??", f.Widgets[1].Text)
	assert.False(t, f.Widgets[2].Visible, "empty message is hidden")

	c.SetMotion(true, t0)
	assert.Equal(t, "now", c.Tick(t0.Add(time.Minute)).Widgets[1].Text)

	c.SetMotion(false, t0.Add(time.Minute))
	assert.Equal(t, "7m", c.Tick(t0.Add(8*time.Minute)).Widgets[1].Text)
}

func TestMotionText(t *testing.T) {
	last := t0
	tests := []struct {
		active bool
		last   time.Time
		now    time.Time
		want   string
	}{
		{true, last, t0, "now"},
		{false, time.Time{}, t0, "??"},
		{false, last, t0.Add(30 * time.Second), "0m"},
		{false, last, t0.Add(59 * time.Minute), "59m"},
		{false, last, t0.Add(60 * time.Minute), "1h"},
		{false, last, t0.Add(26 * time.Hour), "26h"},
		{false, last, t0.Add(-time.Minute), "0m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MotionText(tt.active, tt.last, tt.now))
	}
}

func TestClockTextLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "10:04", ClockText(t0, "15:04", loc))
}

func TestMessageScrollFormula(t *testing.T) {
	const step = 3
	c := newComposer(t, step)
	c.Tick(t0)

	c.SetMessage("Mail has arrived")
	first := messageWidget(c.Tick(t0.Add(tick)))
	assert.Equal(t, "Mail has arrived", first.Text)
	assert.Equal(t, 0, first.ScrollOffset, "first frame after the change starts at 0")
	assert.True(t, first.Visible)

	span := c.TextWidth("Mail has arrived") + 128
	for k := 1; k <= 200; k++ {
		w := messageWidget(c.Tick(t0.Add(time.Duration(k+1) * tick)))
		// The frame after k advancing ticks shows offset k*step mod span.
		assert.Equal(t, (k*step)%span, w.ScrollOffset, "k=%d", k)
	}
}

func TestScrollIdempotentAcrossSplits(t *testing.T) {
	const n = 97
	a := newComposer(t, 2)
	b := newComposer(t, 2)
	a.SetMessage("The quick brown fox jumps over the lazy dog")
	b.SetMessage("The quick brown fox jumps over the lazy dog")

	for i := 0; i < 2*n; i++ {
		a.Tick(t0)
	}
	for i := 0; i < n; i++ {
		b.Tick(t0)
	}
	for i := 0; i < n; i++ {
		b.Tick(t0)
	}
	assert.Equal(t, a.Widgets()[2].ScrollOffset, b.Widgets()[2].ScrollOffset)
}

func TestScrollResetsOnTextChange(t *testing.T) {
	c := newComposer(t, 4)
	c.SetMessage("first")
	for i := 0; i < 10; i++ {
		c.Tick(t0)
	}
	require.NotZero(t, c.Widgets()[2].ScrollOffset)

	c.SetMessage("second")
	assert.Equal(t, 0, messageWidget(c.Tick(t0)).ScrollOffset)
}

func TestEventsApplyOnNextTick(t *testing.T) {
	c := newComposer(t, 1)
	c.SetMessage("old")
	c.Tick(t0)

	c.SetMessage("new")
	assert.Equal(t, "old", c.Widgets()[2].Text, "state changes wait for the tick")
	assert.Equal(t, "new", messageWidget(c.Tick(t0)).Text)
}

func TestNoticeHidesMessageUntilExpiry(t *testing.T) {
	c := newComposer(t, 1)
	c.SetMessage("hello")

	c.ShowNotice("Volume:", "45%", t0)
	f := c.Tick(t0.Add(time.Second))
	require.NotNil(t, f.Notice)
	assert.Equal(t, "45%", f.Notice.Line2)
	assert.False(t, messageWidget(f).Visible)
	assert.True(t, f.Widgets[0].Visible, "status row stays")

	f = c.Tick(t0.Add(5 * time.Second))
	assert.Nil(t, f.Notice)
	assert.True(t, messageWidget(f).Visible)
}

func TestNoticeReplacesPrevious(t *testing.T) {
	c := newComposer(t, 1)
	c.ShowNotice("Volume:", "40%", t0)
	c.ShowNotice("Volume:", "45%", t0.Add(4*time.Second))

	n := c.Notice(t0.Add(6 * time.Second))
	require.NotNil(t, n)
	assert.Equal(t, "45%", n.Line2)
}

func TestScrollX(t *testing.T) {
	slot := Slot{X: 0, Width: 128}
	assert.Equal(t, 0, ScrollX(slot, 128, 50, 0))
	assert.Equal(t, -50, ScrollX(slot, 128, 50, 50), "fully out on the left")
	assert.Equal(t, 127, ScrollX(slot, 128, 50, 51), "re-enters on the right")
	assert.Equal(t, 1, ScrollX(slot, 128, 50, 177))

	narrow := Slot{X: 32, Width: 64}
	assert.Equal(t, 32+128-10, ScrollX(narrow, 128, 50, 60), "right of the slot until the screen width has passed")
	assert.Equal(t, 33, ScrollX(narrow, 128, 50, 177))
}

func TestOffPanelSlotIsClamped(t *testing.T) {
	c, err := NewComposer(ComposerConfig{
		Width:  128,
		Height: 32,
		Slots:  []Slot{{Kind: Message, X: 198, Y: 40, Scroll: true}},
	}, nil)
	require.NoError(t, err)
	c.SetMessage("abcdefghij")

	var f Frame
	require.NotPanics(t, func() {
		for i := 0; i < 300; i++ {
			f = c.Tick(t0)
		}
	})
	w := messageWidget(f)
	assert.Equal(t, 127, w.X)
	assert.Equal(t, 31, w.Y)
	assert.Equal(t, 1, w.Width)
	assert.GreaterOrEqual(t, w.ScrollOffset, 0)
}

func TestNarrowSlotWrapsOnScreenWidth(t *testing.T) {
	c, err := NewComposer(ComposerConfig{
		Width:  128,
		Height: 32,
		Slots:  []Slot{{Kind: Message, X: 32, Width: 64, Scroll: true}},
	}, nil)
	require.NoError(t, err)
	c.SetMessage("Mail has arrived")
	c.Tick(t0)

	span := c.TextWidth("Mail has arrived") + 128
	for k := 1; k <= span+5; k++ {
		assert.Equal(t, k%span, messageWidget(c.Tick(t0)).ScrollOffset, "k=%d", k)
	}
}
