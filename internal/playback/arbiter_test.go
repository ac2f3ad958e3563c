package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/smartchime/internal/audio"
	"github.com/sweeney/smartchime/internal/event"
	"github.com/sweeney/smartchime/internal/throttle"
)

var t0 = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newArbiter(t *testing.T, intervals map[throttle.Category]time.Duration) (*Arbiter, *audio.FakeOutput) {
	t.Helper()
	out := audio.NewFakeOutput()
	sounds := audio.NewLibrary("/sounds", "chime.wav", "bell.wav", "westminster.wav")
	a := NewArbiter(Config{VolumeStep: 5, InitialVolume: 50, MaxPlayback: 30 * time.Second},
		out, throttle.NewGate(intervals), sounds)
	return a, out
}

func doorbell(at time.Time) Request {
	return Request{SoundPath: "/sounds/bell.wav", Priority: Doorbell, RequestedAt: at}
}

func motion(at time.Time) Request {
	return Request{SoundPath: "/sounds/motion.wav", Priority: Motion, RequestedAt: at}
}

func TestDoorbellPreemptsMotion(t *testing.T) {
	a, out := newArbiter(t, nil)

	require.True(t, a.RequestPlayback(motion(t0)))
	assert.Equal(t, Motion, a.Playing(t0))

	assert.Equal(t, Preempted, a.Decide(doorbell(t0.Add(500*time.Millisecond))))
	assert.Equal(t, 1, out.Stops)
	assert.Equal(t, []string{"/sounds/motion.wav", "/sounds/bell.wav"}, out.PlayedPaths())
	assert.Equal(t, Doorbell, a.Playing(t0.Add(time.Second)))
}

func TestMotionDoesNotInterruptDoorbell(t *testing.T) {
	a, out := newArbiter(t, nil)

	require.True(t, a.RequestPlayback(doorbell(t0)))
	assert.Equal(t, Busy, a.Decide(motion(t0.Add(time.Second))))
	assert.Zero(t, out.Stops)
}

func TestSecondDoorbellRejectedWhileInFlight(t *testing.T) {
	a, _ := newArbiter(t, nil)

	require.True(t, a.RequestPlayback(doorbell(t0)))
	assert.False(t, a.RequestPlayback(doorbell(t0.Add(5*time.Second))))
}

func TestSecondDoorbellThrottled(t *testing.T) {
	a, out := newArbiter(t, map[throttle.Category]time.Duration{throttle.Doorbell: 2 * time.Second})

	require.True(t, a.RequestPlayback(doorbell(t0)))
	out.Finish()

	assert.Equal(t, Throttled, a.Decide(doorbell(t0.Add(100*time.Millisecond))))
	assert.Equal(t, Played, a.Decide(doorbell(t0.Add(2*time.Second))))
}

func TestBusyDoesNotConsumeThrottle(t *testing.T) {
	a, out := newArbiter(t, map[throttle.Category]time.Duration{throttle.Motion: time.Second})

	require.True(t, a.RequestPlayback(doorbell(t0)))
	assert.Equal(t, Busy, a.Decide(motion(t0.Add(100*time.Millisecond))))
	out.Finish()
	assert.Equal(t, Played, a.Decide(motion(t0.Add(200*time.Millisecond))))
}

func TestCompletionFreesArbiter(t *testing.T) {
	a, out := newArbiter(t, nil)

	require.True(t, a.RequestPlayback(doorbell(t0)))
	out.Finish()
	assert.Equal(t, Priority(0), a.Playing(t0.Add(time.Second)))
	assert.True(t, a.RequestPlayback(doorbell(t0.Add(time.Second))))
}

func TestMaxPlaybackBoundsInFlight(t *testing.T) {
	a, out := newArbiter(t, nil)
	out.NoCompletion = true

	require.True(t, a.RequestPlayback(doorbell(t0)))
	assert.False(t, a.RequestPlayback(doorbell(t0.Add(29*time.Second))))
	assert.True(t, a.RequestPlayback(doorbell(t0.Add(30*time.Second))))
}

func TestCompletionChannelOutlastsMaxPlayback(t *testing.T) {
	a, out := newArbiter(t, nil)

	require.True(t, a.RequestPlayback(doorbell(t0)))
	assert.Equal(t, Busy, a.Decide(doorbell(t0.Add(45*time.Second))), "a long sound is still playing")
	assert.Equal(t, Doorbell, a.Playing(t0.Add(time.Hour)))

	out.Finish()
	assert.Equal(t, Played, a.Decide(doorbell(t0.Add(time.Hour))))
}

func TestSilentRequestNeverInFlight(t *testing.T) {
	a, out := newArbiter(t, nil)

	assert.Equal(t, Silent, a.Decide(Request{Priority: Motion, RequestedAt: t0}))
	assert.Empty(t, out.PlayedPaths())
	assert.Equal(t, Priority(0), a.Playing(t0))
}

func TestPlayFailureStillAccepted(t *testing.T) {
	a, out := newArbiter(t, nil)
	out.PlayError = errors.New("device busy")

	assert.Equal(t, PlayFailed, a.Decide(doorbell(t0)))
	assert.True(t, PlayFailed.Accepted())
	assert.Equal(t, Priority(0), a.Playing(t0))
}

func TestMutedStillCountsAsPlayed(t *testing.T) {
	a, out := newArbiter(t, nil)

	_, ok := a.ApplyIntent(event.MuteToggle)
	require.True(t, ok)
	assert.True(t, out.Muted)

	assert.True(t, a.RequestPlayback(doorbell(t0)))
	assert.Equal(t, []string{"/sounds/bell.wav"}, out.PlayedPaths())
}

func TestVolumeIntents(t *testing.T) {
	a, out := newArbiter(t, nil)
	a.Init()
	assert.Equal(t, 50, out.Volume)

	c, ok := a.ApplyIntent(event.VolumeUp)
	require.True(t, ok)
	assert.Equal(t, Volume{Level: 55}, c.Volume)
	assert.Equal(t, 55, out.Volume)

	a.ApplyIntent(event.VolumeDown)
	a.ApplyIntent(event.VolumeDown)
	assert.Equal(t, 45, a.Volume().Level)
}

func TestVolumeClamped(t *testing.T) {
	a, _ := newArbiter(t, nil)

	for i := 0; i < 30; i++ {
		a.ApplyIntent(event.VolumeUp)
	}
	assert.Equal(t, 100, a.Volume().Level)

	for i := 0; i < 30; i++ {
		a.ApplyIntent(event.VolumeDown)
	}
	assert.Equal(t, 0, a.Volume().Level)
}

func TestVolumeIgnoredWhileMuted(t *testing.T) {
	a, out := newArbiter(t, nil)
	a.Init()

	a.ApplyIntent(event.MuteToggle)
	c, ok := a.ApplyIntent(event.VolumeUp)
	require.True(t, ok)
	assert.True(t, c.Ignored)
	assert.Equal(t, Volume{Level: 50, Muted: true}, c.Volume)
	assert.Equal(t, 50, out.Volume)

	a.ApplyIntent(event.MuteToggle)
	assert.False(t, out.Muted)
	assert.Equal(t, 50, a.Volume().Level, "level survives a mute cycle")
}

func TestSoundSelection(t *testing.T) {
	a, out := newArbiter(t, nil)
	assert.Equal(t, "bell.wav", a.Sound())

	c, _ := a.ApplyIntent(event.NextSound)
	assert.Equal(t, "chime.wav", c.Sound)

	c, _ = a.ApplyIntent(event.PreviousSound)
	assert.Equal(t, "bell.wav", c.Sound, "previous moves back")

	c, _ = a.ApplyIntent(event.PreviousSound)
	assert.Equal(t, "westminster.wav", c.Sound, "wraps")

	assert.Equal(t, "/sounds/westminster.wav", a.SoundPath())
	assert.Empty(t, out.PlayedPaths(), "selection never plays")
}

func TestDisplayToggleNotOwned(t *testing.T) {
	a, _ := newArbiter(t, nil)
	_, ok := a.ApplyIntent(event.DisplayToggle)
	assert.False(t, ok)
}

func TestMixerErrorKeepsState(t *testing.T) {
	a, out := newArbiter(t, nil)
	out.MixerError = errors.New("no card")

	c, ok := a.ApplyIntent(event.VolumeUp)
	require.True(t, ok)
	assert.Equal(t, 55, c.Volume.Level)
}
