package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSounds(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("RIFF"), 0o644))
	}
	return dir
}

func TestLoadLibrarySortsAndFilters(t *testing.T) {
	dir := writeSounds(t, "westminster.wav", "ding-dong.wav", "readme.txt", "Bell.WAV")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.wav"), 0o755))

	l, err := LoadLibrary(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bell.WAV", "ding-dong.wav", "westminster.wav"}, l.Names())
	assert.Equal(t, "Bell.WAV", l.Current())
	assert.Equal(t, filepath.Join(dir, "Bell.WAV"), l.Path())
}

func TestLoadLibraryDefaultSound(t *testing.T) {
	dir := writeSounds(t, "a.wav", "b.wav", "c.wav")

	l, err := LoadLibrary(dir, "b.wav")
	require.NoError(t, err)
	assert.Equal(t, "b.wav", l.Current())

	l, err = LoadLibrary(dir, "missing.wav")
	require.NoError(t, err)
	assert.Equal(t, "a.wav", l.Current(), "unknown default falls back to first")
}

func TestLoadLibraryMissingDir(t *testing.T) {
	_, err := LoadLibrary(filepath.Join(t.TempDir(), "nope"), "")
	assert.Error(t, err)
}

func TestLibraryNextPreviousWrap(t *testing.T) {
	l := NewLibrary("/sounds", "c.wav", "a.wav", "b.wav")

	assert.Equal(t, "a.wav", l.Current())
	assert.Equal(t, "b.wav", l.Next())
	assert.Equal(t, "c.wav", l.Next())
	assert.Equal(t, "a.wav", l.Next())
	assert.Equal(t, "c.wav", l.Previous())
	assert.Equal(t, "b.wav", l.Previous())
	assert.Equal(t, "/sounds/b.wav", l.Path())
}

func TestEmptyLibrary(t *testing.T) {
	l := NewLibrary("/sounds")

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, "", l.Current())
	assert.Equal(t, "", l.Path())
	assert.Equal(t, "", l.Next())
	assert.Equal(t, "", l.Previous())
	assert.False(t, l.Select("x.wav"))
}

// recorder substitutes a real program for the configured ones and records
// what would have been run.
type recorder struct {
	mu    sync.Mutex
	calls []string
	prog  []string
}

func (r *recorder) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	r.mu.Lock()
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	r.mu.Unlock()
	return exec.CommandContext(ctx, r.prog[0], r.prog[1:]...)
}

func newTestDevice(t *testing.T, prog ...string) (*Device, *recorder) {
	t.Helper()
	if _, err := exec.LookPath(prog[0]); err != nil {
		t.Skipf("%s not available", prog[0])
	}
	d := NewDevice(DeviceConfig{Card: "0", Control: "Digital"})
	r := &recorder{prog: prog}
	d.command = r.command
	return d, r
}

func TestDeviceMixerCommands(t *testing.T) {
	d, r := newTestDevice(t, "true")

	require.NoError(t, d.SetVolume(45))
	require.NoError(t, d.SetMuted(true))
	require.NoError(t, d.SetMuted(false))

	assert.Equal(t, []string{
		"amixer -q -c 0 sset Digital 45%",
		"amixer -q -c 0 sset Digital mute",
		"amixer -q -c 0 sset Digital unmute",
	}, r.calls)
}

func TestDeviceMixerError(t *testing.T) {
	d, _ := newTestDevice(t, "false")

	err := d.SetVolume(10)
	require.Error(t, err)
	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestDevicePlayCompletes(t *testing.T) {
	d, r := newTestDevice(t, "true")

	done, err := d.Play("/sounds/a.wav")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not complete")
	}
	assert.Equal(t, []string{"aplay -q /sounds/a.wav"}, r.calls)
}

func TestDeviceStopKillsPlayer(t *testing.T) {
	d, _ := newTestDevice(t, "sleep", "30")

	done, err := d.Play("/sounds/long.wav")
	require.NoError(t, err)

	require.NoError(t, d.Stop())
	select {
	case <-done:
	default:
		t.Fatal("Stop returned before playback ended")
	}

	// Stop with nothing playing is a no-op.
	require.NoError(t, d.Stop())
}

func TestDevicePlayReplacesCurrent(t *testing.T) {
	d, _ := newTestDevice(t, "sleep", "30")

	first, err := d.Play("/sounds/a.wav")
	require.NoError(t, err)
	second, err := d.Play("/sounds/b.wav")
	require.NoError(t, err)

	select {
	case <-first:
	default:
		t.Fatal("first playback still running")
	}
	require.NoError(t, d.Stop())
	<-second
}

func TestDevicePlayStartError(t *testing.T) {
	d := NewDevice(DeviceConfig{Player: filepath.Join(t.TempDir(), "no-such-player")})

	_, err := d.Play("/sounds/a.wav")
	assert.ErrorContains(t, err, "start")
}

func TestFakeOutput(t *testing.T) {
	f := NewFakeOutput()

	done, err := f.Play("a.wav")
	require.NoError(t, err)
	select {
	case <-done:
		t.Fatal("should still be playing")
	default:
	}

	f.Finish()
	<-done

	f.NoCompletion = true
	done, err = f.Play("b.wav")
	require.NoError(t, err)
	assert.Nil(t, done)
	assert.Equal(t, []string{"a.wav", "b.wav"}, f.PlayedPaths())

	f.PlayError = errors.New("busy")
	_, err = f.Play("c.wav")
	assert.Error(t, err)
}
