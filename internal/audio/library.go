package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Library is the ordered set of selectable sounds with a cursor.
// Not safe for concurrent use.
type Library struct {
	dir   string
	names []string
	index int
}

// LoadLibrary lists the *.wav files in dir, sorted by name. The cursor starts
// at defaultSound when present, otherwise at the first file.
func LoadLibrary(dir, defaultSound string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sound directory: %w", err)
	}

	l := &Library{dir: dir}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		l.names = append(l.names, e.Name())
	}
	sort.Strings(l.names)

	if len(l.names) == 0 {
		slog.Warn("no sounds found", "dir", dir)
		return l, nil
	}
	if defaultSound != "" {
		if !l.Select(defaultSound) {
			slog.Warn("default sound not found, using first", "sound", defaultSound, "first", l.names[0])
		}
	}
	return l, nil
}

// NewLibrary builds a Library from a fixed list of names.
func NewLibrary(dir string, names ...string) *Library {
	l := &Library{dir: dir, names: append([]string(nil), names...)}
	sort.Strings(l.names)
	return l
}

// Len returns the number of sounds.
func (l *Library) Len() int {
	return len(l.names)
}

// Names returns a copy of the sound names in order.
func (l *Library) Names() []string {
	return append([]string(nil), l.names...)
}

// Current returns the selected sound name, or "" when the library is empty.
func (l *Library) Current() string {
	if len(l.names) == 0 {
		return ""
	}
	return l.names[l.index]
}

// Path returns the full path of the selected sound, or "".
func (l *Library) Path() string {
	if len(l.names) == 0 {
		return ""
	}
	return filepath.Join(l.dir, l.names[l.index])
}

// PathOf returns the full path of name.
func (l *Library) PathOf(name string) string {
	return filepath.Join(l.dir, name)
}

// Next moves the cursor forward, wrapping, and returns the new selection.
func (l *Library) Next() string {
	if len(l.names) == 0 {
		return ""
	}
	l.index = (l.index + 1) % len(l.names)
	return l.names[l.index]
}

// Previous moves the cursor back, wrapping, and returns the new selection.
func (l *Library) Previous() string {
	if len(l.names) == 0 {
		return ""
	}
	l.index = (l.index - 1 + len(l.names)) % len(l.names)
	return l.names[l.index]
}

// Select moves the cursor to name and reports whether it exists.
func (l *Library) Select(name string) bool {
	for i, n := range l.names {
		if n == name {
			l.index = i
			return true
		}
	}
	return false
}
