package ingress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sweeney/smartchime/internal/event"
)

// ErrMalformed wraps every payload rejection.
var ErrMalformed = errors.New("malformed payload")

// activityPayload is the doorbell and motion message body.
type activityPayload struct {
	Active    *bool           `json:"active"`
	Timestamp json.RawMessage `json:"timestamp"`
	VideoURL  string          `json:"video_url"`
}

// Layouts accepted for string timestamps, tried in order.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	// Read as local time.
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	}
)

// ParseActivity decodes a doorbell or motion payload. active and timestamp
// are required.
func ParseActivity(kind event.Kind, payload []byte) (event.External, error) {
	var p activityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return event.External{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Active == nil {
		return event.External{}, fmt.Errorf("%w: missing active", ErrMalformed)
	}
	if len(p.Timestamp) == 0 || string(p.Timestamp) == "null" {
		return event.External{}, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	at, err := parseTimestamp(p.Timestamp)
	if err != nil {
		return event.External{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return event.External{
		Kind:     kind,
		Active:   *p.Active,
		At:       at,
		VideoURL: strings.TrimSpace(p.VideoURL),
	}, nil
}

// parseTimestamp accepts an ISO 8601 string or a number of Unix seconds.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		for _, layout := range localLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("timestamp %q is not ISO 8601", s)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return time.Time{}, fmt.Errorf("timestamp must be a string or number")
	}
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, fmt.Errorf("timestamp %v out of range", f)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)), nil
}

// ParseMessage accepts {"text": "..."}, a JSON string, or bare UTF-8 text.
func ParseMessage(payload []byte) (event.External, error) {
	trimmed := bytes.TrimSpace(payload)
	if !utf8.Valid(trimmed) {
		return event.External{}, fmt.Errorf("%w: message is not UTF-8", ErrMalformed)
	}

	text := string(trimmed)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '{':
		var p struct {
			Text *string `json:"text"`
		}
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return event.External{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.Text == nil {
			return event.External{}, fmt.Errorf("%w: missing text", ErrMalformed)
		}
		text = *p.Text
	case len(trimmed) > 0 && trimmed[0] == '"':
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return event.External{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	return event.External{
		Kind: event.MessageUpdate,
		Text: strings.Join(strings.Fields(text), " "),
	}, nil
}

// trackPayload is the JSON form of track metadata.
type trackPayload struct {
	Artist  string `json:"artist"`
	Title   string `json:"title"`
	Album   string `json:"album"`
	Playing *bool  `json:"playing"`
}

// parseTrackJSON decodes a complete JSON track update.
func parseTrackJSON(payload []byte) (event.Track, error) {
	var p trackPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return event.Track{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	t := event.Track{
		Artist:  strings.TrimSpace(p.Artist),
		Title:   strings.TrimSpace(p.Title),
		Album:   strings.TrimSpace(p.Album),
		Playing: true,
	}
	if p.Playing != nil {
		t.Playing = *p.Playing
	}
	return t, nil
}
