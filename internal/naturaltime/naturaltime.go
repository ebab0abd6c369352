// Package naturaltime turns free-text time expressions ("in 10 minutes",
// "tomorrow at 9pm", explicit dates) into absolute instants anchored to a
// given IANA timezone.
package naturaltime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	ErrPastTime        = errors.New("resolved time is in the past")
	ErrUnparseable     = errors.New("could not understand the time expression")
	ErrInvalidTimezone = errors.New("unknown IANA timezone")
)

// explicit layouts tried before natural-language parsing. All are
// interpreted in the requested zone.
var explicitLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type Resolver struct {
	w *when.Parser
}

func New() *Resolver {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Resolver{w: w}
}

// Resolve parses text anchored to now in the given timezone and returns the
// absolute instant it names.
//
// Errors: ErrInvalidTimezone when the zone is unknown, ErrUnparseable when no
// interpretation exists, ErrPastTime when the instant is not strictly in the
// future relative to now.
func (r *Resolver) Resolve(text, timezone string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrUnparseable)
	}
	loc, err := LoadZone(timezone)
	if err != nil {
		return time.Time{}, err
	}
	anchor := now.In(loc)

	target, ok := parseExplicit(text, loc)
	if !ok {
		res, err := r.w.Parse(text, anchor)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		if res == nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, text)
		}
		target = res.Time
	}

	if !target.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrPastTime, target.In(loc).Format("2006-01-02 15:04 MST"))
	}
	return target, nil
}

// LoadZone validates an IANA timezone identifier.
//
// The empty string is rejected explicitly: time.LoadLocation("") silently
// returns UTC, which would mask a missing field.
func LoadZone(timezone string) (*time.Location, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return nil, fmt.Errorf("%w: empty timezone", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}
	return loc, nil
}

func parseExplicit(text string, loc *time.Location) (time.Time, bool) {
	for _, layout := range explicitLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Examples returns sample expressions for user-facing help text.
func Examples() []string {
	return []string{
		"in 10 minutes",
		"in 2 hours",
		"tomorrow at 9pm",
		"tonight at 11:00",
		"next friday at 8:30am",
		"2026-09-01 14:00",
	}
}
