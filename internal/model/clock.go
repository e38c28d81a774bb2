package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Weekday is a teaching day. It wraps time.Weekday so that Monday sorts first.
type Weekday time.Weekday

const (
	Monday    = Weekday(time.Monday)
	Tuesday   = Weekday(time.Tuesday)
	Wednesday = Weekday(time.Wednesday)
	Thursday  = Weekday(time.Thursday)
	Friday    = Weekday(time.Friday)
	Saturday  = Weekday(time.Saturday)
	Sunday    = Weekday(time.Sunday)
)

// Order returns 0 for Monday through 6 for Sunday.
func (d Weekday) Order() int {
	return (int(d) + 6) % 7
}

// String returns the three-letter day name.
func (d Weekday) String() string {
	return time.Weekday(d).String()[:3]
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Weekday) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseWeekday accepts full or abbreviated English day names in any case.
func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.HasPrefix(strings.ToLower(d.String()), name) {
				return Weekday(d), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// Clock is a time of day in minutes since midnight.
type Clock int

// NewClock builds a Clock from hours and minutes.
func NewClock(h, m int) Clock {
	return Clock(h*60 + m)
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// clockLayouts are the cell formats seen in spreadsheet exports.
var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04:05 PM", "3:04PM", "15.04"}

// ParseClock parses a time of day such as "08:00", "8:00:00" or "1:30 PM".
// A raw spreadsheet day fraction such as "0.375" is also accepted.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return NewClock(t.Hour(), t.Minute()), nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		return Clock(math.Round(f * 24 * 60)), nil
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}
