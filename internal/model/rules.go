package model

import "strings"

// YearRule restricts when sessions of one study year may be placed.
// A zero LatestStart means no time-of-day limit.
type YearRule struct {
	Year         int       `yaml:"year" validate:"min=1"`
	ExcludedDays []Weekday `yaml:"excludedDays"`
	LatestStart  Clock     `yaml:"latestStart"`
}

// Eligibility maps study years to their placement rules.
type Eligibility map[int]YearRule

// NewEligibility indexes rules by year.
func NewEligibility(rules []YearRule) Eligibility {
	e := make(Eligibility, len(rules))
	for _, r := range rules {
		e[r.Year] = r
	}
	return e
}

// DayAllowed reports whether year may be taught on day.
func (e Eligibility) DayAllowed(year int, day Weekday) bool {
	r, ok := e[year]
	if !ok {
		return true
	}
	for _, d := range r.ExcludedDays {
		if d == day {
			return false
		}
	}
	return true
}

// TimeAllowed reports whether year may start a session at start.
func (e Eligibility) TimeAllowed(year int, start Clock) bool {
	r, ok := e[year]
	if !ok || r.LatestStart == 0 {
		return true
	}
	return start <= r.LatestStart
}

// Allows reports whether slot satisfies both the day and time rules of year.
func (e Eligibility) Allows(year int, slot TimeSlot) bool {
	return e.DayAllowed(year, slot.Day) && e.TimeAllowed(year, slot.Start)
}

// VenueOverride binds courses to a fixed venue that sits outside the room search,
// such as a gym shared by several groups at once.
type VenueOverride struct {
	Room           string   `yaml:"room" validate:"required"`
	CourseContains []string `yaml:"courseContains"`
	CourseEquals   []string `yaml:"courseEquals"`
}

// Matches reports whether a course name or code selects this override.
// Comparison is case-insensitive.
func (v VenueOverride) Matches(name, code string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	c := strings.ToLower(strings.TrimSpace(code))
	for _, s := range v.CourseEquals {
		s = strings.ToLower(s)
		if n == s || c == s {
			return true
		}
	}
	for _, s := range v.CourseContains {
		if s != "" && strings.Contains(n, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// FixedVenue returns the room of the first override matching the course, or "".
func FixedVenue(overrides []VenueOverride, name, code string) string {
	for _, v := range overrides {
		if v.Matches(name, code) {
			return v.Room
		}
	}
	return ""
}
