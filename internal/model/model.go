package model

import (
	"fmt"
	"strings"
)

// Category is the kind of teaching activity a session represents.
type Category string

const (
	CategoryLecture  Category = "lecture"
	CategoryPractice Category = "practice"
	CategoryLab      Category = "lab"
)

// Categories lists every category in build order.
var Categories = []Category{CategoryLecture, CategoryPractice, CategoryLab}

func (c Category) String() string {
	return string(c)
}

// Label returns the capitalised category name used in exported tables.
func (c Category) Label() string {
	switch c {
	case CategoryLecture:
		return "Lecture"
	case CategoryPractice:
		return "Practice"
	case CategoryLab:
		return "Lab"
	default:
		return string(c)
	}
}

// ParseCategory converts a free-form category name to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lecture", "lec", "l":
		return CategoryLecture, nil
	case "practice", "prac", "seminar", "p":
		return CategoryPractice, nil
	case "lab", "laboratory":
		return CategoryLab, nil
	default:
		return "", fmt.Errorf("unknown session category %q", s)
	}
}

// Room is a bookable teaching space.
type Room struct {
	Code      string `json:"room_code"`
	Capacity  int    `json:"capacity"`
	Available bool   `json:"available"`
}

// TimeSlot is one weekly teaching period. Start and End are minutes since midnight.
type TimeSlot struct {
	ID    string  `json:"slot_id"`
	Day   Weekday `json:"day"`
	Start Clock   `json:"start"`
	End   Clock   `json:"end"`
}

// Range formats the slot as "HH:MM-HH:MM".
func (s TimeSlot) Range() string {
	return s.Start.String() + "-" + s.End.String()
}

// Before reports whether s starts earlier in the week than o.
func (s TimeSlot) Before(o TimeSlot) bool {
	if s.Day != o.Day {
		return s.Day.Order() < o.Day.Order()
	}
	return s.Start < o.Start
}

// Group is a cohort of students that attends every session of its curriculum together.
type Group struct {
	Code      string `json:"group_code"`
	Programme string `json:"programme_code"`
	Year      int    `json:"year,omitempty"` // 0 when not given in the input
	Headcount int    `json:"headcount"`
}

// CurriculumRow is one course line of a programme's curriculum sheet.
// Term is the absolute trimester number across the whole programme (1-9).
type CurriculumRow struct {
	Programme     string `json:"programme_code"`
	Term          int    `json:"trimester"`
	Year          int    `json:"year,omitempty"`
	CourseCode    string `json:"course_code"`
	CourseName    string `json:"course_name"`
	LectureSlots  int    `json:"lecture_slots"`
	PracticeSlots int    `json:"practice_slots"`
	LabSlots      int    `json:"lab_slots"`
}

// Slots returns the number of slot units required for the given category.
func (r CurriculumRow) Slots(c Category) int {
	switch c {
	case CategoryLecture:
		return r.LectureSlots
	case CategoryPractice:
		return r.PracticeSlots
	case CategoryLab:
		return r.LabSlots
	default:
		return 0
	}
}

// Session is one weekly occurrence of a teaching activity that needs a room and a slot.
// Index is the session's position in the session list and the only key that
// correlates it with a candidate assignment.
type Session struct {
	Index      int      `json:"index"`
	Groups     []string `json:"groups"`
	Programme  string   `json:"programme_code"`
	Year       int      `json:"year"`
	CourseCode string   `json:"course_code"`
	CourseName string   `json:"course_name"`
	Category   Category `json:"category"`
	Headcount  int      `json:"headcount"`
	FixedRoom  string   `json:"fixed_room,omitempty"`
}

// HasFixedRoom reports whether the session is bound to a venue outside the room search.
func (s Session) HasFixedRoom() bool {
	return s.FixedRoom != ""
}

// Attends reports whether the group takes part in the session.
func (s Session) Attends(group string) bool {
	for _, g := range s.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Score is the penalty breakdown of a candidate. Lower is better.
type Score struct {
	Hard float64 `json:"hard"`
	Soft float64 `json:"soft"`
}

// Total returns the combined fitness value.
func (s Score) Total() float64 {
	return s.Hard + s.Soft
}

// Feasible reports whether no hard constraint is violated.
func (s Score) Feasible() bool {
	return s.Hard == 0
}

// Entry is one row of a materialized timetable.
type Entry struct {
	Group      string   `json:"group"`
	Groups     []string `json:"groups,omitempty"`
	Programme  string   `json:"programme_code"`
	Year       int      `json:"year"`
	Day        Weekday  `json:"day"`
	Start      Clock    `json:"start"`
	End        Clock    `json:"end"`
	Time       string   `json:"time"`
	CourseCode string   `json:"course_code"`
	Course     string   `json:"course"`
	Category   Category `json:"type"`
	Room       string   `json:"room"`
}

// GroupKey returns the label used to order and group the entry.
func (e Entry) GroupKey() string {
	if e.Group != "" {
		return e.Group
	}
	return strings.Join(e.Groups, "+")
}
