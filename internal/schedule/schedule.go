// Package schedule turns the best candidate of a search into timetable rows.
package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piwi3910/timetabler/internal/engine"
	"github.com/piwi3910/timetabler/internal/model"
)

// Schedule is a materialized timetable for one term.
type Schedule struct {
	Term    int           `json:"term"`
	Entries []model.Entry `json:"entries"`
}

// Materialize decodes genes into one entry per session. Sessions bound to a
// fixed venue are reported in that venue regardless of the room the search
// assigned. Entries are ordered by group, weekday, start time and course.
func Materialize(term int, sessions []model.Session, catalog *model.Catalog, genes []engine.Assignment) (*Schedule, error) {
	if len(genes) != len(sessions) {
		return nil, fmt.Errorf("candidate has %d assignments for %d sessions", len(genes), len(sessions))
	}

	entries := make([]model.Entry, len(sessions))
	for i, s := range sessions {
		a := genes[i]
		if a.Room < 0 || a.Room >= catalog.NumRooms() || a.Slot < 0 || a.Slot >= catalog.NumSlots() {
			return nil, fmt.Errorf("session %d assigned outside the catalog: room %d, slot %d", i, a.Room, a.Slot)
		}
		slot := catalog.Slot(a.Slot)
		room := catalog.Room(a.Room).Code
		if s.HasFixedRoom() {
			room = s.FixedRoom
		}
		e := model.Entry{
			Groups:     s.Groups,
			Programme:  s.Programme,
			Year:       s.Year,
			Day:        slot.Day,
			Start:      slot.Start,
			End:        slot.End,
			Time:       slot.Range(),
			CourseCode: s.CourseCode,
			Course:     s.CourseName,
			Category:   s.Category,
			Room:       room,
		}
		if len(s.Groups) == 1 {
			e.Group = s.Groups[0]
		}
		entries[i] = e
	}

	sortEntries(entries)
	return &Schedule{Term: term, Entries: entries}, nil
}

func sortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ka, kb := a.GroupKey(), b.GroupKey(); ka != kb {
			return ka < kb
		}
		if a.Day != b.Day {
			return a.Day.Order() < b.Day.Order()
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.CourseCode < b.CourseCode
	})
}

// ByGroup returns each group's entries in weekday then start-time order.
// Merged lectures appear once in the list of every group attending them.
func (s *Schedule) ByGroup() map[string][]model.Entry {
	out := make(map[string][]model.Entry)
	for _, e := range s.Entries {
		for _, g := range e.Groups {
			row := e
			row.Group = g
			out[g] = append(out[g], row)
		}
	}
	for _, rows := range out {
		sortEntries(rows)
	}
	return out
}

// Groups returns the codes of every group in the schedule, sorted.
func (s *Schedule) Groups() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.Entries {
		for _, g := range e.Groups {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Rooms returns the distinct rooms used, sorted case-insensitively.
func (s *Schedule) Rooms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.Entries {
		if !seen[e.Room] {
			seen[e.Room] = true
			out = append(out, e.Room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}
