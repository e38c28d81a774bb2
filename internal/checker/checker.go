// Package checker audits an exported timetable independently of the search
// that produced it. It re-derives room and group double-bookings from the
// per-group rows and compares delivered sessions against the curriculum.
package checker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/piwi3910/timetabler/internal/curriculum"
	"github.com/piwi3910/timetabler/internal/model"
	"github.com/xuri/excelize/v2"
)

// Conflict is a resource booked more than once at the same time.
type Conflict struct {
	Day      model.Weekday `json:"day"`
	Time     string        `json:"time"`
	Resource string        `json:"resource"`
	Sessions []string      `json:"sessions"`
}

// Shortfall is a group whose delivered sessions of a course differ from the
// curriculum requirement.
type Shortfall struct {
	Group    string         `json:"group"`
	Course   string         `json:"course"`
	Category model.Category `json:"type"`
	Required int            `json:"required"`
	Actual   int            `json:"actual"`
}

// Missing returns how many required sessions were not scheduled. It is
// negative when more sessions were scheduled than required.
func (s Shortfall) Missing() int {
	return s.Required - s.Actual
}

// Report collects everything the audit found.
type Report struct {
	RoomConflicts  []Conflict  `json:"room_conflicts"`
	GroupConflicts []Conflict  `json:"group_conflicts"`
	Shortfalls     []Shortfall `json:"shortfalls"`
}

// OK reports whether the timetable passed every check.
func (r *Report) OK() bool {
	return len(r.RoomConflicts) == 0 && len(r.GroupConflicts) == 0 && len(r.Shortfalls) == 0
}

// Summary returns a one-line description of the report.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d room conflicts, %d group conflicts, %d curriculum mismatches",
		len(r.RoomConflicts), len(r.GroupConflicts), len(r.Shortfalls))
}

// LoadTimetable reads a timetable JSON file keyed by group.
func LoadTimetable(path string) (map[string][]model.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timetable file: %w", err)
	}
	var tt map[string][]model.Entry
	if err := json.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse timetable file: %w", err)
	}
	return tt, nil
}

type slotKey struct {
	day      model.Weekday
	time     string
	resource string
}

// roomUse collects the sessions held in one room at one time. Labels of
// sessions not bound to the room as their fixed venue are also kept in open.
type roomUse struct {
	room   string
	labels map[string]bool
	open   map[string]bool
}

func (u *roomUse) clash() bool {
	return len(u.open) > 1 || (len(u.open) == 1 && len(u.labels) > 1)
}

// Check audits a per-group timetable. required maps curriculum.RequirementKey
// values to session counts and may be nil to skip the curriculum comparison.
// A venue override's room may host several of its own sessions at once; any
// other session placed there at the same time is a room conflict.
func Check(timetable map[string][]model.Entry, required map[string]int, venues []model.VenueOverride) *Report {
	rooms := make(map[slotKey]*roomUse)
	groups := make(map[slotKey][]string)
	actual := make(map[string]int)

	for _, group := range sortedKeys(timetable) {
		for _, e := range timetable[group] {
			label := fmt.Sprintf("%s %s", e.Course, e.Category.Label())
			owner := strings.Join(e.Groups, "+")
			if owner == "" {
				owner = group
			}
			k := slotKey{e.Day, e.Time, strings.ToLower(e.Room)}
			use := rooms[k]
			if use == nil {
				use = &roomUse{room: e.Room, labels: make(map[string]bool), open: make(map[string]bool)}
				rooms[k] = use
			}
			// a merged lecture appears under every attending group
			owned := fmt.Sprintf("%s (%s)", label, owner)
			use.labels[owned] = true
			if fixed := model.FixedVenue(venues, e.Course, e.CourseCode); !strings.EqualFold(fixed, e.Room) {
				use.open[owned] = true
			}

			gk := slotKey{e.Day, e.Time, group}
			groups[gk] = append(groups[gk], label)
			actual[curriculum.RequirementKey(group, e.Course, e.Category)]++
		}
	}

	report := &Report{}
	for k, use := range rooms {
		if use.clash() {
			report.RoomConflicts = append(report.RoomConflicts, Conflict{
				Day: k.day, Time: k.time, Resource: use.room, Sessions: sortedKeys(use.labels),
			})
		}
	}
	for k, labels := range groups {
		if len(labels) > 1 {
			sort.Strings(labels)
			report.GroupConflicts = append(report.GroupConflicts, Conflict{
				Day: k.day, Time: k.time, Resource: k.resource, Sessions: labels,
			})
		}
	}
	sortConflicts(report.RoomConflicts)
	sortConflicts(report.GroupConflicts)

	if required != nil {
		keys := make(map[string]bool)
		for k := range required {
			keys[k] = true
		}
		for k := range actual {
			keys[k] = true
		}
		for _, k := range sortedKeys(keys) {
			if required[k] == actual[k] {
				continue
			}
			parts := strings.SplitN(k, "|", 3)
			report.Shortfalls = append(report.Shortfalls, Shortfall{
				Group:    parts[0],
				Course:   parts[1],
				Category: model.Category(parts[2]),
				Required: required[k],
				Actual:   actual[k],
			})
		}
	}

	return report
}

func sortConflicts(cs []Conflict) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Day != b.Day {
			return a.Day.Order() < b.Day.Order()
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Resource < b.Resource
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteXLSX writes the report as a workbook with one sheet per check.
func (r *Report) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{"Room Conflicts", []interface{}{"Day", "Time", "Room", "Sessions"}, conflictRows(r.RoomConflicts)},
		{"Group Conflicts", []interface{}{"Day", "Time", "Group", "Sessions"}, conflictRows(r.GroupConflicts)},
		{"Curriculum", []interface{}{"Group", "Course", "Type", "Required", "Actual", "Missing"}, shortfallRows(r.Shortfalls)},
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sh.name, err)
		}
		if err := f.SetSheetRow(sh.name, "A1", &sh.header); err != nil {
			return fmt.Errorf("failed to write header on %s: %w", sh.name, err)
		}
		for j, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				return fmt.Errorf("failed to write row %d on %s: %w", j+2, sh.name, err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func conflictRows(cs []Conflict) [][]interface{} {
	rows := make([][]interface{}, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []interface{}{c.Day.String(), c.Time, c.Resource, strings.Join(c.Sessions, "; ")})
	}
	return rows
}

func shortfallRows(ss []Shortfall) [][]interface{} {
	rows := make([][]interface{}, 0, len(ss))
	for _, s := range ss {
		rows = append(rows, []interface{}{s.Group, s.Course, s.Category.Label(), s.Required, s.Actual, s.Missing()})
	}
	return rows
}
