// Package curriculum expands programme curricula and student groups into the
// flat list of sessions that the timetable search assigns rooms and slots to.
package curriculum

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/piwi3910/timetabler/internal/model"
	"go.uber.org/zap"
)

// Options controls how sessions are derived for one term.
type Options struct {
	// AcademicYear is the calendar year in which the academic year starts.
	AcademicYear int
	// MaxYear clamps derived study years.
	MaxYear int
	// WeeksPerTerm divides curriculum slot counts when they are given as
	// per-term totals. Values of 0 or 1 mean the counts are already weekly.
	WeeksPerTerm int
	// Programme restricts the build to one programme when set.
	Programme string
	// ExcludedCourses are case-insensitive substrings of course names to skip.
	ExcludedCourses []string
	VenueOverrides  []model.VenueOverride
	Logger          *zap.Logger
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		AcademicYear: 2024,
		MaxYear:      3,
		WeeksPerTerm: 1,
		VenueOverrides: []model.VenueOverride{
			{Room: "Gym", CourseContains: []string{"physical education"}, CourseEquals: []string{"pe"}},
		},
	}
}

// AcademicTerm maps an absolute programme trimester (1-9) to the trimester of
// the academic year (1-3).
func AcademicTerm(absolute int) int {
	if t := absolute % 3; t != 0 {
		return t
	}
	return 3
}

// RowYear returns the study year a curriculum row belongs to.
func RowYear(r model.CurriculumRow) int {
	if r.Year > 0 {
		return r.Year
	}
	return (r.Term-1)/3 + 1
}

var admissionPattern = regexp.MustCompile(`-(\d{2})`)

// GroupYear returns a group's study year. An explicit year wins; otherwise the
// year is derived from the two-digit admission year in the group code
// ("IT-2205" was admitted in 2022) and clamped to [1, maxYear].
func GroupYear(g model.Group, academicYear, maxYear int) (int, error) {
	if g.Year > 0 {
		return g.Year, nil
	}
	m := admissionPattern.FindStringSubmatch(g.Code)
	if m == nil {
		return 0, fmt.Errorf("cannot derive study year from group code %q", g.Code)
	}
	yy, _ := strconv.Atoi(m[1])
	year := academicYear - (2000 + yy) + 1
	if year < 1 {
		year = 1
	}
	if maxYear > 0 && year > maxYear {
		year = maxYear
	}
	return year, nil
}

// courseKey identifies one course within a cohort.
type courseKey struct {
	programme string
	year      int
	code      string
}

// Build derives the ordered session list for term. Lectures are emitted first
// and merged across all groups of the same programme and year; practice and
// lab sessions follow, one set per group. Session indexes are positions in the
// returned slice.
func Build(rows []model.CurriculumRow, groups []model.Group, term int, opts Options) ([]model.Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if term < 1 || term > 3 {
		return nil, fmt.Errorf("term must be between 1 and 3, got %d", term)
	}

	cohorts := make(map[courseKey][]model.Group)
	for i, g := range groups {
		year, err := GroupYear(g, opts.AcademicYear, opts.MaxYear)
		if err != nil {
			return nil, &model.InputError{Table: "Groups", Column: "group_code", Row: i + 2, Err: err}
		}
		if g.Headcount <= 0 {
			return nil, model.NewInputError("Groups", "headcount", i+2, "must be positive")
		}
		g.Year = year
		key := courseKey{programme: g.Programme, year: year}
		cohorts[key] = append(cohorts[key], g)
	}
	for _, members := range cohorts {
		sort.Slice(members, func(i, j int) bool { return members[i].Code < members[j].Code })
	}

	type course struct {
		row    model.CurriculumRow
		year   int
		groups []model.Group
	}
	var courses []course
	seen := make(map[courseKey]bool)
	for _, r := range rows {
		if AcademicTerm(r.Term) != term {
			continue
		}
		if opts.Programme != "" && !strings.EqualFold(r.Programme, opts.Programme) {
			continue
		}
		if excluded(r.CourseName, opts.ExcludedCourses) {
			log.Debug("Skipping excluded course", zap.String("course", r.CourseName))
			continue
		}
		if r.CourseCode == "" {
			r.CourseCode = slug(r.CourseName)
		}
		year := RowYear(r)
		key := courseKey{programme: r.Programme, year: year, code: r.CourseCode}
		if seen[key] {
			log.Warn("Duplicate curriculum row ignored",
				zap.String("programme", r.Programme), zap.String("course", r.CourseCode))
			continue
		}
		seen[key] = true

		members := cohorts[courseKey{programme: r.Programme, year: year}]
		if len(members) == 0 {
			log.Warn("No groups enrolled in course",
				zap.String("programme", r.Programme), zap.Int("year", year), zap.String("course", r.CourseCode))
			continue
		}
		courses = append(courses, course{row: r, year: year, groups: members})
	}

	var sessions []model.Session
	emit := func(c course, cat model.Category, members []model.Group) {
		units := weekly(c.row.Slots(cat), opts.WeeksPerTerm)
		if units == 0 {
			return
		}
		codes := make([]string, len(members))
		headcount := 0
		for i, g := range members {
			codes[i] = g.Code
			headcount += g.Headcount
		}
		fixed := model.FixedVenue(opts.VenueOverrides, c.row.CourseName, c.row.CourseCode)
		for u := 0; u < units; u++ {
			sessions = append(sessions, model.Session{
				Index:      len(sessions),
				Groups:     codes,
				Programme:  c.row.Programme,
				Year:       c.year,
				CourseCode: c.row.CourseCode,
				CourseName: c.row.CourseName,
				Category:   cat,
				Headcount:  headcount,
				FixedRoom:  fixed,
			})
		}
	}

	for _, c := range courses {
		emit(c, model.CategoryLecture, c.groups)
	}
	for _, cat := range []model.Category{model.CategoryPractice, model.CategoryLab} {
		for _, c := range courses {
			for _, g := range c.groups {
				emit(c, cat, []model.Group{g})
			}
		}
	}

	if len(sessions) == 0 {
		return nil, &model.EmptyCurriculumError{Term: term, Programme: opts.Programme}
	}

	log.Info("Built sessions",
		zap.Int("term", term),
		zap.Int("courses", len(courses)),
		zap.Int("sessions", len(sessions)))
	return sessions, nil
}

// Required returns the number of weekly sessions each group must attend per
// course and category for term. Keys are "group|course|category".
func Required(rows []model.CurriculumRow, groups []model.Group, term int, opts Options) (map[string]int, error) {
	sessions, err := Build(rows, groups, term, opts)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, s := range sessions {
		for _, g := range s.Groups {
			out[RequirementKey(g, s.CourseName, s.Category)]++
		}
	}
	return out, nil
}

// RequirementKey builds the lookup key used by Required.
func RequirementKey(group, course string, cat model.Category) string {
	return group + "|" + course + "|" + string(cat)
}

func weekly(count, weeks int) int {
	if weeks > 1 {
		return count / weeks
	}
	return count
}

func excluded(name string, patterns []string) bool {
	n := strings.ToLower(name)
	for _, p := range patterns {
		if p != "" && strings.Contains(n, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
