// Package importer loads the timetabling input tables (groups, rooms, time slots
// and programme curricula) from an Excel workbook or a directory of CSV files.
// It supports automatic delimiter detection, flexible column mapping, and
// case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/piwi3910/timetabler/internal/model"
	"github.com/xuri/excelize/v2"
)

// Table names as they appear in workbooks and error messages.
const (
	TableGroups    = "Groups"
	TableRooms     = "Rooms"
	TableTimeslots = "Timeslots"
)

// ignoredSheets are reference sheets that carry no scheduling data.
var ignoredSheets = map[string]bool{
	"departments": true,
	"instructors": true,
}

// Dataset holds every table needed to build a timetable.
type Dataset struct {
	Groups     []model.Group
	Rooms      []model.Room
	Slots      []model.TimeSlot
	Curriculum []model.CurriculumRow
	Warnings   []string
}

// Programmes returns the distinct programme codes found in the curriculum, sorted.
func (d *Dataset) Programmes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.Curriculum {
		if !seen[r.Programme] {
			seen[r.Programme] = true
			out = append(out, r.Programme)
		}
	}
	sort.Strings(out)
	return out
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"group_code":     {"group_code", "group", "group code", "group_id"},
	"programme_code": {"programme_code", "programme", "program", "program_code", "programme code"},
	"year":           {"year", "study_year", "course_year"},
	"headcount":      {"headcount", "students", "student_count", "group_size", "size"},
	"room_code":      {"room_code", "room", "room code", "room_id"},
	"capacity":       {"capacity", "cap", "seats"},
	"available":      {"available", "is_available", "active"},
	"slot_id":        {"slot_id", "slot", "timeslot_id", "id"},
	"day":            {"day", "weekday"},
	"start":          {"start", "start_time", "from"},
	"end":            {"end", "end_time", "to"},
	"course_code":    {"course_code", "course code", "code"},
	"course_name":    {"course_name", "course name", "course", "name", "title"},
	"trimester":      {"trimester", "term", "semester"},
	"lecture_slots":  {"lecture_slots", "lecture_hours", "lec_hours", "lectures", "lecture"},
	"practice_slots": {"practice_slots", "practice_hours", "prac_hours", "practice", "seminar_hours"},
	"lab_slots":      {"lab_slots", "lab_hours", "labs", "lab"},
}

// ColumnMapping maps canonical column names to their indices in a header row.
type ColumnMapping map[string]int

// DetectColumns examines a header row and returns the index of every recognised
// column. When several headers match the same column the first one wins.
func DetectColumns(row []string) ColumnMapping {
	mapping := ColumnMapping{}
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for column, aliases := range headerAliases {
			if _, taken := mapping[column]; taken {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					mapping[column] = i
					break
				}
			}
		}
	}
	return mapping
}

// require returns an InputError naming the first missing column.
func (m ColumnMapping) require(table string, columns ...string) error {
	for _, c := range columns {
		if _, ok := m[c]; !ok {
			return model.NewInputError(table, c, 1, "required column not found in header")
		}
	}
	return nil
}

// get safely retrieves a cell value from a row by column name.
// Returns empty string if the column is unmapped or out of range.
func (m ColumnMapping) get(row []string, column string) string {
	idx, ok := m[column]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// rowParser accumulates the errors of one table.
type rowParser struct {
	table   string
	mapping ColumnMapping
	row     []string
	line    int
	errs    []error
}

func (p *rowParser) fail(column, format string, args ...any) {
	p.errs = append(p.errs, model.NewInputError(p.table, column, p.line, format, args...))
}

func (p *rowParser) text(column string, required bool) string {
	v := p.mapping.get(p.row, column)
	if v == "" && required {
		p.fail(column, "missing value")
	}
	return v
}

// integer parses a whole number. Spreadsheet cells such as "30.0" are accepted.
func (p *rowParser) integer(column string, required bool) int {
	v := p.mapping.get(p.row, column)
	if v == "" {
		if required {
			p.fail(column, "missing value")
		}
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		p.fail(column, "invalid number %q", v)
		return 0
	}
	if f < 0 {
		p.fail(column, "negative value %q", v)
		return 0
	}
	return int(f)
}

func (p *rowParser) clock(column string) model.Clock {
	v := p.text(column, true)
	if v == "" {
		return 0
	}
	c, err := model.ParseClock(v)
	if err != nil {
		p.fail(column, "%v", err)
	}
	return c
}

func (p *rowParser) boolean(column string, fallback bool) bool {
	v := strings.ToLower(p.mapping.get(p.row, column))
	switch v {
	case "":
		return fallback
	case "yes", "y", "true", "1", "t":
		return true
	case "no", "n", "false", "0", "f":
		return false
	default:
		p.fail(column, "invalid flag %q", v)
		return fallback
	}
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// eachRow runs fn for every non-empty data row below the header.
func eachRow(table string, rows [][]string, required []string, fn func(p *rowParser)) error {
	if len(rows) == 0 {
		return model.NewInputError(table, "", 0, "table is empty")
	}
	mapping := DetectColumns(rows[0])
	if err := mapping.require(table, required...); err != nil {
		return err
	}

	var errs []error
	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		p := &rowParser{table: table, mapping: mapping, row: rows[i], line: i + 1}
		fn(p)
		errs = append(errs, p.errs...)
	}
	return errors.Join(errs...)
}

func parseGroups(rows [][]string) ([]model.Group, error) {
	var groups []model.Group
	err := eachRow(TableGroups, rows, []string{"group_code", "headcount"}, func(p *rowParser) {
		g := model.Group{
			Code:      p.text("group_code", true),
			Programme: strings.ToUpper(p.text("programme_code", false)),
			Year:      p.integer("year", false),
			Headcount: p.integer("headcount", true),
		}
		if g.Programme == "" {
			if prefix, _, ok := strings.Cut(g.Code, "-"); ok {
				g.Programme = strings.ToUpper(prefix)
			} else {
				p.fail("programme_code", "missing value and group code %q has no programme prefix", g.Code)
			}
		}
		if len(p.errs) == 0 && g.Headcount == 0 {
			p.fail("headcount", "must be positive")
		}
		groups = append(groups, g)
	})
	return groups, err
}

func parseRooms(rows [][]string) ([]model.Room, error) {
	var rooms []model.Room
	err := eachRow(TableRooms, rows, []string{"room_code", "capacity"}, func(p *rowParser) {
		rooms = append(rooms, model.Room{
			Code:      p.text("room_code", true),
			Capacity:  p.integer("capacity", true),
			Available: p.boolean("available", true),
		})
	})
	return rooms, err
}

func parseSlots(rows [][]string) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	err := eachRow(TableTimeslots, rows, []string{"day", "start", "end"}, func(p *rowParser) {
		s := model.TimeSlot{ID: p.text("slot_id", false)}
		if v := p.text("day", true); v != "" {
			day, err := model.ParseWeekday(v)
			if err != nil {
				p.fail("day", "%v", err)
			}
			s.Day = day
		}
		s.Start = p.clock("start")
		s.End = p.clock("end")
		if s.ID == "" {
			s.ID = fmt.Sprintf("%s-%s", s.Day, s.Start)
		}
		slots = append(slots, s)
	})
	return slots, err
}

func parseCurriculum(programme string, rows [][]string) ([]model.CurriculumRow, error) {
	var out []model.CurriculumRow
	table := "Curriculum " + programme
	err := eachRow(table, rows, []string{"course_name", "trimester"}, func(p *rowParser) {
		r := model.CurriculumRow{
			Programme:     programme,
			Term:          p.integer("trimester", true),
			Year:          p.integer("year", false),
			CourseCode:    p.text("course_code", false),
			CourseName:    p.text("course_name", true),
			LectureSlots:  p.integer("lecture_slots", false),
			PracticeSlots: p.integer("practice_slots", false),
			LabSlots:      p.integer("lab_slots", false),
		}
		if v := strings.ToUpper(p.text("programme_code", false)); v != "" {
			r.Programme = v
		}
		if len(p.errs) == 0 && r.Term == 0 {
			p.fail("trimester", "must be at least 1")
		}
		out = append(out, r)
	})
	return out, err
}

// tableKind classifies a sheet or file name.
func tableKind(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "groups":
		return TableGroups
	case "rooms":
		return TableRooms
	case "timeslots", "time_slots", "slots":
		return TableTimeslots
	default:
		return ""
	}
}

// fromSheets builds a dataset from named tables. order fixes the processing
// order of curriculum sheets.
func fromSheets(order []string, sheets map[string][][]string) (*Dataset, error) {
	ds := &Dataset{}
	var errs []error
	found := map[string]bool{}

	for _, name := range order {
		rows := sheets[name]
		var err error
		switch tableKind(name) {
		case TableGroups:
			ds.Groups, err = parseGroups(rows)
			found[TableGroups] = true
		case TableRooms:
			ds.Rooms, err = parseRooms(rows)
			found[TableRooms] = true
		case TableTimeslots:
			ds.Slots, err = parseSlots(rows)
			found[TableTimeslots] = true
		default:
			if ignoredSheets[strings.ToLower(name)] {
				continue
			}
			if len(rows) == 0 {
				ds.Warnings = append(ds.Warnings, fmt.Sprintf("Sheet %s is empty, skipping", name))
				continue
			}
			var rowsOut []model.CurriculumRow
			rowsOut, err = parseCurriculum(strings.ToUpper(strings.TrimSpace(name)), rows)
			ds.Curriculum = append(ds.Curriculum, rowsOut...)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	for _, table := range []string{TableGroups, TableRooms, TableTimeslots} {
		if !found[table] {
			errs = append(errs, model.NewInputError(table, "", 0, "table not found"))
		}
	}
	if len(ds.Curriculum) == 0 && len(errs) == 0 {
		errs = append(errs, model.NewInputError("Curriculum", "", 0, "no curriculum sheets found"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return ds, nil
}

// Load reads a dataset from path, which may be an .xlsx workbook or a
// directory of CSV files.
func Load(path string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input: %w", err)
	}
	if info.IsDir() {
		return ImportCSVDir(path)
	}
	return ImportExcel(path)
}

// ImportExcel reads every sheet of an Excel workbook. The Groups, Rooms and
// Timeslots sheets are required; every other sheet is treated as the
// curriculum of the programme it is named after.
func ImportExcel(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open Excel file: %w", err)
	}
	defer f.Close()

	order := f.GetSheetList()
	if len(order) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	sheets := make(map[string][][]string, len(order))
	for _, name := range order {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("cannot read sheet %s: %w", name, err)
		}
		sheets[name] = rows
	}
	return fromSheets(order, sheets)
}

// ImportCSVDir reads groups.csv, rooms.csv, timeslots.csv and one curriculum
// file per programme (curriculum_<PROGRAMME>.csv) from dir.
func ImportCSVDir(dir string) (*Dataset, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("cannot list CSV files: %w", err)
	}
	sort.Strings(matches)

	var order []string
	sheets := make(map[string][][]string)
	var warnings []string
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := stem
		if prog, ok := strings.CutPrefix(strings.ToLower(stem), "curriculum_"); ok && prog != "" {
			name = stem[len(stem)-len(prog):]
		} else if tableKind(stem) == "" {
			warnings = append(warnings, fmt.Sprintf("%s: not a known table, skipping", filepath.Base(path)))
			continue
		}
		rows, warning, err := ReadCSV(path)
		if err != nil {
			return nil, err
		}
		if warning != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", filepath.Base(path), warning))
		}
		order = append(order, name)
		sheets[name] = rows
	}

	ds, err := fromSheets(order, sheets)
	if err != nil {
		return nil, err
	}
	ds.Warnings = append(warnings, ds.Warnings...)
	return ds, nil
}

// ReadCSV reads a CSV file, detecting its delimiter. A warning is returned
// when the delimiter is not a comma.
func ReadCSV(path string) ([][]string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("cannot open file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", nil
	}

	var warning string
	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warning = fmt.Sprintf("Detected %s delimiter", delimName)
	}

	records, err := newCSVReader(data, delimiter).ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("cannot read CSV %s: %w", filepath.Base(path), err)
	}
	return records, warning, nil
}

func newCSVReader(data []byte, delimiter rune) *csv.Reader {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	// rows may be ragged; missing cells read as empty
	reader.FieldsPerRecord = -1
	return reader
}

// DetectCSVDelimiter picks the delimiter of a CSV export. Spreadsheets in
// many locales save with semicolons, so comma, semicolon, tab and pipe are
// tried in turn. A candidate must split the header into at least two columns;
// among those the one giving the most rows of the header's width wins, with
// the header width breaking ties.
func DetectCSVDelimiter(data []byte) rune {
	best, bestScore := ',', 0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		records, err := newCSVReader(data, delim).ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}
		width := len(records[0])
		if width < 2 {
			continue
		}

		consistent := 0
		for _, row := range records {
			if len(row) == width {
				consistent++
			}
		}
		if score := consistent*10 + width; score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}
