package export

import (
	"fmt"
	"strings"

	"github.com/piwi3910/timetabler/internal/model"
	"github.com/piwi3910/timetabler/internal/schedule"
	"github.com/xuri/excelize/v2"
)

// TimetableSheet is the name of the sheet holding every group's rows.
const TimetableSheet = "Timetable"

const maxSheetName = 31

var xlsxHeader = []interface{}{"Group", "Day", "Time", "Course Code", "Course", "Type", "Room"}

// WriteXLSX writes a workbook with a combined Timetable sheet followed by one
// sheet per group.
func WriteXLSX(path string, s *schedule.Schedule) error {
	byGroup := s.ByGroup()
	groups := s.Groups()
	if len(groups) == 0 {
		return fmt.Errorf("no entries to export")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", TimetableSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	var all []model.Entry
	for _, g := range groups {
		all = append(all, byGroup[g]...)
	}
	if err := writeEntrySheet(f, TimetableSheet, all, bold); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(TimetableSheet): true}
	for _, g := range groups {
		name := SheetName(g, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet for group %s: %w", g, err)
		}
		if err := writeEntrySheet(f, name, byGroup[g], bold); err != nil {
			return err
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeEntrySheet(f *excelize.File, sheet string, entries []model.Entry, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header on %s: %w", sheet, err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{e.Group, e.Day.String(), e.Time, e.CourseCode, e.Course, e.Category.Label(), e.Room}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+2, sheet, err)
		}
	}
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "E", "E", 36)
	return nil
}

// SheetName returns a worksheet name for a group that excelize accepts: at
// most 31 characters, none of : \ / ? * [ ], and unique (case-insensitively)
// among the names already in used. The chosen name is added to used.
func SheetName(group string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(group))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Group"
	}
	base = truncateRunes(base, maxSheetName)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
