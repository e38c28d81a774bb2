package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/piwi3910/timetabler/internal/engine"
	"github.com/piwi3910/timetabler/internal/model"
	"github.com/piwi3910/timetabler/internal/schedule"
	"github.com/xuri/excelize/v2"
)

// buildTestSchedule creates a small timetable with one merged lecture.
func buildTestSchedule() *schedule.Schedule {
	lecture := model.Entry{
		Groups: []string{"IT-2401", "IT-2402"}, Programme: "IT", Year: 1,
		Day: model.Monday, Start: model.NewClock(8, 0), End: model.NewClock(8, 50), Time: "08:00-08:50",
		CourseCode: "IT101", Course: "Programming Fundamentals", Category: model.CategoryLecture, Room: "A101",
	}
	lab := model.Entry{
		Group: "IT-2401", Groups: []string{"IT-2401"}, Programme: "IT", Year: 1,
		Day: model.Tuesday, Start: model.NewClock(10, 0), End: model.NewClock(10, 50), Time: "10:00-10:50",
		CourseCode: "IT101", Course: "Programming Fundamentals", Category: model.CategoryLab, Room: "LAB-1",
	}
	pe := model.Entry{
		Group: "IT-2402", Groups: []string{"IT-2402"}, Programme: "IT", Year: 1,
		Day: model.Wednesday, Start: model.NewClock(9, 0), End: model.NewClock(9, 50), Time: "09:00-09:50",
		CourseCode: "PE1", Course: "Physical Education", Category: model.CategoryPractice, Room: "Gym",
	}
	return &schedule.Schedule{Term: 1, Entries: []model.Entry{lecture, lab, pe}}
}

// ─── Paths Tests ────────────────────────────────────────────

func TestPathsFor(t *testing.T) {
	p := PathsFor("outputs", 2)
	want := map[string]string{
		p.JSON:    filepath.Join("outputs", "timetable_T2.json"),
		p.XLSX:    filepath.Join("outputs", "timetable_T2.xlsx"),
		p.PDF:     filepath.Join("outputs", "timetable_T2.pdf"),
		p.Fitness: filepath.Join("outputs", "fitness_T2.csv"),
		p.RunLog:  filepath.Join("outputs", "run_log_T2.json"),
		p.Metrics: filepath.Join("outputs", "metrics_T2.prom"),
	}
	for got, expected := range want {
		if got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	}
}

// ─── JSON Tests ─────────────────────────────────────────────

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timetable_T1.json")
	if err := WriteJSON(path, buildTestSchedule()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("timetable file was not created: %v", err)
	}
	var tt map[string][]model.Entry
	if err := json.Unmarshal(data, &tt); err != nil {
		t.Fatalf("timetable is not valid JSON: %v", err)
	}

	if len(tt) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tt))
	}
	if len(tt["IT-2401"]) != 2 || len(tt["IT-2402"]) != 2 {
		t.Errorf("expected 2 entries per group, got %d and %d", len(tt["IT-2401"]), len(tt["IT-2402"]))
	}
	first := tt["IT-2402"][0]
	if first.Group != "IT-2402" || first.CourseCode != "IT101" || first.Day != model.Monday {
		t.Errorf("unexpected first entry for IT-2402: %+v", first)
	}
	if first.Start != model.NewClock(8, 0) {
		t.Errorf("expected start 08:00, got %s", first.Start)
	}
}

// ─── XLSX Tests ─────────────────────────────────────────────

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable_T1.xlsx")
	if err := WriteXLSX(path, buildTestSchedule()); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	expected := []string{TimetableSheet, "IT-2401", "IT-2402"}
	if len(sheets) != len(expected) {
		t.Fatalf("expected sheets %v, got %v", expected, sheets)
	}
	for i, name := range expected {
		if sheets[i] != name {
			t.Errorf("sheet %d: expected %q, got %q", i, name, sheets[i])
		}
	}

	rows, err := f.GetRows(TimetableSheet)
	if err != nil {
		t.Fatalf("failed to read %s: %v", TimetableSheet, err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(rows))
	}
	if rows[0][0] != "Group" || rows[0][6] != "Room" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "IT-2401" || rows[1][1] != "Mon" || rows[1][5] != "Lecture" {
		t.Errorf("unexpected first row: %v", rows[1])
	}

	groupRows, _ := f.GetRows("IT-2402")
	if len(groupRows) != 3 {
		t.Errorf("expected header + 2 rows on IT-2402, got %d", len(groupRows))
	}
}

func TestWriteXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := WriteXLSX(path, &schedule.Schedule{Term: 1}); err == nil {
		t.Fatal("expected error for empty timetable, got nil")
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{"timetable": true}

	tests := []struct {
		group string
		want  string
	}{
		{"IT-2401", "IT-2401"},
		{"CS/2401:A", "CS_2401_A"},
		{"timetable", "timetable~2"},
		{"A-very-long-group-code-that-exceeds-the-limit", "A-very-long-group-code-that-exc"},
		{"A-very-long-group-code-that-exceeds-it-too", "A-very-long-group-code-that-e~2"},
		{"", "Group"},
	}
	for _, tt := range tests {
		got := SheetName(tt.group, used)
		if got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.group, got, tt.want)
		}
		if len([]rune(got)) > maxSheetName {
			t.Errorf("SheetName(%q) = %q exceeds %d characters", tt.group, got, maxSheetName)
		}
	}
}

// ─── PDF Tests ──────────────────────────────────────────────

func TestWritePDF_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable_T1.pdf")
	if err := WritePDF(path, buildTestSchedule(), uuid.NewString()); err != nil {
		t.Fatalf("WritePDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestWritePDF_ManyRowsAndUnicode(t *testing.T) {
	s := &schedule.Schedule{Term: 2}
	for i := 0; i < 40; i++ {
		s.Entries = append(s.Entries, model.Entry{
			Group: "ÉCO-2301", Groups: []string{"ÉCO-2301"},
			Day: model.Friday, Time: "08:00-08:50",
			CourseCode: "EC1", Course: "Économie générale et sociologie des organisations internationales",
			Category: model.CategoryPractice, Room: "B-2",
		})
	}
	path := filepath.Join(t.TempDir(), "long.pdf")
	if err := WritePDF(path, s, ""); err != nil {
		t.Fatalf("WritePDF returned error: %v", err)
	}
}

func TestBuildPDF_SplitsLongGroups(t *testing.T) {
	s := &schedule.Schedule{Term: 1}
	for i := 0; i < 40; i++ {
		s.Entries = append(s.Entries, model.Entry{
			Group: "IT-2401", Groups: []string{"IT-2401"},
			Day: model.Monday, Time: "08:00-08:50",
			CourseCode: "IT101", Course: "Programming", Category: model.CategoryLecture, Room: "A101",
		})
	}
	s.Entries = append(s.Entries, model.Entry{
		Group: "IT-2402", Groups: []string{"IT-2402"},
		Day: model.Tuesday, Time: "09:00-09:50",
		CourseCode: "MA101", Course: "Maths", Category: model.CategoryPractice, Room: "B202",
	})

	pdf, err := buildPDF(s, "")
	if err != nil {
		t.Fatalf("buildPDF returned error: %v", err)
	}
	// 21 rows fit on a page: IT-2401 needs two pages, IT-2402 one
	if got := pdf.PageCount(); got != 3 {
		t.Errorf("expected 3 pages, got %d", got)
	}
}

func TestWritePDF_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	if err := WritePDF(path, &schedule.Schedule{Term: 1}, ""); err == nil {
		t.Fatal("expected error for empty timetable, got nil")
	}
}

// ─── Run Artifact Tests ─────────────────────────────────────

func TestWriteFitnessCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fitness_T1.csv")
	if err := WriteFitnessCSV(path, []float64{2016, 1008.5, 8}); err != nil {
		t.Fatalf("WriteFitnessCSV failed: %v", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("fitness file was not created: %v", err)
	}
	defer fh.Close()
	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse fitness file: %v", err)
	}

	expected := [][]string{
		{"generation", "best_fitness"},
		{"0", "2016"},
		{"1", "1008.5"},
		{"2", "8"},
	}
	if len(records) != len(expected) {
		t.Fatalf("expected %d records, got %d", len(expected), len(records))
	}
	for i := range expected {
		if records[i][0] != expected[i][0] || records[i][1] != expected[i][1] {
			t.Errorf("record %d: expected %v, got %v", i, expected[i], records[i])
		}
	}
}

func TestRunLogRoundTrip(t *testing.T) {
	cfg := engine.DefaultGeneticConfig()
	result := engine.Result{
		Best:         engine.NewCandidate([]engine.Assignment{{Room: 1, Slot: 3}, {Room: 0, Slot: 2}}),
		Score:        model.Score{Hard: 0, Soft: 8},
		History:      []float64{1016, 8},
		Generations:  1,
		StoppedEarly: true,
		Evaluations:  70,
	}

	log := NewRunLog(3, cfg, engine.DefaultWeights(), result, 1500*time.Millisecond)
	if _, err := uuid.Parse(log.RunID); err != nil {
		t.Errorf("run id is not a UUID: %q", log.RunID)
	}
	if log.Sessions != 2 || log.Fitness != 8 {
		t.Errorf("unexpected run log summary: sessions=%d fitness=%v", log.Sessions, log.Fitness)
	}

	path := filepath.Join(t.TempDir(), "run_log_T3.json")
	if err := WriteRunLog(path, log); err != nil {
		t.Fatalf("WriteRunLog failed: %v", err)
	}
	loaded, err := ReadRunLog(path)
	if err != nil {
		t.Fatalf("ReadRunLog failed: %v", err)
	}

	if loaded.RunID != log.RunID || loaded.Term != 3 || !loaded.StoppedEarly {
		t.Errorf("run log did not survive a round trip: %+v", loaded)
	}
	if loaded.Parameters.Seed != cfg.Seed || loaded.Duration != 1.5 {
		t.Errorf("expected seed %d and duration 1.5, got %d and %v", cfg.Seed, loaded.Parameters.Seed, loaded.Duration)
	}
	if len(loaded.Genes) != 2 || loaded.Genes[0] != (engine.Assignment{Room: 1, Slot: 3}) {
		t.Errorf("unexpected genes: %v", loaded.Genes)
	}
}

func TestReadRunLog_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"term": 1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRunLog(path); err == nil {
		t.Error("expected error for run log without run id")
	}
}
