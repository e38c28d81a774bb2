// Package export writes materialized timetables and the artifacts of a search
// run to disk.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/timetabler/internal/schedule"
)

// Paths names every file produced for one term.
type Paths struct {
	JSON    string
	XLSX    string
	PDF     string
	Fitness string
	RunLog  string
	Metrics string
}

// PathsFor returns the output paths for term inside dir.
func PathsFor(dir string, term int) Paths {
	name := func(prefix, ext string) string {
		return filepath.Join(dir, fmt.Sprintf("%s_T%d.%s", prefix, term, ext))
	}
	return Paths{
		JSON:    name("timetable", "json"),
		XLSX:    name("timetable", "xlsx"),
		PDF:     name("timetable", "pdf"),
		Fitness: name("fitness", "csv"),
		RunLog:  name("run_log", "json"),
		Metrics: name("metrics", "prom"),
	}
}

// WriteJSON writes the timetable as an object keyed by group code. Merged
// lectures are repeated under every attending group.
func WriteJSON(path string, s *schedule.Schedule) error {
	data, err := json.MarshalIndent(s.ByGroup(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal timetable: %w", err)
	}
	return writeFile(path, data, "timetable")
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func writeFile(path string, data []byte, what string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", what, err)
	}
	return nil
}
