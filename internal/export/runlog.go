package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/piwi3910/timetabler/internal/engine"
	"github.com/piwi3910/timetabler/internal/model"
)

// RunLog records what a search run was given and what it produced.
type RunLog struct {
	RunID        string               `json:"run_id"`
	CreatedAt    string               `json:"created_at"`
	Input        string               `json:"input,omitempty"`
	Term         int                  `json:"term"`
	Programme    string               `json:"programme,omitempty"`
	Sessions     int                  `json:"sessions"`
	Parameters   engine.GeneticConfig `json:"parameters"`
	Weights      engine.Weights       `json:"weights"`
	Generations  int                  `json:"generations"`
	StoppedEarly bool                 `json:"stopped_early"`
	Evaluations  int                  `json:"evaluations"`
	Duration     float64              `json:"duration_seconds"`
	Score        model.Score          `json:"score"`
	Fitness      float64              `json:"fitness"`
	Genes        []engine.Assignment  `json:"genes"`
}

// NewRunLog fills a run log from a finished search. The run id is a fresh
// random UUID.
func NewRunLog(term int, cfg engine.GeneticConfig, weights engine.Weights, result engine.Result, elapsed time.Duration) RunLog {
	log := RunLog{
		RunID:        uuid.NewString(),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Term:         term,
		Parameters:   cfg,
		Weights:      weights,
		Generations:  result.Generations,
		StoppedEarly: result.StoppedEarly,
		Evaluations:  result.Evaluations,
		Duration:     elapsed.Seconds(),
		Score:        result.Score,
		Fitness:      result.Score.Total(),
	}
	if result.Best != nil {
		log.Sessions = len(result.Best.Genes)
		log.Genes = append([]engine.Assignment(nil), result.Best.Genes...)
	}
	return log
}

// WriteRunLog writes the run log as indented JSON.
func WriteRunLog(path string, log RunLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run log: %w", err)
	}
	return writeFile(path, data, "run log")
}

// ReadRunLog reads a run log written by WriteRunLog.
func ReadRunLog(path string) (RunLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunLog{}, fmt.Errorf("failed to read run log: %w", err)
	}
	var log RunLog
	if err := json.Unmarshal(data, &log); err != nil {
		return RunLog{}, fmt.Errorf("failed to parse run log: %w", err)
	}
	if log.RunID == "" {
		return RunLog{}, fmt.Errorf("invalid run log: missing run_id")
	}
	return log, nil
}

// WriteFitnessCSV writes the best fitness of every generation, starting with
// generation 0 for the initial population.
func WriteFitnessCSV(path string, history []float64) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"generation", "best_fitness"}); err != nil {
		return fmt.Errorf("failed to write fitness header: %w", err)
	}
	for gen, v := range history {
		if err := w.Write([]string{strconv.Itoa(gen), strconv.FormatFloat(v, 'f', -1, 64)}); err != nil {
			return fmt.Errorf("failed to write fitness row %d: %w", gen, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write fitness curve: %w", err)
	}
	return writeFile(path, buf.Bytes(), "fitness")
}
