// Package services wires the importer, session builder, search engine and
// exporters into the operations exposed by the command line.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piwi3910/timetabler/internal/checker"
	"github.com/piwi3910/timetabler/internal/config"
	"github.com/piwi3910/timetabler/internal/curriculum"
	"github.com/piwi3910/timetabler/internal/engine"
	"github.com/piwi3910/timetabler/internal/export"
	"github.com/piwi3910/timetabler/internal/importer"
	"github.com/piwi3910/timetabler/internal/metrics"
	"github.com/piwi3910/timetabler/internal/model"
	"github.com/piwi3910/timetabler/internal/schedule"
	"go.uber.org/zap"
)

// Problem is everything the search needs for one term.
type Problem struct {
	Term      int
	Programme string
	Catalog   *model.Catalog
	Sessions  []model.Session
	Evaluator *engine.Evaluator
}

// Prepare builds the resource catalog, the session list and the evaluator for
// a term. An empty programme schedules every programme in the dataset.
func Prepare(ds *importer.Dataset, cfg *config.Config, term int, programme string, logger *zap.Logger) (*Problem, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// fixed venues are kept out of the room search so only their own
	// sessions can use them
	excluded := append(append([]string(nil), cfg.ExcludedRooms...), cfg.SharedVenues()...)
	catalog, err := model.NewCatalog(ds.Rooms, ds.Slots, excluded)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource catalog: %w", err)
	}

	opts := cfg.SessionOptions()
	opts.Programme = programme
	opts.Logger = logger
	sessions, err := curriculum.Build(ds.Curriculum, ds.Groups, term, opts)
	if err != nil {
		return nil, err
	}

	evaluator, err := engine.NewEvaluator(sessions, catalog, cfg.Rules(), cfg.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}

	logger.Info("Problem prepared",
		zap.Int("term", term),
		zap.String("programme", programme),
		zap.Int("sessions", len(sessions)),
		zap.Int("rooms", catalog.NumRooms()),
		zap.Int("slots", catalog.NumSlots()))

	return &Problem{
		Term:      term,
		Programme: programme,
		Catalog:   catalog,
		Sessions:  sessions,
		Evaluator: evaluator,
	}, nil
}

// Outcome is a finished search and its materialized timetable.
type Outcome struct {
	Problem  *Problem
	Result   engine.Result
	Schedule *schedule.Schedule
	RunLog   export.RunLog
	Metrics  *metrics.Recorder
}

// Generate runs the search for a prepared problem and materializes the best
// timetable. A cancelled context still yields the best timetable found so far
// together with the context error.
func Generate(ctx context.Context, p *Problem, cfg *config.Config, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	recorder := metrics.NewRecorder(p.Term)
	progress := engine.ObserverFunc(func(s engine.GenerationStats) {
		logger.Debug("Generation complete",
			zap.Int("generation", s.Generation),
			zap.Float64("best", s.Best.Total()),
			zap.Float64("best_ever", s.BestEver.Total()),
			zap.Int("stagnant", s.Stagnant))
	})

	eng, err := engine.New(p.Evaluator, cfg.GA,
		engine.WithLogger(logger),
		engine.WithObserver(recorder),
		engine.WithObserver(progress))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	started := time.Now()
	result, runErr := eng.Run(ctx)
	if runErr != nil && result.Best == nil {
		return nil, fmt.Errorf("search failed: %w", runErr)
	}

	sched, err := schedule.Materialize(p.Term, p.Sessions, p.Catalog, result.Best.Genes)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize timetable: %w", err)
	}

	runLog := export.NewRunLog(p.Term, cfg.GA, cfg.Weights, result, time.Since(started))
	runLog.Programme = p.Programme

	if result.Score.Feasible() {
		logger.Info("Feasible timetable found",
			zap.String("run_id", runLog.RunID),
			zap.Float64("soft", result.Score.Soft))
	} else {
		logger.Warn("Best timetable still violates hard constraints",
			zap.String("run_id", runLog.RunID),
			zap.Float64("hard", result.Score.Hard))
	}

	return &Outcome{
		Problem:  p,
		Result:   result,
		Schedule: sched,
		RunLog:   runLog,
		Metrics:  recorder,
	}, runErr
}

// WriteOutputs writes every enabled artifact of an outcome under the output
// directory and returns the paths used. Failures are collected so one broken
// format does not prevent the others from being written.
func WriteOutputs(o *Outcome, cfg *config.Config, input string) (export.Paths, error) {
	paths := export.PathsFor(cfg.Output.Dir, o.Problem.Term)
	var errs []error

	if cfg.HasFormat("json") {
		errs = append(errs, export.WriteJSON(paths.JSON, o.Schedule))
	}
	if cfg.HasFormat("xlsx") {
		errs = append(errs, export.WriteXLSX(paths.XLSX, o.Schedule))
	}
	if cfg.HasFormat("pdf") {
		errs = append(errs, export.WritePDF(paths.PDF, o.Schedule, o.RunLog.RunID))
	}
	errs = append(errs, export.WriteFitnessCSV(paths.Fitness, o.Result.History))

	runLog := o.RunLog
	runLog.Input = input
	errs = append(errs, export.WriteRunLog(paths.RunLog, runLog))

	if cfg.Output.Metrics {
		errs = append(errs, o.Metrics.WriteFile(paths.Metrics))
	}
	return paths, errors.Join(errs...)
}

// Compare runs the default what-if scenarios for a prepared problem.
func Compare(ctx context.Context, p *Problem, cfg *config.Config, logger *zap.Logger) ([]engine.ComparisonResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return engine.CompareScenarios(ctx, p.Evaluator, engine.BuildDefaultScenarios(cfg.GA), engine.WithLogger(logger))
}

// Check audits an exported timetable against the curriculum of the dataset.
func Check(timetablePath string, ds *importer.Dataset, cfg *config.Config, term int, programme string) (*checker.Report, error) {
	tt, err := checker.LoadTimetable(timetablePath)
	if err != nil {
		return nil, err
	}

	opts := cfg.SessionOptions()
	opts.Programme = programme
	required, err := curriculum.Required(ds.Curriculum, ds.Groups, term, opts)
	if err != nil {
		return nil, err
	}
	return checker.Check(tt, required, cfg.VenueOverrides), nil
}

// Summary counts the rows of each table of a dataset.
type Summary struct {
	Groups     int
	Rooms      int
	Slots      int
	Curriculum int
	Programmes []string
	Warnings   []string
}

// Summarize describes a loaded dataset.
func Summarize(ds *importer.Dataset) Summary {
	return Summary{
		Groups:     len(ds.Groups),
		Rooms:      len(ds.Rooms),
		Slots:      len(ds.Slots),
		Curriculum: len(ds.Curriculum),
		Programmes: ds.Programmes(),
		Warnings:   ds.Warnings,
	}
}
