// Package metrics records search progress as Prometheus collectors on a
// private registry and writes them in the text exposition format at the end
// of a run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/timetabler/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements engine.Observer.
type Recorder struct {
	registry    *prometheus.Registry
	generations prometheus.Counter
	evaluations prometheus.Counter
	bestTotal   prometheus.Gauge
	bestHard    prometheus.Gauge
	bestSoft    prometheus.Gauge
	generation  prometheus.Gauge
	stagnant    prometheus.Gauge
	duration    prometheus.Gauge
	started     time.Time
}

// NewRecorder registers the search collectors. term is attached to every
// series as a constant label.
func NewRecorder(term int) *Recorder {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"term": fmt.Sprintf("%d", term)}

	r := &Recorder{
		registry: registry,
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "timetable_generations_total",
			Help:        "Generations completed by the search",
			ConstLabels: labels,
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "timetable_evaluations_total",
			Help:        "Candidate timetables scored",
			ConstLabels: labels,
		}),
		bestTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "timetable_best_penalty",
			Help:        "Best total penalty found so far",
			ConstLabels: labels,
		}),
		bestHard: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "timetable_best_hard_penalty",
			Help:        "Hard constraint penalty of the best timetable",
			ConstLabels: labels,
		}),
		bestSoft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "timetable_best_soft_penalty",
			Help:        "Soft constraint penalty of the best timetable",
			ConstLabels: labels,
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "timetable_generation",
			Help:        "Index of the last completed generation",
			ConstLabels: labels,
		}),
		stagnant: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "timetable_stagnant_generations",
			Help:        "Generations since the best penalty last improved",
			ConstLabels: labels,
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "timetable_search_duration_seconds",
			Help:        "Wall time spent in the search",
			ConstLabels: labels,
		}),
		started: time.Now(),
	}

	registry.MustRegister(r.generations, r.evaluations, r.bestTotal, r.bestHard,
		r.bestSoft, r.generation, r.stagnant, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveGeneration records one generation. Generation 0 is the initial
// population and does not count as a completed generation.
func (r *Recorder) ObserveGeneration(s engine.GenerationStats) {
	if r == nil {
		return
	}
	if s.Generation > 0 {
		r.generations.Inc()
	}
	r.evaluations.Add(float64(s.Evaluations))
	r.bestTotal.Set(s.BestEver.Total())
	r.bestHard.Set(s.BestEver.Hard)
	r.bestSoft.Set(s.BestEver.Soft)
	r.generation.Set(float64(s.Generation))
	r.stagnant.Set(float64(s.Stagnant))
	r.duration.Set(time.Since(r.started).Seconds())
}

// WriteFile writes the current values to path in the Prometheus text format,
// creating the parent directory when needed.
func (r *Recorder) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
