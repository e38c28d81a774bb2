package engine

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/piwi3910/timetabler/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// InitStrategy names a built-in initializer.
type InitStrategy string

const (
	InitRandom InitStrategy = "random"
	InitGreedy InitStrategy = "greedy"
)

// GeneticConfig holds parameters for the evolutionary search.
type GeneticConfig struct {
	PopulationSize  int          `yaml:"populationSize" env:"POPULATION" validate:"min=1"`
	Generations     int          `yaml:"generations" env:"GENERATIONS" validate:"min=0"`
	CrossoverRate   float64      `yaml:"crossoverRate" validate:"gte=0,lte=1"`
	CrossoverPoints int          `yaml:"crossoverPoints" validate:"oneof=1 2"`
	MutationRate    float64      `yaml:"mutationRate" validate:"gte=0,lte=1"`
	MutationMode    MutationMode `yaml:"mutationMode" validate:"oneof=candidate gene"`
	TournamentSize  int          `yaml:"tournamentSize" validate:"min=1"`
	// EarlyStop ends the run after this many generations without improvement
	// of the best score. Zero disables it.
	EarlyStop   int          `yaml:"earlyStop" validate:"min=0"`
	Seed        int64        `yaml:"seed" env:"SEED"`
	Initializer InitStrategy `yaml:"initializer" validate:"oneof=random greedy"`
	// Workers bounds concurrent fitness evaluations. Values below 2 evaluate sequentially.
	Workers int `yaml:"workers" env:"WORKERS" validate:"min=0"`
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize:  50,
		Generations:     100,
		CrossoverRate:   0.9,
		CrossoverPoints: 2,
		MutationRate:    0.1,
		MutationMode:    MutatePerCandidate,
		TournamentSize:  3,
		EarlyStop:       20,
		Seed:            42,
		Initializer:     InitRandom,
		Workers:         1,
	}
}

// GenerationStats describes the population after one generation.
type GenerationStats struct {
	Generation  int
	Best        model.Score // best of this generation
	BestEver    model.Score
	Stagnant    int
	Evaluations int
}

// Observer is notified after the initial population and after every generation.
type Observer interface {
	ObserveGeneration(stats GenerationStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(GenerationStats)

func (f ObserverFunc) ObserveGeneration(s GenerationStats) { f(s) }

// Result is the outcome of a search run.
type Result struct {
	Best  *Candidate
	Score model.Score
	// History holds the best total penalty of each generation; index 0 is the
	// initial population.
	History      []float64
	Generations  int
	StoppedEarly bool
	Evaluations  int
}

// Engine runs the evolutionary search over a fixed session list.
type Engine struct {
	config      GeneticConfig
	evaluator   *Evaluator
	initializer Initializer
	selector    Selector
	crossover   Crossover
	mutator     Mutator
	observers   []Observer
	logger      *zap.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithInitializer replaces the configured initializer.
func WithInitializer(i Initializer) Option { return func(e *Engine) { e.initializer = i } }

// WithSelector replaces tournament selection.
func WithSelector(s Selector) Option { return func(e *Engine) { e.selector = s } }

// WithCrossover replaces point crossover.
func WithCrossover(c Crossover) Option { return func(e *Engine) { e.crossover = c } }

// WithMutator replaces the room-or-slot mutator.
func WithMutator(m Mutator) Option { return func(e *Engine) { e.mutator = m } }

// WithObserver registers a per-generation observer.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observers = append(e.observers, o) } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// New creates an engine for the evaluator's sessions. Strategies default to
// those named by config.
func New(evaluator *Evaluator, config GeneticConfig, opts ...Option) (*Engine, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if len(evaluator.Sessions()) == 0 {
		return nil, fmt.Errorf("no sessions to schedule")
	}
	if config.PopulationSize < 1 {
		return nil, fmt.Errorf("population size must be at least 1, got %d", config.PopulationSize)
	}
	if config.TournamentSize < 1 {
		return nil, fmt.Errorf("tournament size must be at least 1, got %d", config.TournamentSize)
	}

	cat := evaluator.Catalog()
	e := &Engine{
		config:    config,
		evaluator: evaluator,
		selector:  TournamentSelector{Size: config.TournamentSize},
		crossover: PointCrossover{Points: config.CrossoverPoints},
		mutator: RoomOrSlotMutator{
			Rate:  config.MutationRate,
			Mode:  config.MutationMode,
			Rooms: cat.NumRooms(),
			Slots: cat.NumSlots(),
		},
		logger: zap.NewNop(),
	}
	switch config.Initializer {
	case InitGreedy:
		e.initializer = GreedyInitializer{
			Sessions:    evaluator.Sessions(),
			Catalog:     cat,
			Eligibility: evaluator.Eligibility(),
		}
	case InitRandom, "":
		e.initializer = RandomInitializer{
			Sessions: len(evaluator.Sessions()),
			Rooms:    cat.NumRooms(),
			Slots:    cat.NumSlots(),
		}
	default:
		return nil, fmt.Errorf("unknown initializer %q", config.Initializer)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the search. The run is fully determined by the seed and the
// inputs. If ctx is cancelled between generations, the best candidate found so
// far is returned together with the context error.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	rng := rand.New(rand.NewSource(e.config.Seed))
	log := e.logger

	population := e.initializer.Initialize(rng, e.config.PopulationSize)
	evaluations, err := e.evaluate(ctx, population)
	if err != nil {
		return Result{}, err
	}

	genBest := best(population)
	hallOfFame := genBest.Clone()
	result := Result{
		History:     []float64{genBest.Fitness()},
		Evaluations: evaluations,
	}
	e.notify(GenerationStats{Generation: 0, Best: genBest.score, BestEver: hallOfFame.score, Evaluations: evaluations})
	log.Debug("Initial population evaluated",
		zap.Int("population", len(population)),
		zap.Float64("best", genBest.Fitness()))

	stagnant := 0
	for gen := 1; gen <= e.config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			e.finish(&result, hallOfFame)
			return result, err
		}

		offspring := e.selector.Select(rng, population, len(population))

		for i := 0; i+1 < len(offspring); i += 2 {
			if rng.Float64() < e.config.CrossoverRate {
				e.crossover.Cross(rng, offspring[i], offspring[i+1])
			}
		}
		for _, c := range offspring {
			e.mutator.Mutate(rng, c)
		}

		n, err := e.evaluate(ctx, offspring)
		result.Evaluations += n
		if err != nil {
			e.finish(&result, hallOfFame)
			return result, err
		}

		population = offspring
		genBest = best(population)
		result.History = append(result.History, genBest.Fitness())
		result.Generations = gen

		if genBest.Fitness() < hallOfFame.Fitness() {
			hallOfFame = genBest.Clone()
			stagnant = 0
		} else {
			stagnant++
		}

		e.notify(GenerationStats{
			Generation:  gen,
			Best:        genBest.score,
			BestEver:    hallOfFame.score,
			Stagnant:    stagnant,
			Evaluations: n,
		})

		if e.config.EarlyStop > 0 && stagnant >= e.config.EarlyStop {
			log.Info("Stopping early",
				zap.Int("generation", gen),
				zap.Int("stagnant", stagnant),
				zap.Float64("best", hallOfFame.Fitness()))
			result.StoppedEarly = true
			break
		}
	}

	e.finish(&result, hallOfFame)
	log.Info("Search finished",
		zap.Int("generations", result.Generations),
		zap.Float64("hard", result.Score.Hard),
		zap.Float64("soft", result.Score.Soft),
		zap.Int("evaluations", result.Evaluations))
	return result, nil
}

func (e *Engine) finish(result *Result, hallOfFame *Candidate) {
	result.Best = hallOfFame
	result.Score = hallOfFame.score
}

func (e *Engine) notify(stats GenerationStats) {
	for _, o := range e.observers {
		o.ObserveGeneration(stats)
	}
}

// evaluate scores every candidate without a valid cached score and returns
// how many were scored. With more than one worker the candidates are scored
// concurrently; each goroutine writes only its own candidate.
func (e *Engine) evaluate(ctx context.Context, pop []*Candidate) (int, error) {
	var pending []*Candidate
	for _, c := range pop {
		if !c.evaluated {
			pending = append(pending, c)
		}
	}

	if e.config.Workers < 2 || len(pending) < 2 {
		for _, c := range pending {
			c.setScore(e.evaluator.Score(c.Genes))
		}
		return len(pending), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for _, c := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.setScore(e.evaluator.Score(c.Genes))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("evaluate population: %w", err)
	}
	return len(pending), nil
}
