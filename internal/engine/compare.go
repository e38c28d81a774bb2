package engine

import (
	"context"
	"fmt"
)

// ComparisonScenario defines a named set of search parameters to compare.
type ComparisonScenario struct {
	Name   string
	Config GeneticConfig
}

// ComparisonResult holds the search result and summary statistics for a
// single scenario.
type ComparisonResult struct {
	Scenario     ComparisonScenario
	Result       Result
	Hard         float64
	Soft         float64
	Total        float64
	Generations  int
	StoppedEarly bool
}

// CompareScenarios runs the search once per scenario against the same
// evaluator and returns the results in scenario order. This enables
// side-by-side comparison of initializers, crossover variants and rates.
func CompareScenarios(ctx context.Context, evaluator *Evaluator, scenarios []ComparisonScenario, opts ...Option) ([]ComparisonResult, error) {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		eng, err := New(evaluator, scenario.Config, opts...)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
		res, err := eng.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}

		results = append(results, ComparisonResult{
			Scenario:     scenario,
			Result:       res,
			Hard:         res.Score.Hard,
			Soft:         res.Score.Soft,
			Total:        res.Score.Total(),
			Generations:  res.Generations,
			StoppedEarly: res.StoppedEarly,
		})
	}

	return results, nil
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current configuration, varying key parameters to show what-if alternatives.
func BuildDefaultScenarios(base GeneticConfig) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:   "Current Settings",
			Config: base,
		},
	}

	// Scenario: Try the other initializer
	altInit := base
	if base.Initializer == InitGreedy {
		altInit.Initializer = InitRandom
		scenarios = append(scenarios, ComparisonScenario{Name: "Random Initialization", Config: altInit})
	} else {
		altInit.Initializer = InitGreedy
		scenarios = append(scenarios, ComparisonScenario{Name: "Greedy Initialization", Config: altInit})
	}

	// Scenario: The other crossover variant
	altCx := base
	if base.CrossoverPoints == 1 {
		altCx.CrossoverPoints = 2
	} else {
		altCx.CrossoverPoints = 1
	}
	scenarios = append(scenarios, ComparisonScenario{
		Name:   fmt.Sprintf("%d-Point Crossover", altCx.CrossoverPoints),
		Config: altCx,
	})

	// Scenario: Per-gene mutation
	if base.MutationMode != MutatePerGene && base.MutationRate > 0 {
		perGene := base
		perGene.MutationMode = MutatePerGene
		perGene.MutationRate = base.MutationRate / 10
		scenarios = append(scenarios, ComparisonScenario{
			Name:   fmt.Sprintf("Per-Gene Mutation %.3f", perGene.MutationRate),
			Config: perGene,
		})
	}

	return scenarios
}
