package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/piwi3910/timetabler/internal/curriculum"
	"github.com/piwi3910/timetabler/internal/engine"
	"github.com/piwi3910/timetabler/internal/logging"
	"github.com/piwi3910/timetabler/internal/model"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TIMETABLE_"

// OutputConfig selects where and how timetables are written.
type OutputConfig struct {
	Dir     string   `yaml:"dir" env:"OUTPUT_DIR" validate:"required"`
	Formats []string `yaml:"formats" validate:"dive,oneof=json xlsx pdf"`
	Metrics bool     `yaml:"metrics" env:"METRICS"`
}

// Config represents the application configuration
type Config struct {
	AcademicYear    int                   `yaml:"academicYear" env:"ACADEMIC_YEAR" validate:"min=2000,max=2099"`
	MaxYear         int                   `yaml:"maxYear" validate:"min=1"`
	WeeksPerTerm    int                   `yaml:"weeksPerTerm" validate:"min=0"`
	GA              engine.GeneticConfig  `yaml:"ga"`
	Weights         engine.Weights        `yaml:"weights"`
	Eligibility     []model.YearRule      `yaml:"eligibility" validate:"dive"`
	VenueOverrides  []model.VenueOverride `yaml:"venueOverrides" validate:"dive"`
	ExcludedCourses []string              `yaml:"excludedCourses"`
	ExcludedRooms   []string              `yaml:"excludedRooms"`
	Output          OutputConfig          `yaml:"output"`
	Log             logging.Config        `yaml:"log"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		AcademicYear: 2024,
		MaxYear:      3,
		WeeksPerTerm: 1,
		GA:           engine.DefaultGeneticConfig(),
		Weights:      engine.DefaultWeights(),
		Eligibility: []model.YearRule{
			// first-year classes run in the morning only
			{Year: 1, LatestStart: model.NewClock(12, 0)},
			{Year: 2, ExcludedDays: []model.Weekday{model.Saturday}},
			{Year: 3, ExcludedDays: []model.Weekday{model.Thursday}},
		},
		VenueOverrides: curriculum.DefaultOptions().VenueOverrides,
		Output: OutputConfig{
			Dir:     "outputs",
			Formats: []string{"json", "xlsx", "pdf"},
			Metrics: true,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and TIMETABLE_* environment variables, in that order,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration struct and checks cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[int]bool)
	for i, r := range cfg.Eligibility {
		if seen[r.Year] {
			return fmt.Errorf("duplicate eligibility rule for year %d at eligibility[%d]", r.Year, i)
		}
		seen[r.Year] = true
	}
	for i, v := range cfg.VenueOverrides {
		if len(v.CourseContains) == 0 && len(v.CourseEquals) == 0 {
			return fmt.Errorf("venueOverrides[%d] matches no course", i)
		}
	}
	return nil
}

// SessionOptions returns the session builder options for this configuration.
func (c *Config) SessionOptions() curriculum.Options {
	return curriculum.Options{
		AcademicYear:    c.AcademicYear,
		MaxYear:         c.MaxYear,
		WeeksPerTerm:    c.WeeksPerTerm,
		ExcludedCourses: c.ExcludedCourses,
		VenueOverrides:  c.VenueOverrides,
	}
}

// Rules returns the year placement rules.
func (c *Config) Rules() model.Eligibility {
	return model.NewEligibility(c.Eligibility)
}

// SharedVenues lists the fixed venues that may host several groups at once.
func (c *Config) SharedVenues() []string {
	out := make([]string, 0, len(c.VenueOverrides))
	for _, v := range c.VenueOverrides {
		out = append(out, v.Room)
	}
	return out
}

// HasFormat reports whether an output format is enabled.
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}
