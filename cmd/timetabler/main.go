// Timetabler: university course timetabling with a genetic search.
//
// Build:
//   go build -o timetabler ./cmd/timetabler
//
// Usage:
//   timetabler validate --input data/university.xlsx
//   timetabler generate --input data/university.xlsx --term 1 --seed 7
//   timetabler compare  --input data/university.xlsx --term 1
//   timetabler check    --input data/university.xlsx --term 1
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piwi3910/timetabler/internal/config"
	"github.com/piwi3910/timetabler/internal/export"
	"github.com/piwi3910/timetabler/internal/importer"
	"github.com/piwi3910/timetabler/internal/logging"
	"github.com/piwi3910/timetabler/internal/services"
)

// App holds the application dependencies
type App struct {
	cfg     *config.Config
	dataset *importer.Dataset
	logger  *zap.Logger
	ctx     context.Context
	stop    context.CancelFunc
}

var (
	configPath string
	inputPath  string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "timetabler",
		Short:         "Timetabler - Generate weekly university timetables",
		Long:          `A CLI tool that assigns every course session of a term to a room and a time slot using a genetic search.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.stop()
				_ = app.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "Input workbook (.xlsx) or directory of CSV files")
	_ = rootCmd.MarkPersistentFlagRequired("input")

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initApp loads configuration, sets up the logger and reads the input data
func initApp() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log, "timetabler")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app = &App{cfg: cfg, logger: logger, ctx: ctx, stop: stop}

	app.logger.Info("Loading input", zap.String("path", inputPath))
	app.dataset, err = importer.Load(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}
	for _, w := range app.dataset.Warnings {
		app.logger.Warn("Input warning", zap.String("warning", w))
	}
	app.logger.Debug("Input loaded successfully",
		zap.Int("groups", len(app.dataset.Groups)),
		zap.Int("rooms", len(app.dataset.Rooms)),
		zap.Int("slots", len(app.dataset.Slots)))
	return nil
}

// addSearchFlags registers the flags shared by generate and compare. Flags
// override the configuration only when given.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("term", "t", 1, "Trimester of the academic year (1-3)")
	cmd.Flags().StringP("programme", "p", "", "Schedule only this programme")
	cmd.Flags().Int64("seed", 0, "Random seed")
	cmd.Flags().Int("population", 0, "Population size")
	cmd.Flags().Int("generations", 0, "Number of generations")
	cmd.Flags().Int("workers", 0, "Concurrent fitness evaluations")
}

func applySearchFlags(cmd *cobra.Command) (term int, programme string) {
	term, _ = cmd.Flags().GetInt("term")
	programme, _ = cmd.Flags().GetString("programme")

	if cmd.Flags().Changed("seed") {
		app.cfg.GA.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("population") {
		app.cfg.GA.PopulationSize, _ = cmd.Flags().GetInt("population")
	}
	if cmd.Flags().Changed("generations") {
		app.cfg.GA.Generations, _ = cmd.Flags().GetInt("generations")
	}
	if cmd.Flags().Changed("workers") {
		app.cfg.GA.Workers, _ = cmd.Flags().GetInt("workers")
	}
	return term, programme
}

// Command definitions

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the input and report what it contains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := services.Summarize(app.dataset)

			fmt.Printf("\nInput is valid.\n\n")
			fmt.Printf("Groups:          %d\n", s.Groups)
			fmt.Printf("Rooms:           %d\n", s.Rooms)
			fmt.Printf("Time slots:      %d\n", s.Slots)
			fmt.Printf("Curriculum rows: %d\n", s.Curriculum)
			fmt.Printf("Programmes:      %s\n", strings.Join(s.Programmes, ", "))
			if len(s.Warnings) > 0 {
				fmt.Printf("\nWarnings:\n")
				for _, w := range s.Warnings {
					fmt.Printf("  - %s\n", w)
				}
			}
			fmt.Println()
			return nil
		},
	}
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the timetable for a term and write the outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			term, programme := applySearchFlags(cmd)
			if err := config.Validate(app.cfg); err != nil {
				return err
			}

			problem, err := services.Prepare(app.dataset, app.cfg, term, programme, app.logger)
			if err != nil {
				return err
			}

			outcome, runErr := services.Generate(app.ctx, problem, app.cfg, app.logger)
			if outcome == nil {
				return runErr
			}
			if runErr != nil {
				app.logger.Warn("Search interrupted, writing best timetable so far", zap.Error(runErr))
			}

			paths, err := services.WriteOutputs(outcome, app.cfg, inputPath)
			if err != nil {
				return fmt.Errorf("failed to write outputs: %w", err)
			}

			score := outcome.Result.Score
			fmt.Printf("\nTimetable generated for term %d.\n\n", term)
			fmt.Printf("Run ID:       %s\n", outcome.RunLog.RunID)
			fmt.Printf("Sessions:     %d\n", len(problem.Sessions))
			fmt.Printf("Generations:  %d (early stop: %t)\n", outcome.Result.Generations, outcome.Result.StoppedEarly)
			fmt.Printf("Hard penalty: %.0f\n", score.Hard)
			fmt.Printf("Soft penalty: %.0f\n", score.Soft)
			fmt.Printf("Feasible:     %t\n\n", score.Feasible())
			printPaths(paths)
			return runErr
		},
	}
	addSearchFlags(cmd)
	return cmd
}

func printPaths(paths export.Paths) {
	fmt.Println("Outputs:")
	for _, p := range []string{paths.JSON, paths.XLSX, paths.PDF, paths.Fitness, paths.RunLog, paths.Metrics} {
		if _, err := os.Stat(p); err == nil {
			fmt.Printf("  %s\n", p)
		}
	}
	fmt.Println()
}

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run alternative search settings side by side",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			term, programme := applySearchFlags(cmd)
			if err := config.Validate(app.cfg); err != nil {
				return err
			}

			problem, err := services.Prepare(app.dataset, app.cfg, term, programme, app.logger)
			if err != nil {
				return err
			}
			results, err := services.Compare(app.ctx, problem, app.cfg, app.logger)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nSCENARIO\tHARD\tSOFT\tTOTAL\tGENERATIONS")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%d\n", r.Scenario.Name, r.Hard, r.Soft, r.Total, r.Generations)
			}
			fmt.Fprintln(w)
			return w.Flush()
		},
	}
	addSearchFlags(cmd)
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit an exported timetable for clashes and missing sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			term, _ := cmd.Flags().GetInt("term")
			programme, _ := cmd.Flags().GetString("programme")
			timetable, _ := cmd.Flags().GetString("timetable")
			reportPath, _ := cmd.Flags().GetString("report")
			if timetable == "" {
				timetable = export.PathsFor(app.cfg.Output.Dir, term).JSON
			}

			report, err := services.Check(timetable, app.dataset, app.cfg, term, programme)
			if err != nil {
				return err
			}

			for _, c := range report.RoomConflicts {
				fmt.Printf("Room conflict:  %s %s %s: %s\n", c.Day, c.Time, c.Resource, strings.Join(c.Sessions, ", "))
			}
			for _, c := range report.GroupConflicts {
				fmt.Printf("Group conflict: %s %s %s: %s\n", c.Day, c.Time, c.Resource, strings.Join(c.Sessions, ", "))
			}
			for _, s := range report.Shortfalls {
				fmt.Printf("Curriculum:     %s %s (%s) required %d, scheduled %d\n",
					s.Group, s.Course, s.Category.Label(), s.Required, s.Actual)
			}
			fmt.Printf("\n%s\n", report.Summary())

			if reportPath != "" {
				if err := report.WriteXLSX(reportPath); err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", reportPath)
			}
			if !report.OK() {
				return errors.New("timetable check failed")
			}
			return nil
		},
	}
	cmd.Flags().IntP("term", "t", 1, "Trimester of the academic year (1-3)")
	cmd.Flags().StringP("programme", "p", "", "Check only this programme")
	cmd.Flags().String("timetable", "", "Timetable JSON to check (default: the generated one for the term)")
	cmd.Flags().String("report", "", "Also write the findings to this .xlsx file")
	return cmd
}
