package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/launchpop/internal/engine"
	"github.com/roach88/launchpop/internal/harness"
	"github.com/roach88/launchpop/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Database  string // persist counters across scenarios; empty = in-memory per scenario
	GoldenDir string // empty = <scenario dir>/golden
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "" when absent
	Shows  int      `json:"shows"`
	Hides  int      `json:"hides"`
	Errors []string `json:"errors,omitempty"`
}

// SimulateResult holds the overall simulation result.
type SimulateResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml|dir>",
		Short: "Run popup scenarios against a simulated page",
		Long: `Run popup scenarios against a simulated page.

Each scenario builds a page, registers popups, replays its steps on a mock
clock and checks its assertions. When a golden file named after the
scenario exists, the recorded trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  launchpop simulate ./scenarios
  launchpop simulate ./scenarios --filter "exit_*"
  launchpop simulate ./scenarios/promo.yaml --update
  launchpop simulate ./scenarios --db ./counters.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database shared by all scenarios")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default <scenario dir>/golden)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenario files by glob pattern")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fail(formatter, ExitCommandError, ErrCodeScenario, fmt.Sprintf("scenario path not found: %s", path))
	}
	files, err := harness.FindScenarios(path, opts.Filter)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeScenario, err.Error())
	}

	runOpts := []harness.Option{harness.WithDefaults(cfg.Defaults())}
	if opts.Verbose {
		runOpts = append(runOpts, harness.WithLogger(slog.Default()))
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeStore+": failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithStore(st))
	}

	result := SimulateResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenarioFile(opts, file, runOpts)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if formatter.JSON() {
		if result.Failed > 0 {
			if err := formatter.Failure(result, ErrCodeScenario, fmt.Sprintf("%d scenario(s) failed", result.Failed)); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputSimulateText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

// runScenarioFile loads, runs and golden-checks one scenario file.
func runScenarioFile(opts *SimulateOptions, file string, runOpts []harness.Option) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	slog.Debug("running scenario", "scenario", scenario.Name, "file", file)
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	for _, ev := range result.Trace {
		switch ev.Type {
		case string(engine.EventShow):
			sr.Shows++
		case string(engine.EventHide):
			sr.Hides++
		}
	}
	sr.Errors = result.Errors

	goldenErr := checkGolden(opts, file, scenario.Name, result, &sr)
	if goldenErr != nil {
		sr.Errors = append(sr.Errors, goldenErr.Error())
	}
	sr.Pass = result.Pass && goldenErr == nil
	return sr
}

func checkGolden(opts *SimulateOptions, file, name string, result *harness.Result, sr *ScenarioResult) error {
	dir := opts.GoldenDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(file), "golden")
	}
	path := filepath.Join(dir, name+".golden")

	if !opts.Update {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}

	data, err := harness.Snapshot(name, result).Marshal()
	if err != nil {
		return fmt.Errorf("%s: %w", ErrCodeGolden, err)
	}
	if err := harness.CompareGoldenFile(path, data, opts.Update); err != nil {
		return fmt.Errorf("%s: %w", ErrCodeGolden, err)
	}
	if opts.Update {
		sr.Golden = "updated"
	} else {
		sr.Golden = "match"
	}
	return nil
}

func outputSimulateText(formatter *OutputFormatter, result SimulateResult) {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	for _, sr := range result.Scenarios {
		if !sr.Pass {
			fmt.Fprintf(w, "✗ %s\n", sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
			continue
		}
		switch sr.Golden {
		case "updated":
			fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
		default:
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
		}
		formatter.VerboseLog("  %d show(s), %d hide(s)", sr.Shows, sr.Hides)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
