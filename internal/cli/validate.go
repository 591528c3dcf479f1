package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/launchpop/internal/definition"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Popups []string          `json:"popups,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one definition problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Popup   string `json:"popup,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definitions-dir>",
		Short: "Validate popup definitions",
		Long: `Validate CUE popup definitions against the popup schema.

Every .cue file under the directory is unified into one configuration.
Each entry under "popup" must satisfy the schema: trigger values within
their ranges, no unknown fields, and unique ids.

Exit codes:
  0 - All definitions valid
  1 - One or more definitions invalid
  2 - Command error (directory missing, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loader, err := definition.NewLoader()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load popup schema", err)
	}

	defs, errs := loader.LoadDir(dir)
	if len(defs) == 0 && len(errs) == 1 {
		var le *definition.LoadError
		if errors.As(errs[0], &le) && isCommandError(le.Code) {
			return fail(formatter, ExitCommandError, le.Code, le.Message)
		}
	}

	issues := make([]ValidationIssue, 0, len(errs))
	for _, err := range errs {
		issues = append(issues, toIssue(err))
	}
	if len(defs) == 0 && len(issues) == 0 {
		issues = append(issues, ValidationIssue{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("no popup definitions found in %s", dir),
		})
	}

	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		formatter.VerboseLog("popup %s: selector %s", d.ID, d.ElementSelector())
		ids = append(ids, d.ID)
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, ValidationResult{Popups: ids, Errors: issues})
	}
	return outputValidateSuccess(formatter, ValidationResult{Valid: true, Popups: ids})
}

// isCommandError reports whether a loader code means the input could not
// be read at all, as opposed to invalid content.
func isCommandError(code string) bool {
	switch code {
	case definition.ErrCodeNotFound, definition.ErrCodeNoFiles, definition.ErrCodeReadFailed:
		return true
	}
	return false
}

func toIssue(err error) ValidationIssue {
	var le *definition.LoadError
	if !errors.As(err, &le) {
		return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: le.Code, Popup: le.Popup, Message: le.Message}
	if le.Pos.IsValid() {
		issue.File = le.Pos.Filename()
		issue.Line = le.Pos.Line()
	}
	return issue
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d popup definition(s) valid\n", len(result.Popups))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		first := result.Errors[0]
		if err := formatter.Failure(result, first.Code, first.Message); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range result.Errors {
		if issue.File != "" {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		if issue.Popup != "" {
			fmt.Fprintf(formatter.Writer, "  %s: popup %s: %s\n\n", issue.Code, issue.Popup, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
	return exitErr
}
