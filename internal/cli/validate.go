package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwerling/thornweld/internal/schedule"
)

// ValidationIssue is one problem found during validation.
type ValidationIssue struct {
	Thorn   string `json:"thorn" yaml:"thorn"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid" yaml:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-dir>",
		Short: "Validate thorn specs and their schedules",
		Long: `Validate CUE thorn specs without generating output.

Compiles every thorn, then resolves every declared phase to surface
cycles and name/alias collisions. Faster feedback than a full generate.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadSpecs(specDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specDir)

	var issues []ValidationIssue
	for _, err := range loadErrors {
		code, message := parseLoadError(err)
		issues = append(issues, ValidationIssue{Code: code, Message: message})
	}

	// Resolve every declared phase of every thorn that compiled.
	for _, thorn := range loadResult.Thorns {
		formatter.VerboseLog("Validating thorn: %s", thorn.Name)

		results, err := schedule.ResolveAll(thorn.Steps)
		if err != nil {
			var resErr *schedule.ResolveError
			if errors.As(err, &resErr) {
				issues = append(issues, ValidationIssue{
					Thorn:   thorn.Name,
					Code:    string(resErr.Code),
					Message: resErr.Message,
				})
			} else {
				issues = append(issues, ValidationIssue{
					Thorn:   thorn.Name,
					Code:    ErrCodeGeneric,
					Message: err.Error(),
				})
			}
			continue
		}

		for _, res := range results {
			for _, w := range res.Warnings {
				fmt.Fprintf(formatter.GetErrWriter(), "warning [%s] %s: %s\n", w.Code, thorn.Name, w.Message)
			}
		}
	}

	if len(issues) > 0 {
		return outputValidationIssues(formatter, issues)
	}

	return outputValidateSuccess(formatter, len(loadResult.Thorns))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, thornCount int) error {
	if formatter.Structured() {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d thorn(s))\n", thornCount)
	return nil
}

// outputValidationIssues outputs validation failures (exit code 1).
func outputValidationIssues(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Structured() {
		result := ValidationResult{Valid: false, Issues: issues}
		_ = formatter.Error(issues[0].Code, issues[0].Message, result)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Thorn != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", issue.Thorn, issue.Code, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Code, issue.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
}
