package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/trackloop/internal/problem"
)

// ValidationIssue is one problem file error.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Name   string            `json:"name,omitempty"`
	Hash   string            `json:"hash,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <problem.cue>",
		Short: "Validate a problem file without running it",
		Long: `Validate a CUE problem file against the problem schema and build its
geometry, physics, diagnostics and primary generator.

Every schema and consistency error is reported with its line number.

Examples:
  trackloop validate ./problems/slab.cue
  trackloop validate ./problems/slab.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	def, err := problem.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("problem file not found: %s", path), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("problem file not found: %s", path))
		}
		issues := toIssues(err)
		if err := outputValidationErrors(formatter, issues); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("problem has %d error(s)", len(issues)))
	}
	formatter.VerboseLog("Schema check passed for %s", path)

	p, err := problem.Build(def, nil)
	if err != nil {
		issues := []ValidationIssue{{Field: "build", Message: err.Error()}}
		if err := outputValidationErrors(formatter, issues); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "problem cannot be built", err)
	}

	result := ValidationResult{Valid: true, Name: def.Name, Hash: p.Hash}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid (%s)\n", def.Name, p.Hash)
	return nil
}

// toIssues flattens problem errors into issues with line numbers.
func toIssues(err error) []ValidationIssue {
	var list problem.Errors
	if errors.As(err, &list) {
		issues := make([]ValidationIssue, 0, len(list))
		for _, e := range list {
			issues = append(issues, issueFrom(e))
		}
		return issues
	}
	var single *problem.Error
	if errors.As(err, &single) {
		return []ValidationIssue{issueFrom(single)}
	}
	return []ValidationIssue{{Field: "load", Message: err.Error()}}
}

func issueFrom(e *problem.Error) ValidationIssue {
	issue := ValidationIssue{Field: e.Field, Message: e.Message}
	if e.Pos.IsValid() {
		issue.Line = e.Pos.Line()
		issue.Column = e.Pos.Column()
	}
	return issue
}

func outputValidationErrors(f *OutputFormatter, issues []ValidationIssue) error {
	if f.Format == "json" {
		return f.Error(ErrCodeSchema, "validation failed", ValidationResult{
			Valid:  false,
			Errors: issues,
		})
	}

	fmt.Fprintf(f.Writer, "✗ %d error(s):\n", len(issues))
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(f.Writer, "  line %d: %s: %s\n", issue.Line, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(f.Writer, "  %s: %s\n", issue.Field, issue.Message)
		}
	}
	return nil
}
