package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pulse/internal/compiler"
)

// ValidationIssue is one problem found in a network package.
type ValidationIssue struct {
	Network string `json:"network,omitempty"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Networks []string          `json:"networks"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Check network declarations",
		Long: `Load the CUE package in <specs-dir> and check every network it declares:
node references, event/behavior kinds, payload types, builtin arity,
switch case keys and ownership cycles.

Exit codes:
  0 - All networks valid
  1 - One or more networks invalid
  2 - Specs could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	pkg, loadErrors := LoadSpecs(specsDir)
	if pkg == nil {
		return outputCommandError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(pkg.Files), specsDir)

	var issues []ValidationIssue
	for _, err := range loadErrors {
		issues = append(issues, loadIssue(err))
	}
	for _, spec := range pkg.Networks {
		formatter.VerboseLog("Validating network: %s", spec.Name)
		for _, v := range compiler.Validate(spec) {
			issues = append(issues, ValidationIssue{
				Network: spec.Name,
				Field:   v.Field,
				Code:    v.Code,
				Message: v.Message,
			})
		}
	}

	result := ValidationResult{Valid: len(issues) == 0, Networks: pkg.Names(), Errors: issues}
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ All networks valid (%d)\n", len(result.Networks))
	return nil
}

func loadIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	if formatter.JSON() {
		first := result.Errors[0]
		if err := formatter.Failure(result, first.Code, first.Message); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range result.Errors {
		switch {
		case issue.Network != "":
			fmt.Fprintf(formatter.Writer, "network %s\n", issue.Network)
		case issue.Line > 0:
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		if issue.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
	return failure
}

// outputCommandError reports an error that stopped a command before it
// produced a result, with exit code 2.
func outputCommandError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
	}
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, code, errors.New(message))
}
