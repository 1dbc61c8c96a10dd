package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// CLIResponse is the envelope every command writes under --format json.
// Status is "ok" or "error". A failed run still carries its result in Data.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError names the first problem of a failed command.
type CLIError struct {
	Code    string `json:"code"` // E0xx, see loader.go
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter renders command results as text or as a CLIResponse.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // logs and verbose lines; Writer when nil
	Verbose   bool
}

// newFormatter reads the global flags. Diagnostics go to stderr so that a
// JSON envelope on stdout stays the only thing there.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func (f *OutputFormatter) JSON() bool { return f.Format == "json" }

// Success writes data as an ok envelope, or prints it as is in text mode.
func (f *OutputFormatter) Success(data any) error {
	if !f.JSON() {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return f.respond(CLIResponse{Status: "ok", Data: data})
}

// Error reports a command that produced no result.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return f.respond(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message, Details: details}})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Failure writes an error envelope that keeps data, for commands that ran
// to the end but whose outcome is a failure. It always writes JSON.
func (f *OutputFormatter) Failure(data any, code, message string) error {
	return f.respond(CLIResponse{Status: "error", Data: data, Error: &CLIError{Code: code, Message: message}})
}

// Report writes result with Success, or with Failure when failure is set,
// and then returns failure as the command's error.
func (f *OutputFormatter) Report(result any, failure error, code, message string) error {
	var err error
	if failure == nil {
		err = f.Success(result)
	} else {
		err = f.Failure(result, code, message)
	}
	if err != nil {
		return err
	}
	return failure
}

func (f *OutputFormatter) respond(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog prints a line to the diagnostic writer under --verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // invalid network, failed step or scenario, diverged replay
	ExitCommandError = 2 // bad flags, unreadable specs, missing database
)

// ExitError is a command error that knows its exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode maps err to a process exit code. Errors without an ExitError
// in their chain are failures.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
