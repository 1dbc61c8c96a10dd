package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/pulse/internal/compiler"
	"github.com/roach88/pulse/internal/ir"
)

// Error code constants, shared by every command.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No CUE files found
	ErrCodeLoadFailed     = "E004" // CUE load failed
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeBuildFailed    = "E006" // CUE evaluation failed
	ErrCodeWriteFailed    = "E007" // File write error
	ErrCodeUnknownNetwork = "E008" // --network names nothing in the package
	ErrCodeNoNetworks     = "E009" // Package declares no networks
	ErrCodeDatabase       = "E010" // Store could not be opened or read
	ErrCodeUnknownRun     = "E011" // --run names nothing in the store
	ErrCodeStepFailed     = "E012" // A scripted emit did not behave as expected
	ErrCodeDiverged       = "E013" // Replay produced a different trace
	ErrCodeInvalidQuery   = "E014" // --where/--from do not form a valid search

	// Compile errors inside a network declaration
	ErrCodeInvalidNode = "E101" // malformed node field
	ErrCodeInvalidType = "E104" // unsupported payload type (e.g., float)
)

// LoadError is a spec loading failure with a CLI error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads every network in dir. Directory problems are reported as
// a single error with a nil package. Compile errors of individual networks
// are collected; the package then holds only the networks that compiled.
// All returned errors are *LoadError.
func LoadSpecs(dir string) (*compiler.Package, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	pkg, errs := compiler.LoadDir(dir)
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = convertCompileError(e, pkg == nil)
	}
	return pkg, out
}

// loadNetwork loads dir and returns the named network. Any load error fails
// the whole load. An empty name selects the only network of the package.
func loadNetwork(dir, name string) (*ir.NetworkSpec, error) {
	pkg, errs := LoadSpecs(dir)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if name == "" {
		if len(pkg.Networks) == 1 {
			return pkg.Networks[0], nil
		}
		return nil, &LoadError{
			Code:    ErrCodeUnknownNetwork,
			Message: fmt.Sprintf("--network is required (available: %s)", strings.Join(pkg.Names(), ", ")),
		}
	}
	spec, ok := pkg.Network(name)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeUnknownNetwork,
			Message: fmt.Sprintf("network %q not found (available: %s)", name, strings.Join(pkg.Names(), ", ")),
		}
	}
	return spec, nil
}

// convertCompileError maps a compiler error to a LoadError. fatal marks
// errors that prevented the package from loading at all.
func convertCompileError(err error, fatal bool) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field, compileErr.Message),
			Message: compileMessage(err, compileErr),
			Pos:     compileErr.Pos,
		}
	}
	code := ErrCodeGeneric
	if fatal {
		code = ErrCodeLoadFailed
	}
	return &LoadError{Code: code, Message: err.Error()}
}

// compileMessage keeps the "network X:" prefix LoadDir adds but drops the
// position, which LoadError renders itself.
func compileMessage(err error, compileErr *compiler.CompileError) string {
	msg := compileErr.Field + ": " + compileErr.Message
	if prefix, _, ok := strings.Cut(err.Error(), ": "); ok && strings.HasPrefix(prefix, "network ") {
		return prefix + ": " + msg
	}
	return msg
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field, message string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "network":
		return ErrCodeNoNetworks
	case strings.Contains(message, "float"), strings.HasSuffix(field, ".type"):
		return ErrCodeInvalidType
	case field == "nodes", strings.HasPrefix(field, "nodes."):
		return ErrCodeInvalidNode
	default:
		return ErrCodeGeneric
	}
}
