package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pulse/internal/compiler"
	"github.com/roach88/pulse/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledNetwork is the compile output for one network.
type CompiledNetwork struct {
	Name     string          `json:"name"`
	SpecHash string          `json:"spec_hash"`
	Nodes    int             `json:"nodes"`
	IR       json.RawMessage `json:"ir"`
}

// CompilationResult holds every compiled network of a package.
type CompilationResult struct {
	Networks []CompiledNetwork `json:"networks"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile network declarations to canonical IR",
		Long: `Compile every network in a CUE package to canonical JSON IR.

Networks are validated first; any load, compile or validation error
fails the whole compilation. With --output the IR of all networks is
written to one file as {"networks": [...]} in canonical form, which is
the same encoding used for spec hashes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	pkg, loadErrors := LoadSpecs(specsDir)
	if pkg == nil {
		return outputCommandError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(pkg.Files), specsDir)

	errs := loadErrors
	for _, spec := range pkg.Networks {
		formatter.VerboseLog("Compiling network: %s", spec.Name)
		if _, err := compiler.Infer(spec); err != nil {
			var verrs compiler.ValidationErrors
			if errors.As(err, &verrs) {
				for _, v := range verrs {
					errs = append(errs, &LoadError{Code: v.Code, Message: fmt.Sprintf("network %s: %s: %s", spec.Name, v.Field, v.Message)})
				}
				continue
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	result, doc, err := compileAll(pkg)
	if err != nil {
		return outputCommandError(formatter, err)
	}

	if opts.Output != "" {
		if err := writeIRToFile(doc, opts.Output); err != nil {
			return outputCommandError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// compileAll renders every network to canonical IR. It returns the
// per-network result and the combined document for --output.
func compileAll(pkg *compiler.Package) (*CompilationResult, ir.IRObject, error) {
	result := &CompilationResult{Networks: make([]CompiledNetwork, 0, len(pkg.Networks))}
	all := make(ir.IRArray, 0, len(pkg.Networks))
	for _, spec := range pkg.Networks {
		doc := spec.ToIR()
		data, err := ir.MarshalCanonical(doc)
		if err != nil {
			return nil, nil, fmt.Errorf("encode network %s: %w", spec.Name, err)
		}
		hash, err := ir.SpecHash(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("hash network %s: %w", spec.Name, err)
		}
		result.Networks = append(result.Networks, CompiledNetwork{
			Name:     spec.Name,
			SpecHash: hash,
			Nodes:    len(spec.Nodes),
			IR:       data,
		})
		all = append(all, doc)
	}
	return result, ir.IRObject{"networks": all}, nil
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d network(s)\n\n", len(result.Networks))
	for _, n := range result.Networks {
		fmt.Fprintf(formatter.Writer, "  %s: %d node(s), %s\n", n.Name, n.Nodes, n.SpecHash)
	}
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote canonical IR to %s\n", outputFile)
	}
	return nil
}

func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	failure := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		le := convertCompileError(err, false)
		cliErrors[i] = CLIError{Code: le.Code, Message: le.Message}
	}

	if formatter.JSON() {
		if err := formatter.Failure(cliErrors, cliErrors[0].Code, cliErrors[0].Message); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for i, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", cliErrors[i].Code, cliErrors[i].Message)
	}
	return failure
}

// writeIRToFile writes doc to filename as canonical JSON.
func writeIRToFile(doc ir.IRObject, filename string) error {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}
