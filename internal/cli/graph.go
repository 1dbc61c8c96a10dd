package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pulse/internal/engine"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Network string
	Root    string
}

// GraphResult is the JSON payload of the graph command.
type GraphResult struct {
	Network string `json:"network"`
	Root    string `json:"root,omitempty"`
	DOT     string `json:"dot"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <specs-dir>",
		Short: "Export a network as Graphviz DOT",
		Long: `Build a network and print it in Graphviz DOT format.

With --root only the nodes upstream of that node are drawn. The output
is deterministic and can be piped to dot:

  pulse graph ./specs --network counter | dot -Tsvg > counter.svg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Network, "network", "", "network to draw (required if the package has several)")
	cmd.Flags().StringVar(&opts.Root, "root", "", "draw only the graph upstream of this node")

	return cmd
}

func runGraph(opts *GraphOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, err := loadNetwork(specsDir, opts.Network)
	if err != nil {
		return outputCommandError(formatter, err)
	}

	eng, err := engine.New(spec, engine.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())))
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error()})
	}
	defer eng.Close()

	var buf bytes.Buffer
	if err := eng.WriteDOT(&buf, opts.Root); err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error()})
	}

	if formatter.JSON() {
		return formatter.Success(GraphResult{Network: spec.Name, Root: opts.Root, DOT: buf.String()})
	}
	_, err = fmt.Fprint(formatter.Writer, buf.String())
	return err
}
