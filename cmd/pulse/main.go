// Command pulse builds, runs and inspects reactive dataflow networks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pulse/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	// Commands report their own failures. Anything else is a flag or
	// argument error that cobra left unprinted.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.GetExitCode(err))
}
