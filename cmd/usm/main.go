// Command usm drives the reference branching machine, either interactively
// or from YAML scenario scripts.
package main

import (
	"context"
	"os"

	"github.com/amp-labs/usm/cli"
	"github.com/amp-labs/usm/shutdown"
)

func main() {
	ctx := shutdown.SetupHandler(context.Background())

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, cli.NewTerminal()))
}
