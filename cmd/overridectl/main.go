package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-overrides/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "overridectl:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
