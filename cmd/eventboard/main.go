package main

import (
	"context"
	"os"

	"github.com/iieadb/eventboard/internal/cli"
)

func main() {
	// cobra reports the error itself
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
