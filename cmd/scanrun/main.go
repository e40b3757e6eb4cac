package main

import (
	"os"

	"github.com/buemura/scanrun/internal/cli"
	"github.com/buemura/scanrun/internal/run"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(run.ExitCode(err))
	}
}
