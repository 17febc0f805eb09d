package main

import (
	"log/slog"
	"os"

	"github.com/Materials-Consortia/optimade-go/internal/cli"
)

func main() {
	// Structured logs go to stderr so JSON output stays parseable.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
