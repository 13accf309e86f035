package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lfdn/facerig/internal/app"
	"github.com/lfdn/facerig/internal/cli"
	"github.com/lfdn/facerig/internal/hcladapter"
	"github.com/lfdn/facerig/internal/scene"
)

// main is the entrypoint for the facerig application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. The standalone binary runs against an in-memory scene, which
// validates the configuration and the artifact layout end to end; a host
// binding supplies a live scene.Scene when the pipeline is embedded.
func run(outW io.Writer, args []string) error {
	appConfig, step, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors, so we recover here to provide
	// a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(outW, "A critical startup error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	loader := hcladapter.NewLoader()
	facerigApp := app.NewApp(outW, appConfig, loader, scene.NewMemory())

	return facerigApp.Run(context.Background(), step)
}
