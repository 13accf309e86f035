package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/lfdn/facerig/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envDefaults are the environment-variable defaults flags fall back to, so
// a pipeline wrapper can pin the asset once instead of on every call.
type envDefaults struct {
	Config    string `env:"FACERIG_CONFIG"`
	DataDir   string `env:"FACERIG_DATA_DIR"`
	LogFormat string `env:"FACERIG_LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"FACERIG_LOG_LEVEL" envDefault:"info"`
}

// Parse processes command-line arguments. It returns a populated app.Config
// and the step name to run, a boolean indicating if the program should exit
// cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, string, bool, error) {
	defaults, err := env.ParseAs[envDefaults]()
	if err != nil {
		return nil, "", false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("facerig", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
facerig - declarative deformer-stack reconstruction for facial rigs.

Usage:
  facerig [options] STEP

Steps (rebuild order):
`)
		for _, name := range app.StepNames {
			fmt.Fprintf(output, "  %s\n", name)
		}
		fmt.Fprint(output, "\nOptions:\n")
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", defaults.Config, "Path to the rig .hcl file or a directory of .hcl files.")
	cFlag := flagSet.String("c", "", "Path to the rig .hcl file or directory (shorthand).")
	dataDirFlag := flagSet.String("data-dir", defaults.DataDir, "Artifact directory. Defaults to the project block's layout.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	skipMissingFlag := flagSet.Bool("skip-missing", false, "Demote absent meshes to warnings during weight export.")
	skipMeshFlag := flagSet.String("skip-mesh", "", "Comma-separated stack keys or meshes to skip during weight import.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, "", true, nil
		}
		return nil, "", false, &ExitError{Code: 2, Message: err.Error()}
	}

	configPath := *configFlag
	if *cFlag != "" {
		configPath = *cFlag
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, "", true, nil
	}
	step := flagSet.Arg(0)
	if flagSet.NArg() > 1 {
		return nil, "", false, &ExitError{Code: 2, Message: "exactly one step name expected"}
	}
	if configPath == "" {
		return nil, "", false, &ExitError{Code: 2, Message: "no configuration given: pass -config or set FACERIG_CONFIG"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, "", false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, "", false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var skipMeshes []string
	for _, m := range strings.Split(*skipMeshFlag, ",") {
		if m = strings.TrimSpace(m); m != "" {
			skipMeshes = append(skipMeshes, m)
		}
	}

	cfg := &app.Config{
		ConfigPath:  configPath,
		DataDir:     *dataDirFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		SkipMissing: *skipMissingFlag,
		SkipMeshes:  skipMeshes,
	}
	return cfg, step, false, nil
}
