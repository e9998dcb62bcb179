package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/csvimport"
	"github.com/san-kum/kinsim/internal/input"
	"github.com/san-kum/kinsim/internal/logging"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/pipeline"
	"github.com/san-kum/kinsim/internal/report"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/tracing"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	exitGeneric         = 1
	exitMissingArtifact = 3
	exitBadInput        = 4
	exitCanceled        = 130
)

var (
	cfgFile  string
	settings config.Settings
	logger   = zerolog.Nop()

	shutdownTracing func(context.Context) error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kinsim",
		Short:         "gas-phase kinetics simulation and comparison pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdownTracing != nil {
				return shutdownTracing(cmd.Context())
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./kinsim.yaml or ~/.config/kinsim/kinsim.yaml)")
	pf.String("data", config.DefaultDataDir, "run store directory")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.String("log-format", config.DefaultLogFormat, "log format (console, json)")
	pf.Bool("trace", false, "write OpenTelemetry spans to stderr")

	rootCmd.AddCommand(
		newRunCmd(),
		newSimulateCmd(),
		newSolveCmd(),
		newImportCmd(),
		newReportCmd(),
		newResolveCmd(),
		newListCmd(),
		newPlotCmd(),
		newPresetsCmd(),
		newExportJSONCmd(),
	)
	return rootCmd
}

func initConfig(cmd *cobra.Command) error {
	v := config.NewViper(cfgFile)
	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		config.KeyData:      "data",
		config.KeyLogLevel:  "log-level",
		config.KeyLogFormat: "log-format",
		config.KeyTrace:     "trace",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return err
		}
	}

	var err error
	settings, err = config.Load(v)
	if err != nil {
		return err
	}

	logger, err = logging.New(os.Stderr, settings.Log.Level, settings.Log.Format, cmd.Name())
	if err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("config loaded")
	}

	if settings.Trace {
		shutdownTracing, err = tracing.Init(cmd.Context(), os.Stderr, version)
		if err != nil {
			return err
		}
	}
	return nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitCanceled
	case errors.Is(err, report.ErrImageNotFound):
		return exitMissingArtifact
	case errors.Is(err, pipeline.ErrConfig),
		errors.Is(err, input.ErrInvalid),
		errors.Is(err, mechanism.ErrParse),
		errors.Is(err, mechanism.ErrSpeciesNotFound),
		errors.Is(err, mechanism.ErrAmbiguousSpecies),
		errors.Is(err, condition.ErrEmptySweep),
		errors.Is(err, condition.ErrUnknownReactor),
		errors.Is(err, condition.ErrInvalidCondition),
		errors.Is(err, csvimport.ErrMalformed),
		errors.Is(err, storage.ErrRunNotFound),
		errors.Is(err, fs.ErrNotExist),
		isViperError(err):
		return exitBadInput
	default:
		return exitGeneric
	}
}

func isViperError(err error) bool {
	var parse viper.ConfigParseError
	return errors.As(err, &parse)
}
