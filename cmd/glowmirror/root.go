package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudu/glowmirror/internal/config"
	"github.com/dudu/glowmirror/internal/logger"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg is loaded once before any subcommand runs
	cfg *config.Config

	cfgFile   string
	logLevel  string
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "glowmirror",
	Short:         "Virtual makeup compositing and skin tone analysis",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}

		closer, err := logger.Init(loaded.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg = loaded
		logCloser = closer
		return nil
	},
}

// Execute runs the root command until completion or SIGINT/SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the command line and closes the log file whether or not the
// command failed. Cobra skips post-run hooks when RunE returns an error.
func execute(ctx context.Context, args []string) error {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error(err)
	}
	closeLog()
	return err
}

func closeLog() {
	if logCloser == nil {
		return
	}
	if err := logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
	logCloser = nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "glowmirror.yaml", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}
