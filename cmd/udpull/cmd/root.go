// Package cmd implements the udpull command line: a single cobra command
// that parses its four positional arguments, wires up logging, and runs one
// download to completion.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mikiSpoko200/computer-networks/internal/config"
	"github.com/mikiSpoko200/computer-networks/internal/downloader"
	"github.com/mikiSpoko200/computer-networks/internal/output"
	"github.com/mikiSpoko200/computer-networks/internal/slogutil"
)

var (
	timeoutFlag  time.Duration
	logLevelFlag string
	logFileFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "udpull SERVER_IP SERVER_PORT OUTPUT_FILE FILE_SIZE",
	Short: "Reliably pull a fixed-size file from a UDP server over a lossy link",
	Args:  cobra.ExactArgs(4),
	RunE:  run,
}

func init() {
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", config.DefaultTimeout, "retransmission deadline")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "", "optional path to additionally write rotated logs to")
}

// Execute runs the root command, exiting nonzero on any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Parse(args[0], args[1], args[2], args[3])
	if err != nil {
		return err
	}
	cfg.Timeout = timeoutFlag
	cfg.LogLevel = logLevelFlag
	cfg.LogFile = logFileFlag
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := slogutil.New(slogutil.Config{
		Level:   slogutil.ParseLevel(cfg.LogLevel),
		LogPath: cfg.LogFile,
	})

	out, err := output.Create(afero.NewOsFs(), cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("udpull: %w", err)
	}
	defer out.Close()

	d, err := downloader.New(cfg, out, log)
	if err != nil {
		return fmt.Errorf("udpull: %w", err)
	}
	defer d.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("udpull: %w", err)
	}

	log.Info("download complete", "bytes", cfg.FileSize, "elapsed", time.Since(start))
	return nil
}
