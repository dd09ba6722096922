// Package main runs the interaction context loop against a sensor and shows
// the published contexts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"go.viam.com/intact/config"
	"go.viam.com/intact/logging"
	// registers the built in sensors.
	_ "go.viam.com/intact/sensor/fake"
	_ "go.viam.com/intact/sensor/replay"
)

const (
	// Flags.
	flagConfig       = "config"
	flagSource       = "source"
	flagReplayDir    = "replay-dir"
	flagSeed         = "seed"
	flagInterval     = "interval"
	flagExportDir    = "export-dir"
	flagExportFormat = "export-format"
	flagSnapshot     = "snapshot"
	flagListen       = "listen"
	flagDebug        = "debug"
	flagLogFile      = "log-file"
)

func main() {
	app := newApp()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "intact",
		Usage: "continuously segment the interaction context above a tabletop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagSource,
				Usage: "sensor type (fake or replay)",
			},
			&cli.StringFlag{
				Name:  flagReplayDir,
				Usage: "directory of .pcd frames for the replay sensor",
			},
			&cli.Int64Flag{
				Name:  flagSeed,
				Usage: "seed for the fake sensor",
			},
			&cli.DurationFlag{
				Name:  flagInterval,
				Usage: "wait between segmentation cycles",
			},
			&cli.StringFlag{
				Name:  flagExportDir,
				Usage: "write the scene and context clouds to `DIR` every cycle",
			},
			&cli.StringFlag{
				Name:  flagExportFormat,
				Usage: "export format (ply, pcd or las)",
			},
			&cli.StringFlag{
				Name:  flagSnapshot,
				Usage: "redraw a top down png of the context at `FILE`",
			},
			&cli.StringFlag{
				Name:  flagListen,
				Usage: "serve a websocket stream of contexts on `ADDR`",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to a rotating `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromFlags(c)
			if err != nil {
				return err
			}
			logger, closeLogs := newLogger(cfg)
			logging.ReplaceGlobal(logger)
			return multierr.Combine(run(c.Context, cfg, logger), closeLogs())
		},
	}
}

// configFromFlags reads the config file, if any, and applies flag overrides.
func configFromFlags(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = read
	} else {
		def := config.Default()
		cfg = &def
	}

	if c.IsSet(flagSource) {
		cfg.Sensor.Type = c.String(flagSource)
	}
	if c.IsSet(flagReplayDir) {
		cfg.Sensor.Path = c.String(flagReplayDir)
	}
	if c.IsSet(flagSeed) {
		cfg.Sensor.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagInterval) {
		cfg.Interval = c.Duration(flagInterval)
	}
	if c.IsSet(flagExportDir) {
		cfg.Export.Dir = c.String(flagExportDir)
	}
	if c.IsSet(flagExportFormat) {
		cfg.Export.Format = c.String(flagExportFormat)
	}
	if c.IsSet(flagSnapshot) {
		cfg.Render.SnapshotPath = c.String(flagSnapshot)
	}
	if c.IsSet(flagListen) {
		cfg.Render.Listen = c.String(flagListen)
	}
	if c.IsSet(flagLogFile) {
		cfg.LogFile = c.String(flagLogFile)
	}
	if c.Bool(flagDebug) {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logging.Logger, func() error) {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	if cfg.LogFile == "" {
		if cfg.Debug {
			return logging.NewDebugLogger("intact"), func() error { return nil }
		}
		return logging.NewLogger("intact"), func() error { return nil }
	}
	logger, closer := logging.NewLoggerWithFile("intact", level, logging.FileOptions{Path: cfg.LogFile, MaxBackups: 3})
	return logger, closer.Close
}
