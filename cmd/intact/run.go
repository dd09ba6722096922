package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/intact/config"
	"go.viam.com/intact/export"
	"go.viam.com/intact/interaction"
	"go.viam.com/intact/logging"
	"go.viam.com/intact/render"
	"go.viam.com/intact/sensor"
	"go.viam.com/intact/vision/segmentation"
)

const shutdownTimeout = 5 * time.Second

// run wires the sensor, loop and renderers described by cfg and blocks until
// ctx is done.
func run(ctx context.Context, cfg *config.Config, logger logging.Logger) (err error) {
	capturer, err := sensor.New(ctx, cfg.Sensor, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Combine(err, capturer.Close(closeCtx))
	}()

	pipeline, err := segmentation.NewPipeline(cfg.Segmentation, logger.Sublogger("segmentation"))
	if err != nil {
		return err
	}
	exporter, err := export.New(cfg.Export, logger.Sublogger("export"))
	if err != nil {
		return err
	}
	mode, err := sensor.ParseRecordMode(cfg.Sensor.RecordMode)
	if err != nil {
		return err
	}

	store := interaction.NewBoundaryStore(nil)
	loop := interaction.NewLoop(capturer, pipeline, exporter, store, interaction.Options{
		Interval:   cfg.Interval,
		RecordMode: mode,
	}, logger.Sublogger("loop"))

	drawers := render.MultiDrawer{render.LogDrawer{Logger: logger.Sublogger("render")}}
	if cfg.Render.SnapshotPath != "" {
		plotDrawer, err := render.NewPlotDrawer(cfg.Render.SnapshotPath, loop)
		if err != nil {
			return err
		}
		drawers = append(drawers, plotDrawer)
	}

	if cfg.Render.Listen != "" {
		stream := render.NewStream(store, logger.Sublogger("stream"))
		defer func() {
			err = multierr.Combine(err, stream.Close())
		}()
		drawers = append(drawers, stream)

		listener, listenErr := net.Listen("tcp", cfg.Render.Listen)
		if listenErr != nil {
			return errors.Wrapf(listenErr, "listening on %q", cfg.Render.Listen)
		}
		mux := http.NewServeMux()
		mux.Handle("/ws", stream)
		httpServer := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		logger.Infow("serving context stream", "url", "ws://"+listener.Addr().String()+"/ws")
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = multierr.Combine(err, httpServer.Shutdown(shutdownCtx))
		}()
		goutils.PanicCapturingGo(func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("context stream server failed", "error", err)
			}
		})
	}

	poller := render.NewPoller(store, drawers, cfg.Render.PollInterval, nil, logger.Sublogger("render"))

	if err := loop.Start(ctx); err != nil {
		return err
	}
	if err := poller.Start(ctx); err != nil {
		loop.Close()
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	poller.Close()
	loop.Close()

	logger.Infof("interaction loop %s stopped\n%s", loop.RunID(), loop.Stats())
	return nil
}
