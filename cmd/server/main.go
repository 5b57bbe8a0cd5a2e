package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/draft-bot/internal/command"
	"github.com/DoyleJ11/draft-bot/internal/config"
	"github.com/DoyleJ11/draft-bot/internal/dispatch"
	"github.com/DoyleJ11/draft-bot/internal/export"
	"github.com/DoyleJ11/draft-bot/internal/httpapi"
	"github.com/DoyleJ11/draft-bot/internal/hub"
	"github.com/DoyleJ11/draft-bot/internal/lobby"
	"github.com/DoyleJ11/draft-bot/internal/logging"
	"github.com/DoyleJ11/draft-bot/internal/pubsub"
	"github.com/DoyleJ11/draft-bot/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) (err error) {
	bus, err := newBus(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	exporter, closeExporters, err := newExporter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeExporters()) }()

	h := hub.NewHub(ctx, log,
		lobby.WithSink(bus),
		lobby.WithExporter(exporter),
	)
	d := dispatch.New(h, command.NewResolver(cfg.CommandPrefix, cfg.Bounds()), cfg.Settings(), log.Named("dispatch"))

	var origins []string
	if cfg.Dev {
		origins = []string{"localhost:*", "127.0.0.1:*"}
	}
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:        h,
			Dispatcher: d,
			Events:     bus,
			Log:        log.Named("http"),
			WS:         ws.Options{OriginPatterns: origins},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(sctx),
			h.Shutdown(sctx),
		)
	})
	return g.Wait()
}

func newBus(cfg config.Config, log *zap.Logger) (*pubsub.Bus, error) {
	if cfg.NATSURL == "" {
		return pubsub.New(log.Named("bus")), nil
	}
	up, err := pubsub.NewNATSUpstream(cfg.NATSURL, cfg.NATSSubject, log.Named("nats"))
	if err != nil {
		return nil, err
	}
	bus, err := pubsub.NewWithUpstream(up, log.Named("bus"))
	if err != nil {
		return nil, multierr.Append(err, up.Close())
	}
	log.Info("publishing events to nats", zap.String("subject", cfg.NATSSubject))
	return bus, nil
}

func newExporter(ctx context.Context, cfg config.Config, log *zap.Logger) (export.Exporter, func() error, error) {
	var (
		targets export.Multi
		closers []func() error
	)
	closeAll := func() error {
		var err error
		for _, c := range closers {
			err = multierr.Append(err, c())
		}
		return err
	}

	if cfg.ExportDir != "" {
		f, _ := export.ParseFormat(cfg.ExportFormat)
		fe, err := export.NewFileExporter(cfg.ExportDir, f, log.Named("export"))
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, fe)
	}
	if cfg.DatabaseURL != "" {
		pe, err := export.NewPostgresExporter(ctx, cfg.DatabaseURL, log.Named("export"))
		if err != nil {
			return nil, nil, multierr.Append(err, closeAll())
		}
		targets = append(targets, pe)
		closers = append(closers, pe.Close)
	}

	if len(targets) == 0 {
		return export.Nop, closeAll, nil
	}
	return targets, closeAll, nil
}
