// Package app wires configuration, logging, the hub, and the HTTP server
// into a runnable process.
package app

import (
	"context"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"time"

	server "hide-and-seek/server"
	"hide-and-seek/server/internal/config"
	servernet "hide-and-seek/server/internal/net"
	"hide-and-seek/server/internal/telemetry"
	"hide-and-seek/server/logging"
	loggingsinks "hide-and-seek/server/logging/sinks"
)

// Run starts the server and blocks until the HTTP listener fails or ctx is
// cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	telemetryLogger := telemetry.WrapLogger(log.Default())

	router, cleanup, err := buildRouter(cfg)
	if err != nil {
		return err
	}
	defer cleanup(ctx, telemetryLogger)

	hub := server.NewHub(server.HubConfig{
		TickRate:             cfg.TickRate,
		PropCount:            cfg.PropCount,
		MaxActiveCamouflages: cfg.MaxActiveCamouflages,
		FadeOut:              cfg.FadeOut,
		FadeIn:               cfg.FadeIn,
		CacheTTL:             cfg.CacheTTL,
		MaxCacheSize:         cfg.MaxCacheSize,
		MaintenanceInterval:  cfg.MaintenanceInterval,
		Logger:               telemetryLogger,
	}, router)

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{Logger: log.Default()})
	srv := &nethttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	telemetryLogger.Printf("server listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func buildRouter(cfg config.Config) (*logging.Router, func(context.Context, telemetry.Logger), error) {
	logCfg := logging.DefaultConfig()
	logCfg.EnabledSinks = cfg.LogSinks

	var named []logging.NamedSink
	if logCfg.HasSink("console") {
		named = append(named, logging.NamedSink{Name: "console", Sink: loggingsinks.NewConsole(os.Stdout)})
	}
	if logCfg.HasSink("json") {
		file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open json log: %w", err)
		}
		named = append(named, logging.NamedSink{Name: "json", Sink: loggingsinks.NewJSON(file, logCfg.JSON.FlushInterval)})
	}
	if logCfg.HasSink("sqlite") {
		store, err := loggingsinks.NewSQLite(cfg.EventStorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open event store: %w", err)
		}
		named = append(named, logging.NamedSink{Name: "sqlite", Sink: store})
	}

	router, err := logging.NewRouter(nil, logCfg, named)
	if err != nil {
		return nil, nil, fmt.Errorf("construct logging router: %w", err)
	}
	cleanup := func(_ context.Context, logger telemetry.Logger) {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}
	return router, cleanup, nil
}
