package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"productivity-api/internal/adapters/auth/odin"
	pg "productivity-api/internal/adapters/storage/postgres"
	"productivity-api/internal/config"
	"productivity-api/internal/platform/logger"
	"productivity-api/internal/platform/metrics"
	"productivity-api/internal/ports/auth"
	"productivity-api/internal/router"
)

// @title Productivity API
// @version 1.0
// @description Ledger de actividades y feed de notificaciones derivado.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{Level: logger.Error}).Error("config error", map[string]any{"error": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.App.Name,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(cfg config.Config, log logger.Logger) error {
	var db *sql.DB
	if cfg.DB.DSN != "" {
		opened, err := pg.Open(cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer opened.Close()
		db = opened

		if cfg.DB.Migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := pg.Migrate(ctx, db)
			cancel()
			if err != nil {
				return err
			}
		}
		log.Info("using postgres storage", nil)
	} else {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
	}

	// sin Odin configurado: modo dev con X-Debug-User-ID
	var verifier auth.AuthVerifier
	if cfg.Odin.Enabled() {
		client, err := odin.NewClient(odin.Config{
			BaseURL: cfg.Odin.BaseURL,
			APIKey:  cfg.Odin.APIKey,
			Timeout: cfg.Odin.Timeout,
		})
		if err != nil {
			return err
		}
		verifier = odin.NewVerifier(client)
	} else {
		log.Warn("odin not configured, accepting debug user header", nil)
	}

	app := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Logger:       log,
		Metrics:      metrics.New("productivity"),
		ReadWindow:   cfg.Activity.ReadWindow,
		QueueSize:    cfg.Activity.QueueSize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-stop:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown failed", map[string]any{"error": err})
	}
	// después del server: ya no entran requests que encolen actividades
	if err := app.Close(ctx); err != nil {
		log.Error("activity writer did not drain", map[string]any{"error": err})
	}
	return nil
}
