package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	l := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(l)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		l.Error("db_init_error", "error", err)
		os.Exit(1)
	}

	prod := mykafka.NewProducer(cfg.KafkaBrokers)
	var mailer notify.Mailer = notify.LogMailer{}
	if prod.Enabled() {
		mailer = notify.NewQueueMailer(prod, cfg.MailTopic)
	} else {
		l.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	rp := repo.New(db)
	signer := tokens.NewSigner(cfg.JWTSecret, cfg.ResetSecret, cfg.LoginTokenTTL, cfg.ResetTokenTTL)
	svc := service.NewAuthService(rp.Users(), rp.Tokens(), signer, mailer, prod, service.Config{
		ResetURLBase: cfg.ResetURLBase,
		EventsTopic:  cfg.UserEventsTopic,
	})

	e := httpserver.New(httpserver.ServerOptions{Logger: l, BodyLimit: cfg.BodyLimit}, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		JWTSecret:   cfg.JWTSecret,
		Ready:       func(ctx context.Context) error { return config.Ping(ctx, db) },
	})

	go func() {
		l.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	l.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			l.Error("db_close_error", "error", err)
		}
	} else {
		l.Error("db_error", "error", err)
	}

	if err := prod.Close(); err != nil {
		l.Error("kafka_close_error", "error", err)
	}

	l.Info("shutdown_complete")
}
