package main

import (
	"context"
	"io"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis/v3"

	"invtrack/internal/broadcast"
	"invtrack/internal/config"
	"invtrack/internal/http/handlers"
	applog "invtrack/internal/log"
	"invtrack/internal/repos"
)

func main() {
	cfg := config.Load()
	log := applog.Logger()

	// Optional file logging
	var logFile *os.File
	if cfg.LogFile != "" && cfg.LogFile != "-" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Warn().Err(err).Str("log_file", cfg.LogFile).Msg("could not open log file")
		} else {
			logFile = f
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
			log = applog.Logger()
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("db_dsn", cfg.DBDSN).Msg("open database")
	}

	hub := broadcast.NewHub()
	deps := handlers.NewDeps(db, cfg, hub)

	if created, err := deps.Auth.EnsureAdmin(context.Background(), cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	} else if created {
		log.Info().Str("username", "admin").Msg("admin account created")
	}

	opt := handlers.Options{}
	var store fiber.Storage
	if cfg.RedisURL != "" {
		store = redis.New(redis.Config{URL: cfg.RedisURL})
		opt.Storage = store
		log.Info().Msg("rate limiter counters stored in redis")
	}
	if logFile != nil {
		opt.AccessLog = io.MultiWriter(os.Stdout, logFile)
	}
	app := handlers.NewApp(deps, opt)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("listen")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// one operation so the steps run in order: streams, server, then stores
			"app": func(ctx context.Context) error {
				hub.Close()
				if err := app.ShutdownWithContext(ctx); err != nil {
					return err
				}
				if store != nil {
					if err := store.Close(); err != nil {
						log.Warn().Err(err).Msg("close limiter storage")
					}
				}
				return db.Close()
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("shutdown complete")
	if logFile != nil {
		_ = logFile.Close()
	}
	os.Exit(exitCode)
}
