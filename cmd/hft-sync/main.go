package main

import (
	"cmp"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/widesurf/hft-sync/internal/config"
	"github.com/widesurf/hft-sync/internal/journal"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/postgres"
	"github.com/widesurf/hft-sync/internal/server"
	"github.com/widesurf/hft-sync/internal/session"
	"golang.org/x/sync/errgroup"
)

const (
	_syncCfgFilePath = "./configs/sync.yaml"
	_envCfgFilePath  = "HFT_CONFIG"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadSyncConfig(cmp.Or(os.Getenv(_envCfgFilePath), _syncCfgFilePath))
	if err != nil {
		log.Fatalf("%s: can't load sync cfg", err)
	}

	zapLogger, loggerSync, err := logger.NewZapLogger(logger.ParseLogLevel(cfg.LogLevel))
	if err != nil {
		log.Fatalf("%s: can't init logger", err)
	}
	defer loggerSync()

	if envErr != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess, client, err := session.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatalf("%s: can't create session", err)
	}
	defer client.Close()

	handler := server.NewHandler(sess.Store(), sess.Dispatcher(), sess, zapLogger.With("component", "http"))
	httpServer := server.NewHTTPServer(ctx, cfg.ListenPort, handler.Router())

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(gCtx)
	})
	g.Go(func() error {
		zapLogger.Infof("listening on :%s", cfg.ListenPort)
		return httpServer.Run(gCtx)
	})

	if cfg.Journal.Enabled {
		pgCfg := postgres.NewConfigFromEnv().Setup()
		db, err := postgres.NewDB(ctx, pgCfg)
		if err != nil {
			zapLogger.Fatalf("%s: can't connect to journal db", err)
		}
		defer db.Close()

		j := journal.New(db, sess.Store(), cfg.Journal.FlushInterval, zapLogger.With("component", "journal"))
		if err := j.EnsureSchema(ctx); err != nil {
			zapLogger.Fatalf("%s: can't prepare journal", err)
		}
		g.Go(func() error {
			return j.Run(gCtx)
		})
	}

	if err := g.Wait(); err != nil {
		zapLogger.Errorf("%s: hft-sync stopped", err)
		return
	}
	zapLogger.Infof("hft-sync stopped")
}
