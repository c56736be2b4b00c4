package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caravangame/caravan-server/internal/advice"
	"github.com/caravangame/caravan-server/internal/config"
	"github.com/caravangame/caravan-server/internal/game"
	"github.com/caravangame/caravan-server/internal/httpapi"
	"github.com/caravangame/caravan-server/internal/notify"
	"github.com/caravangame/caravan-server/internal/play"
	"github.com/caravangame/caravan-server/internal/room"
	"github.com/caravangame/caravan-server/internal/session"
	"github.com/caravangame/caravan-server/internal/store"
	"github.com/caravangame/caravan-server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}

	eng := game.NewEngine()
	gateway := play.NewGateway(st, eng, logger.Named("play"))
	sessions := session.NewRegistry()
	rooms := room.NewManager(st, sessions, gateway, logger.Named("room"))

	hub := notify.NewHub(ctx, logger.Named("notify"))
	rooms.SetPublisher(hub)

	advisor := advice.New(cfg.OpenAIAPIKey, cfg.AdviceModel, cfg.AdviceFallbackModel, logger.Named("advice"))
	if !advisor.Enabled() {
		logger.Info("negotiation advice disabled, no OPENAI_API_KEY")
	}

	api := httpapi.NewServer(rooms, gateway, st, sessions, advisor, logger.Named("http"))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.SetupRoutes(ws.Handler(hub, rooms, logger.Named("ws"))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shut down cleanly")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore prefers Postgres when DATABASE_URL is set and falls back to the
// in-memory store, which loses everything on restart.
func openStore(cfg config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return store.OpenPostgres(cfg.DatabaseURL)
	}
	logger.Warn("DATABASE_URL not set, using in-memory store")
	return store.NewMemory(), nil
}
