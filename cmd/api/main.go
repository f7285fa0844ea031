package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	"github.com/zhouzirui/studio-chat/backend/internal/handler"
	"github.com/zhouzirui/studio-chat/backend/internal/logging"
	"github.com/zhouzirui/studio-chat/backend/internal/model/preset"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
	"github.com/zhouzirui/studio-chat/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	newClient, err := ai.NewFactory(cfg.AI, cfg.Chat.HistoryLimit, logger)
	if err != nil {
		logger.Fatal("failed to build model client factory", zap.Error(err))
	}
	logger.Info("model provider configured",
		zap.String("provider", string(cfg.AI.Provider)),
		zap.Int("historyLimit", cfg.Chat.HistoryLimit),
		zap.Duration("requestTimeout", cfg.Chat.RequestTimeout))

	presetStore := preset.NewMemoryStore(preset.Seed())
	chatService := chat.NewService(newClient, cfg.Chat, logger)
	defer chatService.Close()

	router := handler.NewRouter(presetStore, chatService, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("studio chat backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
