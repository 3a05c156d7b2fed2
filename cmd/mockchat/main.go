package main

import (
	"context"
	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"
	"log"
	"mock-chat-backend/internal/app"
	"mock-chat-backend/internal/chat"
	"mock-chat-backend/internal/storage"
	"time"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	cfg := app.EnvConfig{}
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}

	seed, err := storage.DefaultSeed(time.Now())
	if err != nil {
		sugar.Fatalf("Cannot load seed: %v", err)
	}

	store, err := storage.New(sugar, storage.WithSeed(seed), storage.HistoryLimit(cfg.HistoryLimit))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	svc := chat.NewService(sugar, store)

	a := app.NewApp(sugar, svc,
		app.WithEnvConfig(cfg),
		app.RegisterAfterShutdown(func() {
			sugar.Infof("Final roster: %d users", len(svc.Users()))
		}),
	)

	if err := a.Start(context.Background()); err != nil {
		sugar.Fatalf("Cannot start mock chat: %v", err)
	}
}
