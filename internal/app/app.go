// Package app wires the chat service, the simulation loop and the log presenter together.
package app

import (
	"context"
	"fmt"
	"go.uber.org/zap"
	"mock-chat-backend/internal/chat"
	"mock-chat-backend/internal/simulation"
	"mock-chat-backend/internal/storage"
	"mock-chat-backend/internal/zapadapter"
	"os"
	"os/signal"
)

// App defines fields used in running the mock chat
type App struct {
	logger *zap.SugaredLogger
	svc    *chat.Service
	loop   *simulation.Loop
	h      handler
	cfg    config
}

// NewApp returns new App struct with provided zap.SugaredLogger and chat.Service
func NewApp(logger *zap.SugaredLogger, svc *chat.Service, opts ...Option) *App {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	return &App{
		logger: logger,
		svc:    svc,
		loop:   simulation.New(logger, svc, cfg.simulationOpts...),
		h: handler{
			logger: logger,
			svc:    svc,
		},
		cfg: cfg,
	}
}

// Start subscribes the presenter, starts the simulation and runs the configured session.
// It blocks until ctx is done or an interrupt signal arrives, then shuts everything down.
func (a *App) Start(ctx context.Context) error {
	unsubscribe := a.h.subscribe()
	defer unsubscribe()

	a.h.history()

	if a.cfg.simulate {
		if err := a.loop.Start(ctx); err != nil {
			return fmt.Errorf("a.loop.Start: %w", err)
		}
	}

	user, err := a.login(ctx)
	if err != nil {
		a.loop.Stop()
		return err
	}

	a.wait(ctx)

	a.logger.Info("Shutting down")

	a.loop.Stop()

	if user.ID != "" {
		a.svc.Logout(zapadapter.NewOperation(context.Background()), user.ID)
	}

	for _, f := range a.cfg.afterShutdown {
		f()
	}

	a.logger.Info("Mock chat is stopped")

	return nil
}

func (a *App) login(ctx context.Context) (storage.User, error) {
	if a.cfg.username == "" {
		return storage.User{}, nil
	}

	opCtx := zapadapter.NewOperation(ctx)

	user, err := a.svc.Login(opCtx, a.cfg.username)
	if err != nil {
		return storage.User{}, fmt.Errorf("a.svc.Login: %w", err)
	}

	a.logger.Infof("Logged in as %s (id: %s)", user.Username, user.ID)

	if a.cfg.greeting != "" {
		if _, err := a.svc.SendMessage(opCtx, user.ID, a.cfg.greeting); err != nil {
			a.logger.Errorf("a.svc.SendMessage: %v", err)
		}
	}

	return user, nil
}

func (a *App) wait(ctx context.Context) {
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt)
	defer signal.Stop(sigint)

	select {
	case <-ctx.Done():
	case <-sigint:
	}
}
