// Package simulation drives randomized bot activity: users going online and offline
// and synthetic chatter in the lobby.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"mock-chat-backend/internal/storage"
	"mock-chat-backend/internal/zapadapter"
	"sync"
)

var (
	ErrRunning  = errors.New("simulation is already running")
	ErrInterval = errors.New("interval must be positive")
)

// Chat is the part of chat.Service the simulation mutates
type Chat interface {
	Users() []storage.User
	TogglePresence(ctx context.Context, userID string) (storage.User, error)
	PostToRoom(ctx context.Context, roomID, userID, text string) (storage.Message, error)
}

// Loop owns two periodic tasks, the presence flipper and the chatter injector
type Loop struct {
	logger *zapadapter.Logger
	chat   Chat
	cfg    config

	// randMu guards cfg.rand, tick functions may run on both ticker goroutines and callers
	randMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(logger *zap.SugaredLogger, chat Chat, opts ...Option) *Loop {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	return &Loop{
		logger: zapadapter.NewLogger(logger),
		chat:   chat,
		cfg:    cfg,
	}
}

// Start launches both periodic tasks. They run until Stop is called or ctx is done.
func (l *Loop) Start(ctx context.Context) error {
	if l.cfg.presenceInterval <= 0 {
		return fmt.Errorf("presence: %w", ErrInterval)
	}
	if l.cfg.chatterInterval <= 0 {
		return fmt.Errorf("chatter: %w", ErrInterval)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	// tickers are created before the goroutines so that a mock clock advanced right after Start fires them
	presence := l.cfg.clock.Ticker(l.cfg.presenceInterval)
	chatter := l.cfg.clock.Ticker(l.cfg.chatterInterval)

	var wg sync.WaitGroup
	wg.Add(2)
	go l.run(ctx, &wg, presence, func(ctx context.Context) error {
		_, _, err := l.FlipPresence(ctx)
		return err
	})
	go l.run(ctx, &wg, chatter, func(ctx context.Context) error {
		_, _, err := l.InjectChatter(ctx)
		return err
	})

	go func() {
		wg.Wait()

		// ctx may end without Stop, release the slot so Start works again
		l.mu.Lock()
		if l.done == done {
			l.cancel, l.done = nil, nil
		}
		l.mu.Unlock()

		cancel()
		close(done)
	}()

	l.logger.Sugared().Infof("Simulation started (presence every %s, chatter every %s with p=%.2f)",
		l.cfg.presenceInterval, l.cfg.chatterInterval, l.cfg.chatterProbability)

	return nil
}

// Stop halts both tasks and waits for an in-flight tick to finish. Stopping a stopped Loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	l.logger.Sugared().Info("Simulation stopped")
}

// Running reports whether the tasks are running. It turns false after Stop or once the Start context is done.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.cancel != nil
}

func (l *Loop) run(ctx context.Context, wg *sync.WaitGroup, ticker *clock.Ticker, tick func(context.Context) error) {
	defer wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx := zapadapter.NewOperation(ctx)
			if err := tick(opCtx); err != nil {
				l.logger.For(opCtx).Warnf("Simulation tick failed: %v", err)
			}
		}
	}
}

// FlipPresence toggles the presence of one random non-system user.
// It reports false if there is no candidate.
func (l *Loop) FlipPresence(ctx context.Context) (storage.User, bool, error) {
	var candidates []storage.User
	for _, u := range l.chat.Users() {
		if u.ID != storage.SystemUserID {
			candidates = append(candidates, u)
		}
	}

	if len(candidates) == 0 {
		return storage.User{}, false, nil
	}

	picked := candidates[l.intn(len(candidates))]

	user, err := l.chat.TogglePresence(ctx, picked.ID)
	if err != nil {
		return storage.User{}, false, err
	}

	l.logger.For(ctx).Debugf("Flipped presence of user (%s), online: %t", user.Username, user.IsOnline)

	return user, true, nil
}

// InjectChatter posts a random flavor line from a random online user with the configured probability.
// It reports false if nothing was posted.
func (l *Loop) InjectChatter(ctx context.Context) (storage.Message, bool, error) {
	if len(l.cfg.chatterLines) == 0 || l.float64() >= l.cfg.chatterProbability {
		return storage.Message{}, false, nil
	}

	var online []storage.User
	for _, u := range l.chat.Users() {
		if u.IsOnline && u.ID != storage.SystemUserID {
			online = append(online, u)
		}
	}

	if len(online) == 0 {
		return storage.Message{}, false, nil
	}

	author := online[l.intn(len(online))]
	line := l.cfg.chatterLines[l.intn(len(l.cfg.chatterLines))]

	msg, err := l.chat.PostToRoom(ctx, l.cfg.roomID, author.ID, line)
	if err != nil {
		return storage.Message{}, false, err
	}

	l.logger.For(ctx).Debugf("Injected chatter (id: %s) from user (%s)", msg.ID, msg.Username)

	return msg, true, nil
}

func (l *Loop) intn(n int) int {
	l.randMu.Lock()
	defer l.randMu.Unlock()

	return l.cfg.rand.Intn(n)
}

func (l *Loop) float64() float64 {
	l.randMu.Lock()
	defer l.randMu.Unlock()

	return l.cfg.rand.Float64()
}
