// Package chat implements session operations over the in-memory store:
// login, logout, sending messages and the queries a presentation layer needs.
package chat

import (
	"context"
	"errors"
	"fmt"
	"github.com/benbjohnson/clock"
	"github.com/rs/xid"
	"go.uber.org/zap"
	"mock-chat-backend/internal/events"
	"mock-chat-backend/internal/storage"
	"mock-chat-backend/internal/zapadapter"
	"sort"
	"unicode/utf8"
)

// DefaultMessageLimit is the number of messages a history view usually asks for
const DefaultMessageLimit = 20

// MaxUsernameLength is measured in bytes
const MaxUsernameLength = 50

var ErrInvalidUsername = errors.New("invalid username")

// Option alters the default configuration of a Service
type Option interface {
	apply(*Service)
}

type optionFunc func(s *Service)

func (f optionFunc) apply(s *Service) { f(s) }

// WithClock sets the clock used for timestamps
func WithClock(c clock.Clock) Option {
	return optionFunc(func(s *Service) {
		s.clock = c
	})
}

// WithBus sets the event bus, useful when several components share one
func WithBus(b *events.Bus) Option {
	return optionFunc(func(s *Service) {
		s.bus = b
	})
}

// WithIDGenerator replaces the xid based generator of user and message ids
func WithIDGenerator(f func() string) Option {
	return optionFunc(func(s *Service) {
		s.newID = f
	})
}

// Service applies session operations to a storage.Store and publishes the resulting events
type Service struct {
	logger *zapadapter.Logger
	store  *storage.Store
	bus    *events.Bus
	clock  clock.Clock
	newID  func() string
}

func NewService(logger *zap.SugaredLogger, store *storage.Store, opts ...Option) *Service {
	s := &Service{
		logger: zapadapter.NewLogger(logger),
		store:  store,
		clock:  clock.New(),
		newID:  func() string { return xid.New().String() },
	}

	for _, opt := range opts {
		opt.apply(s)
	}

	if s.bus == nil {
		s.bus = events.NewBus(logger)
	}

	return s
}

// pending collects events produced inside a store transaction, they are emitted after it commits
type pending struct {
	name    events.Name
	payload interface{}
}

func (s *Service) emit(evs []pending) {
	for _, ev := range evs {
		s.bus.Emit(ev.name, ev.payload)
	}
}

func (s *Service) systemMessage(text string) storage.Message {
	return storage.Message{
		ID:        s.newID(),
		UserID:    storage.SystemUserID,
		Username:  storage.SystemUsername,
		Text:      text,
		Timestamp: s.clock.Now(),
	}
}

// ValidateUsername checks that username is non-empty, valid UTF-8 and not longer than MaxUsernameLength
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidUsername, MaxUsernameLength)
	}
	if !utf8.ValidString(username) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidUsername)
	}
	return nil
}

// Login marks an existing user with the same name online or creates a new one.
// New users get a join announcement in every room and a userJoined event,
// returning users only get a userStatusChange event.
func (s *Service) Login(ctx context.Context, username string) (storage.User, error) {
	logger := s.logger.For(ctx)

	if err := ValidateUsername(username); err != nil {
		return storage.User{}, err
	}

	logger.Debugf("Logging in user (%s)", username)

	var (
		user storage.User
		evs  []pending
	)

	err := s.store.Update(func(tx *storage.Tx) error {
		now := s.clock.Now()

		if existing, ok := tx.UserByName(username); ok {
			existing.IsOnline = true
			existing.LastActive = now

			for _, roomID := range tx.RoomIDs() {
				if _, err := tx.AddRoomUser(roomID, existing.ID); err != nil {
					return err
				}
			}

			user = *existing
			evs = append(evs, pending{events.UserStatusChange, user})
			return nil
		}

		user = storage.User{
			ID:         s.newID(),
			Username:   username,
			IsOnline:   true,
			LastActive: now,
		}
		if err := tx.AddUser(user); err != nil {
			return err
		}

		msg := s.systemMessage(username + " has joined the chat!")
		for _, roomID := range tx.RoomIDs() {
			if _, err := tx.AddRoomUser(roomID, user.ID); err != nil {
				return err
			}
			if err := tx.AppendMessage(roomID, msg); err != nil {
				return err
			}
		}

		evs = append(evs, pending{events.UserJoined, user})
		return nil
	})
	if err != nil {
		return storage.User{}, fmt.Errorf("login %q: %w", username, err)
	}

	s.emit(evs)

	logger.Debugf("Logged in user (%s) with id %s", user.Username, user.ID)

	return user, nil
}

// Logout marks the user offline, removes it from every room and announces the leave.
// Unknown ids are ignored.
func (s *Service) Logout(ctx context.Context, userID string) {
	logger := s.logger.For(ctx)

	var (
		user  storage.User
		found bool
	)

	err := s.store.Update(func(tx *storage.Tx) error {
		u, ok := tx.User(userID)
		if !ok {
			return nil
		}
		found = true

		u.IsOnline = false
		u.LastActive = s.clock.Now()
		user = *u

		msg := s.systemMessage(u.Username + " has left the chat.")
		for _, roomID := range tx.RoomIDs() {
			if _, err := tx.RemoveRoomUser(roomID, userID); err != nil {
				return err
			}
			if err := tx.AppendMessage(roomID, msg); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		logger.Errorf("Logging out user (id: %s): %v", userID, err)
		return
	}

	if !found {
		logger.Debugf("Ignoring logout of unknown user (id: %s)", userID)
		return
	}

	s.emit([]pending{{events.UserStatusChange, user}})

	logger.Debugf("Logged out user (%s)", user.Username)
}

// SendMessage posts text from the user into every room.
// It returns an error wrapping storage.ErrNotFound if the user does not exist.
func (s *Service) SendMessage(ctx context.Context, userID, text string) (storage.Message, error) {
	logger := s.logger.For(ctx)
	logger.Debugf("Sending message from user (id: %s)", userID)

	var msg storage.Message

	err := s.store.Update(func(tx *storage.Tx) error {
		u, ok := tx.User(userID)
		if !ok {
			return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
		}

		now := s.clock.Now()
		u.LastActive = now

		msg = storage.Message{
			ID:        s.newID(),
			UserID:    u.ID,
			Username:  u.Username,
			Text:      text,
			Timestamp: now,
		}

		for _, roomID := range tx.RoomIDs() {
			if err := tx.AppendMessage(roomID, msg); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return storage.Message{}, fmt.Errorf("send message: %w", err)
	}

	s.emit([]pending{{events.Message, msg}})

	logger.Debugf("Sent message (id: %s) from user (%s)", msg.ID, msg.Username)

	return msg, nil
}

// GetMessages returns up to limit most recent messages of a room ordered by timestamp, oldest first.
// Non-positive limit returns the whole history, unknown rooms yield an empty result.
func (s *Service) GetMessages(roomID string, limit int) []storage.Message {
	messages, ok := s.store.Messages(roomID, limit)
	if !ok {
		return []storage.Message{}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	return messages
}

// GetOnlineUsers returns every known user, online or not, if the room exists.
// Callers relying on presence must check User.IsOnline themselves.
func (s *Service) GetOnlineUsers(roomID string) []storage.User {
	if _, ok := s.store.Room(roomID); !ok {
		return []storage.User{}
	}

	return s.store.Users()
}

// Users returns a snapshot of the whole roster
func (s *Service) Users() []storage.User {
	return s.store.Users()
}

// Rooms returns snapshots of all rooms
func (s *Service) Rooms() []storage.Room {
	return s.store.Rooms()
}

// On subscribes handler to name, see events.Bus.On
func (s *Service) On(name events.Name, handler events.Handler) func() {
	return s.bus.On(name, handler)
}
