package storage

import (
	"errors"
	"fmt"
	"go.uber.org/zap"
	"sync"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

// Store keeps users, rooms and per-room message logs in memory.
// All mutations go through Update, reads return copies.
type Store struct {
	logger       *zap.SugaredLogger
	historyLimit int

	mu       sync.RWMutex
	users    []*User
	userByID map[string]*User
	rooms    []*room
	roomByID map[string]*room
}

// New returns a Store configured with provided options.
// The system user and the general room are always present.
func New(logger *zap.SugaredLogger, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	s := &Store{
		logger:       logger,
		historyLimit: cfg.historyLimit,
		userByID:     make(map[string]*User),
		roomByID:     make(map[string]*room),
	}

	err := s.Update(func(tx *Tx) error {
		if cfg.seed != nil {
			if err := tx.applySeed(*cfg.seed); err != nil {
				return err
			}
		}

		if _, ok := tx.User(SystemUserID); !ok {
			if err := tx.AddUser(User{ID: SystemUserID, Username: SystemUsername, IsOnline: true}); err != nil {
				return err
			}
		}

		if _, ok := s.roomByID[GeneralRoomID]; !ok {
			tx.addRoom(Room{ID: GeneralRoomID, Name: GeneralRoomName, Description: GeneralRoomDescription})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugf("Created store with %d users and %d rooms", len(s.users), len(s.rooms))

	return s, nil
}

// Update runs fn holding the write lock, so fn is applied as a single operation.
// Tx has no rollback: changes made before fn returns an error are kept,
// so fn should look everything up and validate before mutating.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&Tx{s: s})
}

// Users returns a snapshot of all known users in creation order
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usersLocked()
}

// User returns a copy of the user with provided id
func (s *Store) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.userByID[id]
	if !ok {
		return User{}, false
	}

	return *u, true
}

// Rooms returns snapshots of all rooms in creation order
func (s *Store) Rooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, s.snapshotLocked(r))
	}

	return rooms
}

// Room returns a snapshot of the room with provided id
func (s *Store) Room(id string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roomByID[id]
	if !ok {
		return Room{}, false
	}

	return s.snapshotLocked(r), true
}

// Messages returns up to limit most recent messages of a room in insertion order.
// Non-positive limit returns the whole history.
func (s *Store) Messages(roomID string, limit int) ([]Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roomByID[roomID]
	if !ok {
		return nil, false
	}

	if limit <= 0 || limit > len(r.messages) {
		limit = len(r.messages)
	}

	messages := make([]Message, limit)
	copy(messages, r.messages[len(r.messages)-limit:])

	return messages, true
}

func (s *Store) usersLocked() []User {
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}

	return users
}

func (s *Store) snapshotLocked(r *room) Room {
	snapshot := Room{
		ID:          r.id,
		Name:        r.name,
		Description: r.description,
		Users:       make([]User, 0, len(r.users)),
		Messages:    make([]Message, len(r.messages)),
	}

	for _, id := range r.users {
		if u, ok := s.userByID[id]; ok {
			snapshot.Users = append(snapshot.Users, *u)
		}
	}
	copy(snapshot.Messages, r.messages)

	return snapshot
}

// Tx gives mutable access to the store inside Update. It must not be retained after Update returns.
type Tx struct {
	s *Store
}

// User returns the stored user, changes made through the pointer are applied to the store
func (tx *Tx) User(id string) (*User, bool) {
	u, ok := tx.s.userByID[id]
	return u, ok
}

// UserByName returns the first user with provided display name
func (tx *Tx) UserByName(username string) (*User, bool) {
	for _, u := range tx.s.users {
		if u.Username == username {
			return u, true
		}
	}

	return nil, false
}

// Users returns a snapshot of all known users
func (tx *Tx) Users() []User {
	return tx.s.usersLocked()
}

// AddUser appends a user to the roster
func (tx *Tx) AddUser(u User) error {
	if _, ok := tx.s.userByID[u.ID]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, u.ID)
	}

	stored := u
	tx.s.users = append(tx.s.users, &stored)
	tx.s.userByID[u.ID] = &stored

	tx.s.logger.Debugf("Added user (%s) with id %s", u.Username, u.ID)

	return nil
}

// RoomIDs returns ids of all rooms in creation order
func (tx *Tx) RoomIDs() []string {
	ids := make([]string, 0, len(tx.s.rooms))
	for _, r := range tx.s.rooms {
		ids = append(ids, r.id)
	}

	return ids
}

// AddRoomUser appends a user to the room's present users.
// It reports false if the user was already present.
func (tx *Tx) AddRoomUser(roomID, userID string) (bool, error) {
	r, ok := tx.s.roomByID[roomID]
	if !ok {
		return false, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}

	if _, ok := tx.s.userByID[userID]; !ok {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	for _, id := range r.users {
		if id == userID {
			return false, nil
		}
	}

	r.users = append(r.users, userID)

	return true, nil
}

// RemoveRoomUser removes a user from the room's present users.
// It reports false if the user was not present.
func (tx *Tx) RemoveRoomUser(roomID, userID string) (bool, error) {
	r, ok := tx.s.roomByID[roomID]
	if !ok {
		return false, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}

	for i, id := range r.users {
		if id == userID {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

// AppendMessage adds a message to the room history evicting the oldest messages past the history limit
func (tx *Tx) AppendMessage(roomID string, m Message) error {
	r, ok := tx.s.roomByID[roomID]
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}

	r.messages = append(r.messages, m)
	if len(r.messages) > tx.s.historyLimit {
		r.messages = r.messages[len(r.messages)-tx.s.historyLimit:]
	}

	return nil
}

func (tx *Tx) addRoom(snapshot Room) *room {
	r := &room{
		id:          snapshot.ID,
		name:        snapshot.Name,
		description: snapshot.Description,
	}
	tx.s.rooms = append(tx.s.rooms, r)
	tx.s.roomByID[r.id] = r

	tx.s.logger.Debugf("Added room (%s) with id %s", r.name, r.id)

	return r
}

func (tx *Tx) applySeed(seed Seed) error {
	for _, u := range seed.Users {
		if err := tx.AddUser(u); err != nil {
			return err
		}
	}

	for _, snapshot := range seed.Rooms {
		if _, ok := tx.s.roomByID[snapshot.ID]; ok {
			return fmt.Errorf("%w: duplicate room %s", ErrBadSeed, snapshot.ID)
		}
		tx.addRoom(snapshot)

		for _, u := range snapshot.Users {
			if _, err := tx.AddRoomUser(snapshot.ID, u.ID); err != nil {
				return err
			}
		}

		for _, m := range snapshot.Messages {
			if err := tx.AppendMessage(snapshot.ID, m); err != nil {
				return err
			}
		}
	}

	return nil
}
