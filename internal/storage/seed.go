package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"github.com/valyala/fastjson"
	"time"
)

//go:embed fixtures/seed.json
var defaultSeed []byte

var ErrBadSeed = errors.New("bad seed")

// Seed holds the initial roster and rooms. Seeded rooms contain every online user.
type Seed struct {
	Users []User
	Rooms []Room
}

// DefaultSeed returns the embedded lobby fixture with timestamps relative to now
func DefaultSeed(now time.Time) (Seed, error) {
	return LoadSeed(defaultSeed, now)
}

// LoadSeed parses JSON seed data. Ages ("last_active", "age") are Go durations subtracted from now.
func LoadSeed(data []byte, now time.Time) (Seed, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return Seed{}, fmt.Errorf("%w: %v", ErrBadSeed, err)
	}

	var seed Seed
	names := make(map[string]string)

	for _, u := range v.GetArray("users") {
		id := string(u.GetStringBytes("id"))
		username := string(u.GetStringBytes("username"))
		if id == "" || username == "" {
			return Seed{}, fmt.Errorf("%w: user must have id and username", ErrBadSeed)
		}

		lastActive, err := resolveAge(now, u.GetStringBytes("last_active"))
		if err != nil {
			return Seed{}, fmt.Errorf("%w: user %s: %v", ErrBadSeed, id, err)
		}

		seed.Users = append(seed.Users, User{
			ID:         id,
			Username:   username,
			IsOnline:   u.GetBool("online"),
			LastActive: lastActive,
		})
		names[id] = username
	}

	for _, r := range v.GetArray("rooms") {
		id := string(r.GetStringBytes("id"))
		if id == "" {
			return Seed{}, fmt.Errorf("%w: room must have id", ErrBadSeed)
		}

		current := Room{
			ID:          id,
			Name:        string(r.GetStringBytes("name")),
			Description: string(r.GetStringBytes("description")),
		}

		for _, u := range seed.Users {
			if u.IsOnline {
				current.Users = append(current.Users, u)
			}
		}

		for _, m := range r.GetArray("messages") {
			userID := string(m.GetStringBytes("user"))
			username, ok := names[userID]
			if !ok {
				return Seed{}, fmt.Errorf("%w: message author %q is not a seeded user", ErrBadSeed, userID)
			}

			timestamp, err := resolveAge(now, m.GetStringBytes("age"))
			if err != nil {
				return Seed{}, fmt.Errorf("%w: room %s: %v", ErrBadSeed, id, err)
			}

			current.Messages = append(current.Messages, Message{
				ID:        string(m.GetStringBytes("id")),
				UserID:    userID,
				Username:  username,
				Text:      string(m.GetStringBytes("text")),
				Timestamp: timestamp,
			})
		}

		seed.Rooms = append(seed.Rooms, current)
	}

	return seed, nil
}

func resolveAge(now time.Time, age []byte) (time.Time, error) {
	if len(age) == 0 {
		return now, nil
	}

	d, err := time.ParseDuration(string(age))
	if err != nil {
		return time.Time{}, err
	}

	return now.Add(-d), nil
}
