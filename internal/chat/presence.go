package chat

import (
	"context"
	"fmt"
	"mock-chat-backend/internal/events"
	"mock-chat-backend/internal/storage"
)

// TogglePresence flips the online flag of a user and announces it in the general room.
// Online users join the general room only, offline users leave every room.
func (s *Service) TogglePresence(ctx context.Context, userID string) (storage.User, error) {
	logger := s.logger.For(ctx)

	var (
		user storage.User
		msg  storage.Message
	)

	err := s.store.Update(func(tx *storage.Tx) error {
		u, ok := tx.User(userID)
		if !ok {
			return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
		}

		u.IsOnline = !u.IsOnline
		u.LastActive = s.clock.Now()

		if u.IsOnline {
			if _, err := tx.AddRoomUser(storage.GeneralRoomID, u.ID); err != nil {
				return err
			}
			msg = s.systemMessage(u.Username + " is online")
		} else {
			for _, roomID := range tx.RoomIDs() {
				if _, err := tx.RemoveRoomUser(roomID, u.ID); err != nil {
					return err
				}
			}
			msg = s.systemMessage(u.Username + " has left the chat")
		}

		user = *u
		return tx.AppendMessage(storage.GeneralRoomID, msg)
	})
	if err != nil {
		return storage.User{}, fmt.Errorf("toggle presence: %w", err)
	}

	s.emit([]pending{
		{events.Message, msg},
		{events.UserStatusChange, user},
	})

	logger.Debugf("Toggled presence of user (%s), online: %t", user.Username, user.IsOnline)

	return user, nil
}

// PostToRoom appends a message from the user to a single room.
// Unlike SendMessage it leaves the author's last activity untouched.
func (s *Service) PostToRoom(ctx context.Context, roomID, userID, text string) (storage.Message, error) {
	logger := s.logger.For(ctx)

	var msg storage.Message

	err := s.store.Update(func(tx *storage.Tx) error {
		u, ok := tx.User(userID)
		if !ok {
			return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
		}

		msg = storage.Message{
			ID:        s.newID(),
			UserID:    u.ID,
			Username:  u.Username,
			Text:      text,
			Timestamp: s.clock.Now(),
		}

		return tx.AppendMessage(roomID, msg)
	})
	if err != nil {
		return storage.Message{}, fmt.Errorf("post to room %s: %w", roomID, err)
	}

	s.emit([]pending{{events.Message, msg}})

	logger.Debugf("Posted message (id: %s) from user (%s) to room %s", msg.ID, msg.Username, roomID)

	return msg, nil
}
