package chat

import (
	"context"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"mock-chat-backend/internal/events"
	"mock-chat-backend/internal/storage"
	mytesting "mock-chat-backend/internal/testing"
	"strconv"
	"testing"
	"time"
)

var start = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func bootstrap(t *testing.T, opts ...storage.Option) (*Service, *clock.Mock) {
	logger := zaptest.NewLogger(t).Sugar()

	mock := clock.NewMock()
	mock.Set(start)

	store, err := storage.New(logger, opts...)
	require.NoError(t, err)

	return NewService(logger, store, WithClock(mock)), mock
}

func bootstrapSeeded(t *testing.T) (*Service, *clock.Mock) {
	seed, err := storage.DefaultSeed(start)
	require.NoError(t, err)

	return bootstrap(t, storage.WithSeed(seed))
}

func roomUserIDs(t *testing.T, s *Service, roomID string) []string {
	r, ok := s.store.Room(roomID)
	require.True(t, ok)

	ids := make([]string, 0, len(r.Users))
	for _, u := range r.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestLoginNewUser(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)
	rec, _ := mytesting.Record(s)

	user, err := s.Login(context.Background(), "Newbie")
	require.NoError(t, err)

	require.NotEmpty(t, user.ID)
	require.Equal(t, "Newbie", user.Username)
	require.True(t, user.IsOnline)
	require.Equal(t, start, user.LastActive)
	require.Contains(t, roomUserIDs(t, s, storage.GeneralRoomID), user.ID)

	last := s.GetMessages(storage.GeneralRoomID, 1)
	require.Len(t, last, 1)
	require.Equal(t, "Newbie has joined the chat!", last[0].Text)
	require.Equal(t, storage.SystemUserID, last[0].UserID)
	require.Equal(t, storage.SystemUsername, last[0].Username)

	require.Equal(t, []events.Name{events.UserJoined}, rec.Names())
	require.Equal(t, user, rec.Users()[0])
}

func TestLoginSameUsernameTwice(t *testing.T) {
	t.Parallel()

	s, mock := bootstrapSeeded(t)
	ctx := context.Background()

	first, err := s.Login(ctx, "Newbie")
	require.NoError(t, err)

	rec, _ := mytesting.Record(s)
	mock.Add(time.Minute)

	second, err := s.Login(ctx, "Newbie")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, start.Add(time.Minute), second.LastActive)
	require.Len(t, s.Users(), 10)

	occurrences := 0
	for _, id := range roomUserIDs(t, s, storage.GeneralRoomID) {
		if id == first.ID {
			occurrences++
		}
	}
	require.Equal(t, 1, occurrences)

	require.Equal(t, []events.Name{events.UserStatusChange}, rec.Names())
	require.Equal(t, "Newbie has joined the chat!", s.GetMessages(storage.GeneralRoomID, 1)[0].Text)
}

func TestLoginOfflineSeededUser(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)

	user, err := s.Login(context.Background(), "Redstone Expert")
	require.NoError(t, err)

	require.Equal(t, "user3", user.ID)
	require.True(t, user.IsOnline)
	require.Equal(t, start, user.LastActive)
	require.Contains(t, roomUserIDs(t, s, storage.GeneralRoomID), "user3")
}

func TestLoginInvalidUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
	}{
		{name: "empty", username: ""},
		{name: "too long", username: mytesting.RandString(MaxUsernameLength + 1)},
		{name: "invalid utf-8", username: "bad\xff"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s, _ := bootstrap(t)
			rec, _ := mytesting.Record(s)

			_, err := s.Login(context.Background(), tt.username)
			require.ErrorIs(t, err, ErrInvalidUsername)
			require.Empty(t, rec.Names())
			require.Len(t, s.Users(), 1)
		})
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	s, mock := bootstrapSeeded(t)
	ctx := context.Background()

	user, err := s.Login(ctx, mytesting.RandUsername())
	require.NoError(t, err)

	rec, _ := mytesting.Record(s)
	mock.Add(time.Minute)

	s.Logout(ctx, user.ID)

	stored, ok := s.store.User(user.ID)
	require.True(t, ok)
	require.False(t, stored.IsOnline)
	require.Equal(t, start.Add(time.Minute), stored.LastActive)
	require.NotContains(t, roomUserIDs(t, s, storage.GeneralRoomID), user.ID)

	last := s.GetMessages(storage.GeneralRoomID, 1)[0]
	require.Equal(t, user.Username+" has left the chat.", last.Text)
	require.Equal(t, storage.SystemUserID, last.UserID)

	require.Equal(t, []events.Name{events.UserStatusChange}, rec.Names())
	require.False(t, rec.Users()[0].IsOnline)
}

func TestLogoutUnknownUser(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)
	rec, _ := mytesting.Record(s)

	before := s.GetMessages(storage.GeneralRoomID, 0)
	s.Logout(context.Background(), "nobody")

	require.Equal(t, before, s.GetMessages(storage.GeneralRoomID, 0))
	require.Empty(t, rec.Names())
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	s, mock := bootstrapSeeded(t)
	rec, _ := mytesting.Record(s)
	mock.Add(time.Second)

	msg, err := s.SendMessage(context.Background(), "user1", "hello")
	require.NoError(t, err)

	require.Equal(t, "hello", msg.Text)
	require.Equal(t, "user1", msg.UserID)
	require.Equal(t, "Pixel Warrior", msg.Username)
	require.NotEmpty(t, msg.ID)

	last := s.GetMessages(storage.GeneralRoomID, 1)
	require.Equal(t, []storage.Message{msg}, last)

	user, _ := s.store.User("user1")
	require.Equal(t, start.Add(time.Second), user.LastActive)

	require.Equal(t, []events.Name{events.Message}, rec.Names())
	require.Equal(t, msg, rec.Messages()[0])
}

func TestSendMessageUnknownUser(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)
	rec, _ := mytesting.Record(s)

	_, err := s.SendMessage(context.Background(), "nobody", "hello")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Empty(t, rec.Names())
	require.Len(t, s.GetMessages(storage.GeneralRoomID, 0), 6)
}

func TestSendMessageEvictsOldest(t *testing.T) {
	t.Parallel()

	s, _ := bootstrap(t)
	ctx := context.Background()

	var sent []storage.Message
	for i := 0; i < storage.DefaultHistoryLimit+1; i++ {
		msg, err := s.SendMessage(ctx, storage.SystemUserID, strconv.Itoa(i))
		require.NoError(t, err)
		sent = append(sent, msg)
	}

	history := s.GetMessages(storage.GeneralRoomID, 0)
	require.Len(t, history, storage.DefaultHistoryLimit)
	require.Equal(t, sent[1:], history)
}

func TestGetMessagesMostRecent(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)

	messages := s.GetMessages(storage.GeneralRoomID, 2)
	require.Len(t, messages, 2)
	require.Equal(t, "m5", messages[0].ID)
	require.Equal(t, "m6", messages[1].ID)
	require.True(t, messages[0].Timestamp.Before(messages[1].Timestamp))
}

func TestGetMessagesOrderedByTimestamp(t *testing.T) {
	t.Parallel()

	s, _ := bootstrap(t)

	err := s.store.Update(func(tx *storage.Tx) error {
		for _, m := range []storage.Message{
			{ID: "late", Timestamp: start.Add(2 * time.Minute)},
			{ID: "early", Timestamp: start},
			{ID: "middle", Timestamp: start.Add(time.Minute)},
		} {
			if err := tx.AppendMessage(storage.GeneralRoomID, m); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	messages := s.GetMessages(storage.GeneralRoomID, DefaultMessageLimit)
	require.Equal(t, "early", messages[0].ID)
	require.Equal(t, "middle", messages[1].ID)
	require.Equal(t, "late", messages[2].ID)
}

func TestGetMessagesUnknownRoom(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)

	messages := s.GetMessages("nowhere", 10)
	require.NotNil(t, messages)
	require.Empty(t, messages)
}

func TestGetOnlineUsersReturnsWholeRoster(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)

	users := s.GetOnlineUsers(storage.GeneralRoomID)
	require.Len(t, users, 9)
	require.Equal(t, storage.SystemUserID, users[0].ID)

	offline := 0
	for _, u := range users {
		if !u.IsOnline {
			offline++
		}
	}
	require.Equal(t, 2, offline)

	require.Empty(t, s.GetOnlineUsers("nowhere"))
}

func TestMessageKeepsAuthorNameSnapshot(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)

	msg, err := s.SendMessage(context.Background(), "user2", "diamonds!")
	require.NoError(t, err)

	err = s.store.Update(func(tx *storage.Tx) error {
		u, _ := tx.User("user2")
		u.Username = "Renamed"
		return nil
	})
	require.NoError(t, err)

	last := s.GetMessages(storage.GeneralRoomID, 1)[0]
	require.Equal(t, msg.ID, last.ID)
	require.Equal(t, "Block Craftsman", last.Username)
}

func TestHandlerMayCallBack(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)
	ctx := context.Background()

	var seen []storage.Message
	s.On(events.Message, func(payload interface{}) {
		seen = s.GetMessages(storage.GeneralRoomID, 1)
	})
	s.On(events.UserJoined, func(payload interface{}) {
		_, err := s.SendMessage(ctx, payload.(storage.User).ID, "hi all")
		require.NoError(t, err)
	})

	_, err := s.Login(ctx, "Chatty")
	require.NoError(t, err)

	require.Len(t, seen, 1)
	require.Equal(t, "hi all", seen[0].Text)
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)

	calls := 0
	off := s.On(events.Message, func(interface{}) { calls++ })

	_, err := s.SendMessage(context.Background(), "user1", "one")
	require.NoError(t, err)
	off()
	_, err = s.SendMessage(context.Background(), "user1", "two")
	require.NoError(t, err)

	require.Equal(t, 1, calls)
}

func TestRooms(t *testing.T) {
	t.Parallel()

	s, _ := bootstrapSeeded(t)

	rooms := s.Rooms()
	require.Len(t, rooms, 1)
	require.Equal(t, storage.GeneralRoomID, rooms[0].ID)
	require.Equal(t, storage.GeneralRoomDescription, rooms[0].Description)
}

func TestTogglePresenceOfflineLeavesEveryRoom(t *testing.T) {
	t.Parallel()

	seed := storage.Seed{
		Users: []storage.User{{ID: "u1", Username: "Wanderer", IsOnline: true, LastActive: start}},
		Rooms: []storage.Room{
			{ID: storage.GeneralRoomID, Name: storage.GeneralRoomName},
			{ID: "side", Name: "Side Room"},
		},
	}
	seed.Rooms[0].Users = seed.Users
	seed.Rooms[1].Users = seed.Users

	s, _ := bootstrap(t, storage.WithSeed(seed))
	ctx := context.Background()

	user, err := s.TogglePresence(ctx, "u1")
	require.NoError(t, err)
	require.False(t, user.IsOnline)

	require.NotContains(t, roomUserIDs(t, s, storage.GeneralRoomID), "u1")
	require.NotContains(t, roomUserIDs(t, s, "side"), "u1")
	require.Equal(t, "Wanderer has left the chat", s.GetMessages(storage.GeneralRoomID, 1)[0].Text)
	require.Empty(t, s.GetMessages("side", 0))

	user, err = s.TogglePresence(ctx, "u1")
	require.NoError(t, err)
	require.True(t, user.IsOnline)

	require.Contains(t, roomUserIDs(t, s, storage.GeneralRoomID), "u1")
	require.NotContains(t, roomUserIDs(t, s, "side"), "u1")
}
