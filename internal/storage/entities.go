package storage

import "time"

const (
	// SystemUserID identifies the pseudo-user authoring automated announcements
	SystemUserID = "system"
	// SystemUsername is the display name of the system user
	SystemUsername = "System"

	GeneralRoomID          = "general"
	GeneralRoomName        = "Game Lobby"
	GeneralRoomDescription = "Discuss all game-related topics"
)

type User struct {
	ID         string
	Username   string
	IsOnline   bool
	LastActive time.Time
}

// Message is immutable once created, Username is a snapshot taken at send time
type Message struct {
	ID        string
	UserID    string
	Username  string
	Text      string
	Timestamp time.Time
}

// Room is a read-only snapshot of a room state
type Room struct {
	ID          string
	Name        string
	Description string
	Users       []User
	Messages    []Message
}

// room is the internal mutable room representation, users keeps ids in join order
type room struct {
	id          string
	name        string
	description string
	users       []string
	messages    []Message
}
