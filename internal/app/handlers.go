package app

import (
	"go.uber.org/zap"
	"mock-chat-backend/internal/chat"
	"mock-chat-backend/internal/events"
	"mock-chat-backend/internal/storage"
)

// StatusLabel returns the text shown when a user's presence changes
func StatusLabel(u storage.User) string {
	if u.IsOnline {
		return u.Username + " is online"
	}
	return u.Username + " is offline"
}

// handler renders chat events to the log
type handler struct {
	logger *zap.SugaredLogger
	svc    *chat.Service
}

// subscribe registers every handler method on svc and returns a function removing them all
func (h *handler) subscribe() func() {
	offs := []func(){
		h.svc.On(events.Message, h.message),
		h.svc.On(events.UserJoined, h.userJoined),
		h.svc.On(events.UserStatusChange, h.userStatusChange),
	}

	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// history logs every room with its most recent messages
func (h *handler) history() {
	for _, r := range h.svc.Rooms() {
		h.logger.Infof("Room %s (%s): %s", r.Name, r.ID, r.Description)
		for _, msg := range h.svc.GetMessages(r.ID, chat.DefaultMessageLimit) {
			h.message(msg)
		}
	}
}

func (h *handler) message(payload interface{}) {
	msg, ok := payload.(storage.Message)
	if !ok {
		h.logger.Warnf("Unexpected %s payload %T", events.Message, payload)
		return
	}

	h.logger.Infof("[%s] %s: %s", msg.Timestamp.Format("15:04"), msg.Username, msg.Text)
}

func (h *handler) userJoined(payload interface{}) {
	u, ok := payload.(storage.User)
	if !ok {
		h.logger.Warnf("Unexpected %s payload %T", events.UserJoined, payload)
		return
	}

	h.logger.Infof("%s joined, %d online", u.Username, h.onlineCount())
}

func (h *handler) userStatusChange(payload interface{}) {
	u, ok := payload.(storage.User)
	if !ok {
		h.logger.Warnf("Unexpected %s payload %T", events.UserStatusChange, payload)
		return
	}

	h.logger.Infof("%s, %d online", StatusLabel(u), h.onlineCount())
}

// onlineCount filters the roster itself, GetOnlineUsers returns offline users too
func (h *handler) onlineCount() int {
	n := 0
	for _, u := range h.svc.GetOnlineUsers(storage.GeneralRoomID) {
		if u.IsOnline && u.ID != storage.SystemUserID {
			n++
		}
	}
	return n
}
