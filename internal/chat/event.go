package chat

import "github.com/darryyna/chatline-server/internal/store"

// EventKind is a notification the hub emits to clients.
type EventKind int

const (
	// EventOnlineUsers delivers the current online user id list to a new connection.
	EventOnlineUsers EventKind = iota
	// EventPublicHistory delivers the public message history snapshot.
	EventPublicHistory
	// EventPublicMessage notifies the public group about a broadcast message.
	EventPublicMessage
	// EventPrivateMessage delivers a private message to sender and recipient sessions.
	EventPrivateMessage
	// EventPrivateHistory delivers a requested private conversation history.
	EventPrivateHistory
	// EventUserConnected notifies other connections that a user came online.
	EventUserConnected
	// EventUserDisconnected notifies other connections that a user's last session closed.
	EventUserDisconnected
	// EventError notifies a single client about a domain error.
	EventError
)

// PresenceNotice identifies the user behind a connect/disconnect event.
type PresenceNotice struct {
	UserID    int64
	Email     string
	FirstName string
	LastName  string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Users    []int64          // for EventOnlineUsers
	Message  *store.Message   // for message events
	Messages []*store.Message // for history events
	Presence *PresenceNotice  // for presence events
	Error    *ChatError       // for EventError
}
