package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	// InboundTypeAuth must be the first frame on every connection.
	InboundTypeAuth           = "auth"
	InboundTypeMessage        = "message"
	InboundTypePrivateMessage = "private_message"
	InboundTypePrivateHistory = "private_history"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// AuthData carries the bearer token in the handshake frame.
type AuthData struct {
	Token string `json:"token"`
}

// MessageData is a public chat message from the client.
type MessageData struct {
	Content string `json:"content"`
}

// PrivateMessageData is a direct message to one recipient.
type PrivateMessageData struct {
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
}

// PrivateHistoryData requests the conversation between two users.
type PrivateHistoryData struct {
	UserID1 int64 `json:"user_id_1"`
	UserID2 int64 `json:"user_id_2"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// UserRef carries the public-safe fields of a user in message payloads.
type UserRef struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// EventMessage is a chat message as delivered to clients.
type EventMessage struct {
	ID        int64    `json:"id"`
	Content   string   `json:"content"`
	TS        int64    `json:"ts"`
	Sender    UserRef  `json:"sender"`
	Recipient *UserRef `json:"recipient,omitempty"`
	IsPrivate bool     `json:"is_private,omitempty"`
}

// EventOnlineUsers lists the ids of currently connected users.
type EventOnlineUsers struct {
	UserIDs []int64 `json:"user_ids"`
}

// EventHistory delivers an ordered message list.
type EventHistory struct {
	Messages []EventMessage `json:"messages"`
}

// EventPresence notifies about another user connecting or disconnecting.
type EventPresence struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
