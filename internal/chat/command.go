package chat

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandPublicMessage broadcasts a message to the public group.
	CommandPublicMessage CommandKind = iota
	// CommandPrivateMessage delivers a message to one recipient's sessions.
	CommandPrivateMessage
	// CommandPrivateHistory fetches the conversation between two users.
	CommandPrivateHistory
)

// Command represents an action requested by a client.
type Command struct {
	Kind        CommandKind
	Content     string
	RecipientID int64
	// UserA and UserB identify the conversation pair for history fetches.
	UserA int64
	UserB int64
}
