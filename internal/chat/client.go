package chat

import "github.com/darryyna/chatline-server/internal/store"

// Identity is the verified user attached to a connection for its lifetime.
type Identity struct {
	ID        int64
	Email     string
	Role      store.Role
	FirstName string
	LastName  string
}

// Client is one realtime connection as seen by the hub. A single user may
// own any number of concurrent clients.
type Client struct {
	// ID is the connection id, unique per transport connection.
	ID       string
	Identity Identity
	Events   chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string, identity Identity) *Client {
	return &Client{
		ID:       id,
		Identity: identity,
		Events:   make(chan *Event, 16),
	}
}
