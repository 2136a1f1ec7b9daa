package chat

import "strconv"

// PublicGroup is the broadcast group every admitted connection joins.
const PublicGroup = "public"

// UserGroup returns the group id holding all of one user's connections.
func UserGroup(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Group collects clients subscribed to the same broadcast scope.
type Group struct {
	ID      string
	clients map[*Client]struct{}
}

// NewGroup constructs a group with no clients.
func NewGroup(id string) *Group {
	return &Group{
		ID:      id,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the group. Returns true if newly added.
func (g *Group) AddClient(c *Client) bool {
	if _, exists := g.clients[c]; exists {
		return false
	}
	g.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the group. Returns true if removed.
func (g *Group) RemoveClient(c *Client) bool {
	if _, exists := g.clients[c]; !exists {
		return false
	}
	delete(g.clients, c)
	return true
}

// Broadcast sends an event to all clients in the group.
func (g *Group) Broadcast(event *Event) {
	g.BroadcastExcept(event, nil)
}

// BroadcastExcept sends an event to all clients in the group except one.
func (g *Group) BroadcastExcept(event *Event, skip *Client) {
	for client := range g.clients {
		if client == skip {
			continue
		}
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// Empty returns true if no clients are in the group.
func (g *Group) Empty() bool {
	return len(g.clients) == 0
}
