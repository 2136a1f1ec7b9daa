package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/darryyna/chatline-server/internal/store"
)

// DefaultHistoryLimit caps history queries. The public history snapshot keeps
// ascending order under this cap, so it returns the earliest messages.
const DefaultHistoryLimit = 100

type envelopeKind int

const (
	envelopeRegister envelopeKind = iota
	envelopeUnregister
	envelopeCommand
)

type envelope struct {
	kind   envelopeKind
	client *Client
	cmd    *Command
}

// Hub owns the presence registry and broadcast groups and routes every
// connection lifecycle event and chat command through a single loop.
// Registry mutations therefore never interleave between two events; store
// calls are the only blocking points inside a dispatch.
type Hub struct {
	registry *Registry
	groups   map[string]*Group
	store    store.Store
	queue    chan envelope
	log      *zerolog.Logger

	historyLimit int
}

// NewHub creates a hub backed by the given store.
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	return &Hub{
		registry:     NewRegistry(),
		groups:       map[string]*Group{PublicGroup: NewGroup(PublicGroup)},
		store:        st,
		queue:        make(chan envelope, 64),
		log:          logger,
		historyLimit: DefaultHistoryLimit,
	}
}

// Registry exposes the presence registry for read-only consumers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run processes lifecycle events and commands until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case env := <-h.queue:
			h.dispatch(ctx, env)
		case <-ctx.Done():
			return
		}
	}
}

// RegisterClient admits an authenticated client into the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.queue <- envelope{kind: envelopeRegister, client: c}
}

// UnregisterClient removes a client after its transport closed.
func (h *Hub) UnregisterClient(c *Client) {
	h.queue <- envelope{kind: envelopeUnregister, client: c}
}

// HandleCommand enqueues a command on behalf of a client. Commands from one
// connection are processed in the order they were submitted.
func (h *Hub) HandleCommand(c *Client, cmd *Command) {
	h.queue <- envelope{kind: envelopeCommand, client: c, cmd: cmd}
}

func (h *Hub) dispatch(ctx context.Context, env envelope) {
	switch env.kind {
	case envelopeRegister:
		h.handleRegister(ctx, env.client)
	case envelopeUnregister:
		h.handleUnregister(env.client)
	case envelopeCommand:
		h.handleCommand(ctx, env.client, env.cmd)
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	count := h.registry.AddSession(c.Identity.ID, c.ID)

	h.group(PublicGroup).AddClient(c)
	h.group(UserGroup(c.Identity.ID)).AddClient(c)

	h.log.Info().
		Str("conn_id", c.ID).
		Int64("user_id", c.Identity.ID).
		Str("email", c.Identity.Email).
		Int("sessions", count).
		Msg("user connected")

	// Everyone else learns about the connection, regardless of session count.
	h.group(PublicGroup).BroadcastExcept(&Event{
		Kind:     EventUserConnected,
		Presence: presenceNotice(c.Identity),
	}, c)

	h.sendToClient(c, &Event{Kind: EventOnlineUsers, Users: h.registry.OnlineUserIDs()})

	history, err := h.store.ListPublicMessages(ctx, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Str("conn_id", c.ID).Msg("failed to load public history")
		h.sendError(c, ErrCodePersistence, "failed to load public message history")
		return
	}
	h.sendToClient(c, &Event{Kind: EventPublicHistory, Messages: history})
}

func (h *Hub) handleUnregister(c *Client) {
	res, ok := h.registry.RemoveSession(c.ID)
	if !ok {
		// Disconnect for a connection that was never mapped. Not an error.
		h.log.Debug().Str("conn_id", c.ID).Msg("disconnect for unmapped connection")
		return
	}

	h.group(PublicGroup).RemoveClient(c)
	userGroup := h.group(UserGroup(c.Identity.ID))
	userGroup.RemoveClient(c)
	if userGroup.Empty() {
		delete(h.groups, userGroup.ID)
	}

	h.log.Info().
		Str("conn_id", c.ID).
		Int64("user_id", res.UserID).
		Bool("last_session", res.WasLastSession).
		Msg("user disconnected")

	// The offline notice fires only when the user's last session closed.
	if res.WasLastSession {
		h.group(PublicGroup).BroadcastExcept(&Event{
			Kind:     EventUserDisconnected,
			Presence: presenceNotice(c.Identity),
		}, c)
	}

	close(c.Events)
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandPublicMessage:
		h.handlePublicMessage(ctx, c, cmd)
	case CommandPrivateMessage:
		h.handlePrivateMessage(ctx, c, cmd)
	case CommandPrivateHistory:
		h.handlePrivateHistory(ctx, c, cmd)
	default:
		h.sendError(c, ErrCodeInvalidMessage, "unknown command")
	}
}

func (h *Hub) handlePublicMessage(ctx context.Context, c *Client, cmd *Command) {
	if strings.TrimSpace(cmd.Content) == "" {
		// Whitespace-only public messages are dropped silently.
		return
	}

	msg, err := h.store.CreateMessage(ctx, c.Identity.ID, cmd.Content, nil)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", c.Identity.ID).Msg("failed to save public message")
		h.sendError(c, ErrCodePersistence, "failed to send message")
		return
	}

	// Persisted first, emitted second; the sender's own sessions are included.
	h.group(PublicGroup).Broadcast(&Event{Kind: EventPublicMessage, Message: msg})
}

func (h *Hub) handlePrivateMessage(ctx context.Context, c *Client, cmd *Command) {
	if strings.TrimSpace(cmd.Content) == "" || cmd.RecipientID == 0 {
		h.sendError(c, ErrCodeValidation, "recipient and content are required")
		return
	}
	if cmd.RecipientID == c.Identity.ID {
		h.sendError(c, ErrCodeValidation, "cannot send private message to yourself")
		return
	}

	if _, err := h.store.GetUserByID(ctx, cmd.RecipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(c, ErrCodeRecipientNotFound, "recipient not found")
			return
		}
		h.log.Error().Err(err).Int64("recipient_id", cmd.RecipientID).Msg("recipient lookup failed")
		h.sendError(c, ErrCodePersistence, "failed to send private message")
		return
	}

	msg, err := h.store.CreateMessage(ctx, c.Identity.ID, cmd.Content, &cmd.RecipientID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", c.Identity.ID).Msg("failed to save private message")
		h.sendError(c, ErrCodePersistence, "failed to send private message")
		return
	}

	event := &Event{Kind: EventPrivateMessage, Message: msg}

	// All of the sender's sessions see the outgoing message; the recipient
	// may be offline, in which case persistence is the only delivery.
	h.group(UserGroup(c.Identity.ID)).Broadcast(event)
	if recipientGroup, ok := h.groups[UserGroup(cmd.RecipientID)]; ok {
		recipientGroup.Broadcast(event)
	}
}

func (h *Hub) handlePrivateHistory(ctx context.Context, c *Client, cmd *Command) {
	if c.Identity.ID != cmd.UserA && c.Identity.ID != cmd.UserB {
		h.log.Warn().
			Int64("user_id", c.Identity.ID).
			Int64("user_a", cmd.UserA).
			Int64("user_b", cmd.UserB).
			Msg("unauthorized private history request")
		h.sendError(c, ErrCodeUnauthorized, "unauthorized to view this chat history")
		return
	}

	history, err := h.store.ListPrivateMessages(ctx, cmd.UserA, cmd.UserB, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load private history")
		h.sendError(c, ErrCodePersistence, "failed to load private message history")
		return
	}
	h.sendToClient(c, &Event{Kind: EventPrivateHistory, Messages: history})
}

// group returns the named group, creating it when absent.
func (h *Hub) group(id string) *Group {
	g, ok := h.groups[id]
	if !ok {
		g = NewGroup(id)
		h.groups[id] = g
	}
	return g
}

func (h *Hub) sendToClient(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}

func (h *Hub) sendError(c *Client, code, msg string) {
	h.sendToClient(c, &Event{Kind: EventError, Error: chatError(code, msg)})
}

func presenceNotice(id Identity) *PresenceNotice {
	return &PresenceNotice{
		UserID:    id.ID,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	}
}
