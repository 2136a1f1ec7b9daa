package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/darryyna/chatline-server/internal/chat"
	"github.com/darryyna/chatline-server/internal/proto"
)

// authTimeout bounds how long a connection may sit idle before sending its
// auth frame.
const authTimeout = 10 * time.Second

// WSHandler upgrades HTTP connections, runs the connection gate, and bridges
// admitted connections to the hub.
type WSHandler struct {
	hub            *chat.Hub
	gate           *chat.Gate
	originPatterns []string
	log            *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *chat.Hub, gate *chat.Gate, originPatterns []string, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, gate: gate, originPatterns: originPatterns, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// The gate resolves before any other frame is processed; rejected
	// connections get one error frame and are closed.
	identity, ok := h.handshake(ctx, conn)
	if !ok {
		return
	}

	client := chat.NewClient(uuid.NewString(), identity)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake reads the first frame and resolves it through the gate.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (chat.Identity, bool) {
	readCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(readCtx, conn, &inbound); err != nil {
		h.log.Debug().Err(err).Msg("ws handshake read failed")
		return chat.Identity{}, false
	}

	var token string
	if inbound.Type == proto.InboundTypeAuth {
		var data proto.AuthData
		if err := json.Unmarshal(inbound.Data, &data); err == nil {
			token = data.Token
		}
	}

	identity, chatErr := h.gate.Authenticate(ctx, token)
	if chatErr != nil {
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: chatErr.Code, Msg: chatErr.Message},
		})
		conn.Close(websocket.StatusPolicyViolation, chatErr.Code)
		return chat.Identity{}, false
	}

	return identity, true
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *chat.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd != nil {
			h.hub.HandleCommand(client, cmd)
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *chat.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
