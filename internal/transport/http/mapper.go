package http

import (
	"encoding/json"

	"github.com/darryyna/chatline-server/internal/chat"
	"github.com/darryyna/chatline-server/internal/proto"
	"github.com/darryyna/chatline-server/internal/store"
)

func inboundToCommand(inbound proto.Inbound) (*chat.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeMessage:
		var msg proto.MessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		return &chat.Command{
			Kind:    chat.CommandPublicMessage,
			Content: msg.Content,
		}, nil, nil
	case proto.InboundTypePrivateMessage:
		var msg proto.PrivateMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		return &chat.Command{
			Kind:        chat.CommandPrivateMessage,
			Content:     msg.Content,
			RecipientID: msg.RecipientID,
		}, nil, nil
	case proto.InboundTypePrivateHistory:
		var req proto.PrivateHistoryData
		if err := json.Unmarshal(inbound.Data, &req); err != nil {
			return nil, nil, err
		}
		if req.UserID1 == 0 || req.UserID2 == 0 {
			return nil, &proto.Error{Code: chat.ErrCodeValidation, Msg: "both user ids are required"}, nil
		}
		return &chat.Command{
			Kind:  chat.CommandPrivateHistory,
			UserA: req.UserID1,
			UserB: req.UserID2,
		}, nil, nil
	case proto.InboundTypeAuth:
		return nil, &proto.Error{Code: chat.ErrCodeInvalidMessage, Msg: "already authenticated"}, nil
	default:
		return nil, &proto.Error{Code: chat.ErrCodeInvalidMessage, Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *chat.Event) proto.Outbound {
	switch event.Kind {
	case chat.EventOnlineUsers:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "online_users",
			Data:  proto.EventOnlineUsers{UserIDs: event.Users},
		}
	case chat.EventPublicHistory:
		return historyOutbound("public_history", event.Messages)
	case chat.EventPrivateHistory:
		return historyOutbound("private_history", event.Messages)
	case chat.EventPublicMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "message",
			Data:  messageToProto(event.Message),
		}
	case chat.EventPrivateMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "private_message",
			Data:  messageToProto(event.Message),
		}
	case chat.EventUserConnected:
		return presenceOutbound("user_connected", event)
	case chat.EventUserDisconnected:
		return presenceOutbound("user_disconnected", event)
	case chat.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func historyOutbound(name string, messages []*store.Message) proto.Outbound {
	converted := make([]proto.EventMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, messageToProto(msg))
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: name,
		Data:  proto.EventHistory{Messages: converted},
	}
}

func presenceOutbound(name string, event *chat.Event) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: name,
		Data: proto.EventPresence{
			UserID:    event.Presence.UserID,
			Email:     event.Presence.Email,
			FirstName: event.Presence.FirstName,
			LastName:  event.Presence.LastName,
		},
	}
}

func messageToProto(msg *store.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:        msg.ID,
		Content:   msg.Content,
		TS:        msg.Timestamp.Unix(),
		IsPrivate: msg.RecipientID != nil,
	}
	if msg.Sender != nil {
		out.Sender = userRef(msg.Sender)
	}
	if msg.Recipient != nil {
		ref := userRef(msg.Recipient)
		out.Recipient = &ref
	}
	return out
}

func userRef(u *store.User) proto.UserRef {
	return proto.UserRef{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
