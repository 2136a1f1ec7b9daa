package chat

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/darryyna/chatline-server/internal/auth"
	"github.com/darryyna/chatline-server/internal/store"
)

// TokenVerifier validates a bearer token and extracts its claims.
type TokenVerifier interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Gate authenticates a new realtime connection before it is admitted.
// No hub processing happens for a connection until the gate resolves;
// a rejected connection receives one error frame and is closed. A missing
// signing secret is caught at startup, so a running gate can always verify.
type Gate struct {
	verifier TokenVerifier
	users    store.UserStore
	log      *zerolog.Logger
}

// NewGate creates a connection gate.
func NewGate(verifier TokenVerifier, users store.UserStore, logger *zerolog.Logger) *Gate {
	return &Gate{
		verifier: verifier,
		users:    users,
		log:      logger,
	}
}

// Authenticate resolves a handshake token into an identity, or a rejection.
func (g *Gate) Authenticate(ctx context.Context, token string) (Identity, *ChatError) {
	if token == "" {
		g.log.Debug().Msg("connection rejected: no token provided")
		return Identity{}, chatError(ErrCodeNoToken, "authentication failed: no token provided")
	}

	claims, err := g.verifier.ValidateToken(token)
	if err != nil {
		g.log.Debug().Err(err).Msg("connection rejected: invalid token")
		return Identity{}, chatError(ErrCodeInvalidToken, "authentication failed: invalid or expired token")
	}

	user, err := g.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.log.Debug().Int64("user_id", claims.UserID).Msg("connection rejected: user not found")
			return Identity{}, chatError(ErrCodeUserNotFound, "authentication failed: user not found")
		}
		g.log.Error().Err(err).Int64("user_id", claims.UserID).Msg("gate user lookup failed")
		return Identity{}, chatError(ErrCodePersistence, "authentication failed: store unavailable")
	}

	return Identity{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}
