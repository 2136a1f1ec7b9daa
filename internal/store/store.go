package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Role describes the access level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the accepted values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user account.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	Age          int
	PasswordHash string
	Role         Role
	ResetToken   *string
	ResetExpires *time.Time
	CreatedAt    time.Time
}

// Message represents a persisted chat message. A nil RecipientID marks a
// public broadcast message.
type Message struct {
	ID          int64
	Content     string
	Timestamp   time.Time
	SenderID    int64
	RecipientID *int64

	// Sender and Recipient carry public-safe user fields when the query
	// joins them; Recipient is nil for public messages.
	Sender    *User
	Recipient *User
}

// UserUpdate holds the mutable profile fields for partial updates.
// A nil field is left unchanged.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Age       *int
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a new user and returns it with assigned id.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]*User, error)

	// UpdateUser applies a partial profile update and returns the updated user.
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (*User, error)

	// DeleteUser removes a user. Returns ErrNotFound when no row matched.
	DeleteUser(ctx context.Context, id int64) error

	// SetResetToken stores a password reset token and its expiry for a user.
	SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error

	// GetUserByResetToken retrieves a user by a non-expired reset token.
	GetUserByResetToken(ctx context.Context, token string) (*User, error)

	// UpdatePassword replaces the password hash and clears any reset token.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a message with a server-assigned timestamp and
	// returns it with the sender (and recipient, when private) joined.
	CreateMessage(ctx context.Context, senderID int64, content string, recipientID *int64) (*Message, error)

	// ListPublicMessages returns public messages ordered by timestamp
	// ascending, capped at limit. With the cap in effect this yields the
	// earliest messages, which mirrors the behavior clients rely on.
	ListPublicMessages(ctx context.Context, limit int) ([]*Message, error)

	// ListPrivateMessages returns messages exchanged between the two users
	// in either direction, ordered by timestamp ascending, capped at limit.
	ListPrivateMessages(ctx context.Context, userA, userB int64, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
