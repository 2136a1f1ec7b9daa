package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/darryyna/chatline-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with an existing email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidEmail is returned when the email is empty or malformed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidName is returned when first or last name is missing.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidPassword is returned when the password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidRole is returned when an unknown role is requested.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidResetToken is returned for unknown or expired reset tokens.
	ErrInvalidResetToken = errors.New("reset token is invalid or has expired")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
	resetTTL  time.Duration
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, resetTTL time.Duration) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
		resetTTL:  resetTTL,
	}
}

// RegisterParams holds the fields required to create an account.
type RegisterParams struct {
	Email     string
	FirstName string
	LastName  string
	Age       int
	Password  string
	Role      store.Role
}

// Register creates a new user with hashed password. requestedBy carries the
// claims of an authenticated caller, or nil for anonymous registration; only
// an admin caller may grant the admin role, everyone else is downgraded.
func (s *Service) Register(ctx context.Context, params RegisterParams, requestedBy *Claims) (*store.User, error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(params.FirstName) == "" || strings.TrimSpace(params.LastName) == "" {
		return nil, ErrInvalidName
	}
	if len(params.Password) < 6 {
		return nil, ErrInvalidPassword
	}

	role := params.Role
	if role == "" {
		role = store.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == store.RoleAdmin && (requestedBy == nil || requestedBy.Role != store.RoleAdmin) {
		role = store.RoleUser
	}

	// Check if user already exists
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, &store.User{
		Email:        email,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Age:          params.Age,
		PasswordHash: hashedPassword,
		Role:         role,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		// Unknown email and wrong password must be indistinguishable.
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// GenerateResetToken creates a password reset token for the given email.
// Returns an empty token without error when the email is unknown, so callers
// can avoid leaking which accounts exist.
func (s *Service) GenerateResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	if err := s.store.SetResetToken(ctx, user.ID, token, time.Now().Add(s.resetTTL)); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	return token, nil
}

// ResetPassword sets a new password for the user holding a valid reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrInvalidPassword
	}

	user, err := s.store.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("get user by reset token: %w", err)
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
