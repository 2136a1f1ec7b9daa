package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/darryyna/chatline-server/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies embedded migrations.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function instead
// of migrations. Useful for tests to apply schema directly.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

const userColumns = `id, email, first_name, last_name, age, password_hash, role, reset_token, reset_expires, created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var (
		user         store.User
		resetToken   sql.NullString
		resetExpires sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Age,
		&user.PasswordHash,
		&user.Role,
		&resetToken,
		&resetExpires,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resetToken.Valid {
		user.ResetToken = &resetToken.String
	}
	if resetExpires.Valid {
		user.ResetExpires = &resetExpires.Time
	}
	return &user, nil
}

// CreateUser inserts a new user and returns it with assigned id.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) (*store.User, error) {
	query := `
		INSERT INTO users (email, first_name, last_name, age, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		user.Email, user.FirstName, user.LastName, user.Age, user.PasswordHash, user.Role)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by id.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateUser applies a partial profile update and returns the updated user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, update store.UserUpdate) (*store.User, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if update.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *update.FirstName)
	}
	if update.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *update.LastName)
	}
	if update.Age != nil {
		sets = append(sets, "age = ?")
		args = append(args, *update.Age)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	return s.GetUserByID(ctx, id)
}

// DeleteUser removes a user. Returns store.ErrNotFound when no row matched.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetResetToken stores a password reset token and its expiry for a user.
func (s *SQLiteStore) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	query := `UPDATE users SET reset_token = ?, reset_expires = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, token, expires, userID)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetUserByResetToken retrieves a user by a non-expired reset token.
func (s *SQLiteStore) GetUserByResetToken(ctx context.Context, token string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = ? AND reset_expires > ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, token, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user by reset token: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces the password hash and clears any reset token.
func (s *SQLiteStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires = NULL WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==== MessageStore implementation ====

const messageSelect = `
	SELECT m.id, m.content, m.timestamp, m.sender_id, m.recipient_id,
	       s.id, s.email, s.first_name, s.last_name,
	       r.id, r.email, r.first_name, r.last_name
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	LEFT JOIN users r ON r.id = m.recipient_id
`

func scanMessage(row interface{ Scan(...any) error }) (*store.Message, error) {
	var (
		msg         store.Message
		recipientID sql.NullInt64
		sender      store.User
		rID         sql.NullInt64
		rEmail      sql.NullString
		rFirst      sql.NullString
		rLast       sql.NullString
	)
	err := row.Scan(
		&msg.ID,
		&msg.Content,
		&msg.Timestamp,
		&msg.SenderID,
		&recipientID,
		&sender.ID,
		&sender.Email,
		&sender.FirstName,
		&sender.LastName,
		&rID,
		&rEmail,
		&rFirst,
		&rLast,
	)
	if err != nil {
		return nil, err
	}
	msg.Sender = &sender
	if recipientID.Valid {
		id := recipientID.Int64
		msg.RecipientID = &id
	}
	if rID.Valid {
		msg.Recipient = &store.User{
			ID:        rID.Int64,
			Email:     rEmail.String,
			FirstName: rFirst.String,
			LastName:  rLast.String,
		}
	}
	return &msg, nil
}

// CreateMessage persists a message and returns it with sender and recipient joined.
func (s *SQLiteStore) CreateMessage(ctx context.Context, senderID int64, content string, recipientID *int64) (*store.Message, error) {
	query := `INSERT INTO messages (content, sender_id, recipient_id) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, content, senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	msg, err := scanMessage(s.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// ListPublicMessages returns public messages ordered by timestamp ascending,
// capped at limit. With the cap in effect this yields the earliest messages.
func (s *SQLiteStore) ListPublicMessages(ctx context.Context, limit int) ([]*store.Message, error) {
	query := messageSelect + ` WHERE m.recipient_id IS NULL ORDER BY m.timestamp ASC, m.id ASC LIMIT ?`
	return s.queryMessages(ctx, query, limit)
}

// ListPrivateMessages returns messages exchanged between two users in either
// direction, ordered by timestamp ascending, capped at limit.
func (s *SQLiteStore) ListPrivateMessages(ctx context.Context, userA, userB int64, limit int) ([]*store.Message, error) {
	query := messageSelect + `
		WHERE (m.sender_id = ? AND m.recipient_id = ?)
		   OR (m.sender_id = ? AND m.recipient_id = ?)
		ORDER BY m.timestamp ASC, m.id ASC
		LIMIT ?`
	return s.queryMessages(ctx, query, userA, userB, userB, userA, limit)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
