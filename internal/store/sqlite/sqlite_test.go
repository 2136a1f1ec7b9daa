package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/darryyna/chatline-server/internal/store"
)

const testSchema = `
CREATE TABLE users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	age           INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	reset_token   TEXT,
	reset_expires DATETIME,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	content      TEXT NOT NULL,
	timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	sender_id    INTEGER NOT NULL,
	recipient_id INTEGER,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
);
`

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(testSchema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func createUser(t *testing.T, st *SQLiteStore, email string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), &store.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		Age:          25,
		PasswordHash: "hash",
		Role:         store.RoleUser,
	})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func TestUserCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, st, "alice@example.com")
	if user.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	byID, err := st.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Errorf("unexpected email %q", byID.Email)
	}

	byEmail, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("expected id %d, got %d", user.ID, byEmail.ID)
	}

	if err := st.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := st.GetUserByID(ctx, user.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteUser(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserPartial(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice@example.com")

	first := "Alicia"
	age := 31
	updated, err := st.UpdateUser(ctx, user.ID, store.UserUpdate{FirstName: &first, Age: &age})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.FirstName != "Alicia" || updated.Age != 31 {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.LastName != "User" {
		t.Errorf("untouched field changed: %q", updated.LastName)
	}

	// An empty update is a read.
	same, err := st.UpdateUser(ctx, user.ID, store.UserUpdate{})
	if err != nil {
		t.Fatalf("empty update failed: %v", err)
	}
	if same.FirstName != "Alicia" {
		t.Errorf("empty update changed data: %+v", same)
	}

	if _, err := st.UpdateUser(ctx, 999, store.UserUpdate{FirstName: &first}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	st := newTestStore(t)

	createUser(t, st, "a@example.com")
	createUser(t, st, "b@example.com")

	users, err := st.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Email != "a@example.com" || users[1].Email != "b@example.com" {
		t.Errorf("unexpected order: %q, %q", users[0].Email, users[1].Email)
	}
}

func TestResetToken(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice@example.com")

	if err := st.SetResetToken(ctx, user.ID, "tok123", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set reset token failed: %v", err)
	}

	found, err := st.GetUserByResetToken(ctx, "tok123")
	if err != nil {
		t.Fatalf("get by reset token failed: %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, found.ID)
	}

	if _, err := st.GetUserByResetToken(ctx, "wrong"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown token: expected ErrNotFound, got %v", err)
	}

	// UpdatePassword clears the token.
	if err := st.UpdatePassword(ctx, user.ID, "newhash"); err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if _, err := st.GetUserByResetToken(ctx, "tok123"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("cleared token: expected ErrNotFound, got %v", err)
	}

	after, err := st.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if after.PasswordHash != "newhash" {
		t.Errorf("password hash not updated: %q", after.PasswordHash)
	}
	if after.ResetToken != nil || after.ResetExpires != nil {
		t.Errorf("reset fields not cleared: %+v", after)
	}
}

func TestResetTokenExpired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice@example.com")

	if err := st.SetResetToken(ctx, user.ID, "tok123", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("set reset token failed: %v", err)
	}
	if _, err := st.GetUserByResetToken(ctx, "tok123"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expired token: expected ErrNotFound, got %v", err)
	}
}

func TestCreateMessage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice@example.com")
	bob := createUser(t, st, "bob@example.com")

	public, err := st.CreateMessage(ctx, alice.ID, "hello all", nil)
	if err != nil {
		t.Fatalf("create public message failed: %v", err)
	}
	if public.RecipientID != nil || public.Recipient != nil {
		t.Errorf("public message must have no recipient: %+v", public)
	}
	if public.Sender == nil || public.Sender.Email != "alice@example.com" {
		t.Errorf("sender not joined: %+v", public.Sender)
	}
	if public.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	private, err := st.CreateMessage(ctx, alice.ID, "hello bob", &bob.ID)
	if err != nil {
		t.Fatalf("create private message failed: %v", err)
	}
	if private.RecipientID == nil || *private.RecipientID != bob.ID {
		t.Errorf("unexpected recipient id: %+v", private.RecipientID)
	}
	if private.Recipient == nil || private.Recipient.Email != "bob@example.com" {
		t.Errorf("recipient not joined: %+v", private.Recipient)
	}
}

func TestListPublicMessages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice@example.com")
	bob := createUser(t, st, "bob@example.com")

	for i := 0; i < 5; i++ {
		if _, err := st.CreateMessage(ctx, alice.ID, fmt.Sprintf("public %d", i), nil); err != nil {
			t.Fatalf("create message failed: %v", err)
		}
	}
	if _, err := st.CreateMessage(ctx, alice.ID, "private", &bob.ID); err != nil {
		t.Fatalf("create message failed: %v", err)
	}

	msgs, err := st.ListPublicMessages(ctx, 100)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 public messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Content != fmt.Sprintf("public %d", i) {
			t.Errorf("position %d: expected ascending order, got %q", i, m.Content)
		}
	}

	// With the cap in effect, the earliest messages win.
	capped, err := st.ListPublicMessages(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(capped) != 2 || capped[0].Content != "public 0" || capped[1].Content != "public 1" {
		t.Errorf("expected the 2 earliest messages, got %+v", capped)
	}
}

func TestListPrivateMessages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice@example.com")
	bob := createUser(t, st, "bob@example.com")
	carol := createUser(t, st, "carol@example.com")

	if _, err := st.CreateMessage(ctx, alice.ID, "a to b", &bob.ID); err != nil {
		t.Fatalf("create message failed: %v", err)
	}
	if _, err := st.CreateMessage(ctx, bob.ID, "b to a", &alice.ID); err != nil {
		t.Fatalf("create message failed: %v", err)
	}
	if _, err := st.CreateMessage(ctx, alice.ID, "a to c", &carol.ID); err != nil {
		t.Fatalf("create message failed: %v", err)
	}
	if _, err := st.CreateMessage(ctx, alice.ID, "broadcast", nil); err != nil {
		t.Fatalf("create message failed: %v", err)
	}

	msgs, err := st.ListPrivateMessages(ctx, alice.ID, bob.ID, 100)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages in conversation, got %d", len(msgs))
	}
	if msgs[0].Content != "a to b" || msgs[1].Content != "b to a" {
		t.Errorf("unexpected conversation order: %q, %q", msgs[0].Content, msgs[1].Content)
	}

	// The pair is symmetric.
	reversed, err := st.ListPrivateMessages(ctx, bob.ID, alice.ID, 100)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(reversed) != 2 {
		t.Errorf("expected symmetric pair query, got %d messages", len(reversed))
	}
}
