package chat

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/darryyna/chatline-server/internal/store"
	"github.com/darryyna/chatline-server/internal/store/sqlite"
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

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(testSchema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func seedUser(t *testing.T, st store.Store, email, first, last string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), &store.User{
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Age:          30,
		PasswordHash: "hash",
		Role:         store.RoleUser,
	})
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return user
}

func identityOf(u *store.User) Identity {
	return Identity{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed before kind %v arrived", kind)
			}
			if ev != nil && ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
		}
	}
}

// expectNoEvent asserts that no event of the given kind arrives within a
// short window. Events of other kinds are drained and ignored.
func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

// drainSnapshot consumes the initial online-users and history events a new
// connection receives, acting as a sync barrier for registration.
func drainSnapshot(t *testing.T, c *Client) {
	t.Helper()
	mustEvent(t, c.Events, EventOnlineUsers)
	mustEvent(t, c.Events, EventPublicHistory)
}
