// Package session holds per-user conversation state and the storage
// backends that keep it alive across otherwise-stateless webhook calls.
package session

import (
	"context"
	"time"
)

// Key identifies one user's session: the same user on two platforms is two
// independent sessions.
type Key struct {
	Platform string
	UserID   string
}

func (k Key) String() string {
	return k.Platform + ":" + k.UserID
}

// Session is the per-user state loaded before and persisted after each
// request. Data is an opaque blob owned by application logic; the runtime
// only round-trips it.
type Session struct {
	Platform  string         `json:"platform"`
	UserID    string         `json:"userId"`
	Data      map[string]any `json:"data"`
	Seq       int64          `json:"seq"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// New returns a fresh session for key with an empty data blob.
func New(key Key) *Session {
	now := time.Now().UTC()
	return &Session{
		Platform:  key.Platform,
		UserID:    key.UserID,
		Data:      make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store is the uniform persistence contract. Both backends implement it;
// the stateless round-trip mode bypasses it entirely.
type Store interface {
	// WhereOne fetches the session for key, or nil if the user has never
	// been seen.
	WhereOne(ctx context.Context, key Key) (*Session, error)

	// Save inserts the session if not present.
	Save(ctx context.Context, key Key, s *Session) error

	// Update overwrites the stored session. Creating on absence is
	// allowed; existing fields must never be silently dropped.
	Update(ctx context.Context, key Key, s *Session) error

	// Delete removes the session. Explicit operation only (teardown);
	// the runtime never deletes sessions on its own.
	Delete(ctx context.Context, key Key) error
}
