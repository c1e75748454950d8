package domain

import (
	"context"
	"time"
)

// Session is a durable sign-in. It survives restarts because the row is
// stored alongside the rest of the data; the browser holds a signed token
// referencing it.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type SessionEventKind string

const (
	SessionSignedIn       SessionEventKind = "signed_in"
	SessionSignedOut      SessionEventKind = "signed_out"
	SessionAccountDeleted SessionEventKind = "account_deleted"
)

// SessionEvent describes a session transition. For SessionAccountDeleted the
// SessionID is empty and every session of UserID is affected. BrowserID is
// set on SessionSignedIn when the signing-in browser is known.
type SessionEvent struct {
	Kind      SessionEventKind
	UserID    string
	SessionID string
	BrowserID string
}

// SessionRepository handles session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllByUser(ctx context.Context, userID string) error
}
