package domain

import (
	"context"
	"time"
)

// Profile is the per-user record shown next to posts and consulted for
// delete authorization. A zero Profile with Provisioned == false stands for
// a user whose record has not been written yet: no display name, power 0.
type Profile struct {
	UserID      string
	DisplayName string
	Power       int
	Provisioned bool
}

// UnprovisionedProfile returns the default value used when no record exists.
func UnprovisionedProfile(userID string) Profile {
	return Profile{UserID: userID}
}

// ProfileRepository handles profile persistence.
type ProfileRepository interface {
	// Get returns ErrNotFound when no record exists for the id.
	Get(ctx context.Context, userID string) (*Profile, error)
	// EnsureDefaults merges displayName and power 0 into the record, only
	// filling fields that are absent. Existing values are never overwritten.
	EnsureDefaults(ctx context.Context, userID, displayName string) error
	Delete(ctx context.Context, userID string) error
}

// ProfileCache is an optional read-through cache for display-name lookups.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*Profile, bool, error)
	Set(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, userID string) error
}

// Identity is the account issued by the external identity provider.
type Identity struct {
	UserID    string // provider subject, stable
	Email     string
	Name      string
	CreatedAt time.Time
	LastLogin time.Time
}

// ExternalIdentity is what a provider returns after a successful sign-in.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityProvider runs the interactive sign-in with a third-party provider.
type IdentityProvider interface {
	// AuthCodeURL returns the URL the browser is sent to for sign-in.
	AuthCodeURL(state string) string
	// Exchange completes the sign-in. Returns ErrAuthCancelled when the
	// provider rejects the code.
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// IdentityRepository handles identity account persistence.
type IdentityRepository interface {
	Upsert(ctx context.Context, identity *Identity) error
	Get(ctx context.Context, userID string) (*Identity, error)
	Delete(ctx context.Context, userID string) error
}

// Viewer is the authenticated user behind a request.
type Viewer struct {
	UserID      string
	SessionID   string
	Email       string
	DisplayName string
}
