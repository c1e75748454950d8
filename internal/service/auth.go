package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/msomdec/yappaholic/internal/domain"
)

// AuthService signs users in through the identity provider, keeps their
// sessions and announces every session transition on the SessionHub.
type AuthService struct {
	provider   domain.IdentityProvider
	identities domain.IdentityRepository
	sessions   domain.SessionRepository
	profiles   *ProfileService
	events     *SessionHub
	jwtSecret  []byte
	sessionTTL time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	provider domain.IdentityProvider,
	identities domain.IdentityRepository,
	sessions domain.SessionRepository,
	profiles *ProfileService,
	events *SessionHub,
	jwtSecret string,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		provider:   provider,
		identities: identities,
		sessions:   sessions,
		profiles:   profiles,
		events:     events,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
	}
}

// SessionTTL is how long an issued session stays valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// AuthCodeURL returns the provider URL that starts an interactive sign-in.
func (s *AuthService) AuthCodeURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// CompleteLogin exchanges the provider code, records the identity, opens a
// durable session and returns the signed session token. browserID names the
// browser that signed in so its other open tabs can follow; it may be empty.
// Any provider failure is reported as ErrAuthCancelled.
func (s *AuthService) CompleteLogin(ctx context.Context, code, browserID string) (string, *domain.Viewer, error) {
	if code == "" {
		return "", nil, domain.ErrAuthCancelled
	}

	ext, err := s.provider.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrAuthCancelled) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: %v", domain.ErrAuthCancelled, err)
	}

	identity := &domain.Identity{UserID: ext.Subject, Email: ext.Email, Name: ext.Name}
	if err := s.identities.Upsert(ctx, identity); err != nil {
		return "", nil, fmt.Errorf("save identity: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.profiles.EnsureDefaults(ctx, identity.UserID); err != nil {
		slog.Warn("could not provision profile", "user_id", identity.UserID, "error", err)
	}

	token, err := s.generateJWT(session)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}

	s.events.Publish(domain.SessionEvent{
		Kind:      domain.SessionSignedIn,
		UserID:    identity.UserID,
		SessionID: session.ID,
		BrowserID: browserID,
	})

	viewer := &domain.Viewer{
		UserID:      identity.UserID,
		SessionID:   session.ID,
		Email:       identity.Email,
		DisplayName: s.profiles.DisplayName(ctx, identity.UserID),
	}
	return token, viewer, nil
}

// ValidateToken parses and validates a session token.
// Returns the user ID from the sub claim and the session ID from sid.
func (s *AuthService) ValidateToken(tokenString string) (userID, sessionID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", "", domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", domain.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", "", domain.ErrUnauthorized
	}

	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", "", domain.ErrUnauthorized
	}

	return sub, sid, nil
}

// CurrentUser resolves the viewer behind a session token. The session must
// still exist in the store, so logging out elsewhere takes effect at once.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*domain.Viewer, error) {
	userID, sessionID, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.SessionViewer(ctx, userID, sessionID)
}

// SessionViewer resolves the viewer for a session that is known to belong to
// userID, such as one announced by a SignedIn event. Every restored session
// re-provisions a missing profile so the owner keeps control of their posts.
func (s *AuthService) SessionViewer(ctx context.Context, userID, sessionID string) (*domain.Viewer, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID || time.Now().After(session.ExpiresAt) {
		return nil, domain.ErrUnauthorized
	}

	identity, err := s.identities.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}

	if err := s.profiles.EnsureProvisioned(ctx, userID); err != nil {
		slog.Warn("could not provision profile", "user_id", userID, "error", err)
	}

	return &domain.Viewer{
		UserID:      userID,
		SessionID:   sessionID,
		Email:       identity.Email,
		DisplayName: s.profiles.DisplayName(ctx, userID),
	}, nil
}

// Logout ends the viewer's session.
func (s *AuthService) Logout(ctx context.Context, viewer *domain.Viewer) error {
	if viewer == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, viewer.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.events.Publish(domain.SessionEvent{
		Kind:      domain.SessionSignedOut,
		UserID:    viewer.UserID,
		SessionID: viewer.SessionID,
	})
	return nil
}

// CloseAccount removes the identity and every session it holds.
func (s *AuthService) CloseAccount(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if err := s.identities.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete identity: %w", err)
	}

	s.events.Publish(domain.SessionEvent{Kind: domain.SessionAccountDeleted, UserID: userID})
	return nil
}

func (s *AuthService) generateJWT(session *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"sub": session.UserID,
		"sid": session.ID,
		"iat": session.CreatedAt.Unix(),
		"exp": session.ExpiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
