package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/msomdec/yappaholic/internal/domain"
)

var (
	nameAdjectives = []string{"small", "big", "quick", "happy", "funny", "smart"}
	nameAnimals    = []string{"cat", "dog", "chicken", "fish", "possum", "mouse"}
)

// RandomDisplayName joins a random adjective and animal, e.g. "happypossum".
// Names are not unique.
func RandomDisplayName() string {
	return nameAdjectives[rand.IntN(len(nameAdjectives))] + nameAnimals[rand.IntN(len(nameAnimals))]
}

// ProfileService reads and provisions user profiles. Display-name lookups go
// through the optional cache; authorization reads always hit the store.
type ProfileService struct {
	profiles domain.ProfileRepository
	cache    domain.ProfileCache
}

// NewProfileService creates a ProfileService. cache may be nil.
func NewProfileService(profiles domain.ProfileRepository, cache domain.ProfileCache) *ProfileService {
	return &ProfileService{profiles: profiles, cache: cache}
}

// Get returns the stored profile, or an unprovisioned default when none
// exists. Store failures are reported as ErrStoreUnavailable.
func (s *ProfileService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UnprovisionedProfile(userID), nil
		}
		return domain.UnprovisionedProfile(userID), fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return *p, nil
}

// EnsureDefaults gives the user a random display name and power 0 where
// those fields are missing. Safe to call on every sign-in.
func (s *ProfileService) EnsureDefaults(ctx context.Context, userID string) error {
	if err := s.profiles.EnsureDefaults(ctx, userID, RandomDisplayName()); err != nil {
		return fmt.Errorf("ensure profile defaults: %w", err)
	}
	s.forget(ctx, userID)
	return nil
}

// EnsureProvisioned runs EnsureDefaults only when the stored profile is
// missing or has no display name, so restoring a session on every request
// does not rewrite the record or churn the cache.
func (s *ProfileService) EnsureProvisioned(ctx context.Context, userID string) error {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if p.Provisioned && p.DisplayName != "" {
		return nil
	}
	return s.EnsureDefaults(ctx, userID)
}

// Delete removes the profile record and its cache entry.
func (s *ProfileService) Delete(ctx context.Context, userID string) error {
	if err := s.profiles.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	s.forget(ctx, userID)
	return nil
}

// DisplayName resolves the name shown next to a user's posts, falling back
// to the raw id when the profile is missing or unreadable.
func (s *ProfileService) DisplayName(ctx context.Context, userID string) string {
	if s.cache != nil {
		p, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("profile cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return nameOrID(p)
		}
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("profile lookup failed", "user_id", userID, "error", err)
		}
		return userID
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			slog.Warn("profile cache write failed", "user_id", userID, "error", err)
		}
	}
	return nameOrID(p)
}

func (s *ProfileService) forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		slog.Warn("profile cache invalidation failed", "user_id", userID, "error", err)
	}
}

func nameOrID(p *domain.Profile) string {
	if p.DisplayName == "" {
		return p.UserID
	}
	return p.DisplayName
}
