package repositories

import (
	"context"
	"fmt"

	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/store"
)

// SessionRecord is the persisted session: the current user, the signed
// token minted at authentication, and the id of the browser that
// authenticated. Hydration rejects records whose token no longer verifies.
type SessionRecord struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	BrowserID string      `json:"browserId,omitempty"`
}

// Theme values persisted for the theme record.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// SessionRepository persists the session record, the theme preference, and
// the per-user onboarding flag.
type SessionRepository interface {
	Save(ctx context.Context, rec *SessionRecord) error
	// Load returns nil with no error when no session is persisted.
	Load(ctx context.Context) (*SessionRecord, error)
	Clear(ctx context.Context) error

	SaveTheme(ctx context.Context, theme string) error
	// LoadTheme returns ThemeLight when no preference is persisted.
	LoadTheme(ctx context.Context) (string, error)

	SetOnboarded(ctx context.Context, userID string) error
	IsOnboarded(ctx context.Context, userID string) (bool, error)
}

type sessionRepository struct {
	store store.Store
}

// NewSessionRepository creates a session repository over the given store.
func NewSessionRepository(s store.Store) SessionRepository {
	return &sessionRepository{store: s}
}

func (r *sessionRepository) Save(ctx context.Context, rec *SessionRecord) error {
	return writeJSON(ctx, r.store, keySession, rec)
}

func (r *sessionRepository) Load(ctx context.Context) (*SessionRecord, error) {
	var rec SessionRecord
	found, err := readJSON(ctx, r.store, keySession, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (r *sessionRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, keySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (r *sessionRepository) SaveTheme(ctx context.Context, theme string) error {
	if err := r.store.Set(ctx, keyTheme, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

func (r *sessionRepository) LoadTheme(ctx context.Context) (string, error) {
	raw, err := r.store.Get(ctx, keyTheme)
	if err != nil || raw != ThemeDark {
		// absent or unrecognized values fall back to light
		return ThemeLight, nil
	}
	return ThemeDark, nil
}

func (r *sessionRepository) SetOnboarded(ctx context.Context, userID string) error {
	if err := r.store.Set(ctx, onboardedKey(userID), "true"); err != nil {
		return fmt.Errorf("set onboarded: %w", err)
	}
	return nil
}

func (r *sessionRepository) IsOnboarded(ctx context.Context, userID string) (bool, error) {
	raw, err := r.store.Get(ctx, onboardedKey(userID))
	if err != nil {
		return false, nil
	}
	return raw == "true", nil
}
