// Package repositories is the typed persistence layer: one method per
// logical record over the key-value store, so callers never touch raw keys.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scentiq/scentiq-engine/pkg/apperrors"
	"github.com/scentiq/scentiq-engine/pkg/store"
)

// Store key names. The key set and payload shapes are part of the
// persistence contract; renaming a key orphans existing records.
const (
	keySession         = "scentiq_session"
	keyTheme           = "scentiq_theme"
	keyLastResults     = "scentiq_last_results"
	keyLastPersonality = "scentiq_last_personality"
	keyQuizResponses   = "scentiq_quiz_responses"
	keyRecommendations = "scentiq_recommendations"
)

func vaultKey(userID string) string {
	return "scentiq_vault_records_" + userID
}

func onboardedKey(userID string) string {
	return "scentiq_onboarded_" + userID
}

// readJSON loads and decodes a record. Absent keys and malformed payloads
// both report found=false: a corrupt record must never make the app
// unusable, the store is a best-effort cache.
func readJSON(ctx context.Context, s store.Store, key string, target any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, nil
	}
	return true, nil
}

func writeJSON(ctx context.Context, s store.Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
