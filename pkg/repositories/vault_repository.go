package repositories

import (
	"context"

	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/store"
)

// VaultRepository persists each user's favorite collection. The key is
// parameterized by user id, so logout never touches vault data and
// re-authentication resurrects it.
type VaultRepository interface {
	// Load returns an empty slice when the user has no saved vault.
	Load(ctx context.Context, userID string) ([]models.FavoriteRecord, error)
	Save(ctx context.Context, userID string, favorites []models.FavoriteRecord) error
}

type vaultRepository struct {
	store store.Store
}

// NewVaultRepository creates a vault repository over the given store.
func NewVaultRepository(s store.Store) VaultRepository {
	return &vaultRepository{store: s}
}

func (r *vaultRepository) Load(ctx context.Context, userID string) ([]models.FavoriteRecord, error) {
	var favorites []models.FavoriteRecord
	if _, err := readJSON(ctx, r.store, vaultKey(userID), &favorites); err != nil {
		return nil, err
	}
	return favorites, nil
}

func (r *vaultRepository) Save(ctx context.Context, userID string, favorites []models.FavoriteRecord) error {
	return writeJSON(ctx, r.store, vaultKey(userID), favorites)
}
