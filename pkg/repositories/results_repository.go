package repositories

import (
	"context"
	"fmt"

	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/store"
)

// ResultsRepository persists the latest result set and personality summary
// for reload continuity. The two records are written independently; they are
// UI cache, never source of truth, so a crash between the writes is
// acceptable.
type ResultsRepository interface {
	SaveResults(ctx context.Context, results []models.Fragrance) error
	// LoadResults returns nil with no error when nothing is persisted.
	LoadResults(ctx context.Context) ([]models.Fragrance, error)
	SavePersonality(ctx context.Context, p *models.PersonalitySummary) error
	LoadPersonality(ctx context.Context) (*models.PersonalitySummary, error)
	Clear(ctx context.Context) error
}

type resultsRepository struct {
	store store.Store
}

// NewResultsRepository creates a results repository over the given store.
func NewResultsRepository(s store.Store) ResultsRepository {
	return &resultsRepository{store: s}
}

func (r *resultsRepository) SaveResults(ctx context.Context, results []models.Fragrance) error {
	return writeJSON(ctx, r.store, keyLastResults, results)
}

func (r *resultsRepository) LoadResults(ctx context.Context) ([]models.Fragrance, error) {
	var results []models.Fragrance
	found, err := readJSON(ctx, r.store, keyLastResults, &results)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return results, nil
}

func (r *resultsRepository) SavePersonality(ctx context.Context, p *models.PersonalitySummary) error {
	return writeJSON(ctx, r.store, keyLastPersonality, p)
}

func (r *resultsRepository) LoadPersonality(ctx context.Context) (*models.PersonalitySummary, error) {
	var p models.PersonalitySummary
	found, err := readJSON(ctx, r.store, keyLastPersonality, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func (r *resultsRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, keyLastResults); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	if err := r.store.Delete(ctx, keyLastPersonality); err != nil {
		return fmt.Errorf("clear personality: %w", err)
	}
	return nil
}
