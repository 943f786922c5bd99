package repositories

import (
	"context"

	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/store"
)

// HistoryRepository persists the append-only quiz-response and
// recommendation logs. Entries are never updated or removed.
type HistoryRepository interface {
	AppendQuizResponse(ctx context.Context, resp *models.QuizResponse) error
	ListQuizResponses(ctx context.Context) ([]models.QuizResponse, error)
	AppendRecommendations(ctx context.Context, recs []models.Recommendation) error
	ListRecommendations(ctx context.Context) ([]models.Recommendation, error)
}

type historyRepository struct {
	store store.Store
}

// NewHistoryRepository creates a history repository over the given store.
func NewHistoryRepository(s store.Store) HistoryRepository {
	return &historyRepository{store: s}
}

func (r *historyRepository) AppendQuizResponse(ctx context.Context, resp *models.QuizResponse) error {
	var log []models.QuizResponse
	if _, err := readJSON(ctx, r.store, keyQuizResponses, &log); err != nil {
		return err
	}
	log = append(log, *resp)
	return writeJSON(ctx, r.store, keyQuizResponses, log)
}

func (r *historyRepository) ListQuizResponses(ctx context.Context) ([]models.QuizResponse, error) {
	var log []models.QuizResponse
	if _, err := readJSON(ctx, r.store, keyQuizResponses, &log); err != nil {
		return nil, err
	}
	return log, nil
}

func (r *historyRepository) AppendRecommendations(ctx context.Context, recs []models.Recommendation) error {
	var log []models.Recommendation
	if _, err := readJSON(ctx, r.store, keyRecommendations, &log); err != nil {
		return err
	}
	log = append(log, recs...)
	return writeJSON(ctx, r.store, keyRecommendations, log)
}

func (r *historyRepository) ListRecommendations(ctx context.Context) ([]models.Recommendation, error) {
	var log []models.Recommendation
	if _, err := readJSON(ctx, r.store, keyRecommendations, &log); err != nil {
		return nil, err
	}
	return log, nil
}
