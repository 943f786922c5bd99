package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scentiq/scentiq-engine/pkg/llm"
	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/prompts"
)

// ProviderError is returned when the recommendation provider fails: a
// transport error, an empty reply, or a reply that fails schema validation.
// No partial results ever escape behind it.
type ProviderError struct {
	Reason string
	Cause  error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Reason, e.Cause)
	}
	return "provider error: " + e.Reason
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// RecommendationService is the provider adapter: it builds the prompt from
// preferences, invokes the provider, validates the structured reply, and
// normalizes it into domain records. It never writes to persistence.
type RecommendationService interface {
	Recommend(ctx context.Context, prefs *models.UserPreferences, count int, isPremium bool) (*models.RecommendationResponse, error)
}

type recommendationService struct {
	client      llm.Client
	temperature float64
	logger      *zap.Logger
	now         func() time.Time
}

// NewRecommendationService creates the provider adapter over the given
// client.
func NewRecommendationService(client llm.Client, temperature float64, logger *zap.Logger) RecommendationService {
	return &recommendationService{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("recommender"),
		now:         time.Now,
	}
}

// wireResponse mirrors the reply schema. Fields are validated explicitly
// before anything is read from them; the provider is never trusted
// structurally.
type wireResponse struct {
	PersonalitySummary *models.PersonalitySummary `json:"personalitySummary"`
	Recommendations    []models.Fragrance         `json:"recommendations"`
}

func (r *recommendationService) Recommend(ctx context.Context, prefs *models.UserPreferences, count int, isPremium bool) (*models.RecommendationResponse, error) {
	prompt := prompts.BuildRecommendationPrompt(prefs, count, isPremium)

	result, err := r.client.GenerateResponse(ctx, prompt, prompts.SystemPersona, r.temperature)
	if err != nil {
		return nil, &ProviderError{Reason: "upstream call failed", Cause: err}
	}
	if strings.TrimSpace(result.Content) == "" {
		return nil, &ProviderError{Reason: "empty reply"}
	}

	reply, err := llm.ParseJSONResponse[wireResponse](result.Content)
	if err != nil {
		return nil, &ProviderError{Reason: "unparseable reply", Cause: err}
	}
	if err := validateReply(&reply); err != nil {
		return nil, &ProviderError{Reason: "reply failed schema validation", Cause: err}
	}

	// Excess items are discarded; a short list is accepted as-is.
	recs := reply.Recommendations
	if len(recs) > count {
		recs = recs[:count]
	}
	if len(recs) < count {
		r.logger.Warn("provider returned a short result set",
			zap.Int("requested", count),
			zap.Int("returned", len(recs)))
	}

	stamp := r.now().UnixMilli()
	for i := range recs {
		if recs[i].ID == "" {
			// Position plus timestamp keeps ids unique within the response.
			recs[i].ID = fmt.Sprintf("frag-%d-%d", i, stamp)
		}
		recs[i].ImagePlaceholder = imagePlaceholder(recs[i].Name)
	}

	return &models.RecommendationResponse{
		PersonalitySummary: *reply.PersonalitySummary,
		Recommendations:    recs,
	}, nil
}

// validateReply enforces the reply schema: a personality object and the
// required fields of every fragrance. Optional fields (id, priceEstimate,
// layeringSuggestions) are allowed to be absent.
func validateReply(reply *wireResponse) error {
	if reply.PersonalitySummary == nil {
		return fmt.Errorf("missing personalitySummary")
	}
	if reply.PersonalitySummary.Title == "" || reply.PersonalitySummary.Description == "" {
		return fmt.Errorf("personalitySummary missing title or description")
	}

	for i, f := range reply.Recommendations {
		required := map[string]string{
			"name":         f.Name,
			"brand":        f.Brand,
			"family":       f.Family,
			"description":  f.Description,
			"matchReason":  f.MatchReason,
			"longevity":    f.Longevity,
			"projection":   f.Projection,
			"bestSeason":   f.BestSeason,
			"bestOccasion": f.BestOccasion,
		}
		for field, value := range required {
			if value == "" {
				return fmt.Errorf("recommendation %d missing %s", i, field)
			}
		}
		for j, s := range f.LayeringSuggestions {
			if s.Note == "" || s.Reason == "" {
				return fmt.Errorf("recommendation %d layering suggestion %d missing note or reason", i, j)
			}
		}
	}

	return nil
}

// imagePlaceholder derives a stable cosmetic image URL from the fragrance
// name.
func imagePlaceholder(name string) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/400/500", strings.ReplaceAll(name, " ", ""))
}
