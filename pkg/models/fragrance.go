package models

import "time"

// FragranceNotes is the three-tier note pyramid. Each tier is an ordered
// list of note names as returned by the provider.
type FragranceNotes struct {
	Top    []string `json:"top"`
	Middle []string `json:"middle"`
	Base   []string `json:"base"`
}

// LayeringSuggestion pairs a companion note with a one-sentence rationale.
// Present only on premium responses.
type LayeringSuggestion struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// Fragrance is a single recommendation produced by the provider adapter.
// Immutable after creation; favorites embed a full copy so they survive the
// originating result set being cleared.
type Fragrance struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Brand               string               `json:"brand"`
	Family              string               `json:"family"`
	Notes               FragranceNotes       `json:"notes"`
	Description         string               `json:"description"`
	MatchReason         string               `json:"matchReason"`
	PriceEstimate       string               `json:"priceEstimate"`
	ImagePlaceholder    string               `json:"imagePlaceholder"`
	Longevity           string               `json:"longevity"`
	Projection          string               `json:"projection"`
	BestSeason          string               `json:"bestSeason"`
	BestOccasion        string               `json:"bestOccasion"`
	LayeringSuggestions []LayeringSuggestion `json:"layeringSuggestions,omitempty"` // Privé feature
}

// PersonalitySummary is the AI-generated title/description characterizing
// the user's scent profile.
type PersonalitySummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RecommendationResponse is the provider adapter's result for one quiz run.
// Ephemeral; the latest is persisted for reload continuity.
type RecommendationResponse struct {
	PersonalitySummary PersonalitySummary `json:"personalitySummary"`
	Recommendations    []Fragrance        `json:"recommendations"`
}

// FavoriteRecord is a vault entry: the favorited fragrance id plus an
// embedded copy of the fragrance itself. At most one record exists per
// (user, fragrance id) pair.
type FavoriteRecord struct {
	UserID           string    `json:"userId"`
	RecommendationID string    `json:"recommendationId"`
	CreatedAt        time.Time `json:"createdAt"`
	Fragrance        Fragrance `json:"fragrance"`
}

// Recommendation is the denormalized historical log record written for each
// fragrance in a result set.
type Recommendation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Brand         string    `json:"brand"`
	FragranceName string    `json:"fragranceName"`
	ScentFamily   string    `json:"scentFamily"`
	TopNotes      []string  `json:"topNotes"`
	MiddleNotes   []string  `json:"middleNotes"`
	BaseNotes     []string  `json:"baseNotes"`
	Longevity     string    `json:"longevity"`
	Projection    string    `json:"projection"`
	BestSeason    string    `json:"bestSeason"`
	BestOccasion  string    `json:"bestOccasion"`
	WhyMatch      string    `json:"whyMatch"`
	BuyURL        string    `json:"buyUrl"`
	CreatedAt     time.Time `json:"createdAt"`
}
