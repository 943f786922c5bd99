package models

import "time"

// UserPreferences is the questionnaire answer structure built incrementally
// across quiz screens. Multi-select fields preserve first-selection order;
// single-choice fields hold exactly one value once set.
type UserPreferences struct {
	ScentFamily          []string `json:"scentFamily"`
	Occasions            []string `json:"occasions"`
	Moods                []string `json:"moods,omitempty"` // Privé feature
	ProjectionPreference string   `json:"projectionPreference"`
	SeasonClimate        []string `json:"seasonClimate"`
	BudgetRange          string   `json:"budgetRange"`
	LovedNotes           []string `json:"lovedNotes"`
	HatedNotes           []string `json:"hatedNotes"`
}

// Clone returns a deep copy so quiz snapshots stay immutable after capture.
func (p UserPreferences) Clone() UserPreferences {
	out := p
	out.ScentFamily = append([]string(nil), p.ScentFamily...)
	out.Occasions = append([]string(nil), p.Occasions...)
	out.Moods = append([]string(nil), p.Moods...)
	out.SeasonClimate = append([]string(nil), p.SeasonClimate...)
	out.LovedNotes = append([]string(nil), p.LovedNotes...)
	out.HatedNotes = append([]string(nil), p.HatedNotes...)
	return out
}

// QuizResponse is an immutable snapshot of UserPreferences taken at quiz
// completion. One entry is appended to the quiz-response log per completed
// quiz, before the provider is called.
type QuizResponse struct {
	UserPreferences
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
