package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corazawaf/libinjection-go"

	"github.com/scentiq/scentiq-engine/pkg/models"
)

// PreferenceField identifies one answer slot in the preference profile.
type PreferenceField string

const (
	FieldScentFamily   PreferenceField = "scentFamily"
	FieldMoods         PreferenceField = "moods"
	FieldOccasions     PreferenceField = "occasions"
	FieldProjection    PreferenceField = "projectionPreference"
	FieldSeasonClimate PreferenceField = "seasonClimate"
	FieldBudgetRange   PreferenceField = "budgetRange"
	FieldLovedNotes    PreferenceField = "lovedNotes"
	FieldHatedNotes    PreferenceField = "hatedNotes"
)

// Screen describes one step of the questionnaire.
type Screen struct {
	ID          PreferenceField `json:"id"`
	Title       string          `json:"title"`
	Multi       bool            `json:"multi"`
	PremiumOnly bool            `json:"premiumOnly"`
}

var quizScreens = []Screen{
	{ID: FieldScentFamily, Title: "Which scent families speak to you?", Multi: true},
	{ID: FieldMoods, Title: "What mood do you want to evoke?", Multi: true, PremiumOnly: true},
	{ID: FieldOccasions, Title: "Where will you wear it?", Multi: true, PremiumOnly: true},
	{ID: FieldProjection, Title: "How loud should it be?"},
	{ID: FieldSeasonClimate, Title: "Which seasons are you dressing for?", Multi: true},
	{ID: FieldBudgetRange, Title: "What is your budget?"},
	{ID: FieldLovedNotes, Title: "Notes you love"},
	{ID: FieldHatedNotes, Title: "Notes to avoid"},
}

var (
	ErrScreenIncomplete = errors.New("current screen is incomplete")
	ErrPremiumOnly      = errors.New("field requires the premium tier")
	ErrUnknownField     = errors.New("unknown preference field")
	ErrUnknownOption    = errors.New("option is not in the catalog")
	ErrBlankNote        = errors.New("note is blank")
	ErrDuplicateNote    = errors.New("note is already present")
	ErrUnsafeNote       = errors.New("note contains a disallowed pattern")
)

// Quiz is the questionnaire state machine. It is not safe for concurrent
// use; the flow controller serializes access to it.
type Quiz struct {
	catalog      *models.Catalog
	premium      bool
	step         int
	prefs        models.UserPreferences
	advanceDelay time.Duration
	advance      func()
	pending      *time.Timer
}

// NewQuiz starts a fresh questionnaire. advance is invoked (on a timer
// goroutine) when a single-select answer auto-advances; callers that need
// serialization must provide a func that takes their own lock.
func NewQuiz(catalog *models.Catalog, premium bool, advanceDelay time.Duration, advance func()) *Quiz {
	return &Quiz{
		catalog:      catalog,
		premium:      premium,
		advanceDelay: advanceDelay,
		advance:      advance,
	}
}

func (q *Quiz) Step() int { return q.step }

func (q *Quiz) Screen() Screen { return quizScreens[q.step] }

func (q *Quiz) Screens() []Screen { return quizScreens }

// SetPremium updates gating mid-questionnaire, for an upgrade that happens
// while a quiz is open.
func (q *Quiz) SetPremium(premium bool) { q.premium = premium }

// Preferences returns a deep copy of the answers collected so far.
func (q *Quiz) Preferences() models.UserPreferences {
	return q.prefs.Clone()
}

// Toggle adds the item to a multi-select field, or removes it when already
// present. Order of the remaining selections is preserved. Moods and
// occasions are locked screens on the free tier; their answers can only ever
// come from a premium questionnaire.
func (q *Quiz) Toggle(field PreferenceField, item string) error {
	if !q.premium && (field == FieldMoods || field == FieldOccasions) {
		return fmt.Errorf("%w: %s", ErrPremiumOnly, field)
	}
	target, err := q.multiField(field)
	if err != nil {
		return err
	}
	if field != FieldLovedNotes && field != FieldHatedNotes {
		if !models.Contains(q.catalogOptions(field), item) {
			return fmt.Errorf("%w: %q", ErrUnknownOption, item)
		}
	}
	*target = toggleItem(*target, item)
	return nil
}

// SelectSingle records a single-select answer and schedules an automatic
// advance so the user does not also have to press next.
func (q *Quiz) SelectSingle(field PreferenceField, value string) error {
	if !models.Contains(q.catalogOptions(field), value) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, value)
	}
	switch field {
	case FieldProjection:
		q.prefs.ProjectionPreference = value
	case FieldBudgetRange:
		q.prefs.BudgetRange = value
	default:
		return fmt.Errorf("%w: %s is not single-select", ErrUnknownField, field)
	}
	q.scheduleAdvance()
	return nil
}

// AddCustomNote appends a free-typed note to the loved or hated list. Blank
// input, duplicates, and strings that trip the injection screens are
// rejected.
func (q *Quiz) AddCustomNote(field PreferenceField, text string) error {
	if field != FieldLovedNotes && field != FieldHatedNotes {
		return fmt.Errorf("%w: %s does not accept custom notes", ErrUnknownField, field)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrBlankNote
	}
	if injected, _ := libinjection.IsSQLi(text); injected {
		return ErrUnsafeNote
	}
	if libinjection.IsXSS(text) {
		return ErrUnsafeNote
	}

	target, err := q.multiField(field)
	if err != nil {
		return err
	}
	if models.Contains(*target, text) {
		return ErrDuplicateNote
	}
	*target = append(*target, text)
	return nil
}

// CanAdvance reports whether the current screen's requirements are met.
func (q *Quiz) CanAdvance() bool {
	switch quizScreens[q.step].ID {
	case FieldScentFamily:
		return len(q.prefs.ScentFamily) > 0
	case FieldOccasions:
		// Occasions are required only on the premium tier; the free tier may
		// skip through.
		return !q.premium || len(q.prefs.Occasions) > 0
	case FieldProjection:
		return q.prefs.ProjectionPreference != ""
	case FieldSeasonClimate:
		return len(q.prefs.SeasonClimate) > 0
	case FieldBudgetRange:
		return q.prefs.BudgetRange != ""
	default:
		return true
	}
}

// IsLastScreen reports whether the questionnaire is on its final step.
func (q *Quiz) IsLastScreen() bool {
	return q.step == len(quizScreens)-1
}

// Next moves forward one screen. It fails when the current screen is
// incomplete, and cancels any pending automatic advance.
func (q *Quiz) Next() error {
	q.CancelPendingAdvance()
	if !q.CanAdvance() {
		return ErrScreenIncomplete
	}
	if q.step < len(quizScreens)-1 {
		q.step++
	}
	return nil
}

// Prev moves back one screen. Answers already given are kept.
func (q *Quiz) Prev() {
	q.CancelPendingAdvance()
	if q.step > 0 {
		q.step--
	}
}

// CancelPendingAdvance stops a scheduled automatic advance, if any.
func (q *Quiz) CancelPendingAdvance() {
	if q.pending != nil {
		q.pending.Stop()
		q.pending = nil
	}
}

func (q *Quiz) scheduleAdvance() {
	q.CancelPendingAdvance()
	if q.advance == nil || q.advanceDelay <= 0 {
		return
	}
	q.pending = time.AfterFunc(q.advanceDelay, q.advance)
}

func (q *Quiz) multiField(field PreferenceField) (*[]string, error) {
	switch field {
	case FieldScentFamily:
		return &q.prefs.ScentFamily, nil
	case FieldMoods:
		return &q.prefs.Moods, nil
	case FieldOccasions:
		return &q.prefs.Occasions, nil
	case FieldSeasonClimate:
		return &q.prefs.SeasonClimate, nil
	case FieldLovedNotes:
		return &q.prefs.LovedNotes, nil
	case FieldHatedNotes:
		return &q.prefs.HatedNotes, nil
	default:
		return nil, fmt.Errorf("%w: %s is not multi-select", ErrUnknownField, field)
	}
}

func (q *Quiz) catalogOptions(field PreferenceField) []string {
	switch field {
	case FieldScentFamily:
		return q.catalog.ScentFamilies
	case FieldMoods:
		return q.catalog.Moods
	case FieldOccasions:
		return q.catalog.Occasions
	case FieldProjection:
		return q.catalog.ProjectionPreferences
	case FieldSeasonClimate:
		return q.catalog.SeasonClimates
	case FieldBudgetRange:
		return q.catalog.BudgetRanges
	default:
		return nil
	}
}

func toggleItem(list []string, item string) []string {
	for i, existing := range list {
		if existing == item {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return append(list, item)
}
