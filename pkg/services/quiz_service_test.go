package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentiq/scentiq-engine/pkg/models"
)

func testCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	catalog, err := models.LoadCatalog()
	require.NoError(t, err)
	return catalog
}

func newTestQuiz(t *testing.T, premium bool) *Quiz {
	t.Helper()
	return NewQuiz(testCatalog(t), premium, 0, nil)
}

func TestQuiz_ToggleRoundTrip(t *testing.T) {
	q := newTestQuiz(t, false)

	require.NoError(t, q.Toggle(FieldScentFamily, "Woody"))
	require.NoError(t, q.Toggle(FieldScentFamily, "Fresh"))
	require.NoError(t, q.Toggle(FieldScentFamily, "Spicy"))
	assert.Equal(t, []string{"Woody", "Fresh", "Spicy"}, q.Preferences().ScentFamily)

	// Removing the middle item keeps the order of the rest.
	require.NoError(t, q.Toggle(FieldScentFamily, "Fresh"))
	assert.Equal(t, []string{"Woody", "Spicy"}, q.Preferences().ScentFamily)
}

func TestQuiz_ToggleRejectsUnknownOption(t *testing.T) {
	q := newTestQuiz(t, false)
	assert.ErrorIs(t, q.Toggle(FieldScentFamily, "Metallic"), ErrUnknownOption)
}

func TestQuiz_GatingFreeTier(t *testing.T) {
	q := newTestQuiz(t, false)

	// Nothing selected on the first screen blocks forward movement.
	assert.ErrorIs(t, q.Next(), ErrScreenIncomplete)

	require.NoError(t, q.Toggle(FieldScentFamily, "Woody"))
	require.NoError(t, q.Next())
	assert.Equal(t, FieldMoods, q.Screen().ID)

	// Moods and occasions have no requirement on the free tier.
	require.NoError(t, q.Next())
	assert.Equal(t, FieldOccasions, q.Screen().ID)
	require.NoError(t, q.Next())
	assert.Equal(t, FieldProjection, q.Screen().ID)

	assert.ErrorIs(t, q.Next(), ErrScreenIncomplete)
	require.NoError(t, q.SelectSingle(FieldProjection, "Soft"))
	require.NoError(t, q.Next())
}

func TestQuiz_PremiumFieldsLockedOnFreeTier(t *testing.T) {
	q := newTestQuiz(t, false)

	assert.ErrorIs(t, q.Toggle(FieldMoods, "Confident"), ErrPremiumOnly)
	assert.ErrorIs(t, q.Toggle(FieldOccasions, "Office"), ErrPremiumOnly)
	prefs := q.Preferences()
	assert.Empty(t, prefs.Moods)
	assert.Empty(t, prefs.Occasions)

	// Upgrading mid-questionnaire unlocks the fields, and only selections
	// made after the upgrade exist.
	q.SetPremium(true)
	require.NoError(t, q.Toggle(FieldMoods, "Confident"))
	assert.Equal(t, []string{"Confident"}, q.Preferences().Moods)
}

func TestQuiz_GatingPremiumOccasions(t *testing.T) {
	q := newTestQuiz(t, true)

	require.NoError(t, q.Toggle(FieldScentFamily, "Floral"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	require.Equal(t, FieldOccasions, q.Screen().ID)

	// Premium users must pick at least one occasion.
	assert.ErrorIs(t, q.Next(), ErrScreenIncomplete)
	require.NoError(t, q.Toggle(FieldOccasions, "Office"))
	require.NoError(t, q.Next())
}

func TestQuiz_PrevKeepsAnswers(t *testing.T) {
	q := newTestQuiz(t, false)

	require.NoError(t, q.Toggle(FieldScentFamily, "Sweet"))
	require.NoError(t, q.Next())
	q.Prev()

	assert.Equal(t, 0, q.Step())
	assert.Equal(t, []string{"Sweet"}, q.Preferences().ScentFamily)

	// Backing off the first screen is a no-op.
	q.Prev()
	assert.Equal(t, 0, q.Step())
}

func TestQuiz_CustomNotes(t *testing.T) {
	q := newTestQuiz(t, false)

	require.NoError(t, q.AddCustomNote(FieldLovedNotes, "  Smoked Tea  "))
	assert.Equal(t, []string{"Smoked Tea"}, q.Preferences().LovedNotes)

	assert.ErrorIs(t, q.AddCustomNote(FieldLovedNotes, "Smoked Tea"), ErrDuplicateNote)
	assert.ErrorIs(t, q.AddCustomNote(FieldLovedNotes, "   "), ErrBlankNote)
	assert.ErrorIs(t, q.AddCustomNote(FieldScentFamily, "Oud"), ErrUnknownField)

	assert.Len(t, q.Preferences().LovedNotes, 1)
}

func TestQuiz_CustomNoteInjectionScreening(t *testing.T) {
	q := newTestQuiz(t, false)

	cases := []string{
		"<script>alert(1)</script>",
		"' OR '1'='1",
		"vanilla'; DROP TABLE users--",
	}
	for _, input := range cases {
		assert.ErrorIs(t, q.AddCustomNote(FieldHatedNotes, input), ErrUnsafeNote, "input %q", input)
	}
	assert.Empty(t, q.Preferences().HatedNotes)
}

func TestQuiz_AutoAdvance(t *testing.T) {
	var (
		mu       sync.Mutex
		advanced int
	)
	q := NewQuiz(testCatalog(t), false, 5*time.Millisecond, func() {
		mu.Lock()
		defer mu.Unlock()
		advanced++
	})

	require.NoError(t, q.Toggle(FieldScentFamily, "Woody"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	require.Equal(t, FieldProjection, q.Screen().ID)

	require.NoError(t, q.SelectSingle(FieldProjection, "Medium"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return advanced == 1
	}, time.Second, time.Millisecond)
}

func TestQuiz_AutoAdvanceCanceledByManualMove(t *testing.T) {
	var (
		mu       sync.Mutex
		advanced int
	)
	q := NewQuiz(testCatalog(t), false, 20*time.Millisecond, func() {
		mu.Lock()
		defer mu.Unlock()
		advanced++
	})

	require.NoError(t, q.Toggle(FieldScentFamily, "Woody"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	require.NoError(t, q.SelectSingle(FieldProjection, "Medium"))

	// Backing out before the timer fires must cancel the pending advance.
	q.Prev()
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, advanced)
}

func TestQuiz_ReselectionReschedules(t *testing.T) {
	var (
		mu       sync.Mutex
		advanced int
	)
	q := NewQuiz(testCatalog(t), false, 10*time.Millisecond, func() {
		mu.Lock()
		defer mu.Unlock()
		advanced++
	})

	require.NoError(t, q.Toggle(FieldScentFamily, "Woody"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())

	require.NoError(t, q.SelectSingle(FieldProjection, "Soft"))
	require.NoError(t, q.SelectSingle(FieldProjection, "Strong"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return advanced == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "Strong", q.Preferences().ProjectionPreference)

	// Only one advance fires even though two selections were made.
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, advanced)
}

func TestQuiz_CompleteRunThrough(t *testing.T) {
	q := newTestQuiz(t, true)

	require.NoError(t, q.Toggle(FieldScentFamily, "Woody"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Toggle(FieldMoods, "Mysterious"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Toggle(FieldOccasions, "Date Night"))
	require.NoError(t, q.Next())
	require.NoError(t, q.SelectSingle(FieldProjection, "Strong"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Toggle(FieldSeasonClimate, "Cold"))
	require.NoError(t, q.Next())
	require.NoError(t, q.SelectSingle(FieldBudgetRange, "£££ (Luxury)"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Toggle(FieldLovedNotes, "Oud"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Toggle(FieldHatedNotes, "Citrus"))

	assert.True(t, q.IsLastScreen())
	assert.True(t, q.CanAdvance())

	prefs := q.Preferences()
	assert.Equal(t, []string{"Woody"}, prefs.ScentFamily)
	assert.Equal(t, []string{"Mysterious"}, prefs.Moods)
	assert.Equal(t, "Strong", prefs.ProjectionPreference)
	assert.Equal(t, []string{"Oud"}, prefs.LovedNotes)
	assert.Equal(t, []string{"Citrus"}, prefs.HatedNotes)
}
