package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scentiq/scentiq-engine/pkg/apperrors"
	"github.com/scentiq/scentiq-engine/pkg/llm"
	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/repositories"
	"github.com/scentiq/scentiq-engine/pkg/store"
)

type flowHarness struct {
	flow     *FlowController
	mock     *llm.MockClient
	sessions repositories.SessionRepository
	results  repositories.ResultsRepository
	vault    repositories.VaultRepository
	history  repositories.HistoryRepository
	store    *store.MemoryStore
}

func newFlowHarness(t *testing.T) *flowHarness {
	t.Helper()

	mem := store.NewMemoryStore()
	sessions := repositories.NewSessionRepository(mem)
	results := repositories.NewResultsRepository(mem)
	vault := repositories.NewVaultRepository(mem)
	history := repositories.NewHistoryRepository(mem)

	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		return &llm.GenerateResult{Content: providerReply(5)}, nil
	}

	logger := zap.NewNop()
	auth := NewAuthService(sessions, "flow-test-secret", time.Hour, logger)
	recommender := NewRecommendationService(mock, 0.8, logger)

	cfg := FlowConfig{AutoAdvance: 0, FreeCount: 3, PremiumCount: 5}
	flow := NewFlowController(cfg, testCatalog(t), auth, recommender, sessions, results, vault, history, logger)

	return &flowHarness{
		flow:     flow,
		mock:     mock,
		sessions: sessions,
		results:  results,
		vault:    vault,
		history:  history,
		store:    mem,
	}
}

// signIn authenticates and returns the flow for chaining.
func (h *flowHarness) signIn(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, h.flow.Authenticate(context.Background(), email, "pw", false))
}

// runQuiz drives a complete questionnaire for the signed-in user.
func (h *flowHarness) runQuiz(t *testing.T) {
	t.Helper()
	f := h.flow
	require.NoError(t, f.StartDiscovery())
	require.NoError(t, f.QuizToggle(FieldScentFamily, "Woody"))
	require.NoError(t, f.QuizNext())
	require.NoError(t, f.QuizNext())
	if f.State().User.IsPremium {
		require.NoError(t, f.QuizToggle(FieldOccasions, "Events"))
	}
	require.NoError(t, f.QuizNext())
	require.NoError(t, f.QuizSelect(FieldProjection, "Strong"))
	require.NoError(t, f.QuizNext())
	require.NoError(t, f.QuizToggle(FieldSeasonClimate, "Cold"))
	require.NoError(t, f.QuizNext())
	require.NoError(t, f.QuizSelect(FieldBudgetRange, "£££ (Luxury)"))
	require.NoError(t, f.QuizNext())
	require.NoError(t, f.QuizToggle(FieldLovedNotes, "Oud"))
	require.NoError(t, f.QuizNext())
}

func TestFlow_HydrateWithNothingPersisted(t *testing.T) {
	h := newFlowHarness(t)
	require.NoError(t, h.flow.Hydrate(context.Background()))
	assert.Equal(t, StepAuth, h.flow.State().Step)
}

func TestFlow_HydrateRestoresSessionAndResults(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)
	require.NoError(t, h.flow.CompleteQuiz(ctx))
	require.Equal(t, StepResults, h.flow.State().Step)

	// A second harness over the same store simulates a restart.
	restarted := newFlowHarness(t)
	restarted.flow.sessions = h.sessions
	restarted.flow.results = h.results
	restarted.flow.vault = h.vault

	require.NoError(t, restarted.flow.Hydrate(ctx))
	state := restarted.flow.State()
	assert.Equal(t, StepResults, state.Step)
	require.NotNil(t, state.User)
	assert.True(t, state.User.HasCompletedOnboarding)
	assert.Len(t, state.Results, 3)
	require.NotNil(t, state.Personality)
	assert.Equal(t, "The Night Wanderer", state.Personality.Title)
}

func TestFlow_BrowserBindingPersists(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	require.NoError(t, h.flow.BindBrowser(ctx, "browser-1"))
	assert.Equal(t, "browser-1", h.flow.AuthorizedBrowser())

	// The binding rides the session record across a restart.
	restarted := newFlowHarness(t)
	restarted.flow.sessions = h.sessions
	restarted.flow.results = h.results
	restarted.flow.vault = h.vault
	require.NoError(t, restarted.flow.Hydrate(ctx))
	assert.Equal(t, "browser-1", restarted.flow.AuthorizedBrowser())

	// Signing out releases it.
	require.NoError(t, restarted.flow.Logout(ctx))
	assert.Empty(t, restarted.flow.AuthorizedBrowser())
}

func TestFlow_HydrateNotOnboardedLandsOnWelcome(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "fresh@example.com")

	restarted := newFlowHarness(t)
	restarted.flow.sessions = h.sessions
	require.NoError(t, restarted.flow.Hydrate(ctx))
	assert.Equal(t, StepWelcome, restarted.flow.State().Step)
}

func TestFlow_HydrateRejectsTamperedSession(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	user := h.flow.State().User
	require.NoError(t, h.sessions.Save(ctx, &repositories.SessionRecord{
		User:  *user,
		Token: "tampered.token.value",
	}))

	restarted := newFlowHarness(t)
	restarted.flow.sessions = h.sessions
	require.NoError(t, restarted.flow.Hydrate(ctx))
	assert.Equal(t, StepAuth, restarted.flow.State().Step)

	rec, err := h.sessions.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec, "rejected session should be cleared")
}

func TestFlow_AuthenticateMissingCredentials(t *testing.T) {
	h := newFlowHarness(t)

	err := h.flow.Authenticate(context.Background(), "", "", false)
	assert.ErrorIs(t, err, apperrors.ErrMissingCredentials)
	assert.Equal(t, StepAuth, h.flow.State().Step)
}

func TestFlow_FreeTierJourney(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	assert.Equal(t, StepWelcome, h.flow.State().Step)

	h.runQuiz(t)
	assert.Equal(t, StepQuiz, h.flow.State().Step)

	require.NoError(t, h.flow.CompleteQuiz(ctx))
	state := h.flow.State()
	assert.Equal(t, StepResults, state.Step)
	assert.Len(t, state.Results, 3, "free tier caps at three")
	assert.True(t, state.User.HasCompletedOnboarding)
	assert.Empty(t, state.Error)

	// The journey leaves a durable trail.
	responses, err := h.history.ListQuizResponses(ctx)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, []string{"Woody"}, responses[0].ScentFamily)
	assert.Equal(t, state.User.ID, responses[0].UserID)

	recs, err := h.history.ListRecommendations(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "https://www.google.com/search?q=House+0+Fragrance+0", recs[0].BuyURL)

	saved, err := h.results.LoadResults(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 3)
}

func TestFlow_PremiumGetsFiveWithOccasionRequired(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	require.NoError(t, h.flow.Upgrade(ctx))
	require.True(t, h.flow.State().User.IsPremium)

	h.runQuiz(t)
	require.NoError(t, h.flow.CompleteQuiz(ctx))
	state := h.flow.State()
	assert.Len(t, state.Results, 5)
	assert.Equal(t, models.TierPrive, state.MembershipTier)
}

func TestFlow_ProviderFailure(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()
	h.mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		return nil, errors.New("upstream down")
	}

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)

	err := h.flow.CompleteQuiz(ctx)
	require.Error(t, err)

	state := h.flow.State()
	assert.Equal(t, StepWelcome, state.Step)
	assert.Equal(t, ErrProviderUnavailable, state.Error)
	assert.Empty(t, state.Results)

	// Answers are logged even when the provider fails.
	responses, histErr := h.history.ListQuizResponses(ctx)
	require.NoError(t, histErr)
	assert.Len(t, responses, 1)

	// Nothing partial was persisted.
	saved, loadErr := h.results.LoadResults(ctx)
	require.NoError(t, loadErr)
	assert.Nil(t, saved)
}

func TestFlow_ErrorClearedByNextAction(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()
	h.mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		return nil, errors.New("upstream down")
	}

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)
	require.Error(t, h.flow.CompleteQuiz(ctx))
	require.NotEmpty(t, h.flow.State().Error)

	require.NoError(t, h.flow.StartDiscovery())
	assert.Empty(t, h.flow.State().Error)
}

func TestFlow_SingleSubmissionInFlight(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	h.mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		close(started)
		<-release
		return &llm.GenerateResult{Content: providerReply(3)}, nil
	}

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)

	done := make(chan error, 1)
	go func() { done <- h.flow.CompleteQuiz(ctx) }()
	<-started

	assert.Equal(t, StepLoading, h.flow.State().Step)
	assert.ErrorIs(t, h.flow.CompleteQuiz(ctx), apperrors.ErrRequestInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StepResults, h.flow.State().Step)
	assert.Equal(t, 1, h.mock.GenerateResponseCalls)
}

func TestFlow_FavoritesSurviveLogout(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)
	require.NoError(t, h.flow.CompleteQuiz(ctx))

	firstID := h.flow.State().Results[0].ID
	require.NoError(t, h.flow.ToggleFavorite(ctx, firstID))
	require.Len(t, h.flow.State().Favorites, 1)

	require.NoError(t, h.flow.Logout(ctx))
	state := h.flow.State()
	assert.Equal(t, StepAuth, state.Step)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Favorites)

	// Results are shared cache and die with the session.
	saved, err := h.results.LoadResults(ctx)
	require.NoError(t, err)
	assert.Nil(t, saved)

	h.signIn(t, "amelie@example.com")
	state = h.flow.State()
	require.Len(t, state.Favorites, 1)
	assert.Equal(t, firstID, state.Favorites[0].Fragrance.ID)
	// Onboarded user with no surviving results lands in the vault.
	assert.Equal(t, StepFavorites, state.Step)
}

func TestFlow_ToggleFavoriteTwiceRemoves(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)
	require.NoError(t, h.flow.CompleteQuiz(ctx))

	id := h.flow.State().Results[1].ID
	require.NoError(t, h.flow.ToggleFavorite(ctx, id))
	require.NoError(t, h.flow.ToggleFavorite(ctx, id))
	assert.Empty(t, h.flow.State().Favorites)

	favorites, err := h.vault.Load(ctx, h.flow.State().User.ID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestFlow_ToggleFavoriteUnknownFragrance(t *testing.T) {
	h := newFlowHarness(t)
	h.signIn(t, "amelie@example.com")

	err := h.flow.ToggleFavorite(context.Background(), "frag-does-not-exist")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFlow_DetailsRemembersOrigin(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)
	require.NoError(t, h.flow.CompleteQuiz(ctx))

	id := h.flow.State().Results[0].ID
	require.NoError(t, h.flow.ToggleFavorite(ctx, id))

	// Opened from results, back returns to results.
	require.NoError(t, h.flow.ViewDetails(id))
	assert.Equal(t, StepDetails, h.flow.State().Step)
	require.NoError(t, h.flow.BackFromDetails())
	assert.Equal(t, StepResults, h.flow.State().Step)

	// Opened from the vault, back returns to the vault.
	require.NoError(t, h.flow.Navigate(StepFavorites))
	require.NoError(t, h.flow.ViewDetails(id))
	require.NoError(t, h.flow.BackFromDetails())
	assert.Equal(t, StepFavorites, h.flow.State().Step)
}

func TestFlow_NavigateGuards(t *testing.T) {
	h := newFlowHarness(t)

	// Unauthenticated navigation always lands on auth.
	require.NoError(t, h.flow.Navigate(StepResults))
	assert.Equal(t, StepAuth, h.flow.State().Step)

	h.signIn(t, "amelie@example.com")

	// Results with no result set reopens the questionnaire.
	require.NoError(t, h.flow.Navigate(StepResults))
	assert.Equal(t, StepQuiz, h.flow.State().Step)

	require.NoError(t, h.flow.Navigate(StepUpgrade))
	assert.Equal(t, StepUpgrade, h.flow.State().Step)

	// Auth and loading are side effects of other operations, never
	// navigation targets.
	assert.ErrorContains(t, h.flow.Navigate(StepAuth), "not directly navigable")
	assert.ErrorContains(t, h.flow.Navigate(StepLoading), "not directly navigable")
	assert.Equal(t, StepUpgrade, h.flow.State().Step)

	assert.Error(t, h.flow.Navigate(Step("nonsense")))
}

func TestFlow_ResetDiscardsResults(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.signIn(t, "amelie@example.com")
	h.runQuiz(t)
	require.NoError(t, h.flow.CompleteQuiz(ctx))
	require.NotEmpty(t, h.flow.State().Results)

	require.NoError(t, h.flow.Reset(ctx))
	state := h.flow.State()
	assert.Equal(t, StepQuiz, state.Step)
	assert.Empty(t, state.Results)
	assert.Nil(t, state.Personality)
	assert.Equal(t, 0, state.QuizStep)

	saved, err := h.results.LoadResults(ctx)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestFlow_ThemePersists(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	require.NoError(t, h.flow.ToggleTheme(ctx))
	assert.True(t, h.flow.State().DarkMode)

	theme, err := h.sessions.LoadTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, repositories.ThemeDark, theme)

	restarted := newFlowHarness(t)
	restarted.flow.sessions = h.sessions
	require.NoError(t, restarted.flow.Hydrate(ctx))
	assert.True(t, restarted.flow.State().DarkMode)
}
