package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scentiq/scentiq-engine/pkg/apperrors"
	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/repositories"
)

// Step identifies one screen of the application flow.
type Step string

const (
	StepAuth      Step = "auth"
	StepWelcome   Step = "welcome"
	StepQuiz      Step = "quiz"
	StepLoading   Step = "loading"
	StepResults   Step = "results"
	StepFavorites Step = "favorites"
	StepDetails   Step = "details"
	StepUpgrade   Step = "upgrade"
)

// ErrProviderUnavailable is the user-facing message shown when a discovery
// run fails for any reason.
const ErrProviderUnavailable = "The sensory library is currently unavailable. Please try again."

// FlowConfig carries the tunables of the application flow.
type FlowConfig struct {
	AutoAdvance  time.Duration
	FreeCount    int
	PremiumCount int
}

// FlowController owns the complete application state and every transition
// between screens. All mutations run under one mutex, so state changes are
// strictly ordered even when several requests arrive at once.
type FlowController struct {
	mu sync.Mutex

	cfg         FlowConfig
	catalog     *models.Catalog
	auth        AuthService
	recommender RecommendationService
	sessions    repositories.SessionRepository
	results     repositories.ResultsRepository
	vault       repositories.VaultRepository
	history     repositories.HistoryRepository
	logger      *zap.Logger
	now         func() time.Time

	step            Step
	user            *models.User
	sessionToken    string
	browserID       string
	quiz            *Quiz
	resultSet       []models.Fragrance
	personality     *models.PersonalitySummary
	favorites       []models.FavoriteRecord
	selected        *models.Fragrance
	errMsg          string
	darkMode        bool
	cameFromResults bool
	inFlight        bool
}

// FlowState is a point-in-time snapshot of the controller, safe to hand to a
// renderer or serializer without further locking.
type FlowState struct {
	Step            Step                       `json:"step"`
	User            *models.User               `json:"user,omitempty"`
	MembershipTier  string                     `json:"membershipTier,omitempty"`
	QuizStep        int                        `json:"quizStep"`
	QuizScreen      *Screen                    `json:"quizScreen,omitempty"`
	QuizPreferences *models.UserPreferences    `json:"quizPreferences,omitempty"`
	QuizCanAdvance  bool                       `json:"quizCanAdvance"`
	Results         []models.Fragrance         `json:"results,omitempty"`
	Personality     *models.PersonalitySummary `json:"personality,omitempty"`
	Favorites       []models.FavoriteRecord    `json:"favorites,omitempty"`
	Selected        *models.Fragrance          `json:"selected,omitempty"`
	Error           string                     `json:"error,omitempty"`
	DarkMode        bool                       `json:"darkMode"`
}

// NewFlowController creates the controller in its pre-hydration state.
func NewFlowController(
	cfg FlowConfig,
	catalog *models.Catalog,
	auth AuthService,
	recommender RecommendationService,
	sessions repositories.SessionRepository,
	results repositories.ResultsRepository,
	vault repositories.VaultRepository,
	history repositories.HistoryRepository,
	logger *zap.Logger,
) *FlowController {
	return &FlowController{
		cfg:         cfg,
		catalog:     catalog,
		auth:        auth,
		recommender: recommender,
		sessions:    sessions,
		results:     results,
		vault:       vault,
		history:     history,
		logger:      logger.Named("flow"),
		now:         time.Now,
		step:        StepAuth,
	}
}

// State returns a snapshot of the current application state.
func (c *FlowController) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *FlowController) snapshot() FlowState {
	s := FlowState{
		Step:        c.step,
		Results:     c.resultSet,
		Personality: c.personality,
		Favorites:   c.favorites,
		Selected:    c.selected,
		Error:       c.errMsg,
		DarkMode:    c.darkMode,
	}
	if c.user != nil {
		u := *c.user
		s.User = &u
		s.MembershipTier = u.Tier()
	}
	if c.quiz != nil {
		s.QuizStep = c.quiz.Step()
		screen := c.quiz.Screen()
		s.QuizScreen = &screen
		prefs := c.quiz.Preferences()
		s.QuizPreferences = &prefs
		s.QuizCanAdvance = c.quiz.CanAdvance()
	}
	return s
}

// Hydrate restores state from persistence at startup. An absent or
// unverifiable session lands on the auth screen; otherwise the landing
// screen depends on onboarding state and whether a result set survives.
func (c *FlowController) Hydrate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	theme, err := c.sessions.LoadTheme(ctx)
	if err != nil {
		return fmt.Errorf("loading theme: %w", err)
	}
	c.darkMode = theme == repositories.ThemeDark

	rec, err := c.sessions.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if rec == nil {
		c.step = StepAuth
		return nil
	}

	// A session whose token fails verification is treated as absent, not as
	// an error.
	subject, err := c.auth.VerifyToken(rec.Token)
	if err != nil || subject != rec.User.ID {
		c.logger.Warn("persisted session rejected", zap.Error(err))
		if err := c.sessions.Clear(ctx); err != nil {
			c.logger.Warn("clearing rejected session", zap.Error(err))
		}
		c.step = StepAuth
		return nil
	}

	user := rec.User
	c.user = &user
	c.sessionToken = rec.Token
	c.browserID = rec.BrowserID

	if err := c.loadUserCollections(ctx); err != nil {
		return err
	}

	switch {
	case !c.user.HasCompletedOnboarding:
		c.step = StepWelcome
	case len(c.resultSet) > 0:
		c.step = StepResults
	default:
		c.step = StepFavorites
	}

	c.logger.Info("session restored",
		zap.String("user_id", c.user.ID),
		zap.String("step", string(c.step)))
	return nil
}

func (c *FlowController) loadUserCollections(ctx context.Context) error {
	results, err := c.results.LoadResults(ctx)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}
	personality, err := c.results.LoadPersonality(ctx)
	if err != nil {
		return fmt.Errorf("loading personality: %w", err)
	}
	favorites, err := c.vault.Load(ctx, c.user.ID)
	if err != nil {
		return fmt.Errorf("loading vault: %w", err)
	}
	c.resultSet = results
	c.personality = personality
	c.favorites = favorites
	return nil
}

// Authenticate signs a user in or registers them. Missing credentials leave
// the flow on the auth screen with the error returned to the caller.
func (c *FlowController) Authenticate(ctx context.Context, email, password string, register bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""

	var (
		user *models.User
		err  error
	)
	if register {
		user, err = c.auth.Register(ctx, email, password)
	} else {
		user, err = c.auth.SignIn(ctx, email, password)
	}
	if err != nil {
		return err
	}

	return c.establishSession(ctx, user)
}

// SocialSignIn signs a user in through a social provider.
func (c *FlowController) SocialSignIn(ctx context.Context, provider string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""

	user, err := c.auth.SocialSignIn(ctx, provider)
	if err != nil {
		return err
	}
	return c.establishSession(ctx, user)
}

func (c *FlowController) establishSession(ctx context.Context, user *models.User) error {
	token, err := c.auth.MintToken(user)
	if err != nil {
		return err
	}
	if err := c.sessions.Save(ctx, &repositories.SessionRecord{User: *user, Token: token, BrowserID: c.browserID}); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	c.user = user
	c.sessionToken = token
	if err := c.loadUserCollections(ctx); err != nil {
		return err
	}

	switch {
	case !user.HasCompletedOnboarding:
		c.step = StepWelcome
	case len(c.resultSet) > 0:
		c.step = StepResults
	default:
		c.step = StepFavorites
	}
	return nil
}

// Logout clears the session and the shared result records, but never vault
// data. Signing back in as the same user resurrects the vault.
func (c *FlowController) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if err := c.results.Clear(ctx); err != nil {
		return fmt.Errorf("clearing results: %w", err)
	}

	c.user = nil
	c.sessionToken = ""
	c.browserID = ""
	c.quiz = nil
	c.resultSet = nil
	c.personality = nil
	c.favorites = nil
	c.selected = nil
	c.errMsg = ""
	c.cameFromResults = false
	c.step = StepAuth
	return nil
}

// StartDiscovery opens a fresh questionnaire.
func (c *FlowController) StartDiscovery() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return apperrors.ErrUnauthenticated
	}
	c.errMsg = ""
	c.startQuizLocked()
	return nil
}

func (c *FlowController) startQuizLocked() {
	c.quiz = NewQuiz(c.catalog, c.user.IsPremium, c.cfg.AutoAdvance, c.autoAdvance)
	c.step = StepQuiz
}

// autoAdvance runs on the auto-advance timer goroutine; it takes the lock
// itself.
func (c *FlowController) autoAdvance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepQuiz || c.quiz == nil {
		return
	}
	if err := c.quiz.Next(); err != nil {
		c.logger.Debug("auto-advance skipped", zap.Error(err))
	}
}

// QuizToggle toggles a multi-select option on the open questionnaire.
func (c *FlowController) QuizToggle(field PreferenceField, item string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireQuiz(); err != nil {
		return err
	}
	return c.quiz.Toggle(field, item)
}

// QuizSelect records a single-select answer; the questionnaire advances on
// its own shortly after.
func (c *FlowController) QuizSelect(field PreferenceField, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireQuiz(); err != nil {
		return err
	}
	return c.quiz.SelectSingle(field, value)
}

// QuizAddNote adds a free-typed note to the loved or hated list.
func (c *FlowController) QuizAddNote(field PreferenceField, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireQuiz(); err != nil {
		return err
	}
	return c.quiz.AddCustomNote(field, text)
}

// QuizNext advances the questionnaire one screen.
func (c *FlowController) QuizNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireQuiz(); err != nil {
		return err
	}
	return c.quiz.Next()
}

// QuizPrev moves the questionnaire back one screen without losing answers.
func (c *FlowController) QuizPrev() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireQuiz(); err != nil {
		return err
	}
	c.quiz.Prev()
	return nil
}

func (c *FlowController) requireQuiz() error {
	if c.user == nil {
		return apperrors.ErrUnauthenticated
	}
	if c.step != StepQuiz || c.quiz == nil {
		return fmt.Errorf("no questionnaire is open")
	}
	return nil
}

// CompleteQuiz submits the finished questionnaire to the provider. The quiz
// response is logged before the provider is called, so the answer history
// survives provider failures. Only one submission may be in flight at a
// time.
func (c *FlowController) CompleteQuiz(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return apperrors.ErrRequestInFlight
	}
	if err := c.requireQuiz(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.quiz.IsLastScreen() || !c.quiz.CanAdvance() {
		c.mu.Unlock()
		return ErrScreenIncomplete
	}

	c.quiz.CancelPendingAdvance()
	prefs := c.quiz.Preferences()
	user := *c.user
	count := c.cfg.FreeCount
	if user.IsPremium {
		count = c.cfg.PremiumCount
	}

	c.inFlight = true
	c.errMsg = ""
	c.step = StepLoading
	c.mu.Unlock()

	// The answers are recorded before the provider call; history is never
	// lost to an outage.
	if err := c.history.AppendQuizResponse(ctx, &models.QuizResponse{
		UserPreferences: prefs,
		ID:              "resp_" + uuid.NewString(),
		UserID:          user.ID,
		CreatedAt:       c.now(),
	}); err != nil {
		c.logger.Warn("recording quiz response", zap.Error(err))
	}

	reply, err := c.recommender.Recommend(ctx, &prefs, count, user.IsPremium)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	// The session may have been torn down while the provider call was in
	// flight; the reply is discarded rather than applied to a stranger.
	if c.user == nil || c.user.ID != user.ID {
		return nil
	}

	if err != nil {
		c.logger.Error("discovery run failed", zap.Error(err))
		c.errMsg = ErrProviderUnavailable
		c.step = StepWelcome
		return err
	}

	c.resultSet = reply.Recommendations
	personality := reply.PersonalitySummary
	c.personality = &personality
	c.quiz = nil

	if err := c.results.SaveResults(ctx, c.resultSet); err != nil {
		c.logger.Warn("persisting results", zap.Error(err))
	}
	if err := c.results.SavePersonality(ctx, c.personality); err != nil {
		c.logger.Warn("persisting personality", zap.Error(err))
	}
	if err := c.history.AppendRecommendations(ctx, recommendationLog(&user, c.resultSet, c.now())); err != nil {
		c.logger.Warn("recording recommendations", zap.Error(err))
	}

	if !c.user.HasCompletedOnboarding {
		c.user.HasCompletedOnboarding = true
		if err := c.sessions.SetOnboarded(ctx, c.user.ID); err != nil {
			c.logger.Warn("marking onboarding", zap.Error(err))
		}
		if err := c.persistSession(ctx); err != nil {
			c.logger.Warn("updating session", zap.Error(err))
		}
	}

	c.step = StepResults
	return nil
}

// recommendationLog expands a result set into history log records, including
// a retailer search link per fragrance.
func recommendationLog(user *models.User, results []models.Fragrance, at time.Time) []models.Recommendation {
	log := make([]models.Recommendation, 0, len(results))
	for _, f := range results {
		log = append(log, models.Recommendation{
			ID:            "rec_" + f.ID,
			UserID:        user.ID,
			Brand:         f.Brand,
			FragranceName: f.Name,
			ScentFamily:   f.Family,
			TopNotes:      f.Notes.Top,
			MiddleNotes:   f.Notes.Middle,
			BaseNotes:     f.Notes.Base,
			Longevity:     f.Longevity,
			Projection:    f.Projection,
			BestSeason:    f.BestSeason,
			BestOccasion:  f.BestOccasion,
			WhyMatch:      f.MatchReason,
			BuyURL:        buyURL(f.Brand, f.Name),
			CreatedAt:     at,
		})
	}
	return log
}

func buyURL(brand, name string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(brand+" "+name)
}

// ToggleFavorite adds the fragrance to the user's vault, or removes it when
// already saved. The vault is persisted immediately.
func (c *FlowController) ToggleFavorite(ctx context.Context, fragranceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return apperrors.ErrUnauthenticated
	}
	c.errMsg = ""

	for i, fav := range c.favorites {
		if fav.Fragrance.ID == fragranceID {
			c.favorites = append(c.favorites[:i:i], c.favorites[i+1:]...)
			return c.vault.Save(ctx, c.user.ID, c.favorites)
		}
	}

	fragrance := c.findFragrance(fragranceID)
	if fragrance == nil {
		return fmt.Errorf("fragrance %q: %w", fragranceID, apperrors.ErrNotFound)
	}

	c.favorites = append(c.favorites, models.FavoriteRecord{
		UserID:           c.user.ID,
		RecommendationID: fragrance.ID,
		CreatedAt:        c.now(),
		Fragrance:        *fragrance,
	})
	return c.vault.Save(ctx, c.user.ID, c.favorites)
}

func (c *FlowController) findFragrance(id string) *models.Fragrance {
	for i := range c.resultSet {
		if c.resultSet[i].ID == id {
			return &c.resultSet[i]
		}
	}
	if c.selected != nil && c.selected.ID == id {
		return c.selected
	}
	return nil
}

// ViewDetails opens the detail screen for a fragrance from the results or
// the vault, remembering which collection it came from.
func (c *FlowController) ViewDetails(fragranceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return apperrors.ErrUnauthenticated
	}
	c.errMsg = ""

	fragrance := c.findFragrance(fragranceID)
	if fragrance == nil {
		for i := range c.favorites {
			if c.favorites[i].Fragrance.ID == fragranceID {
				fragrance = &c.favorites[i].Fragrance
				break
			}
		}
	}
	if fragrance == nil {
		return fmt.Errorf("fragrance %q: %w", fragranceID, apperrors.ErrNotFound)
	}

	f := *fragrance
	c.selected = &f
	c.cameFromResults = c.step == StepResults
	c.step = StepDetails
	return nil
}

// BackFromDetails returns to whichever screen the detail view was opened
// from.
func (c *FlowController) BackFromDetails() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepDetails {
		return nil
	}
	c.selected = nil
	if c.cameFromResults {
		c.step = StepResults
	} else {
		c.step = StepFavorites
	}
	return nil
}

// Navigate moves to a top-level screen, enforcing guards: unauthenticated
// users land on auth, and the results screen with no results reopens the
// questionnaire.
func (c *FlowController) Navigate(step Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user == nil {
		c.step = StepAuth
		return nil
	}
	c.errMsg = ""

	switch step {
	case StepResults:
		if len(c.resultSet) == 0 {
			c.startQuizLocked()
			return nil
		}
		c.step = StepResults
	case StepFavorites, StepWelcome, StepUpgrade:
		c.step = step
	case StepQuiz:
		c.startQuizLocked()
	case StepDetails:
		if c.selected == nil {
			return fmt.Errorf("no fragrance selected")
		}
		c.step = StepDetails
	case StepAuth, StepLoading:
		// Auth is only reachable by signing out, loading only by a
		// submission in flight.
		return fmt.Errorf("step %q is not directly navigable", step)
	default:
		return fmt.Errorf("unknown step %q", step)
	}
	return nil
}

// Upgrade switches the user to the premium tier and persists the change.
// The tier applies to the next discovery run; existing results stay.
func (c *FlowController) Upgrade(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return apperrors.ErrUnauthenticated
	}
	c.errMsg = ""

	c.user.IsPremium = true
	if c.quiz != nil {
		c.quiz.SetPremium(true)
	}
	if err := c.persistSession(ctx); err != nil {
		return err
	}

	// Land the user back where an upgrade is most useful.
	if len(c.resultSet) > 0 {
		c.step = StepResults
	} else {
		c.step = StepWelcome
	}
	return nil
}

// Reset discards the current results and opens a fresh questionnaire.
func (c *FlowController) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return apperrors.ErrUnauthenticated
	}
	c.errMsg = ""

	if err := c.results.Clear(ctx); err != nil {
		return fmt.Errorf("clearing results: %w", err)
	}
	c.resultSet = nil
	c.personality = nil
	c.selected = nil
	c.startQuizLocked()
	return nil
}

// ToggleTheme flips dark mode and persists the preference.
func (c *FlowController) ToggleTheme(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.darkMode = !c.darkMode
	theme := repositories.ThemeLight
	if c.darkMode {
		theme = repositories.ThemeDark
	}
	return c.sessions.SaveTheme(ctx, theme)
}

func (c *FlowController) persistSession(ctx context.Context) error {
	if c.user == nil || c.sessionToken == "" {
		return nil
	}
	if err := c.sessions.Save(ctx, &repositories.SessionRecord{User: *c.user, Token: c.sessionToken, BrowserID: c.browserID}); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// BindBrowser records which browser authenticated the active session and
// persists the binding alongside the session record. Binding with no active
// session or with an empty id is a no-op.
func (c *FlowController) BindBrowser(ctx context.Context, browserID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || browserID == "" || c.browserID == browserID {
		return nil
	}
	c.browserID = browserID
	return c.persistSession(ctx)
}

// AuthorizedBrowser returns the browser id bound to the active session, or
// an empty string when no binding exists.
func (c *FlowController) AuthorizedBrowser() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browserID
}

// IsAuthInputError reports whether the error came from invalid credentials,
// as opposed to an internal failure.
func IsAuthInputError(err error) bool {
	return errors.Is(err, apperrors.ErrMissingCredentials)
}
