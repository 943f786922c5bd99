package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/scentiq/scentiq-engine/pkg/apperrors"
	"github.com/scentiq/scentiq-engine/pkg/services"
)

// AppHandler exposes the application flow over JSON HTTP. Every mutating
// endpoint responds with the full updated state, so a thin client can
// render straight from the reply.
type AppHandler struct {
	flow    *services.FlowController
	browser *BrowserSessions
	logger  *zap.Logger
}

// NewAppHandler creates the application handler.
func NewAppHandler(flow *services.FlowController, browser *BrowserSessions, logger *zap.Logger) *AppHandler {
	return &AppHandler{flow: flow, browser: browser, logger: logger}
}

// handleMethod registers handler for path accepting only the given method,
// matching the behavior of Go 1.22+ method-qualified ServeMux patterns on
// toolchains that lack them: GET also admits HEAD, and any other method gets
// 405 with an Allow header.
func handleMethod(mux *http.ServeMux, method, path string, handler http.HandlerFunc) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	})
}

// RegisterRoutes registers the application routes on the given mux.
func (h *AppHandler) RegisterRoutes(mux *http.ServeMux) {
	handleMethod(mux, http.MethodGet, "/api/state", h.GetState)

	handleMethod(mux, http.MethodPost, "/api/auth/signin", h.SignIn)
	handleMethod(mux, http.MethodPost, "/api/auth/register", h.Register)
	handleMethod(mux, http.MethodPost, "/api/auth/social", h.SocialSignIn)
	handleMethod(mux, http.MethodPost, "/api/auth/logout", h.Logout)

	handleMethod(mux, http.MethodPost, "/api/discovery/start", h.StartDiscovery)
	handleMethod(mux, http.MethodPost, "/api/quiz/toggle", h.QuizToggle)
	handleMethod(mux, http.MethodPost, "/api/quiz/select", h.QuizSelect)
	handleMethod(mux, http.MethodPost, "/api/quiz/note", h.QuizAddNote)
	handleMethod(mux, http.MethodPost, "/api/quiz/next", h.QuizNext)
	handleMethod(mux, http.MethodPost, "/api/quiz/prev", h.QuizPrev)
	handleMethod(mux, http.MethodPost, "/api/quiz/complete", h.CompleteQuiz)

	handleMethod(mux, http.MethodPost, "/api/favorites/toggle", h.ToggleFavorite)
	handleMethod(mux, http.MethodPost, "/api/details/view", h.ViewDetails)
	handleMethod(mux, http.MethodPost, "/api/details/back", h.BackFromDetails)
	handleMethod(mux, http.MethodPost, "/api/navigate", h.Navigate)
	handleMethod(mux, http.MethodPost, "/api/upgrade", h.Upgrade)
	handleMethod(mux, http.MethodPost, "/api/reset", h.Reset)
	handleMethod(mux, http.MethodPost, "/api/theme/toggle", h.ToggleTheme)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type socialRequest struct {
	Provider string `json:"provider"`
}

type quizFieldRequest struct {
	Field services.PreferenceField `json:"field"`
	Value string                   `json:"value"`
}

type fragranceRequest struct {
	FragranceID string `json:"fragranceId"`
}

type navigateRequest struct {
	Step services.Step `json:"step"`
}

// GetState handles GET /api/state. Reads are open to any browser; only
// mutations are held to the session's bound browser.
func (h *AppHandler) GetState(w http.ResponseWriter, r *http.Request) {
	h.browser.Touch(w, r)
	h.writeState(w)
}

// guard stamps the browser cookie and rejects a mutation arriving from a
// browser other than the one that authenticated the active session. It
// returns the caller's browser id alongside the verdict.
func (h *AppHandler) guard(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := h.browser.Touch(w, r)
	if bound := h.flow.AuthorizedBrowser(); bound != "" && bound != id {
		h.logger.Warn("rejecting request from unbound browser", zap.String("browser_id", id))
		_ = ErrorResponse(w, http.StatusForbidden, "browser_mismatch", "this session belongs to another browser")
		return id, false
	}
	return id, true
}

// SignIn handles POST /api/auth/signin.
func (h *AppHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, false)
}

// Register handles POST /api/auth/register.
func (h *AppHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, true)
}

func (h *AppHandler) authenticate(w http.ResponseWriter, r *http.Request, register bool) {
	browserID, ok := h.guard(w, r)
	if !ok {
		return
	}

	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.Authenticate(r.Context(), req.Email, req.Password, register); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.flow.BindBrowser(r.Context(), browserID); err != nil {
		h.logger.Warn("binding browser", zap.Error(err))
	}
	h.writeState(w)
}

// SocialSignIn handles POST /api/auth/social.
func (h *AppHandler) SocialSignIn(w http.ResponseWriter, r *http.Request) {
	browserID, ok := h.guard(w, r)
	if !ok {
		return
	}

	var req socialRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.SocialSignIn(r.Context(), req.Provider); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.flow.BindBrowser(r.Context(), browserID); err != nil {
		h.logger.Warn("binding browser", zap.Error(err))
	}
	h.writeState(w)
}

// Logout handles POST /api/auth/logout.
func (h *AppHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.Logout(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// StartDiscovery handles POST /api/discovery/start.
func (h *AppHandler) StartDiscovery(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.StartDiscovery(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// QuizToggle handles POST /api/quiz/toggle.
func (h *AppHandler) QuizToggle(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	var req quizFieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.QuizToggle(req.Field, req.Value); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// QuizSelect handles POST /api/quiz/select.
func (h *AppHandler) QuizSelect(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	var req quizFieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.QuizSelect(req.Field, req.Value); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// QuizAddNote handles POST /api/quiz/note.
func (h *AppHandler) QuizAddNote(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	var req quizFieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.flow.QuizAddNote(req.Field, req.Value)
	switch {
	case err == nil:
		h.writeState(w)
	case errors.Is(err, services.ErrBlankNote), errors.Is(err, services.ErrDuplicateNote):
		// Mirrors the client behavior: rejected input is a silent no-op.
		h.writeState(w)
	default:
		h.writeError(w, err)
	}
}

// QuizNext handles POST /api/quiz/next.
func (h *AppHandler) QuizNext(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.QuizNext(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// QuizPrev handles POST /api/quiz/prev.
func (h *AppHandler) QuizPrev(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.QuizPrev(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// CompleteQuiz handles POST /api/quiz/complete. A provider failure is part
// of the flow, not a transport error: the reply is still the state, which
// carries the banner message.
func (h *AppHandler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	err := h.flow.CompleteQuiz(r.Context())

	var provErr *services.ProviderError
	switch {
	case err == nil, errors.As(err, &provErr):
		h.writeState(w)
	default:
		h.writeError(w, err)
	}
}

// ToggleFavorite handles POST /api/favorites/toggle.
func (h *AppHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	var req fragranceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.ToggleFavorite(r.Context(), req.FragranceID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// ViewDetails handles POST /api/details/view.
func (h *AppHandler) ViewDetails(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	var req fragranceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.ViewDetails(req.FragranceID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// BackFromDetails handles POST /api/details/back.
func (h *AppHandler) BackFromDetails(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.BackFromDetails(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// Navigate handles POST /api/navigate.
func (h *AppHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	var req navigateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.flow.Navigate(req.Step); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// Upgrade handles POST /api/upgrade.
func (h *AppHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.Upgrade(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// Reset handles POST /api/reset.
func (h *AppHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.Reset(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

// ToggleTheme handles POST /api/theme/toggle.
func (h *AppHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	if err := h.flow.ToggleTheme(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w)
}

func (h *AppHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return false
	}
	return true
}

func (h *AppHandler) writeState(w http.ResponseWriter) {
	if err := WriteJSON(w, http.StatusOK, h.flow.State()); err != nil {
		h.logger.Warn("encoding state", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP statuses.
func (h *AppHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrMissingCredentials):
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_credentials", "email and password are required")
	case errors.Is(err, apperrors.ErrUnauthenticated):
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthenticated", "sign in first")
	case errors.Is(err, apperrors.ErrRequestInFlight):
		_ = ErrorResponse(w, http.StatusConflict, "request_in_flight", "a discovery run is already in progress")
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrPremiumOnly):
		_ = ErrorResponse(w, http.StatusForbidden, "premium_required", err.Error())
	case errors.Is(err, services.ErrScreenIncomplete),
		errors.Is(err, services.ErrUnknownField),
		errors.Is(err, services.ErrUnknownOption),
		errors.Is(err, services.ErrUnsafeNote):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
