package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scentiq/scentiq-engine/pkg/apperrors"
	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/repositories"
)

// AuthService implements the email and social identity flows. Credentials
// are accepted without verification; the service exists to produce stable
// identities and signed session tokens, not to authenticate anyone.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, email, password string) (*models.User, error)
	SocialSignIn(ctx context.Context, provider string) (*models.User, error)
	MintToken(user *models.User) (string, error)
	VerifyToken(token string) (string, error)
}

type authService struct {
	sessions repositories.SessionRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

var _ AuthService = (*authService)(nil)

// NewAuthService creates the identity service. Tokens are signed HS256 with
// the given secret and expire after tokenTTL.
func NewAuthService(sessions repositories.SessionRepository, secret string, tokenTTL time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		sessions: sessions,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger.Named("auth"),
		now:      time.Now,
	}
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.ErrMissingCredentials
	}

	user := &models.User{
		ID:    emailID(email),
		Email: email,
	}

	onboarded, err := s.sessions.IsOnboarded(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up onboarding state: %w", err)
	}
	user.HasCompletedOnboarding = onboarded

	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return user, nil
}

func (s *authService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.ErrMissingCredentials
	}

	// A fresh registration always starts un-onboarded, even when the same
	// address was used before.
	user := &models.User{
		ID:    emailID(email),
		Email: email,
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *authService) SocialSignIn(ctx context.Context, provider string) (*models.User, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, apperrors.ErrMissingCredentials
	}

	user := &models.User{
		ID:    fmt.Sprintf("social_%s_%s", provider, uuid.NewString()[:8]),
		Email: provider + "@example.com",
	}

	onboarded, err := s.sessions.IsOnboarded(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up onboarding state: %w", err)
	}
	user.HasCompletedOnboarding = onboarded

	s.logger.Info("social sign-in", zap.String("provider", provider), zap.String("user_id", user.ID))
	return user, nil
}

func (s *authService) MintToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// VerifyToken checks the signature and expiry of a session token and returns
// the subject user id.
func (s *authService) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("parsing session token: %w", err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return sub, nil
}

// emailID derives a stable opaque id from an email address. The same address
// always maps to the same id, which is what keeps a user's vault durable
// across sign-outs.
func emailID(email string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(email))
	if len(encoded) > 8 {
		encoded = encoded[:8]
	}
	return encoded
}
