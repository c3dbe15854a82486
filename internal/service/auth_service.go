package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/dto"
	"github.com/tripstack/attractions-api/internal/repository"
	"github.com/tripstack/attractions-api/internal/token"
	"github.com/tripstack/attractions-api/pkg/telemetry"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already in use")

	// Session errors raised while validating or rotating tokens.
	ErrAmbiguousCredentials = errors.New("credentials supplied via both cookies and headers")
	ErrMissingCredentials   = errors.New("missing authentication tokens")
	ErrSessionExpired       = errors.New("session expired")
	ErrIdentityMismatch     = errors.New("user id mismatch")
	ErrUnknownIdentity      = errors.New("user not found")
	ErrRevokedSession       = errors.New("refresh token revoked")
)

// AuthService handles signup, login, and session token rotation
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*domain.User, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*domain.User, *domain.TokenPair, error)
	Logout(ctx context.Context, userID int64) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// Refresh validates the supplied credential triple and returns the
	// tokens the response must carry. While the access token is still
	// valid only it is reissued and the refresh token is reused;
	// otherwise both rotate and the new refresh token is persisted.
	Refresh(ctx context.Context, creds domain.Credentials) (int64, *domain.TokenPair, error)
}

// AuthServiceConfig holds auth service configuration
type AuthServiceConfig struct {
	BcryptCost int
}

type authService struct {
	users  repository.UserRepository
	codec  *token.Codec
	config *AuthServiceConfig
	logger *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users repository.UserRepository, codec *token.Codec, config *AuthServiceConfig, logger *zap.Logger) AuthService {
	if config == nil {
		config = &AuthServiceConfig{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		users:  users,
		codec:  codec,
		config: config,
		logger: logger,
	}
}

// Signup creates a new account. Tokens are not issued; the client logs
// in afterwards.
func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "auth.Signup")
	defer span.End()

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:             req.Email,
		PasswordHash:      string(hash),
		IsActive:          true,
		SubscriptionLevel: "free",
		DateJoined:        time.Now().UTC(),
	}
	if req.FirstName != "" {
		user.FirstName = &req.FirstName
	}
	if req.LastName != "" {
		user.LastName = &req.LastName
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login checks the password, issues a fresh token pair, and persists
// the refresh token as the single active session.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.User, *domain.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "auth.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("update last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return user, pair, nil
}

// Logout clears the stored refresh token
func (s *authService) Logout(ctx context.Context, userID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "auth.Logout")
	defer span.End()

	return s.users.UpdateRefreshToken(ctx, userID, "")
}

// GetUser loads a user by id
func (s *authService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownIdentity
	}
	return user, nil
}

// Refresh runs the session validation chain against the credential
// triple and produces the tokens to attach to the response.
func (s *authService) Refresh(ctx context.Context, creds domain.Credentials) (int64, *domain.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "auth.Refresh")
	defer span.End()

	// An absent or expired access token is fine, the refresh token
	// carries the session. A well-signed access token for a different
	// subject is not.
	var accessClaims *token.Claims
	if creds.AccessToken != "" {
		if claims, err := s.codec.Verify(creds.AccessToken, token.TypeAccess); err == nil {
			accessClaims = claims
		}
	}

	refreshClaims, err := s.codec.Verify(creds.RefreshToken, token.TypeRefresh)
	if err != nil {
		return 0, nil, ErrSessionExpired
	}

	userID, err := token.Subject(refreshClaims)
	if err != nil {
		return 0, nil, ErrSessionExpired
	}
	if creds.UserID != strconv.FormatInt(userID, 10) {
		return 0, nil, ErrIdentityMismatch
	}
	if accessClaims != nil && accessClaims.Subject != refreshClaims.Subject {
		return 0, nil, ErrIdentityMismatch
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	if user == nil {
		return 0, nil, ErrUnknownIdentity
	}

	if user.RefreshToken != creds.RefreshToken {
		return 0, nil, ErrRevokedSession
	}

	access, err := s.codec.IssueAccess(userID)
	if err != nil {
		return 0, nil, err
	}

	if accessClaims != nil {
		// Access still valid: slide it forward, keep the refresh token.
		return userID, &domain.TokenPair{AccessToken: access, RefreshToken: creds.RefreshToken}, nil
	}

	refresh, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return 0, nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, userID, refresh); err != nil {
		return 0, nil, err
	}

	return userID, &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) issuePair(userID int64) (*domain.TokenPair, error) {
	access, err := s.codec.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
