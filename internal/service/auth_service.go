package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	ListWithDescriptors(ctx context.Context) ([]models.User, error)
}

type authSessionStore interface {
	RevokeToken(ctx context.Context, token string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret    string
	TokenExpiry    time.Duration
	Issuer         string
	MatchThreshold float64
}

// AuthService provides authentication use cases. Password and biometric
// logins both normalize to the same token response.
type AuthService struct {
	repo      authUserRepository
	sessions  authSessionStore
	audit     auditRecorder
	nav       *NavigationService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, sessions authSessionStore, audit auditRecorder, nav *NavigationService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if nav == nil {
		nav = NewNavigationService(logger)
	}
	return &AuthService{repo: repo, sessions: sessions, audit: audit, nav: nav, validator: validate, logger: logger, config: config}
}

// Login authenticates a user by username and password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}

	return s.issueSession(ctx, user, req.IP, req.UserAgent)
}

// FaceLogin authenticates by matching the submitted feature vector against
// stored descriptors. The closest match below the threshold wins; no match
// rejects without disclosing which accounts carry biometrics.
func (s *AuthService) FaceLogin(ctx context.Context, req models.FaceLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid face login payload")
	}

	candidates, err := s.repo.ListWithDescriptors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load biometric candidates")
	}

	var best *models.User
	bestDistance := s.config.MatchThreshold
	for i := range candidates {
		d := req.Descriptor.Distance(candidates[i].FaceDescriptor)
		if d <= bestDistance {
			bestDistance = d
			best = &candidates[i]
		}
	}
	if best == nil {
		return nil, appErrors.ErrNoBiometricMatch
	}

	s.logger.Debug("biometric match", zap.String("userId", best.ID), zap.Float64("distance", bestDistance))
	return s.issueSession(ctx, best, req.IP, req.UserAgent)
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, ip, userAgent string) (*models.LoginResponse, error) {
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	role, ok := models.NormalizeRole(string(user.Role))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account role is not recognized")
	}

	token, err := s.generateToken(user, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &user.ID,
			Action:     models.AuditActionLogin,
			Resource:   "auth",
			ResourceID: &user.ID,
			NewValues:  []byte(`{"status":"success"}`),
			IPAddress:  ip,
			UserAgent:  userAgent,
		})
	}

	info := models.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Fullname: user.Fullname,
		Role:     role,
	}
	if user.InmateID != nil {
		info.InmateID = *user.InmateID
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:  time.Now().UTC(),
		User:      info,
	}, nil
}

// Logout revokes the presented token for its remaining lifetime and drops
// the user's session scope. Nothing of the session survives.
func (s *AuthService) Logout(ctx context.Context, token string, claims *models.JWTClaims, ip, userAgent string) error {
	ttl := s.config.TokenExpiry
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeToken(ctx, token, ttl); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke token")
		}
		if err := s.sessions.Clear(ctx, claims.UserID); err != nil {
			s.logger.Warn("failed to clear session scope", zap.Error(err))
		}
	}

	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionLogout,
			Resource:   "auth",
			ResourceID: &claims.UserID,
			NewValues:  []byte(`{"status":"logout"}`),
			IPAddress:  ip,
			UserAgent:  userAgent,
		})
	}

	return nil
}

// ChangePassword changes the password for the given user ID after
// confirming the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "current password does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(newHash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionPasswordChange,
			Resource:   "auth",
			ResourceID: &userID,
			NewValues:  []byte(`{"status":"changed"}`),
		})
	}

	return nil
}

// ValidateToken parses and validates an access token, rejecting revoked
// tokens, and returns the claims.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if s.sessions != nil {
		revoked, err := s.sessions.IsTokenRevoked(ctx, tokenString)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check token revocation")
		}
		if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has been revoked")
		}
	}

	return claims, nil
}

// DefaultRoute exposes the landing route for a role.
func (s *AuthService) DefaultRoute(role models.UserRole) string {
	return s.nav.DefaultRoute(role)
}

func (s *AuthService) generateToken(user *models.User, role models.UserRole) (string, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     role,
		Username: user.Username,
		Fullname: user.Fullname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	if user.InmateID != nil {
		claims.InmateID = *user.InmateID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}
