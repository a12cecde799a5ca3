package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	ClearFaceDescriptor(ctx context.Context, id string) error
}

type userCache interface {
	InvalidateGroups(ctx context.Context, groups ...string)
}

// UserService manages staff and inmate accounts.
type UserService struct {
	repo      userRepository
	cache     userCache
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, cache userCache, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns accounts matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get fetches one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create registers a new account with a hashed password.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest, claims *models.JWTClaims) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	role, ok := models.NormalizeRole(req.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", req.Role))
	}
	if role == models.RoleInmate && req.InmateID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "inmate accounts must reference an inmate id")
	}
	if role != models.RoleInmate && req.InmateID != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only inmate accounts may reference an inmate id")
	}
	taken, err := s.repo.ExistsByUsername(ctx, req.Username, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("username %s already exists", req.Username))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Fullname:     req.Fullname,
		Role:         role,
		Active:       true,
	}
	if req.InmateID != "" {
		inmateID := req.InmateID
		user.InmateID = &inmateID
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.invalidate(ctx)
	s.record(ctx, claims, models.AuditActionCreate, user.ID)
	return user, nil
}

// Update modifies an account's profile, role, and active flag.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest, claims *models.JWTClaims) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	role, ok := models.NormalizeRole(req.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", req.Role))
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Fullname = req.Fullname
	user.Role = role
	user.Active = req.Active
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.invalidate(ctx)
	s.record(ctx, claims, models.AuditActionUpdate, id)
	return user, nil
}

// ResetPassword sets a new password for an account without requiring the
// old one. Administrator use only; route guards enforce that.
func (s *UserService) ResetPassword(ctx context.Context, id, newPassword string, claims *models.JWTClaims) error {
	if len(newPassword) < 6 {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 6 characters")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.record(ctx, claims, models.AuditActionPasswordChange, id)
	return nil
}

// Delete removes an account. Self-deletion is rejected.
func (s *UserService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	if claims != nil && claims.UserID == id {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.invalidate(ctx)
	s.record(ctx, claims, models.AuditActionDelete, id)
	return nil
}

// ClearBiometric removes an account's stored face descriptor.
func (s *UserService) ClearBiometric(ctx context.Context, id string, claims *models.JWTClaims) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.ClearFaceDescriptor(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear descriptor")
	}

	s.record(ctx, claims, models.AuditActionUpdate, id)
	return nil
}

func (s *UserService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateGroups(ctx, repository.CacheGroupUsers)
	}
}

func (s *UserService) record(ctx context.Context, claims *models.JWTClaims, action, resourceID string) {
	if s.audit == nil || claims == nil {
		return
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "user",
		ResourceID: &resourceID,
	})
}
