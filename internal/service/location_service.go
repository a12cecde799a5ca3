package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type locationRepository interface {
	List(ctx context.Context) ([]models.Location, error)
	FindByID(ctx context.Context, id string) (*models.Location, error)
	Create(ctx context.Context, location *models.Location) error
	Update(ctx context.Context, location *models.Location) error
	Delete(ctx context.Context, id string) error
}

type scopeStore interface {
	Get(ctx context.Context, userID string) (*models.ClientScope, error)
	Save(ctx context.Context, userID string, scope *models.ClientScope) error
}

// LocationService manages facilities, their custody limits, and each user's
// session scope (selected location and backup path).
type LocationService struct {
	repo      locationRepository
	scopes    scopeStore
	cache     userCache
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLocationService constructs a LocationService.
func NewLocationService(repo locationRepository, scopes scopeStore, cache userCache, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *LocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LocationService{repo: repo, scopes: scopes, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns all facilities in creation order.
func (s *LocationService) List(ctx context.Context) ([]models.Location, error) {
	locations, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list locations")
	}
	return locations, nil
}

// Get fetches one facility.
func (s *LocationService) Get(ctx context.Context, id string) (*models.Location, error) {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	return location, nil
}

// Create registers a facility. Custody limits must cover exactly the three
// custody categories, in their fixed order.
func (s *LocationService) Create(ctx context.Context, location *models.Location, claims *models.JWTClaims) error {
	if err := s.validateLimits(location.CustodyLimits); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, location); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create location")
	}

	s.invalidate(ctx)
	s.record(ctx, claims, models.AuditActionCreate, location.ID)
	return nil
}

// Update modifies a facility.
func (s *LocationService) Update(ctx context.Context, location *models.Location, claims *models.JWTClaims) error {
	if _, err := s.Get(ctx, location.ID); err != nil {
		return err
	}
	if err := s.validateLimits(location.CustodyLimits); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, location); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update location")
	}

	s.invalidate(ctx)
	s.record(ctx, claims, models.AuditActionUpdate, location.ID)
	return nil
}

// Delete removes a facility.
func (s *LocationService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete location")
	}

	s.invalidate(ctx)
	s.record(ctx, claims, models.AuditActionDelete, id)
	return nil
}

// Scope returns the caller's session scope. A selected location that no
// longer exists falls back to the first live location, or clears when none
// are left.
func (s *LocationService) Scope(ctx context.Context, userID string) (*models.ClientScope, error) {
	scope, err := s.scopes.Get(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session scope")
	}
	if scope.SelectedLocationID == "" {
		return scope, nil
	}

	if _, err := s.repo.FindByID(ctx, scope.SelectedLocationID); err == nil {
		return scope, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve selected location")
	}

	locations, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list locations")
	}
	if len(locations) > 0 {
		scope.SelectedLocationID = locations[0].ID
	} else {
		scope.SelectedLocationID = ""
	}
	if err := s.scopes.Save(ctx, userID, scope); err != nil {
		s.logger.Warn("failed to persist scope fallback", zap.Error(err))
	}
	return scope, nil
}

// SelectLocation binds the caller's session to a facility. The facility must
// exist.
func (s *LocationService) SelectLocation(ctx context.Context, userID, locationID string) (*models.ClientScope, error) {
	if _, err := s.Get(ctx, locationID); err != nil {
		return nil, err
	}
	scope, err := s.scopes.Get(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session scope")
	}
	scope.SelectedLocationID = locationID
	if err := s.scopes.Save(ctx, userID, scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save session scope")
	}
	return scope, nil
}

// SetBackupPath records where the caller's backups are written.
func (s *LocationService) SetBackupPath(ctx context.Context, userID, path string) (*models.ClientScope, error) {
	if path == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "backup path is required")
	}
	scope, err := s.scopes.Get(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session scope")
	}
	scope.BackupPath = path
	if err := s.scopes.Save(ctx, userID, scope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save session scope")
	}
	return scope, nil
}

func (s *LocationService) validateLimits(limits models.CustodyLimits) error {
	if len(limits) != len(models.CustodyTypes) {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("custody limits must cover exactly %d categories", len(models.CustodyTypes)))
	}
	for i, limit := range limits {
		if limit.DepositLimit < 0 || limit.SpendLimit < 0 {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("custody limits for %s cannot be negative", models.CustodyTypes[i]))
		}
	}
	return nil
}

func (s *LocationService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateGroups(ctx, repository.CacheGroupLocations)
	}
}

func (s *LocationService) record(ctx context.Context, claims *models.JWTClaims, action, resourceID string) {
	if s.audit == nil || claims == nil {
		return
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "location",
		ResourceID: &resourceID,
	})
}
