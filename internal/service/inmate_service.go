package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type inmateRepository interface {
	List(ctx context.Context, filter models.InmateFilter) ([]models.Inmate, int, error)
	FindByID(ctx context.Context, id string) (*models.Inmate, error)
	FindByInmateID(ctx context.Context, inmateID string) (*models.Inmate, error)
	ExistsByInmateID(ctx context.Context, inmateID, excludeID string) (bool, error)
	Create(ctx context.Context, inmate *models.Inmate) error
	Update(ctx context.Context, inmate *models.Inmate) error
	Delete(ctx context.Context, id string) error
	SetFaceDescriptor(ctx context.Context, id string, descriptor models.Descriptor) error
	ListWithDescriptors(ctx context.Context) ([]models.Inmate, error)
}

type inmateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateGroups(ctx context.Context, groups ...string)
	InvalidateInmate(ctx context.Context, inmateID string)
}

// InmateService manages inmate records and biometric identification.
type InmateService struct {
	repo           inmateRepository
	cache          inmateCache
	audit          auditRecorder
	validator      *validator.Validate
	logger         *zap.Logger
	listTTL        time.Duration
	matchThreshold float64
}

// NewInmateService constructs an InmateService.
func NewInmateService(repo inmateRepository, cache inmateCache, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, listTTL time.Duration, matchThreshold float64) *InmateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if listTTL <= 0 {
		listTTL = 5 * time.Minute
	}
	if matchThreshold <= 0 {
		matchThreshold = 0.6
	}
	return &InmateService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, listTTL: listTTL, matchThreshold: matchThreshold}
}

// List returns inmates matching the filter.
func (s *InmateService) List(ctx context.Context, filter models.InmateFilter) ([]models.Inmate, *models.Pagination, error) {
	inmates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inmates")
	}
	return inmates, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get fetches an inmate by internal id.
func (s *InmateService) Get(ctx context.Context, id string) (*models.Inmate, error) {
	inmate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inmate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inmate")
	}
	return inmate, nil
}

// Lookup fetches an inmate by business key, exact match only, served from
// the per-inmate cache entry when fresh.
func (s *InmateService) Lookup(ctx context.Context, inmateID string) (*models.Inmate, error) {
	key := repository.Key(repository.CacheGroupInmateExact, inmateID)
	if s.cache != nil {
		var cached models.Inmate
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	inmate, err := s.repo.FindByInmateID(ctx, inmateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no inmate with that id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up inmate")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, inmate, s.listTTL); err != nil {
			s.logger.Warn("failed to cache inmate lookup", zap.Error(err))
		}
	}
	return inmate, nil
}

// Create registers a new inmate. The business key must be unique and the
// custody type must belong to the closed set.
func (s *InmateService) Create(ctx context.Context, inmate *models.Inmate, claims *models.JWTClaims) error {
	if err := s.validator.Struct(inmate); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inmate payload")
	}
	if _, ok := inmate.CustodyType.LimitIndex(); !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown custody type %q", inmate.CustodyType))
	}
	taken, err := s.repo.ExistsByInmateID(ctx, inmate.InmateID, "")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check inmate id")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("inmate id %s already exists", inmate.InmateID))
	}
	if inmate.Status == "" {
		inmate.Status = models.InmateStatusActive
	}
	if err := s.repo.Create(ctx, inmate); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create inmate")
	}

	s.invalidate(ctx, inmate.InmateID)
	s.record(ctx, claims, models.AuditActionCreate, inmate.ID)
	return nil
}

// Update modifies an inmate record. Balance cannot be set through here.
func (s *InmateService) Update(ctx context.Context, inmate *models.Inmate, claims *models.JWTClaims) error {
	current, err := s.Get(ctx, inmate.ID)
	if err != nil {
		return err
	}
	if _, ok := inmate.CustodyType.LimitIndex(); !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown custody type %q", inmate.CustodyType))
	}
	taken, err := s.repo.ExistsByInmateID(ctx, inmate.InmateID, inmate.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check inmate id")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("inmate id %s already exists", inmate.InmateID))
	}
	if err := s.repo.Update(ctx, inmate); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inmate")
	}

	s.invalidate(ctx, current.InmateID)
	if inmate.InmateID != current.InmateID {
		s.invalidate(ctx, inmate.InmateID)
	}
	s.record(ctx, claims, models.AuditActionUpdate, inmate.ID)
	return nil
}

// Delete removes an inmate.
func (s *InmateService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete inmate")
	}

	s.invalidate(ctx, current.InmateID)
	s.record(ctx, claims, models.AuditActionDelete, id)
	return nil
}

// Enroll stores the biometric feature vector for an inmate.
func (s *InmateService) Enroll(ctx context.Context, id string, descriptor models.Descriptor, claims *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if len(descriptor) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "descriptor is required")
	}
	if err := s.repo.SetFaceDescriptor(ctx, id, descriptor); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store descriptor")
	}

	s.invalidate(ctx, current.InmateID)
	s.record(ctx, claims, models.AuditActionUpdate, id)
	return nil
}

// ClearBiometric removes the stored face descriptor for an inmate.
func (s *InmateService) ClearBiometric(ctx context.Context, id string, claims *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetFaceDescriptor(ctx, id, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear descriptor")
	}

	s.invalidate(ctx, current.InmateID)
	s.record(ctx, claims, models.AuditActionUpdate, id)
	return nil
}

// Identify finds the enrolled inmate whose descriptor is closest to the
// submitted one, within the threshold.
func (s *InmateService) Identify(ctx context.Context, descriptor models.Descriptor) (*models.Inmate, error) {
	if len(descriptor) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "descriptor is required")
	}
	candidates, err := s.repo.ListWithDescriptors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load biometric candidates")
	}

	var best *models.Inmate
	bestDistance := s.matchThreshold
	for i := range candidates {
		d := descriptor.Distance(candidates[i].FaceDescriptor)
		if d <= bestDistance {
			bestDistance = d
			best = &candidates[i]
		}
	}
	if best == nil {
		return nil, appErrors.ErrNoBiometricMatch
	}
	return best, nil
}

func (s *InmateService) invalidate(ctx context.Context, inmateID string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateGroups(ctx, repository.CacheGroupInmates, repository.CacheGroupDashboard)
	s.cache.InvalidateInmate(ctx, inmateID)
}

func (s *InmateService) record(ctx context.Context, claims *models.JWTClaims, action, resourceID string) {
	if s.audit == nil || claims == nil {
		return
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "inmate",
		ResourceID: &resourceID,
	})
}
