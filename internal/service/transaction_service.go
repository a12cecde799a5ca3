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

type transactionRepository interface {
	CreateDeposit(ctx context.Context, txn *models.Transaction) error
	CreateWithdrawal(ctx context.Context, txn *models.Transaction) error
	Reverse(ctx context.Context, id string) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	ListByInmate(ctx context.Context, inmateID string, limit int) ([]models.Transaction, error)
	SumDepositsSince(ctx context.Context, inmateID string, since time.Time) (float64, error)
}

type transactionInmateRepository interface {
	FindByInmateID(ctx context.Context, inmateID string) (*models.Inmate, error)
}

type transactionLocationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Location, error)
}

// TransactionService manages deposits, listing, and reversal. Purchases go
// through the cart; everything else in the ledger goes through here.
type TransactionService struct {
	repo      transactionRepository
	inmates   transactionInmateRepository
	locations transactionLocationRepository
	cache     cartCache
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTransactionService constructs a TransactionService.
func NewTransactionService(repo transactionRepository, inmates transactionInmateRepository, locations transactionLocationRepository, cache cartCache, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TransactionService{repo: repo, inmates: inmates, locations: locations, cache: cache, audit: audit, validator: validate, logger: logger}
}

// Deposit credits an inmate wallet, enforcing the custody deposit ceiling of
// the inmate's location over the current calendar month.
func (s *TransactionService) Deposit(ctx context.Context, req models.DepositRequest, claims *models.JWTClaims) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deposit payload")
	}

	inmate, err := s.inmates.FindByInmateID(ctx, req.InmateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inmate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inmate")
	}
	if inmate.Blocked {
		return nil, appErrors.ErrBlockedAccount
	}

	if limit, ok, err := s.depositLimit(ctx, inmate); err != nil {
		return nil, err
	} else if ok {
		now := time.Now().UTC()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		deposited, err := s.repo.SumDepositsSince(ctx, inmate.InmateID, monthStart)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total deposits")
		}
		if deposited+req.DepositAmount > limit {
			return nil, appErrors.Clone(appErrors.ErrLimitExceeded,
				fmt.Sprintf("monthly deposit limit is %.2f, already deposited %.2f", limit, deposited))
		}
	}

	txn := &models.Transaction{
		InmateID:       inmate.InmateID,
		TotalAmount:    req.DepositAmount,
		DepositType:    req.DepositType,
		RelationshipID: req.RelationshipID,
		Remarks:        req.Remarks,
		CreatedBy:      &claims.UserID,
	}
	if err := s.repo.CreateDeposit(ctx, txn); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateGroups(ctx, repository.CacheGroupTransactions, repository.CacheGroupDashboard)
		s.cache.InvalidateInmate(ctx, inmate.InmateID)
	}
	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionDeposit,
			Resource:   "transaction",
			ResourceID: &txn.ID,
			NewValues:  []byte(fmt.Sprintf(`{"inmateId":%q,"amount":%.2f}`, inmate.InmateID, req.DepositAmount)),
		})
	}

	return txn, nil
}

// Withdraw debits an inmate wallet. The repository enforces balance
// sufficiency inside the same transaction that writes the ledger row.
func (s *TransactionService) Withdraw(ctx context.Context, req models.WithdrawalRequest, claims *models.JWTClaims) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid withdrawal payload")
	}

	inmate, err := s.inmates.FindByInmateID(ctx, req.InmateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inmate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inmate")
	}
	if inmate.Blocked {
		return nil, appErrors.ErrBlockedAccount
	}

	txn := &models.Transaction{
		InmateID:    inmate.InmateID,
		TotalAmount: req.WithdrawalAmount,
		Remarks:     req.Remarks,
		CreatedBy:   &claims.UserID,
	}
	if err := s.repo.CreateWithdrawal(ctx, txn); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateGroups(ctx, repository.CacheGroupTransactions, repository.CacheGroupDashboard)
		s.cache.InvalidateInmate(ctx, inmate.InmateID)
	}
	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionWithdrawal,
			Resource:   "transaction",
			ResourceID: &txn.ID,
			NewValues:  []byte(fmt.Sprintf(`{"inmateId":%q,"amount":%.2f}`, inmate.InmateID, req.WithdrawalAmount)),
		})
	}

	return txn, nil
}

// depositLimit resolves the custody deposit ceiling from the inmate's
// location, when both are configured.
func (s *TransactionService) depositLimit(ctx context.Context, inmate *models.Inmate) (float64, bool, error) {
	if inmate.LocationID == nil || s.locations == nil {
		return 0, false, nil
	}
	location, err := s.locations.FindByID(ctx, *inmate.LocationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	limit, ok := location.CustodyLimits.ForCustody(inmate.CustodyType)
	if !ok || limit.DepositLimit <= 0 {
		return 0, false, nil
	}
	return limit.DepositLimit, true, nil
}

// Reverse undoes a completed transaction. Reversal is a state change; the
// ledger row stays.
func (s *TransactionService) Reverse(ctx context.Context, id string, claims *models.JWTClaims) (*models.Transaction, error) {
	txn, err := s.repo.Reverse(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// A reversed purchase restores canteen stock, so the cached POS
		// catalog goes stale along with the ledger views.
		s.cache.InvalidateGroups(ctx, repository.CacheGroupTuckShop, repository.CacheGroupPOSCart, repository.CacheGroupTransactions, repository.CacheGroupDashboard)
		s.cache.InvalidateInmate(ctx, txn.InmateID)
	}
	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionReverse,
			Resource:   "transaction",
			ResourceID: &txn.ID,
		})
	}

	return txn, nil
}

// List returns ledger rows matching the filter.
func (s *TransactionService) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, *models.Pagination, error) {
	txns, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	return txns, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single ledger row.
func (s *TransactionService) Get(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	return txn, nil
}

// History returns an inmate's recent transactions.
func (s *TransactionService) History(ctx context.Context, inmateID string, limit int) ([]models.Transaction, error) {
	txns, err := s.repo.ListByInmate(ctx, inmateID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction history")
	}
	return txns, nil
}
