package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

// TransactionRepository owns the ledger. Purchases, deposits, and reversals
// mutate wallet balance and canteen stock only inside the same database
// transaction that writes the ledger row.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = "id, type, inmate_id, total_amount, products, deposit_type, relationship_id, remarks, status, created_by, reversed_at, created_at"

// ExecutePurchase atomically validates and records a purchase: it locks the
// inmate row, checks block state and balance, deducts canteen stock per line,
// debits the wallet, and inserts the ledger row. Any failure rolls back all
// of it.
func (r *TransactionRepository) ExecutePurchase(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	txn.Type = models.TransactionTypePurchase
	txn.Status = models.TransactionStatusCompleted
	txn.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purchase tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var inmate struct {
		Balance float64 `db:"balance"`
		Blocked bool    `db:"blocked"`
	}
	if err := tx.GetContext(ctx, &inmate, "SELECT balance, blocked FROM inmates WHERE UPPER(inmate_id) = UPPER($1) FOR UPDATE", txn.InmateID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "inmate not found")
		}
		return fmt.Errorf("lock inmate: %w", err)
	}
	if inmate.Blocked {
		return appErrors.ErrBlockedAccount
	}
	if txn.TotalAmount <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "purchase total must be positive")
	}
	if txn.TotalAmount > inmate.Balance {
		return appErrors.ErrInsufficientBalance
	}

	for _, line := range txn.Products {
		res, err := tx.ExecContext(ctx,
			"UPDATE canteen_items SET stock_quantity = stock_quantity - $2, updated_at = $3 WHERE id = $1 AND stock_quantity >= $2",
			line.ProductID, line.Quantity, now)
		if err != nil {
			return fmt.Errorf("deduct stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deduct stock: %w", err)
		}
		if affected == 0 {
			return appErrors.Clone(appErrors.ErrOutOfStock, fmt.Sprintf("insufficient stock for %s", line.ItemName))
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE inmates SET balance = balance - $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)",
		txn.InmateID, txn.TotalAmount, now); err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	if err := r.insertTx(ctx, tx, txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purchase tx: %w", err)
	}
	return nil
}

// CreateDeposit atomically credits the inmate wallet and inserts the ledger
// row. Deposit-limit checks belong to the service layer; the repository only
// guarantees the credit and the ledger row move together.
func (r *TransactionRepository) CreateDeposit(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	txn.Type = models.TransactionTypeDeposit
	txn.Status = models.TransactionStatusCompleted
	txn.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deposit tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		"UPDATE inmates SET balance = balance + $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)",
		txn.InmateID, txn.TotalAmount, now)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "inmate not found")
	}

	if err := r.insertTx(ctx, tx, txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deposit tx: %w", err)
	}
	return nil
}

// CreateWithdrawal atomically debits the inmate wallet and inserts the
// ledger row. The wallet must cover the full amount; a blocked account
// cannot withdraw.
func (r *TransactionRepository) CreateWithdrawal(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	txn.Type = models.TransactionTypeWithdrawal
	txn.Status = models.TransactionStatusCompleted
	txn.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin withdrawal tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var inmate struct {
		Balance float64 `db:"balance"`
		Blocked bool    `db:"blocked"`
	}
	if err := tx.GetContext(ctx, &inmate, "SELECT balance, blocked FROM inmates WHERE UPPER(inmate_id) = UPPER($1) FOR UPDATE", txn.InmateID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "inmate not found")
		}
		return fmt.Errorf("lock inmate: %w", err)
	}
	if inmate.Blocked {
		return appErrors.ErrBlockedAccount
	}
	if txn.TotalAmount > inmate.Balance {
		return appErrors.ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE inmates SET balance = balance - $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)",
		txn.InmateID, txn.TotalAmount, now); err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	if err := r.insertTx(ctx, tx, txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit withdrawal tx: %w", err)
	}
	return nil
}

// Reverse marks a completed transaction reversed and undoes its side effects:
// a purchase refunds the wallet and restores stock, a deposit claws the
// credit back, a withdrawal is re-credited. Reversing twice fails.
func (r *TransactionRepository) Reverse(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reverse tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf("SELECT %s FROM transactions WHERE id = $1 FOR UPDATE", transactionColumns)
	var txn models.Transaction
	if err := tx.GetContext(ctx, &txn, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	if txn.Status == models.TransactionStatusReversed {
		return nil, appErrors.ErrAlreadyReversed
	}

	now := time.Now().UTC()
	switch txn.Type {
	case models.TransactionTypePurchase:
		if _, err := tx.ExecContext(ctx,
			"UPDATE inmates SET balance = balance + $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)",
			txn.InmateID, txn.TotalAmount, now); err != nil {
			return nil, fmt.Errorf("refund balance: %w", err)
		}
		for _, line := range txn.Products {
			if _, err := tx.ExecContext(ctx,
				"UPDATE canteen_items SET stock_quantity = stock_quantity + $2, updated_at = $3 WHERE id = $1",
				line.ProductID, line.Quantity, now); err != nil {
				return nil, fmt.Errorf("restore stock: %w", err)
			}
		}
	case models.TransactionTypeDeposit:
		if _, err := tx.ExecContext(ctx,
			"UPDATE inmates SET balance = balance - $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)",
			txn.InmateID, txn.TotalAmount, now); err != nil {
			return nil, fmt.Errorf("claw back deposit: %w", err)
		}
	case models.TransactionTypeWithdrawal:
		if _, err := tx.ExecContext(ctx,
			"UPDATE inmates SET balance = balance + $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)",
			txn.InmateID, txn.TotalAmount, now); err != nil {
			return nil, fmt.Errorf("re-credit withdrawal: %w", err)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot reverse %s transaction", txn.Type))
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET status = $2, reversed_at = $3 WHERE id = $1",
		txn.ID, models.TransactionStatusReversed, now); err != nil {
		return nil, fmt.Errorf("mark reversed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reverse tx: %w", err)
	}

	txn.Status = models.TransactionStatusReversed
	txn.ReversedAt = &now
	return &txn, nil
}

func (r *TransactionRepository) insertTx(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error {
	const query = `INSERT INTO transactions (id, type, inmate_id, total_amount, products, deposit_type, relationship_id, remarks, status, created_by, reversed_at, created_at)
        VALUES (:id, :type, :inmate_id, :total_amount, :products, :deposit_type, :relationship_id, :remarks, :status, :created_by, :reversed_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, txn); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// FindByID fetches a single ledger row.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE id = $1 LIMIT 1", transactionColumns)
	var txn models.Transaction
	if err := r.db.GetContext(ctx, &txn, query, id); err != nil {
		return nil, err
	}
	return &txn, nil
}

// List returns ledger rows matching the filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.InmateID != "" {
		conditions = append(conditions, fmt.Sprintf("UPPER(inmate_id) = UPPER($%d)", len(args)+1))
		args = append(args, filter.InmateID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(inmate_id) LIKE $%d OR LOWER(remarks) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if cutoff, ok := rangeCutoff(filter.Range, time.Now().UTC()); ok {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, cutoff)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", transactionColumns, where, size, offset)
	var txns []models.Transaction
	if err := r.db.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	return txns, total, nil
}

// ListByInmate returns an inmate's transaction history, newest first.
func (r *TransactionRepository) ListByInmate(ctx context.Context, inmateID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE UPPER(inmate_id) = UPPER($1) ORDER BY created_at DESC LIMIT %d", transactionColumns, limit)
	var txns []models.Transaction
	if err := r.db.SelectContext(ctx, &txns, query, inmateID); err != nil {
		return nil, fmt.Errorf("list inmate transactions: %w", err)
	}
	return txns, nil
}

// SumDepositsSince totals completed deposits for an inmate from the cutoff.
// Deposit-limit enforcement reads this.
func (r *TransactionRepository) SumDepositsSince(ctx context.Context, inmateID string, since time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(total_amount), 0) FROM transactions
        WHERE UPPER(inmate_id) = UPPER($1) AND type = $2 AND status = $3 AND created_at >= $4`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, inmateID, models.TransactionTypeDeposit, models.TransactionStatusCompleted, since); err != nil {
		return 0, fmt.Errorf("sum deposits: %w", err)
	}
	return total, nil
}

// SumPurchasesSince totals completed purchases for an inmate from the cutoff.
// Spend-limit enforcement reads this.
func (r *TransactionRepository) SumPurchasesSince(ctx context.Context, inmateID string, since time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(total_amount), 0) FROM transactions
        WHERE UPPER(inmate_id) = UPPER($1) AND type = $2 AND status = $3 AND created_at >= $4`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, inmateID, models.TransactionTypePurchase, models.TransactionStatusCompleted, since); err != nil {
		return 0, fmt.Errorf("sum purchases: %w", err)
	}
	return total, nil
}

// Summary aggregates ledger activity per day per type within the range.
func (r *TransactionRepository) Summary(ctx context.Context, rng models.ReportRange) ([]models.TransactionSummaryRow, error) {
	conditions := []string{"status = $1"}
	args := []interface{}{models.TransactionStatusCompleted}
	if rng.StartDate != nil && rng.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, *rng.StartDate, *rng.EndDate)
	}
	query := fmt.Sprintf(`SELECT DATE_TRUNC('day', created_at) AS day, type, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount
        FROM transactions WHERE %s GROUP BY day, type ORDER BY day DESC, type ASC`, strings.Join(conditions, " AND "))
	var rows []models.TransactionSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("transaction summary: %w", err)
	}
	return rows, nil
}

// CompletedPurchases returns completed purchase rows within the range, for
// per-item sales aggregation over the JSONB product lines.
func (r *TransactionRepository) CompletedPurchases(ctx context.Context, rng models.ReportRange) ([]models.Transaction, error) {
	conditions := []string{"type = $1", "status = $2"}
	args := []interface{}{models.TransactionTypePurchase, models.TransactionStatusCompleted}
	if rng.StartDate != nil && rng.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, *rng.StartDate, *rng.EndDate)
	}
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY created_at ASC", transactionColumns, strings.Join(conditions, " AND "))
	var txns []models.Transaction
	if err := r.db.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, fmt.Errorf("load completed purchases: %w", err)
	}
	return txns, nil
}

// DashboardStats computes the aggregate snapshot in one pass per table.
func (r *TransactionRepository) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats

	const inmateQuery = `SELECT COUNT(*) AS total_inmates,
        COUNT(*) FILTER (WHERE status = $1) AS active_inmates,
        COALESCE(SUM(balance), 0) AS total_balance FROM inmates`
	if err := r.db.GetContext(ctx, &stats, inmateQuery, models.InmateStatusActive); err != nil {
		return nil, fmt.Errorf("inmate stats: %w", err)
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	const todayQuery = `SELECT
        COALESCE(SUM(total_amount) FILTER (WHERE type = $1), 0) AS sales_today,
        COALESCE(SUM(total_amount) FILTER (WHERE type = $2), 0) AS deposits_today,
        COUNT(*) AS transactions_today
        FROM transactions WHERE status = $3 AND created_at >= $4`
	var today struct {
		SalesToday        float64 `db:"sales_today"`
		DepositsToday     float64 `db:"deposits_today"`
		TransactionsToday int     `db:"transactions_today"`
	}
	if err := r.db.GetContext(ctx, &today, todayQuery, models.TransactionTypePurchase, models.TransactionTypeDeposit, models.TransactionStatusCompleted, startOfDay); err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	stats.SalesToday = today.SalesToday
	stats.DepositsToday = today.DepositsToday
	stats.TransactionsToday = today.TransactionsToday

	const stockQuery = `SELECT COUNT(*) FROM canteen_items WHERE status = $1 AND stock_quantity <= 10`
	if err := r.db.GetContext(ctx, &stats.LowStockItems, stockQuery, models.ItemStatusActive); err != nil {
		return nil, fmt.Errorf("low stock stats: %w", err)
	}

	return &stats, nil
}

// rangeCutoff maps the named filter range onto a start time.
func rangeCutoff(name string, now time.Time) (time.Time, bool) {
	switch name {
	case "daily":
		return now.Truncate(24 * time.Hour), true
	case "weekly":
		return now.AddDate(0, 0, -7), true
	case "monthly":
		return now.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}
