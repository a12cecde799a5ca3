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

// InventoryRepository owns both stock tiers. Keeping them behind one
// repository lets a transfer debit the store tier and credit the canteen
// tier inside a single database transaction, which is the invariant that
// canteen stock only appears through direct creation or a store debit.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs an InventoryRepository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const canteenColumns = "id, item_no, item_name, price, stock_quantity, category, status, created_at, updated_at"
const receiptColumns = "id, date, invoice_no, vendor_name, vendor_value, gate_pass_number, status, created_at, updated_at"
const storeItemColumns = "id, receipt_id, item_no, item_name, stock, selling_price, category, status, created_at, updated_at"

// ListCanteen returns canteen items matching the filter.
func (r *InventoryRepository) ListCanteen(ctx context.Context, filter models.InventoryFilter) ([]models.CanteenItem, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(item_name) LIKE $%d OR LOWER(item_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, *filter.StartDate, *filter.EndDate)
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

	query := fmt.Sprintf("SELECT %s FROM canteen_items WHERE %s ORDER BY item_name ASC LIMIT %d OFFSET %d", canteenColumns, where, size, offset)
	var items []models.CanteenItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list canteen items: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM canteen_items WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count canteen items: %w", err)
	}
	return items, total, nil
}

// Catalog returns the POS-facing projection: active canteen items.
func (r *InventoryRepository) Catalog(ctx context.Context) ([]models.CanteenItem, error) {
	query := fmt.Sprintf("SELECT %s FROM canteen_items WHERE status = $1 ORDER BY item_name ASC", canteenColumns)
	var items []models.CanteenItem
	if err := r.db.SelectContext(ctx, &items, query, models.ItemStatusActive); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return items, nil
}

// FindCanteenByID fetches a canteen item by id.
func (r *InventoryRepository) FindCanteenByID(ctx context.Context, id string) (*models.CanteenItem, error) {
	query := fmt.Sprintf("SELECT %s FROM canteen_items WHERE id = $1 LIMIT 1", canteenColumns)
	var item models.CanteenItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ExistsCanteenByItemNo checks if the business key is taken, optionally excluding an id.
func (r *InventoryRepository) ExistsCanteenByItemNo(ctx context.Context, itemNo, excludeID string) (bool, error) {
	query := "SELECT 1 FROM canteen_items WHERE item_no = $1"
	args := []interface{}{itemNo}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check item no: %w", err)
	}
	return true, nil
}

// CreateCanteen inserts a canteen item directly (the non-transfer path).
func (r *InventoryRepository) CreateCanteen(ctx context.Context, item *models.CanteenItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	const query = `INSERT INTO canteen_items (id, item_no, item_name, price, stock_quantity, category, status, created_at, updated_at)
        VALUES (:id, :item_no, :item_name, :price, :stock_quantity, :category, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create canteen item: %w", err)
	}
	return nil
}

// UpdateCanteen modifies an existing canteen item.
func (r *InventoryRepository) UpdateCanteen(ctx context.Context, item *models.CanteenItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE canteen_items SET item_no = :item_no, item_name = :item_name, price = :price, stock_quantity = :stock_quantity, category = :category, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update canteen item: %w", err)
	}
	return nil
}

// DeleteCanteen removes a canteen item.
func (r *InventoryRepository) DeleteCanteen(ctx context.Context, id string) error {
	const query = `DELETE FROM canteen_items WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete canteen item: %w", err)
	}
	return nil
}

// ListReceipts returns store receipts with their lines.
func (r *InventoryRepository) ListReceipts(ctx context.Context, filter models.InventoryFilter) ([]models.StoreReceipt, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(vendor_name) LIKE $%d OR LOWER(invoice_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("date BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, *filter.StartDate, *filter.EndDate)
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

	query := fmt.Sprintf("SELECT %s FROM store_receipts WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d", receiptColumns, where, size, offset)
	var receipts []models.StoreReceipt
	if err := r.db.SelectContext(ctx, &receipts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list store receipts: %w", err)
	}

	for i := range receipts {
		lines, err := r.receiptItems(ctx, receipts[i].ID)
		if err != nil {
			return nil, 0, err
		}
		receipts[i].Items = lines
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM store_receipts WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count store receipts: %w", err)
	}
	return receipts, total, nil
}

// FindReceiptByID fetches a receipt with its lines.
func (r *InventoryRepository) FindReceiptByID(ctx context.Context, id string) (*models.StoreReceipt, error) {
	query := fmt.Sprintf("SELECT %s FROM store_receipts WHERE id = $1 LIMIT 1", receiptColumns)
	var receipt models.StoreReceipt
	if err := r.db.GetContext(ctx, &receipt, query, id); err != nil {
		return nil, err
	}
	lines, err := r.receiptItems(ctx, receipt.ID)
	if err != nil {
		return nil, err
	}
	receipt.Items = lines
	return &receipt, nil
}

func (r *InventoryRepository) receiptItems(ctx context.Context, receiptID string) ([]models.StoreItem, error) {
	query := fmt.Sprintf("SELECT %s FROM store_items WHERE receipt_id = $1 ORDER BY item_name ASC", storeItemColumns)
	var items []models.StoreItem
	if err := r.db.SelectContext(ctx, &items, query, receiptID); err != nil {
		return nil, fmt.Errorf("load receipt items: %w", err)
	}
	return items, nil
}

// CreateReceipt inserts a store receipt and its lines atomically.
func (r *InventoryRepository) CreateReceipt(ctx context.Context, receipt *models.StoreReceipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}
	receipt.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const receiptQuery = `INSERT INTO store_receipts (id, date, invoice_no, vendor_name, vendor_value, gate_pass_number, status, created_at, updated_at)
        VALUES (:id, :date, :invoice_no, :vendor_name, :vendor_value, :gate_pass_number, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, receiptQuery, receipt); err != nil {
		return fmt.Errorf("create store receipt: %w", err)
	}

	for i := range receipt.Items {
		line := &receipt.Items[i]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		line.ReceiptID = receipt.ID
		line.CreatedAt = now
		line.UpdatedAt = now
		const lineQuery = `INSERT INTO store_items (id, receipt_id, item_no, item_name, stock, selling_price, category, status, created_at, updated_at)
            VALUES (:id, :receipt_id, :item_no, :item_name, :stock, :selling_price, :category, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, lineQuery, line); err != nil {
			return fmt.Errorf("create store item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receipt tx: %w", err)
	}
	return nil
}

// UpdateReceipt replaces a receipt header and its lines atomically.
func (r *InventoryRepository) UpdateReceipt(ctx context.Context, receipt *models.StoreReceipt) error {
	now := time.Now().UTC()
	receipt.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const receiptQuery = `UPDATE store_receipts SET date = :date, invoice_no = :invoice_no, vendor_name = :vendor_name, vendor_value = :vendor_value, gate_pass_number = :gate_pass_number, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, receiptQuery, receipt); err != nil {
		return fmt.Errorf("update store receipt: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM store_items WHERE receipt_id = $1", receipt.ID); err != nil {
		return fmt.Errorf("clear receipt items: %w", err)
	}

	for i := range receipt.Items {
		line := &receipt.Items[i]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		line.ReceiptID = receipt.ID
		if line.CreatedAt.IsZero() {
			line.CreatedAt = now
		}
		line.UpdatedAt = now
		const lineQuery = `INSERT INTO store_items (id, receipt_id, item_no, item_name, stock, selling_price, category, status, created_at, updated_at)
            VALUES (:id, :receipt_id, :item_no, :item_name, :stock, :selling_price, :category, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, lineQuery, line); err != nil {
			return fmt.Errorf("create store item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receipt tx: %w", err)
	}
	return nil
}

// DeleteReceipt removes a receipt and its lines.
func (r *InventoryRepository) DeleteReceipt(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM store_items WHERE receipt_id = $1", id); err != nil {
		return fmt.Errorf("delete receipt items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM store_receipts WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete store receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receipt tx: %w", err)
	}
	return nil
}

// Transfer moves quantity from store stock into canteen stock for the given
// itemNo. Store lines are debited oldest first; the canteen item is credited,
// or created from the store line metadata when it does not exist yet. The
// whole movement is one database transaction.
func (r *InventoryRepository) Transfer(ctx context.Context, itemNo string, qty int) error {
	if qty <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "transfer quantity must be positive")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf("SELECT %s FROM store_items WHERE item_no = $1 AND stock > 0 ORDER BY created_at ASC FOR UPDATE", storeItemColumns)
	var lines []models.StoreItem
	if err := tx.SelectContext(ctx, &lines, query, itemNo); err != nil {
		return fmt.Errorf("load store lines: %w", err)
	}

	available := 0
	for _, line := range lines {
		available += line.Stock
	}
	if available < qty {
		return appErrors.Clone(appErrors.ErrOutOfStock, fmt.Sprintf("store stock for %s is %d, requested %d", itemNo, available, qty))
	}

	now := time.Now().UTC()
	remaining := qty
	for _, line := range lines {
		if remaining == 0 {
			break
		}
		take := line.Stock
		if take > remaining {
			take = remaining
		}
		if _, err := tx.ExecContext(ctx, "UPDATE store_items SET stock = stock - $2, updated_at = $3 WHERE id = $1", line.ID, take, now); err != nil {
			return fmt.Errorf("debit store line: %w", err)
		}
		remaining -= take
	}

	res, err := tx.ExecContext(ctx, "UPDATE canteen_items SET stock_quantity = stock_quantity + $2, updated_at = $3 WHERE item_no = $1", itemNo, qty, now)
	if err != nil {
		return fmt.Errorf("credit canteen stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit canteen stock: %w", err)
	}
	if affected == 0 {
		seed := lines[0]
		item := models.CanteenItem{
			ID:            uuid.NewString(),
			ItemNo:        itemNo,
			ItemName:      seed.ItemName,
			Price:         seed.SellingPrice,
			StockQuantity: qty,
			Category:      seed.Category,
			Status:        models.ItemStatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		const insertQuery = `INSERT INTO canteen_items (id, item_no, item_name, price, stock_quantity, category, status, created_at, updated_at)
            VALUES (:id, :item_no, :item_name, :price, :stock_quantity, :category, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, &item); err != nil {
			return fmt.Errorf("create canteen item from transfer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer tx: %w", err)
	}
	return nil
}
