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
)

// InmateRepository manages persistence for inmate records. Balance is never
// written here; only transaction processing touches it.
type InmateRepository struct {
	db *sqlx.DB
}

// NewInmateRepository constructs an InmateRepository.
func NewInmateRepository(db *sqlx.DB) *InmateRepository {
	return &InmateRepository{db: db}
}

const inmateColumns = "id, inmate_id, first_name, last_name, status, custody_type, phone, cell_number, balance, blocked, face_descriptor, date_of_birth, admission_date, location_id, created_at, updated_at"

// List returns inmates matching the provided filters.
func (r *InmateRepository) List(ctx context.Context, filter models.InmateFilter) ([]models.Inmate, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(inmate_id) LIKE $%d OR LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf("SELECT %s FROM inmates WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", inmateColumns, where, size, offset)
	var inmates []models.Inmate
	if err := r.db.SelectContext(ctx, &inmates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inmates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM inmates WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count inmates: %w", err)
	}
	return inmates, total, nil
}

// FindByID fetches an inmate by internal id.
func (r *InmateRepository) FindByID(ctx context.Context, id string) (*models.Inmate, error) {
	query := fmt.Sprintf("SELECT %s FROM inmates WHERE id = $1 LIMIT 1", inmateColumns)
	var inmate models.Inmate
	if err := r.db.GetContext(ctx, &inmate, query, id); err != nil {
		return nil, err
	}
	return &inmate, nil
}

// FindByInmateID fetches an inmate by business key (exact match).
func (r *InmateRepository) FindByInmateID(ctx context.Context, inmateID string) (*models.Inmate, error) {
	query := fmt.Sprintf("SELECT %s FROM inmates WHERE UPPER(inmate_id) = UPPER($1) LIMIT 1", inmateColumns)
	var inmate models.Inmate
	if err := r.db.GetContext(ctx, &inmate, query, inmateID); err != nil {
		return nil, err
	}
	return &inmate, nil
}

// ExistsByInmateID checks if the business key is taken, optionally excluding an id.
func (r *InmateRepository) ExistsByInmateID(ctx context.Context, inmateID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM inmates WHERE UPPER(inmate_id) = UPPER($1)"
	args := []interface{}{inmateID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check inmate id: %w", err)
	}
	return true, nil
}

// Create inserts a new inmate record with a zero balance.
func (r *InmateRepository) Create(ctx context.Context, inmate *models.Inmate) error {
	if inmate.ID == "" {
		inmate.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inmate.CreatedAt.IsZero() {
		inmate.CreatedAt = now
	}
	inmate.UpdatedAt = now
	const query = `INSERT INTO inmates (id, inmate_id, first_name, last_name, status, custody_type, phone, cell_number, balance, blocked, face_descriptor, date_of_birth, admission_date, location_id, created_at, updated_at)
        VALUES (:id, :inmate_id, :first_name, :last_name, :status, :custody_type, :phone, :cell_number, :balance, :blocked, :face_descriptor, :date_of_birth, :admission_date, :location_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inmate); err != nil {
		return fmt.Errorf("create inmate: %w", err)
	}
	return nil
}

// Update modifies an existing inmate. Balance is intentionally excluded.
func (r *InmateRepository) Update(ctx context.Context, inmate *models.Inmate) error {
	inmate.UpdatedAt = time.Now().UTC()
	const query = `UPDATE inmates SET inmate_id = :inmate_id, first_name = :first_name, last_name = :last_name, status = :status, custody_type = :custody_type, phone = :phone, cell_number = :cell_number, blocked = :blocked, date_of_birth = :date_of_birth, admission_date = :admission_date, location_id = :location_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, inmate); err != nil {
		return fmt.Errorf("update inmate: %w", err)
	}
	return nil
}

// Delete removes an inmate record.
func (r *InmateRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM inmates WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete inmate: %w", err)
	}
	return nil
}

// SetFaceDescriptor stores the biometric credential for an inmate.
func (r *InmateRepository) SetFaceDescriptor(ctx context.Context, id string, descriptor models.Descriptor) error {
	const query = `UPDATE inmates SET face_descriptor = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, descriptor, time.Now().UTC()); err != nil {
		return fmt.Errorf("set face descriptor: %w", err)
	}
	return nil
}

// BalanceReport returns every inmate's balance line, ordered by business key.
func (r *InmateRepository) BalanceReport(ctx context.Context) ([]models.InmateBalanceRow, error) {
	const query = `SELECT inmate_id, first_name, last_name, custody_type, status, balance FROM inmates ORDER BY inmate_id ASC`
	var rows []models.InmateBalanceRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("inmate balance report: %w", err)
	}
	return rows, nil
}

// ListWithDescriptors returns inmates carrying a biometric credential.
func (r *InmateRepository) ListWithDescriptors(ctx context.Context) ([]models.Inmate, error) {
	query := fmt.Sprintf("SELECT %s FROM inmates WHERE face_descriptor IS NOT NULL", inmateColumns)
	var inmates []models.Inmate
	if err := r.db.SelectContext(ctx, &inmates, query); err != nil {
		return nil, fmt.Errorf("list inmates with descriptors: %w", err)
	}
	return inmates, nil
}
