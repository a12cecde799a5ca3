package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
)

// LocationRepository manages persistence for facility locations.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository constructs a LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

const locationColumns = "id, name, location_name, base_url, custody_limits, created_at, updated_at"

// List returns all locations ordered by creation time.
func (r *LocationRepository) List(ctx context.Context) ([]models.Location, error) {
	query := fmt.Sprintf("SELECT %s FROM locations ORDER BY created_at ASC", locationColumns)
	var locations []models.Location
	if err := r.db.SelectContext(ctx, &locations, query); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

// FindByID fetches a location by id.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*models.Location, error) {
	query := fmt.Sprintf("SELECT %s FROM locations WHERE id = $1 LIMIT 1", locationColumns)
	var location models.Location
	if err := r.db.GetContext(ctx, &location, query, id); err != nil {
		return nil, err
	}
	return &location, nil
}

// Create inserts a new location.
func (r *LocationRepository) Create(ctx context.Context, location *models.Location) error {
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if location.CreatedAt.IsZero() {
		location.CreatedAt = now
	}
	location.UpdatedAt = now
	const query = `INSERT INTO locations (id, name, location_name, base_url, custody_limits, created_at, updated_at)
        VALUES (:id, :name, :location_name, :base_url, :custody_limits, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, location); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// Update modifies an existing location.
func (r *LocationRepository) Update(ctx context.Context, location *models.Location) error {
	location.UpdatedAt = time.Now().UTC()
	const query = `UPDATE locations SET name = :name, location_name = :location_name, base_url = :base_url, custody_limits = :custody_limits, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, location); err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

// Delete removes a location.
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM locations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}
