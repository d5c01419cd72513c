package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// CatalogPostgres reads the records chat depends on but does not own:
// weddings, vendor services and profiles
type CatalogPostgres struct {
	pool *pgxpool.Pool
}

// NewCatalogPostgres creates a new PostgreSQL catalog repository
func NewCatalogPostgres(pool *pgxpool.Pool) *CatalogPostgres {
	return &CatalogPostgres{pool: pool}
}

// GetWeddingByCouple returns the couple's wedding; it returns nil when none exists
func (r *CatalogPostgres) GetWeddingByCouple(ctx context.Context, coupleID string) (*entity.Wedding, error) {
	query := `
		SELECT id, couple_id, wedding_date, created_at
		FROM weddings
		WHERE couple_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var w entity.Wedding
	err := r.pool.QueryRow(ctx, query, coupleID).Scan(&w.ID, &w.CoupleID, &w.Date, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning wedding: %w", err)
	}
	return &w, nil
}

// GetService returns a vendor service with its current packages
func (r *CatalogPostgres) GetService(ctx context.Context, id string) (*entity.VendorService, error) {
	query := `
		SELECT id, vendor_id, name, category, packages
		FROM vendor_services
		WHERE id = $1
	`

	var s entity.VendorService
	var packages []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.VendorID, &s.Name, &s.Category, &packages)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning service: %w", err)
	}

	if err := unmarshalJSON(packages, &s.Packages); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetProfile returns a user's display profile
func (r *CatalogPostgres) GetProfile(ctx context.Context, id string) (*entity.Profile, error) {
	query := `
		SELECT id, role, display_name, COALESCE(avatar_url, ''), COALESCE(category, '')
		FROM profiles
		WHERE id = $1
	`

	var p entity.Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Role, &p.DisplayName, &p.AvatarURL, &p.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile: %w", err)
	}
	return &p, nil
}

// UpdateAvatar sets the avatar URL of a profile
func (r *CatalogPostgres) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET avatar_url = $2 WHERE id = $1`, userID, avatarURL)
	if err != nil {
		return fmt.Errorf("updating avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrProfileNotFound
	}
	return nil
}
