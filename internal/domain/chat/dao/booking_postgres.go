package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// BookingPostgres implements booking repository for PostgreSQL
type BookingPostgres struct {
	pool *pgxpool.Pool
}

// NewBookingPostgres creates a new PostgreSQL booking repository
func NewBookingPostgres(pool *pgxpool.Pool) *BookingPostgres {
	return &BookingPostgres{pool: pool}
}

// GetByWeddingAndService retrieves the booking of a (wedding, service) pair;
// it returns nil when none exists
func (r *BookingPostgres) GetByWeddingAndService(ctx context.Context, weddingID, serviceID string) (*entity.Booking, error) {
	query := `
		SELECT id, wedding_id, service_id, vendor_id, status, event_date, total_price,
		       deposit_paid, notes, selected_packages, created_at, updated_at
		FROM bookings
		WHERE wedding_id = $1 AND service_id = $2
	`

	var b entity.Booking
	var packages []byte
	err := r.pool.QueryRow(ctx, query, weddingID, serviceID).Scan(
		&b.ID,
		&b.WeddingID,
		&b.ServiceID,
		&b.VendorID,
		&b.Status,
		&b.EventDate,
		&b.TotalPrice,
		&b.DepositPaid,
		&b.Notes,
		&packages,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning booking: %w", err)
	}

	if err := unmarshalJSON(packages, &b.SelectedPackages); err != nil {
		return nil, err
	}

	return &b, nil
}

// upsertPendingBooking creates the booking of a freshly sent offer. An existing
// booking for the pair keeps its id, deposit and notes; status, date and price
// are overwritten so the latest offer wins.
func upsertPendingBooking(ctx context.Context, q querier, b *entity.Booking) error {
	packages, err := marshalJSON(b.SelectedPackages)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = q.Exec(ctx, `
		INSERT INTO bookings (
			id, wedding_id, service_id, vendor_id, status, event_date, total_price,
			deposit_paid, notes, selected_packages, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, '', $8, $9, $9)
		ON CONFLICT (wedding_id, service_id) DO UPDATE SET
			status = EXCLUDED.status,
			event_date = EXCLUDED.event_date,
			total_price = EXCLUDED.total_price,
			updated_at = EXCLUDED.updated_at
	`,
		b.ID,
		b.WeddingID,
		b.ServiceID,
		b.VendorID,
		b.Status,
		b.EventDate,
		b.TotalPrice,
		packages,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting pending booking: %w", err)
	}
	return nil
}

// saveBooking writes every field of a booking keyed by (wedding, service)
func saveBooking(ctx context.Context, q querier, b *entity.Booking) error {
	packages, err := marshalJSON(b.SelectedPackages)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = q.Exec(ctx, `
		INSERT INTO bookings (
			id, wedding_id, service_id, vendor_id, status, event_date, total_price,
			deposit_paid, notes, selected_packages, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (wedding_id, service_id) DO UPDATE SET
			vendor_id = EXCLUDED.vendor_id,
			status = EXCLUDED.status,
			event_date = EXCLUDED.event_date,
			total_price = EXCLUDED.total_price,
			deposit_paid = EXCLUDED.deposit_paid,
			notes = EXCLUDED.notes,
			selected_packages = EXCLUDED.selected_packages,
			updated_at = EXCLUDED.updated_at
	`,
		b.ID,
		b.WeddingID,
		b.ServiceID,
		b.VendorID,
		b.Status,
		b.EventDate,
		b.TotalPrice,
		b.DepositPaid,
		b.Notes,
		packages,
		now,
	)
	if err != nil {
		return fmt.Errorf("saving booking: %w", err)
	}
	return nil
}
