package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/model"
	"padel-telegram-notifier/internal/domain/ports/repository"
)

var _ repository.BookingRepository = (*BookingRepo)(nil)

// BookingRepo reads bookings and registrations written by the booking subsystem.
type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

func (r *BookingRepo) GetSnapshot(ctx context.Context, tx repository.Tx, bookingID string) (*model.BookingSnapshot, error) {
	const qb = `
SELECT b.id, b.title, COALESCE(b.location_id, ''), COALESCE(l.name, ''),
       b.starts_at, b.ends_at, b.capacity, b.status
FROM bookings b
LEFT JOIN locations l ON l.id = b.location_id
WHERE b.id = $1;`
	row, err := pickRow(ctx, r.pool, tx, qb, bookingID)
	if err != nil {
		return nil, err
	}
	var (
		b      model.Booking
		endsAt *time.Time
		status string
	)
	if err := row.Scan(&b.ID, &b.Title, &b.LocationID, &b.LocationName, &b.StartsAt, &endsAt, &b.Capacity, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("%w: booking: %v", domain.ErrReadDatabaseRow, err)
	}
	if endsAt != nil {
		b.EndsAt = *endsAt
	}
	b.Status = model.BookingStatus(status)

	const qr = `
SELECT r.id, r.booking_id, r.user_id, COALESCE(u.display_name, ''), r.created_at
FROM registrations r
LEFT JOIN users u ON u.id = r.user_id
WHERE r.booking_id = $1
ORDER BY r.created_at, r.id;`
	rows, err := queryRows(ctx, r.pool, tx, qr, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	snap := &model.BookingSnapshot{Booking: b}
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.BookingID, &reg.UserID, &reg.DisplayName, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: registration: %v", domain.ErrReadDatabaseRow, err)
		}
		snap.Registrations = append(snap.Registrations, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return snap, nil
}
