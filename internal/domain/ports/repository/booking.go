package repository

import (
	"context"

	"padel-telegram-notifier/internal/domain/model"
)

// BookingRepository is the read side of the booking subsystem.
type BookingRepository interface {
	// GetSnapshot returns the booking with all of its registrations, or
	// domain.ErrBookingNotFound.
	GetSnapshot(ctx context.Context, tx Tx, bookingID string) (*model.BookingSnapshot, error)
}
