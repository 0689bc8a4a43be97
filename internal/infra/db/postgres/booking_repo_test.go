//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/model"
)

func TestBookingRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewBookingRepo(testPool)

	t.Run("should load a booking with ordered registrations", func(t *testing.T) {
		cleanup(t)
		seedBooking(t, "B1", "open", 4)
		at := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
		seedRegistration(t, "r2", "B1", "u2", "Bruno", at)
		seedRegistration(t, "r1", "B1", "u1", "Ana", at)
		seedRegistration(t, "r0", "B1", "u3", "Carla", at.Add(time.Minute))

		snap, err := repo.GetSnapshot(ctx, nil, "B1")
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if snap.Booking.LocationName != "Club Norte" || snap.Booking.Capacity != 4 || snap.Booking.Status != model.BookingStatusOpen {
			t.Errorf("unexpected booking %+v", snap.Booking)
		}
		if snap.Booking.EndsAt.IsZero() {
			t.Error("ends_at should be loaded")
		}
		if len(snap.Registrations) != 3 {
			t.Fatalf("expected 3 registrations, got %d", len(snap.Registrations))
		}
		if snap.Registrations[0].ID != "r1" || snap.Registrations[1].ID != "r2" || snap.Registrations[2].DisplayName != "Carla" {
			t.Errorf("unexpected order %+v", snap.Registrations)
		}
	})

	t.Run("should report missing bookings", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.GetSnapshot(ctx, nil, "nope"); !errors.Is(err, domain.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})
}
