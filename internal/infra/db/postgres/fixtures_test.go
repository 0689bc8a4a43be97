//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"
)

func seedBooking(t *testing.T, id, status string, capacity int) {
	t.Helper()
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `INSERT INTO locations (id, name) VALUES ('loc-1', 'Club Norte') ON CONFLICT DO NOTHING;`)
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	_, err = testPool.Exec(ctx, `
INSERT INTO bookings (id, title, location_id, starts_at, ends_at, capacity, status)
VALUES ($1, 'Evening doubles', 'loc-1', $2, $3, $4, $5);`,
		id, time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC), time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC), capacity, status)
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func seedRegistration(t *testing.T, id, bookingID, userID, name string, at time.Time) {
	t.Helper()
	ctx := context.Background()
	if _, err := testPool.Exec(ctx, `INSERT INTO users (id, display_name) VALUES ($1, $2) ON CONFLICT DO NOTHING;`, userID, name); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := testPool.Exec(ctx, `INSERT INTO registrations (id, booking_id, user_id, created_at) VALUES ($1, $2, $3, $4);`,
		id, bookingID, userID, at); err != nil {
		t.Fatalf("seed registration: %v", err)
	}
}
