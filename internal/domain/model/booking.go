package model

import (
	"sort"
	"time"
)

type BookingStatus string

const (
	BookingStatusOpen      BookingStatus = "open"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a scheduled court reservation. It is owned by the booking
// subsystem; this service only reads it.
type Booking struct {
	ID           string
	Title        string
	LocationID   string
	LocationName string
	StartsAt     time.Time
	EndsAt       time.Time
	Capacity     int
	Status       BookingStatus
}

func (b *Booking) IsCancelled() bool { return b.Status == BookingStatusCancelled }

// Registration is a user's claim on a slot within a booking.
type Registration struct {
	ID          string
	BookingID   string
	UserID      string
	DisplayName string
	CreatedAt   time.Time
}

// BookingSnapshot is a consistent read of a booking and its registrations.
type BookingSnapshot struct {
	Booking       Booking
	Registrations []Registration
}

// OrderedRegistrations returns a copy of the registrations in first-come
// order: CreatedAt ascending, ties broken by ID ascending.
func (s *BookingSnapshot) OrderedRegistrations() []Registration {
	out := make([]Registration, len(s.Registrations))
	copy(out, s.Registrations)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
