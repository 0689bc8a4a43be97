package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/config"
	pg "padel-telegram-notifier/internal/infra/db/postgres"
	"padel-telegram-notifier/internal/infra/logging"
)

// Seeds one open booking with more players than courts allow, so a local
// reconcile shows both the roster and the waiting list.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	bookingID := flag.String("booking", "demo-booking", "id of the booking to create")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, *bookingID).Scan(&exists); err != nil {
		logger.Fatal().Err(err).Msg("check booking")
	}
	if exists {
		fmt.Printf("booking %s already present. No changes.\n", *bookingID)
		return
	}

	players := []string{"Ana", "Bruno", "Carla", "Diego", "Elena"}
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	err = pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO locations (id, name) VALUES ('club-centro', 'Club Centro · Court 3') ON CONFLICT DO NOTHING`); err != nil {
			return fmt.Errorf("location: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO bookings (id, title, location_id, starts_at, ends_at, capacity, status)
VALUES ($1, 'Friday evening doubles', 'club-centro', $2, $3, 4, 'open')`,
			*bookingID, start, start.Add(90*time.Minute)); err != nil {
			return fmt.Errorf("booking: %w", err)
		}
		for i, name := range players {
			userID := "demo-" + name
			if _, err := tx.Exec(ctx, `INSERT INTO users (id, display_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, name); err != nil {
				return fmt.Errorf("user %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO registrations (id, booking_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
				uuid.NewString(), *bookingID, userID, time.Now().Add(time.Duration(i)*time.Minute)); err != nil {
				return fmt.Errorf("registration %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	fmt.Printf("seeded booking %s with %d players (capacity 4)\n", *bookingID, len(players))
	fmt.Printf("sync it with: curl -X POST localhost:%d/api/bookings/%s/sync\n", cfg.HTTP.Port, *bookingID)
}
