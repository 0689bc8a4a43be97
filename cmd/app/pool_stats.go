package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"padel-telegram-notifier/internal/infra/metrics"
)

func reportPoolStats(ctx context.Context, stat func() *pgxpool.Stat) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := stat()
			metrics.SetDBPoolConns(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		}
	}
}
