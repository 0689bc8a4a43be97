//go:build !integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/ports/repository"
)

func TestGetExecutor(t *testing.T) {
	t.Run("should reject unknown handles", func(t *testing.T) {
		if _, err := getExecutor(nil, "not-a-tx"); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Fatalf("expected ErrInvalidExecContext, got %v", err)
		}
	})

	t.Run("should need a pool when no tx is given", func(t *testing.T) {
		if _, err := getExecutor(nil, repository.NoTX); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestMessageRecordRepo_LockNeedsTransaction(t *testing.T) {
	repo := NewMessageRecordRepo(nil)
	if err := repo.Lock(context.Background(), repository.NoTX, "B1"); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Fatalf("expected ErrInvalidExecContext, got %v", err)
	}
}
