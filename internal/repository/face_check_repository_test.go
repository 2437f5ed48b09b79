package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/hasface/internal/logging"
)

func newTestRepository(t *testing.T) *FaceCheckRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := NewFaceCheckRepository(db, zap.NewNop())
	if err := repo.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return repo
}

func TestSaveAndFindCheck(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	check := &FaceCheck{
		RequestID: "req-1",
		Subject:   "user-1",
		ImagePath: "uploads/user-1/a.jpeg",
		Outcome:   OutcomeNoFace,
		Details:   "avatar: no_face",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.SaveCheck(ctx, check); err != nil {
		t.Fatalf("SaveCheck error: %v", err)
	}

	got, err := repo.FindCheck(ctx, "req-1", "user-1")
	if err != nil {
		t.Fatalf("FindCheck error: %v", err)
	}
	if got.Outcome != OutcomeNoFace || got.ImagePath != check.ImagePath {
		t.Fatalf("unexpected check: %+v", got)
	}

	if _, err := repo.FindCheck(ctx, "req-1", "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another subject, got %v", err)
	}
}

func TestSaveCheckDuplicateRequestID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if err := repo.SaveCheck(ctx, &FaceCheck{RequestID: "dup", Subject: "u", Outcome: OutcomeFace}); err != nil {
		t.Fatalf("SaveCheck error: %v", err)
	}
	err := repo.SaveCheck(ctx, &FaceCheck{RequestID: "dup", Subject: "u", Outcome: OutcomeFace})
	if err == nil {
		t.Fatal("expected unique constraint error")
	}

	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Op != "repository.save_check" || opErr.RequestID != "dup" {
		t.Fatalf("unexpected operation error: %+v", opErr)
	}
}

func TestSaveAvatarUpserts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if _, err := repo.FindProfile(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first, err := repo.SaveAvatar(ctx, "user-1", "uploads/a.jpeg")
	if err != nil {
		t.Fatalf("SaveAvatar error: %v", err)
	}
	second, err := repo.SaveAvatar(ctx, "user-1", "uploads/b.jpeg")
	if err != nil {
		t.Fatalf("SaveAvatar error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the same profile row, got %d and %d", first.ID, second.ID)
	}
	if second.AvatarPath != "uploads/b.jpeg" {
		t.Fatalf("expected avatar to be replaced, got %s", second.AvatarPath)
	}
}

func TestCountOutcomes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	outcomes := []string{OutcomeFace, OutcomeFace, OutcomeNoFace, OutcomeError}
	for i, outcome := range outcomes {
		check := &FaceCheck{RequestID: fmt.Sprintf("req-%d", i), Subject: "u", Outcome: outcome}
		if err := repo.SaveCheck(ctx, check); err != nil {
			t.Fatalf("SaveCheck error: %v", err)
		}
	}

	counts, err := repo.CountOutcomes(ctx)
	if err != nil {
		t.Fatalf("CountOutcomes error: %v", err)
	}
	if counts[OutcomeFace] != 2 || counts[OutcomeNoFace] != 1 || counts[OutcomeError] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if counts.Total() != 4 {
		t.Fatalf("expected total 4, got %d", counts.Total())
	}
}
