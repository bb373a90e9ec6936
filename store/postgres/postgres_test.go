//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	bgpostgres "github.com/ineyio/budgetguard/store/postgres"
)

func newTestStore(t *testing.T) *bgpostgres.Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	prefix := fmt.Sprintf("test_%d_", time.Now().UnixNano())
	s := bgpostgres.New(pool, bgpostgres.WithTablePrefix(prefix))
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %sspend", prefix))
	})
	return s
}

func TestIncrementAndBatchGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.Increment(ctx, "provider_spend:openai:1d", 2.5, time.Hour)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if v != 2.5 {
		t.Fatalf("expected 2.5, got %v", v)
	}

	v, err = s.Increment(ctx, "provider_spend:openai:1d", 1.5, time.Hour)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if v != 4 {
		t.Fatalf("expected 4, got %v", v)
	}

	got, err := s.BatchGet(ctx, []string{"provider_spend:openai:1d", "provider_spend:groq:1d"})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	if len(got) != 1 || got["provider_spend:openai:1d"] != 4 {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestWindowRotation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Increment(ctx, "k", 10, time.Second); err != nil {
		t.Fatalf("increment: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	// An expired row reads as absent.
	got, err := s.BatchGet(ctx, []string{"k"})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected expired key to be absent, got %v", got)
	}

	// The next increment starts a fresh window at delta.
	v, err := s.Increment(ctx, "k", 3, time.Hour)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if v != 3 {
		t.Fatalf("expected fresh window at 3, got %v", v)
	}
}
