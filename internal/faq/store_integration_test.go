//go:build integration

package faq_test

import (
	"context"
	"math"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/resolvd/resolvd/internal/faq"
	"github.com/resolvd/resolvd/internal/testutil"
)

const dim = 384

// basisVec returns the unit vector along axis i, so cosine similarity
// between distinct basis vectors is exactly 0.
func basisVec(i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

// mixVec returns the normalized sum of two basis vectors; its cosine
// similarity with either component is 1/sqrt(2).
func mixVec(i, j int) []float32 {
	v := make([]float32, dim)
	c := float32(1 / math.Sqrt2)
	v[i] = c
	v[j] = c
	return v
}

func insertPassage(t *testing.T, tdb *testutil.TestDB, question, answer string, embedding []float32) {
	t.Helper()
	_, err := tdb.Pool.Exec(context.Background(),
		`INSERT INTO faq (question, answer, embedding) VALUES ($1, $2, $3)`,
		question, answer, pgvector.NewVector(embedding))
	if err != nil {
		t.Fatalf("inserting passage: %v", err)
	}
}

func TestSearchSimilar(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := faq.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	insertPassage(t, tdb, "How do I reset my password?", "Use the reset link.", basisVec(0))
	insertPassage(t, tdb, "Why was I signed out?", "Sessions expire.", mixVec(0, 1))
	insertPassage(t, tdb, "How do refunds work?", "Within 14 days.", basisVec(1))

	ctx := context.Background()

	got, err := store.SearchSimilar(ctx, basisVec(0), 8, 0.15)
	if err != nil {
		t.Fatalf("SearchSimilar: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d passages, want 2 (floor should exclude the orthogonal one): %+v", len(got), got)
	}
	if got[0].Question != "How do I reset my password?" {
		t.Errorf("best match = %q", got[0].Question)
	}
	if got[0].Similarity < 0.99 {
		t.Errorf("best similarity = %v, want ~1", got[0].Similarity)
	}
	if math.Abs(got[1].Similarity-1/math.Sqrt2) > 0.01 {
		t.Errorf("second similarity = %v, want ~0.707", got[1].Similarity)
	}

	limited, err := store.SearchSimilar(ctx, basisVec(0), 1, 0.15)
	if err != nil {
		t.Fatalf("SearchSimilar with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d passages with limit 1", len(limited))
	}

	if _, err := store.SearchSimilar(ctx, basisVec(0), 0, 0.15); err == nil {
		t.Error("expected error for non-positive limit")
	}
}

func TestCount(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := faq.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ctx := context.Background()
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count = %d on empty table", n)
	}

	insertPassage(t, tdb, "q", "a", basisVec(2))
	n, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
