//go:build integration

package ticket_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/resolvd/resolvd/internal/history"
	"github.com/resolvd/resolvd/internal/testutil"
	"github.com/resolvd/resolvd/internal/ticket"
)

func TestInsert(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	conv, err := history.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("history.NewStore: %v", err)
	}
	conversationID, err := conv.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	store, err := ticket.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	draft := ticket.Draft{
		Title:       "Refund request",
		Summary:     "Issue: Refund request\nSeverity: high\nEnvironment: ios",
		Severity:    "high",
		Environment: "ios",
		FAQRefs:     []int64{135, 209},
	}

	id, err := store.Insert(ctx, conversationID, draft)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	var (
		status string
		refs   []int64
	)
	err = tdb.Pool.QueryRow(ctx,
		`SELECT status, faq_refs FROM tickets WHERE id = $1`, id).Scan(&status, &refs)
	if err != nil {
		t.Fatalf("reading ticket back: %v", err)
	}
	if status != "new" {
		t.Errorf("status = %q, want new", status)
	}
	if !reflect.DeepEqual(refs, draft.FAQRefs) {
		t.Errorf("faq_refs = %v, want %v", refs, draft.FAQRefs)
	}
}

func TestInsertNoRefs(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	conv, err := history.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("history.NewStore: %v", err)
	}
	conversationID, err := conv.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	store, err := ticket.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	id, err := store.Insert(ctx, conversationID, ticket.Draft{
		Title:       "Support request",
		Summary:     "Issue: Support request",
		Severity:    "normal",
		Environment: "unknown",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var refs []int64
	if err := tdb.Pool.QueryRow(ctx,
		`SELECT faq_refs FROM tickets WHERE id = $1`, id).Scan(&refs); err != nil {
		t.Fatalf("reading ticket back: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("faq_refs = %v, want empty", refs)
	}
}
