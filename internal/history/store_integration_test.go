//go:build integration

package history_test

import (
	"context"
	"testing"

	"github.com/resolvd/resolvd/internal/history"
	"github.com/resolvd/resolvd/internal/testutil"
)

func TestConversationRoundTrip(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := history.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ctx := context.Background()
	id, err := store.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	turns := []history.Message{
		{Role: history.RoleUser, Content: "my export fails"},
		{Role: history.RoleAssistant, Content: "which format?"},
		{Role: history.RoleUser, Content: "CSV"},
	}
	for _, m := range turns {
		if err := store.AppendMessage(ctx, id, m); err != nil {
			t.Fatalf("AppendMessage(%+v): %v", m, err)
		}
	}

	got, err := store.LoadMessages(ctx, id)
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("loaded %d messages, want %d", len(got), len(turns))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], turns[i])
		}
	}
}

func TestAppendMessageInvalidRole(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := history.NewStore(tdb.Pool, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ctx := context.Background()
	id, err := store.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	err = store.AppendMessage(ctx, id, history.Message{Role: "system", Content: "x"})
	if err == nil {
		t.Error("expected error for invalid role")
	}
}
