package history

import (
	"reflect"
	"testing"
)

func TestMergeDedupAndOrder(t *testing.T) {
	primary := []Message{
		{Role: RoleUser, Content: "the app crashes on launch"},
		{Role: RoleAssistant, Content: "which device are you on?"},
	}
	secondary := []Message{
		{Role: RoleUser, Content: "the app crashes on launch"},
		{Role: RoleUser, Content: "iPhone 15, iOS 17"},
	}

	got := Merge(primary, secondary, DefaultMaxTurns)
	want := []Message{
		{Role: RoleUser, Content: "the app crashes on launch"},
		{Role: RoleAssistant, Content: "which device are you on?"},
		{Role: RoleUser, Content: "iPhone 15, iOS 17"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestMergeTrailingWhitespaceDup(t *testing.T) {
	primary := []Message{
		{Role: RoleUser, Content: "payment failed with code 402"},
	}
	secondary := []Message{
		{Role: RoleUser, Content: "payment failed with code 402   "},
	}

	got := Merge(primary, secondary, DefaultMaxTurns)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(got), got)
	}
	if got[0].Content != "payment failed with code 402" {
		t.Errorf("kept content = %q, want first occurrence", got[0].Content)
	}
}

func TestMergeSameContentDifferentRoles(t *testing.T) {
	primary := []Message{
		{Role: RoleUser, Content: "ok"},
		{Role: RoleAssistant, Content: "ok"},
	}

	got := Merge(primary, nil, DefaultMaxTurns)
	if len(got) != 2 {
		t.Errorf("len = %d, want 2: role is part of the dedup key", len(got))
	}
}

func TestMergeStripsTicketIntent(t *testing.T) {
	primary := []Message{
		{Role: RoleUser, Content: "my export keeps timing out"},
		{Role: RoleUser, Content: "please create a ticket for this"},
		{Role: RoleUser, Content: "Open A Ticket"},
		{Role: RoleUser, Content: "I want to escalate this"},
	}

	got := Merge(primary, nil, DefaultMaxTurns)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(got), got)
	}
	if got[0].Content != "my export keeps timing out" {
		t.Errorf("kept = %q", got[0].Content)
	}
}

func TestMergeTruncatesToLastMaxTurns(t *testing.T) {
	var primary []Message
	for i := 0; i < 10; i++ {
		primary = append(primary, Message{Role: RoleUser, Content: string(rune('a' + i))})
	}

	got := Merge(primary, nil, 4)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Content != "g" || got[3].Content != "j" {
		t.Errorf("kept wrong window: %+v", got)
	}
}

func TestMergeIdempotent(t *testing.T) {
	primary := []Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "a "},
		{Role: RoleUser, Content: "create a ticket"},
	}
	secondary := []Message{
		{Role: RoleUser, Content: "c"},
		{Role: RoleUser, Content: "a"},
	}

	once := Merge(primary, secondary, 3)
	twice := Merge(once, nil, 3)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	primary := []Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleUser, Content: "b"},
	}
	secondary := []Message{
		{Role: RoleUser, Content: "a"},
	}
	primaryCopy := append([]Message{}, primary...)
	secondaryCopy := append([]Message{}, secondary...)

	Merge(primary, secondary, 1)

	if !reflect.DeepEqual(primary, primaryCopy) {
		t.Error("primary mutated")
	}
	if !reflect.DeepEqual(secondary, secondaryCopy) {
		t.Error("secondary mutated")
	}
}

func TestIsTicketIntent(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"please open a ticket", true},
		{"can you raise a support ticket", true},
		{"file a ticket please", true},
		{"ESCALATE to a human", true},
		{"my ticket to the concert was refunded twice", false},
		{"the checkout page is broken", false},
	}
	for _, tt := range tests {
		if got := IsTicketIntent(tt.content); got != tt.want {
			t.Errorf("IsTicketIntent(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}
