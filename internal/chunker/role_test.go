package chunker

import (
	"reflect"
	"testing"
)

func TestRoleGroups(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "a"},
		{Role: "user", Content: "b"},
		{Role: "assistant", Content: "c"},
		{Role: "user", Content: "d"},
	}

	groups := roleGroups(msgs)

	var sizes []int
	for _, g := range groups {
		sizes = append(sizes, len(g))
	}
	if !reflect.DeepEqual(sizes, []int{2, 1, 1}) {
		t.Errorf("group sizes = %v, want [2 1 1]", sizes)
	}
	if len(roleGroups(nil)) != 0 {
		t.Error("expected no groups for no messages")
	}
}

func TestPackByRole_AlternatingRoles(t *testing.T) {
	conv := Conversation{ID: "c1", Messages: []Message{
		{Role: "user", Content: "hello"},
		{Role: "user", Content: "are you there"},
		{Role: "assistant", Content: "yes"},
		{Role: "user", Content: "thanks"},
	}}

	chunks := PackByRole([]Conversation{conv}, 10000)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	parts := chunks[0].Conversations
	wantSizes := []int{2, 1, 1}
	wantRoles := []string{"user", "assistant", "user"}
	if len(parts) != len(wantSizes) {
		t.Fatalf("expected %d role groups, got %d", len(wantSizes), len(parts))
	}
	total := 0
	for i, part := range parts {
		if len(part.Messages) != wantSizes[i] {
			t.Errorf("group %d: expected %d messages, got %d", i, wantSizes[i], len(part.Messages))
		}
		if part.Messages[0].Role != wantRoles[i] {
			t.Errorf("group %d: role = %q, want %q", i, part.Messages[0].Role, wantRoles[i])
		}
		if !part.ChunkedByRole {
			t.Errorf("group %d: expected _chunked_by_role marker", i)
		}
		total += ConversationTokens(part)
	}
	if chunks[0].TokenCount != total {
		t.Errorf("token_count = %d, want sum of partials %d", chunks[0].TokenCount, total)
	}
	if chunks[0].Strategy != StrategyRole {
		t.Errorf("strategy = %s, want role", chunks[0].Strategy)
	}
}

func TestPackByRole_GroupsSpanConversations(t *testing.T) {
	convs := []Conversation{
		{ID: "a", Messages: []Message{{Role: "user", Content: "q1"}, {Role: "assistant", Content: "a1"}}},
		{ID: "b", Messages: []Message{{Role: "user", Content: "q2"}, {Role: "assistant", Content: "a2"}}},
	}

	chunks := PackByRole(convs, 10000)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	var order []string
	for _, part := range chunks[0].Conversations {
		order = append(order, part.ID+":"+part.Messages[0].Content)
	}
	want := []string{"a:q1", "a:a1", "b:q2", "b:a2"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestPackByRole_StartsNewChunkWhenFull(t *testing.T) {
	conv := Conversation{ID: "c", Messages: []Message{
		msgWithCost(t, "user", 400),
		msgWithCost(t, "assistant", 400),
		msgWithCost(t, "user", 400),
	}}

	chunks := PackByRole([]Conversation{conv}, 1000)

	// Each group costs a little over 400 once wrapped, so two fit per chunk.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Conversations) != 2 || len(chunks[1].Conversations) != 1 {
		t.Errorf("unexpected layout: %d + %d groups", len(chunks[0].Conversations), len(chunks[1].Conversations))
	}
	if err := CheckBudget(chunks, 1000); err != nil {
		t.Error(err)
	}
}

func TestPackByRole_SplitsOversizedGroupAfterFlushing(t *testing.T) {
	conv := Conversation{ID: "c", Messages: []Message{
		{Role: "user", Content: "short question"},
		msgWithCost(t, "assistant", 500),
		msgWithCost(t, "assistant", 500),
		msgWithCost(t, "assistant", 500),
		{Role: "user", Content: "thanks"},
	}}

	chunks := PackByRole([]Conversation{conv}, 1000)

	// [user] flushed, assistant run split into [2][1], then [user].
	var sizes []int
	for _, ch := range chunks {
		if len(ch.Conversations) != 1 {
			t.Fatalf("expected one partial per chunk, got %d", len(ch.Conversations))
		}
		if !ch.Conversations[0].ChunkedByRole {
			t.Error("expected _chunked_by_role marker on every partial")
		}
		sizes = append(sizes, len(ch.Conversations[0].Messages))
	}
	if !reflect.DeepEqual(sizes, []int{1, 2, 1, 1}) {
		t.Errorf("message counts = %v, want [1 2 1 1]", sizes)
	}
	if chunks[1].TokenCount != 1000 || chunks[2].TokenCount != 500 {
		t.Errorf("split token counts = %d, %d, want 1000, 500", chunks[1].TokenCount, chunks[2].TokenCount)
	}
}

func TestPackByRole_SkipsConversationsWithoutMessages(t *testing.T) {
	convs := []Conversation{
		{ID: "empty"},
		{ID: "b", Messages: []Message{{Role: "user", Content: "hi"}}},
	}

	chunks := PackByRole(convs, 1000)

	if len(chunks) != 1 || len(chunks[0].Conversations) != 1 {
		t.Fatalf("expected a single partial, got %+v", chunks)
	}
	if chunks[0].Conversations[0].ID != "b" {
		t.Errorf("expected conversation b, got %q", chunks[0].Conversations[0].ID)
	}
}
