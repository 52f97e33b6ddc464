package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

// msgWithCost builds a message whose serialized form costs exactly tokens.
func msgWithCost(t *testing.T, role string, tokens int) Message {
	t.Helper()
	overhead := marshalLen(t, Message{Role: role})
	n := tokens*4 - overhead
	if n < 0 {
		t.Fatalf("cannot build a %d-token message for role %q", tokens, role)
	}
	return Message{Role: role, Content: strings.Repeat("a", n)}
}

// convWithCost builds a single-message conversation whose serialized form
// costs exactly tokens.
func convWithCost(t *testing.T, id string, tokens int) Conversation {
	t.Helper()
	return costed(t, Conversation{ID: id}, tokens)
}

// costed pads a single user message onto base so that the whole conversation
// costs exactly tokens.
func costed(t *testing.T, base Conversation, tokens int) Conversation {
	t.Helper()
	base.Messages = []Message{{Role: "user"}}
	n := tokens*4 - marshalLen(t, base)
	if n < 0 {
		t.Fatalf("cannot build a %d-token conversation %q", tokens, base.ID)
	}
	base.Messages[0].Content = strings.Repeat("a", n)
	return base
}

func marshalLen(t *testing.T, v any) int {
	t.Helper()
	data, err := marshalJSON(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return utf8.RuneCount(data)
}

// fixture returns a deterministic set of conversations with uneven sizes,
// alternating roles and the occasional same-role run.
func fixture(n int) []Conversation {
	convs := make([]Conversation, n)
	for i := 0; i < n; i++ {
		msgCount := 1 + (i*7)%9
		msgs := make([]Message, msgCount)
		for j := 0; j < msgCount; j++ {
			role := "user"
			if (i+j)%3 == 1 {
				role = "assistant"
			}
			size := 20 + ((i+1)*(j+3)*53)%900
			msgs[j] = Message{Role: role, Content: fmt.Sprintf("c%d-m%d %s", i, j, strings.Repeat("x", size))}
		}
		convs[i] = Conversation{
			ID:       fmt.Sprintf("conv-%d", i),
			Title:    fmt.Sprintf("topic %d notes", i%4),
			Messages: msgs,
		}
	}
	return convs
}

// flatten concatenates every message of every chunk in emitted order.
func flatten(chunks []Chunk) []Message {
	var out []Message
	for _, ch := range chunks {
		for _, conv := range ch.Conversations {
			out = append(out, conv.Messages...)
		}
	}
	return out
}

func allMessages(convs []Conversation) []Message {
	var out []Message
	for _, conv := range convs {
		out = append(out, conv.Messages...)
	}
	return out
}
