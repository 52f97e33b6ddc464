package chunker

import "encoding/json"

// Message is a single turn in a conversation. Role is an open label;
// "user" and "assistant" are conventional but not enforced.
type Message struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// Conversation is a named, ordered sequence of messages. A conversation that
// had to be split is represented by derived copies carrying one of the marker
// flags; the input value itself is never modified.
type Conversation struct {
	ID            string          `json:"id,omitempty"`
	Title         string          `json:"title,omitempty"`
	CreateTime    json.RawMessage `json:"create_time,omitempty"`
	UpdateTime    json.RawMessage `json:"update_time,omitempty"`
	Messages      []Message       `json:"messages"`
	Chunked       bool            `json:"_chunked,omitempty"`
	ChunkedByRole bool            `json:"_chunked_by_role,omitempty"`
}

// Chunk is a token-budgeted group of conversations or partial conversations.
type Chunk struct {
	Conversations []Conversation `json:"conversations"`
	TokenCount    int            `json:"token_count"`
	Strategy      Strategy       `json:"chunk_strategy"`
}

// MessageCount returns the number of messages across every conversation in the chunk.
func (c Chunk) MessageCount() int {
	n := 0
	for _, conv := range c.Conversations {
		n += len(conv.Messages)
	}
	return n
}

// withMessages returns a copy of c holding its own copy of msgs.
func (c Conversation) withMessages(msgs []Message) Conversation {
	part := c
	part.Messages = make([]Message, len(msgs))
	copy(part.Messages, msgs)
	return part
}

// topic is the text used for topic similarity: the title when set, otherwise
// the first message's content.
func (c Conversation) topic() string {
	if c.Title != "" {
		return c.Title
	}
	if len(c.Messages) > 0 {
		return c.Messages[0].Content
	}
	return ""
}
