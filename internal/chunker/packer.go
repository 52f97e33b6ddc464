package chunker

// packer accumulates conversations into chunks for a single call. It is the
// shared machinery behind the size and role strategies.
type packer struct {
	est       Estimator
	strategy  Strategy
	maxTokens int

	chunks  []Chunk
	current []Conversation
	tokens  int
}

func newPacker(est Estimator, strategy Strategy, maxTokens int) *packer {
	return &packer{est: est, strategy: strategy, maxTokens: maxTokens}
}

// add appends conv to the open chunk, closing it first when conv would push
// it past the budget.
func (p *packer) add(conv Conversation, cost int) {
	if len(p.current) > 0 && p.tokens+cost > p.maxTokens {
		p.flush()
	}
	p.current = append(p.current, conv)
	p.tokens += cost
}

// flush closes the open chunk, if any.
func (p *packer) flush() {
	if len(p.current) == 0 {
		return
	}
	p.emit(p.current, p.tokens)
	p.current = nil
	p.tokens = 0
}

func (p *packer) emit(convs []Conversation, tokens int) {
	p.chunks = append(p.chunks, Chunk{
		Conversations: convs,
		TokenCount:    tokens,
		Strategy:      p.strategy,
	})
}

// split closes the open chunk and then breaks msgs into runs that fit the
// budget, emitting each run as a partial copy of base in a chunk of its own.
// Runs are costed per message. A message that alone exceeds the budget still
// becomes its own run. Partial chunks are never merged with neighbours.
func (p *packer) split(base Conversation, msgs []Message, mark func(*Conversation)) {
	p.flush()

	var run []Message
	tokens := 0
	closeRun := func() {
		part := base.withMessages(run)
		mark(&part)
		p.emit([]Conversation{part}, tokens)
		run = nil
		tokens = 0
	}

	for _, msg := range msgs {
		cost := costOf(p.est, msg)
		if len(run) > 0 && tokens+cost > p.maxTokens {
			closeRun()
		}
		run = append(run, msg)
		tokens += cost
	}
	if len(run) > 0 {
		closeRun()
	}
}

func (p *packer) result() []Chunk {
	p.flush()
	return p.chunks
}

func markChunked(c *Conversation)       { c.Chunked = true }
func markChunkedByRole(c *Conversation) { c.ChunkedByRole = true }
