package chunker

// PackBySize greedily packs whole conversations, in order, into chunks of at
// most maxTokens. A conversation that alone exceeds the budget closes the open
// chunk and is split message by message into partial copies marked _chunked,
// each emitted as its own chunk.
func PackBySize(convs []Conversation, maxTokens int) []Chunk {
	return packBySize(CharEstimator{}, convs, maxTokens)
}

func packBySize(est Estimator, convs []Conversation, maxTokens int) []Chunk {
	p := newPacker(est, StrategySize, maxTokens)

	for _, conv := range convs {
		cost := costOf(est, conv)
		switch {
		case cost > maxTokens && len(conv.Messages) > 0:
			p.split(conv, conv.Messages, markChunked)
		case cost > maxTokens:
			// No messages to split on; it travels alone.
			p.flush()
			p.emit([]Conversation{conv}, cost)
		default:
			p.add(conv, cost)
		}
	}

	return p.result()
}
