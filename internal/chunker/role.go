package chunker

// PackByRole splits every conversation into maximal runs of consecutive
// same-role messages and packs those runs, in conversation-then-run order,
// into chunks of at most maxTokens. Each run travels as a partial copy of its
// conversation marked _chunked_by_role. A run that alone exceeds the budget
// closes the open chunk and is split message by message into chunks of its own.
func PackByRole(convs []Conversation, maxTokens int) []Chunk {
	return packByRole(CharEstimator{}, convs, maxTokens)
}

func packByRole(est Estimator, convs []Conversation, maxTokens int) []Chunk {
	p := newPacker(est, StrategyRole, maxTokens)

	for _, conv := range convs {
		for _, group := range roleGroups(conv.Messages) {
			part := conv.withMessages(group)
			part.ChunkedByRole = true
			cost := costOf(est, part)

			if cost > maxTokens {
				p.split(conv, group, markChunkedByRole)
				continue
			}
			p.add(part, cost)
		}
	}

	return p.result()
}

// roleGroups partitions msgs into maximal runs sharing the same role. The
// returned slices alias msgs.
func roleGroups(msgs []Message) [][]Message {
	var groups [][]Message
	start := 0
	for i := 1; i <= len(msgs); i++ {
		if i == len(msgs) || msgs[i].Role != msgs[start].Role {
			groups = append(groups, msgs[start:i])
			start = i
		}
	}
	return groups
}
