package chunker

import (
	"regexp"
	"strings"
)

// topicThreshold is the similarity a candidate must exceed to join a cluster.
const topicThreshold = 0.3

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// PackByTopic clusters conversations by lexical overlap of their topics (the
// title, or the first message when there is no title).
//
// Clustering is a single greedy pass: each unassigned conversation seeds a
// cluster, then every later unassigned conversation joins it when its
// similarity to the seed exceeds 0.3 and the cluster stays within maxTokens.
// Similarity is |words(seed) ∩ words(candidate)| / max(1, |words(seed)|), so
// it is asymmetric: only the seed's vocabulary is in the denominator.
//
// Seeds are never rejected. A conversation whose own cost exceeds maxTokens
// becomes a one-item cluster; the budget only limits further members.
func PackByTopic(convs []Conversation, maxTokens int) []Chunk {
	return packByTopic(CharEstimator{}, convs, maxTokens)
}

func packByTopic(est Estimator, convs []Conversation, maxTokens int) []Chunk {
	words := make([]map[string]struct{}, len(convs))
	costs := make([]int, len(convs))
	for i, conv := range convs {
		words[i] = wordSet(conv.topic())
		costs[i] = costOf(est, conv)
	}

	assigned := make([]bool, len(convs))
	var chunks []Chunk

	for i := range convs {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []Conversation{convs[i]}
		tokens := costs[i]

		for j := i + 1; j < len(convs); j++ {
			if assigned[j] || similarity(words[i], words[j]) <= topicThreshold {
				continue
			}
			if tokens+costs[j] > maxTokens {
				continue
			}
			assigned[j] = true
			members = append(members, convs[j])
			tokens += costs[j]
		}

		chunks = append(chunks, Chunk{
			Conversations: members,
			TokenCount:    tokens,
			Strategy:      StrategyTopic,
		})
	}

	return chunks
}

// wordSet returns the distinct lower-cased words of text.
func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		set[w] = struct{}{}
	}
	return set
}

// similarity is the share of the seed's words that also appear in the candidate.
func similarity(seed, candidate map[string]struct{}) float64 {
	common := 0
	for w := range seed {
		if _, ok := candidate[w]; ok {
			common++
		}
	}
	return float64(common) / float64(max(1, len(seed)))
}
