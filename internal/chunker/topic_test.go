package chunker

import (
	"math"
	"testing"
)

func titled(id, title string) Conversation {
	return Conversation{ID: id, Title: title, Messages: []Message{{Role: "user", Content: "hi"}}}
}

func TestPackByTopic_UnrelatedTitlesStayApart(t *testing.T) {
	convs := []Conversation{
		titled("a", "Go concurrency patterns"),
		titled("b", "Baking sourdough bread"),
	}

	chunks := PackByTopic(convs, 1000)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch.Conversations) != 1 {
			t.Errorf("cluster %d: expected 1 conversation, got %d", i, len(ch.Conversations))
		}
		if ch.Strategy != StrategyTopic {
			t.Errorf("cluster %d: strategy = %s, want topic", i, ch.Strategy)
		}
	}
}

func TestPackByTopic_GroupsSimilarTitlesInOrder(t *testing.T) {
	convs := []Conversation{
		titled("a", "kubernetes deployment rollout"),
		titled("b", "sourdough starter"),
		titled("c", "Kubernetes rollout stuck"),
		titled("d", "sourdough starter hydration"),
	}

	chunks := PackByTopic(convs, 1000)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(chunks))
	}
	if ids := clusterIDs(chunks[0]); ids != "a,c" {
		t.Errorf("cluster 0 = %s, want a,c", ids)
	}
	if ids := clusterIDs(chunks[1]); ids != "b,d" {
		t.Errorf("cluster 1 = %s, want b,d", ids)
	}
	want := ConversationTokens(convs[0]) + ConversationTokens(convs[2])
	if chunks[0].TokenCount != want {
		t.Errorf("token_count = %d, want %d", chunks[0].TokenCount, want)
	}
}

// The seed's word count is the only denominator, so similarity is not symmetric.
func TestPackByTopic_SimilarityIsAsymmetric(t *testing.T) {
	narrow := titled("narrow", "go")
	broad := titled("broad", "go rust python java")

	if got := len(PackByTopic([]Conversation{narrow, broad}, 1000)); got != 1 {
		t.Errorf("narrow seed: expected 1 cluster (1/1 > 0.3), got %d", got)
	}
	if got := len(PackByTopic([]Conversation{broad, narrow}, 1000)); got != 2 {
		t.Errorf("broad seed: expected 2 clusters (1/4 <= 0.3), got %d", got)
	}
}

func TestPackByTopic_ThresholdIsExclusive(t *testing.T) {
	seed := titled("seed", "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10")
	three := titled("three", "w1 w2 w3 other")
	four := titled("four", "w1 w2 w3 w4")

	if got := len(PackByTopic([]Conversation{seed, three}, 1000)); got != 2 {
		t.Errorf("3/10 shared words should not join, got %d clusters", got)
	}
	if got := len(PackByTopic([]Conversation{seed, four}, 1000)); got != 1 {
		t.Errorf("4/10 shared words should join, got %d clusters", got)
	}
}

func TestPackByTopic_BudgetLimitsMembersNotSeeds(t *testing.T) {
	a := costed(t, Conversation{ID: "a", Title: "release checklist"}, 600)
	b := costed(t, Conversation{ID: "b", Title: "release checklist v2"}, 600)
	c := costed(t, Conversation{ID: "c", Title: "release checklist notes"}, 300)
	huge := costed(t, Conversation{ID: "huge", Title: "unrelated"}, 5000)

	chunks := PackByTopic([]Conversation{a, b, c, huge}, 1000)

	// b is similar but would overflow a's cluster; c still fits.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(chunks))
	}
	if ids := clusterIDs(chunks[0]); ids != "a,c" {
		t.Errorf("cluster 0 = %s, want a,c", ids)
	}
	if ids := clusterIDs(chunks[1]); ids != "b" {
		t.Errorf("cluster 1 = %s, want b", ids)
	}
	if chunks[2].TokenCount != 5000 {
		t.Errorf("oversized seed token_count = %d, want 5000", chunks[2].TokenCount)
	}
}

func TestPackByTopic_FallsBackToFirstMessage(t *testing.T) {
	convs := []Conversation{
		{ID: "a", Messages: []Message{{Role: "user", Content: "How do I tune Postgres vacuum?"}}},
		{ID: "b", Messages: []Message{{Role: "user", Content: "postgres vacuum tuning again"}}},
		{ID: "c"},
		{ID: "d"},
	}

	chunks := PackByTopic(convs, 1000)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(chunks))
	}
	if ids := clusterIDs(chunks[0]); ids != "a,b" {
		t.Errorf("cluster 0 = %s, want a,b", ids)
	}
	// Empty topics share no words, so they never merge.
	if ids := clusterIDs(chunks[1]) + "|" + clusterIDs(chunks[2]); ids != "c|d" {
		t.Errorf("empty-topic clusters = %s, want c|d", ids)
	}
}

func TestSimilarity(t *testing.T) {
	seed := wordSet("Deploy the AUTH service")
	cand := wordSet("auth service deploy failed")

	got := similarity(seed, cand)
	if math.Abs(got-0.75) > 1e-9 {
		t.Errorf("similarity = %f, want 0.75", got)
	}
	if got := similarity(wordSet(""), cand); got != 0 {
		t.Errorf("empty seed similarity = %f, want 0", got)
	}
}

func TestWordSet_CombiningMarksSplitWords(t *testing.T) {
	got := wordSet("Cafe\u0301 au-lait_2 na\u0308ive")

	want := []string{"cafe", "au", "lait_2", "na", "ive"}
	if len(got) != len(want) {
		t.Errorf("wordSet = %v, want %v", got, want)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Errorf("wordSet missing %q: %v", w, got)
		}
	}
	if _, ok := wordSet("café")["café"]; !ok {
		t.Error("precomposed letters stay inside the word")
	}
}

func clusterIDs(ch Chunk) string {
	ids := ""
	for i, conv := range ch.Conversations {
		if i > 0 {
			ids += ","
		}
		ids += conv.ID
	}
	return ids
}
