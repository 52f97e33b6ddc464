package chunker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// EstimateTokens approximates the token count of text as one token per four
// characters (runes). It is not a tokenizer; budget arithmetic relies on it
// being exact integer division so results stay reproducible.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// Estimator approximates the token cost of a text blob.
type Estimator interface {
	Estimate(text string) int
}

// EstimateFunc adapts a plain function to an Estimator.
type EstimateFunc func(text string) int

func (f EstimateFunc) Estimate(text string) int { return f(text) }

// CharEstimator is the default Estimator, backed by EstimateTokens.
type CharEstimator struct{}

func (CharEstimator) Estimate(text string) int { return EstimateTokens(text) }

// costOf estimates the serialized size of a message or conversation.
func costOf(est Estimator, v any) int {
	data, err := marshalJSON(v)
	if err != nil {
		// Only reachable with a hand-built, invalid json.RawMessage field.
		return est.Estimate(fmt.Sprintf("%+v", v))
	}
	return est.Estimate(string(data))
}

// ConversationTokens returns the estimated cost of a conversation's JSON form.
func ConversationTokens(c Conversation) int {
	return costOf(CharEstimator{}, c)
}

// MessageTokens returns the estimated cost of a message's JSON form.
func MessageTokens(m Message) int {
	return costOf(CharEstimator{}, m)
}

// marshalJSON encodes v as compact JSON without HTML escaping, so <, > and &
// are counted as themselves.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
