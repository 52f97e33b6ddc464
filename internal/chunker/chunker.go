// Package chunker segments conversation transcripts into token-budgeted chunks
// using one of three strategies: size, topic or role.
//
// Every function here is a pure computation over its arguments. Nothing is
// cached between calls, so concurrent calls on separate inputs are safe.
package chunker

import "fmt"

// DefaultMaxTokens is the budget used when none is configured.
const DefaultMaxTokens = 1500

// OverflowPolicy decides what happens when a single conversation, role run
// or message cannot fit the budget on its own.
type OverflowPolicy int

const (
	// OverflowAllow emits the item alone in an over-budget chunk.
	OverflowAllow OverflowPolicy = iota
	// OverflowReject fails the call with an OversizedItemError.
	OverflowReject
)

// ParseOverflowPolicy maps "allow" or "reject" to an OverflowPolicy.
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch name {
	case "", "allow":
		return OverflowAllow, nil
	case "reject":
		return OverflowReject, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q (want allow or reject)", name)
	}
}

func (p OverflowPolicy) String() string {
	if p == OverflowReject {
		return "reject"
	}
	return "allow"
}

// Chunker applies a strategy with a configurable estimator and overflow policy.
// The zero value is not usable; construct with New.
type Chunker struct {
	estimator Estimator
	overflow  OverflowPolicy
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithEstimator replaces the default four-bytes-per-token estimator.
func WithEstimator(est Estimator) Option {
	return func(c *Chunker) {
		if est != nil {
			c.estimator = est
		}
	}
}

// WithOverflowPolicy sets how oversized single items are handled.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(c *Chunker) { c.overflow = p }
}

// New returns a Chunker using CharEstimator and OverflowAllow unless overridden.
func New(opts ...Option) *Chunker {
	c := &Chunker{estimator: CharEstimator{}, overflow: OverflowAllow}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Overflow returns the configured overflow policy.
func (c *Chunker) Overflow() OverflowPolicy {
	return c.overflow
}

// Chunk dispatches convs to the packing function for strategy.
func (c *Chunker) Chunk(strategy Strategy, convs []Conversation, maxTokens int) ([]Chunk, error) {
	if !strategy.Valid() {
		return nil, &UnknownStrategyError{Name: strategy.String()}
	}
	if maxTokens <= 0 {
		return nil, ErrInvalidBudget
	}

	var chunks []Chunk
	switch strategy {
	case StrategySize:
		chunks = packBySize(c.estimator, convs, maxTokens)
	case StrategyTopic:
		chunks = packByTopic(c.estimator, convs, maxTokens)
	case StrategyRole:
		chunks = packByRole(c.estimator, convs, maxTokens)
	}

	if c.overflow == OverflowReject {
		for _, ch := range chunks {
			if ch.TokenCount > maxTokens {
				return nil, &OversizedItemError{
					Strategy:       strategy,
					ConversationID: ch.Conversations[0].ID,
					Tokens:         ch.TokenCount,
					MaxTokens:      maxTokens,
				}
			}
		}
	}

	return chunks, nil
}

// Run chunks convs by strategy with the default Chunker.
func Run(strategy Strategy, convs []Conversation, maxTokens int) ([]Chunk, error) {
	return New().Chunk(strategy, convs, maxTokens)
}

// CheckBudget verifies that every chunk stays within maxTokens, except for a
// chunk holding exactly one conversation, which is the accepted overflow case.
func CheckBudget(chunks []Chunk, maxTokens int) error {
	for i, ch := range chunks {
		if ch.TokenCount > maxTokens && len(ch.Conversations) != 1 {
			return fmt.Errorf("chunk %d: %d conversations use %d tokens, budget is %d",
				i, len(ch.Conversations), ch.TokenCount, maxTokens)
		}
	}
	return nil
}
