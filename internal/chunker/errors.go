package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidBudget is returned when the token budget is not positive.
var ErrInvalidBudget = errors.New("max tokens must be greater than zero")

// UnknownStrategyError reports a strategy name outside size, topic and role.
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown chunking strategy %q (want size, topic or role)", e.Name)
}

// OversizedItemError is returned under OverflowReject when a chunk holding a
// single item still exceeds the budget.
type OversizedItemError struct {
	Strategy       Strategy
	ConversationID string
	Tokens         int
	MaxTokens      int
}

func (e *OversizedItemError) Error() string {
	return fmt.Sprintf("%s chunk for conversation %q needs %d tokens, budget is %d",
		e.Strategy, e.ConversationID, e.Tokens, e.MaxTokens)
}
