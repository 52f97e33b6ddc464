package chunker

import "fmt"

// Strategy selects how conversations are grouped into chunks.
type Strategy int

const (
	// StrategySize greedily packs whole conversations up to the budget.
	StrategySize Strategy = iota
	// StrategyTopic clusters conversations whose titles share words.
	StrategyTopic
	// StrategyRole packs runs of consecutive same-role messages.
	StrategyRole
)

var strategyNames = [...]string{
	StrategySize:  "size",
	StrategyTopic: "topic",
	StrategyRole:  "role",
}

// Strategies lists every supported strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{StrategySize, StrategyTopic, StrategyRole}
}

// ParseStrategy maps a strategy name to its Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, &UnknownStrategyError{Name: name}
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool {
	return s >= 0 && int(s) < len(strategyNames)
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &UnknownStrategyError{Name: s.String()}
	}
	return []byte(strategyNames[s]), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
