package draw

import (
	"fmt"
	"math/rand/v2"
)

// Source yields uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

// runtimeSource draws from the runtime's ChaCha8 generator, which is
// seeded from OS entropy and safe for concurrent use.
type runtimeSource struct{}

func (runtimeSource) IntN(n int) int {
	return rand.IntN(n)
}

// Shuffle permutes s in place with Fisher–Yates: for i from the last index
// down to 1, swap s[i] with s[j] for j uniform in [0, i].
func Shuffle[T any](s []T, src Source) {
	for i := len(s) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Strategy selects how givers are paired with receivers.
type Strategy string

const (
	// StrategyCycle shuffles once and links everyone into a single cycle.
	// It samples uniformly among single-cycle derangements only.
	StrategyCycle Strategy = "cycle"

	// StrategyUniform shuffles receivers until nobody draws themselves,
	// which samples uniformly among all derangements.
	StrategyUniform Strategy = "uniform"
)

// ParseStrategy maps a configuration value onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyCycle, "":
		return StrategyCycle, nil
	case StrategyUniform:
		return StrategyUniform, nil
	default:
		return "", fmt.Errorf("unknown draw strategy %q", s)
	}
}

// Pair is one giver → receiver link.
type Pair struct {
	Giver    string
	Receiver string
}

// CyclePairs links order[i] to order[(i+1) mod n]. For n ≥ 2 the result is
// a bijection with no fixed points.
func CyclePairs(order []string) []Pair {
	n := len(order)
	pairs := make([]Pair, n)
	for i, giver := range order {
		pairs[i] = Pair{Giver: giver, Receiver: order[(i+1)%n]}
	}
	return pairs
}

// Assign pairs every id with a different id using the given strategy.
// ids must hold at least two distinct values.
func Assign(ids []string, strategy Strategy, src Source) []Pair {
	order := append([]string(nil), ids...)
	Shuffle(order, src)

	if strategy != StrategyUniform {
		return CyclePairs(order)
	}

	receivers := append([]string(nil), order...)
	for {
		Shuffle(receivers, src)
		if !hasFixedPoint(order, receivers) {
			break
		}
	}
	pairs := make([]Pair, len(order))
	for i := range order {
		pairs[i] = Pair{Giver: order[i], Receiver: receivers[i]}
	}
	return pairs
}

func hasFixedPoint(givers, receivers []string) bool {
	for i := range givers {
		if givers[i] == receivers[i] {
			return true
		}
	}
	return false
}
