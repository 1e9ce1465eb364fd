// Package mining implements frequent-itemset mining over transaction data:
// support calculation, frequent pair extraction, k-itemset generation with
// the Apriori level-wise scheme, and association rules.
//
// Candidate generation is pruned: pairs and itemsets are generated only from
// the items that actually co-occur inside each basket, never from the cross
// product of the global catalog. For n baskets of average size k this bounds
// pair counting at O(n·k²), which is what makes the miner usable on sparse
// real-world transaction data.
package mining

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// ErrInvalidParameter mirrors types.ErrInvalidParameter so callers of this
// package can match either sentinel.
var ErrInvalidParameter = types.ErrInvalidParameter

// ErrEmptyDataset is returned when a mining operation is invoked over zero
// baskets. Support is undefined without a total transaction count.
var ErrEmptyDataset = errors.New("empty dataset")

// Miner mines one immutable snapshot of transaction data. The basket slice
// is canonicalized at construction (set semantics, normalized identifiers),
// so results are independent of item order and of duplicates inside a
// transaction. A Miner never mutates anything after construction and is safe
// for concurrent use.
type Miner struct {
	baskets []types.Basket
	total   int

	// itemCounts maps each item to the number of baskets containing it,
	// counted once per basket regardless of duplicates in the raw input.
	itemCounts map[string]int
}

// NewMiner builds a miner over the given transactions. Baskets are brought
// into canonical form defensively; passing already canonical baskets (the
// usual case) just re-sorts sorted data.
func NewMiner(baskets []types.Basket) *Miner {
	m := &Miner{
		baskets:    make([]types.Basket, 0, len(baskets)),
		total:      len(baskets),
		itemCounts: make(map[string]int),
	}
	for _, b := range baskets {
		canonical := types.NewBasket(b)
		m.baskets = append(m.baskets, canonical)
		for _, item := range canonical {
			m.itemCounts[item]++
		}
	}
	return m
}

// BasketCount returns the total number of transactions the miner holds.
func (m *Miner) BasketCount() int { return m.total }

// ItemCount returns the number of baskets containing the given item.
func (m *Miner) ItemCount(id string) int {
	return m.itemCounts[types.NormalizeID(id)]
}

// Support returns the fraction of baskets containing both members of the
// pair, a value in [0,1]. Fails with ErrEmptyDataset when the miner holds no
// baskets.
func (m *Miner) Support(p types.Pair) (float64, error) {
	if m.total == 0 {
		return 0, fmt.Errorf("support of %s+%s: %w", p.A, p.B, ErrEmptyDataset)
	}
	count := 0
	for _, b := range m.baskets {
		if b.ContainsPair(p) {
			count++
		}
	}
	return float64(count) / float64(m.total), nil
}

// FrequentPairs returns every pair of items whose support meets minSupport,
// sorted by support descending with ties broken by ascending lexicographic
// pair order. minSupport must lie in (0,1]; zero frequent pairs is a valid
// empty result, not an error.
func (m *Miner) FrequentPairs(minSupport float64) ([]types.FrequentPair, error) {
	if err := m.checkSupport(minSupport); err != nil {
		return nil, err
	}
	return m.rankPairs(m.countPairs(), minSupport), nil
}

// TopPairs returns the n most frequent co-occurring pairs regardless of any
// support threshold. Fails with ErrInvalidParameter for n < 1.
func (m *Miner) TopPairs(n int) ([]types.FrequentPair, error) {
	if n < 1 {
		return nil, fmt.Errorf("top pairs n=%d must be positive: %w", n, ErrInvalidParameter)
	}
	if m.total == 0 {
		return nil, fmt.Errorf("top pairs: %w", ErrEmptyDataset)
	}
	ranked := m.rankPairs(m.countPairs(), 0)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// FrequentItems returns the frequent 1-itemsets: every item whose support
// meets minSupport, sorted by support descending, ties by item ascending.
func (m *Miner) FrequentItems(minSupport float64) ([]types.FrequentItem, error) {
	if err := m.checkSupport(minSupport); err != nil {
		return nil, err
	}

	out := make([]types.FrequentItem, 0, len(m.itemCounts))
	for item, count := range m.itemCounts {
		support := float64(count) / float64(m.total)
		if support >= minSupport {
			out = append(out, types.FrequentItem{Item: item, Count: count, Support: support})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Item < out[j].Item
	})
	return out, nil
}

// countPairs walks every basket once and counts each unordered pair of its
// items. Baskets of size 0 or 1 contribute nothing. Only observed pairs ever
// enter the map.
func (m *Miner) countPairs() map[types.Pair]int {
	counts := make(map[types.Pair]int)
	for _, b := range m.baskets {
		if len(b) < 2 {
			continue
		}
		// Baskets are sorted, so b[i] < b[j] already holds: the pair can
		// be formed directly without re-normalizing.
		for i := 0; i < len(b); i++ {
			for j := i + 1; j < len(b); j++ {
				counts[types.Pair{A: b[i], B: b[j]}]++
			}
		}
	}
	return counts
}

// rankPairs filters counted pairs by support and applies the canonical
// order: support descending, ties ascending on (A, B).
func (m *Miner) rankPairs(counts map[types.Pair]int, minSupport float64) []types.FrequentPair {
	out := make([]types.FrequentPair, 0, len(counts))
	for p, count := range counts {
		support := float64(count) / float64(m.total)
		if support >= minSupport {
			out = append(out, types.FrequentPair{Pair: p, Count: count, Support: support})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Pair.Less(out[j].Pair)
	})
	return out
}

// checkSupport validates the threshold and the dataset in the order the
// failure modes are defined: parameter errors first, then emptiness.
func (m *Miner) checkSupport(minSupport float64) error {
	if minSupport <= 0 || minSupport > 1 {
		return fmt.Errorf("min support %g outside (0,1]: %w", minSupport, ErrInvalidParameter)
	}
	if m.total == 0 {
		return fmt.Errorf("mining: %w", ErrEmptyDataset)
	}
	return nil
}
