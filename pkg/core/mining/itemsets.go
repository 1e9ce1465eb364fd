// This file extends the miner beyond pairs: frequent k-itemsets of any size
// and the level-wise Apriori driver that collects them until a level comes
// up empty. Candidates are still generated per basket only, never from the
// global catalog.
package mining

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// itemsetKeySep joins itemset members into a map key. The unit separator
// cannot appear in a normalized identifier coming from any loader.
const itemsetKeySep = "\x1f"

// FrequentItemsets returns every k-itemset whose support meets minSupport,
// sorted by support descending, ties by ascending lexicographic member
// order. Baskets smaller than k contribute nothing. Fails with
// ErrInvalidParameter for k < 1 or an out-of-range threshold.
func (m *Miner) FrequentItemsets(k int, minSupport float64) ([]types.FrequentItemset, error) {
	if k < 1 {
		return nil, fmt.Errorf("itemset size k=%d must be positive: %w", k, ErrInvalidParameter)
	}
	if err := m.checkSupport(minSupport); err != nil {
		return nil, err
	}

	type acc struct {
		items []string
		count int
	}
	counts := make(map[string]*acc)

	idx := make([]int, k)
	for _, b := range m.baskets {
		if len(b) < k {
			continue
		}
		// Enumerate the k-combinations of the basket one at a time; the
		// basket is sorted, so every combination comes out sorted too.
		gen := combin.NewCombinationGenerator(len(b), k)
		for gen.Next() {
			gen.Combination(idx)
			var sb strings.Builder
			for n, i := range idx {
				if n > 0 {
					sb.WriteString(itemsetKeySep)
				}
				sb.WriteString(b[i])
			}
			key := sb.String()
			a, ok := counts[key]
			if !ok {
				members := make([]string, k)
				for n, i := range idx {
					members[n] = b[i]
				}
				a = &acc{items: members}
				counts[key] = a
			}
			a.count++
		}
	}

	out := make([]types.FrequentItemset, 0, len(counts))
	for _, a := range counts {
		support := float64(a.count) / float64(m.total)
		if support >= minSupport {
			out = append(out, types.FrequentItemset{Items: a.items, Count: a.count, Support: support})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return slices.Compare(out[i].Items, out[j].Items) < 0
	})
	return out, nil
}

// Apriori runs the level-wise mining: frequent itemsets of size 1 up to
// maxK, stopping early at the first level with no survivors. The result
// maps each mined level to its itemsets.
func (m *Miner) Apriori(maxK int, minSupport float64) (map[int][]types.FrequentItemset, error) {
	if maxK < 1 {
		return nil, fmt.Errorf("apriori max k=%d must be positive: %w", maxK, ErrInvalidParameter)
	}
	if err := m.checkSupport(minSupport); err != nil {
		return nil, err
	}

	levels := make(map[int][]types.FrequentItemset)
	for k := 1; k <= maxK; k++ {
		itemsets, err := m.FrequentItemsets(k, minSupport)
		if err != nil {
			return nil, err
		}
		if len(itemsets) == 0 {
			break
		}
		levels[k] = itemsets
	}
	return levels, nil
}
