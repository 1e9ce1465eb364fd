package core

import (
	"math"
	"sort"

	"github.com/tidwall/btree"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// PairWeightItem is the entry stored in a dataset's secondary index: one
// logical edge keyed by its current weight. The index orders items by weight
// first, so the globally strongest pairs sit at one end of the tree and
// weight-range scans never touch unrelated entries.
type PairWeightItem struct {
	Weight int
	A      string
	B      string
}

// pairWeightLess orders index items by weight, then by the pair identifiers
// to keep distinct edges from colliding at equal weights.
func pairWeightLess(a, b PairWeightItem) bool {
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	if a.A != b.A {
		return a.A < b.A
	}
	return a.B < b.B
}

func newPairIndex() *btree.BTreeG[PairWeightItem] {
	return btree.NewBTreeG[PairWeightItem](pairWeightLess)
}

// topPairsFromIndex walks the tree from the heaviest entry downwards and
// materializes the n strongest edges as frequent-pair records. totalBaskets
// of zero leaves every support at zero.
func topPairsFromIndex(tree *btree.BTreeG[PairWeightItem], n, totalBaskets int) []types.FrequentPair {
	// The weight group straddling the cutoff is taken whole, so ties at the
	// boundary resolve by pair order instead of scan order.
	var picked []PairWeightItem
	pivot := PairWeightItem{Weight: math.MaxInt}
	tree.Descend(pivot, func(item PairWeightItem) bool {
		if len(picked) >= n && item.Weight != picked[len(picked)-1].Weight {
			return false
		}
		picked = append(picked, item)
		return true
	})

	sort.Slice(picked, func(i, j int) bool {
		if picked[i].Weight != picked[j].Weight {
			return picked[i].Weight > picked[j].Weight
		}
		if picked[i].A != picked[j].A {
			return picked[i].A < picked[j].A
		}
		return picked[i].B < picked[j].B
	})
	if len(picked) > n {
		picked = picked[:n]
	}

	out := make([]types.FrequentPair, len(picked))
	for i, item := range picked {
		out[i] = frequentPairFromItem(item, totalBaskets)
	}
	return out
}

// pairsInRangeFromIndex returns every edge whose weight lies in [min, max],
// ascending. The pivot starts the scan exactly at the first entry of weight
// min because the empty identifier sorts before any real product.
func pairsInRangeFromIndex(tree *btree.BTreeG[PairWeightItem], min, max, totalBaskets int) []types.FrequentPair {
	var out []types.FrequentPair
	tree.Ascend(PairWeightItem{Weight: min}, func(item PairWeightItem) bool {
		if item.Weight > max {
			return false
		}
		out = append(out, frequentPairFromItem(item, totalBaskets))
		return true
	})
	return out
}

func frequentPairFromItem(item PairWeightItem, totalBaskets int) types.FrequentPair {
	fp := types.FrequentPair{
		Pair:  types.Pair{A: item.A, B: item.B},
		Count: item.Weight,
	}
	if totalBaskets > 0 {
		fp.Support = float64(item.Weight) / float64(totalBaskets)
	}
	return fp
}
