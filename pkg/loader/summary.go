package loader

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// Summary describes a batch of transactions before ingestion: how many there
// are, how wide they run, and which items dominate. Useful for a quick look
// at a file before deciding to import it.
type Summary struct {
	Transactions int                  `json:"transactions"`
	UniqueItems  int                  `json:"unique_items"`
	MinSize      int                  `json:"min_size"`
	MaxSize      int                  `json:"max_size"`
	MeanSize     float64              `json:"mean_size"`
	StdDevSize   float64              `json:"std_dev_size"`
	TopItems     []types.FrequentItem `json:"top_items,omitempty"`
}

// Summarize computes the Summary of a batch. topN bounds the TopItems list;
// ties rank ascending by identifier.
func Summarize(baskets []types.Basket, topN int) Summary {
	if len(baskets) == 0 {
		return Summary{}
	}

	sizes := make([]float64, len(baskets))
	counts := make(map[string]int)
	minSize, maxSize := len(baskets[0]), len(baskets[0])
	for i, b := range baskets {
		sizes[i] = float64(len(b))
		if len(b) < minSize {
			minSize = len(b)
		}
		if len(b) > maxSize {
			maxSize = len(b)
		}
		for _, id := range b {
			counts[id]++
		}
	}

	s := Summary{
		Transactions: len(baskets),
		UniqueItems:  len(counts),
		MinSize:      minSize,
		MaxSize:      maxSize,
		MeanSize:     stat.Mean(sizes, nil),
	}
	if len(sizes) > 1 {
		s.StdDevSize = stat.StdDev(sizes, nil)
	}

	if topN > 0 {
		items := make([]types.FrequentItem, 0, len(counts))
		total := float64(len(baskets))
		for id, count := range counts {
			items = append(items, types.FrequentItem{
				Item:    id,
				Count:   count,
				Support: float64(count) / total,
			})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].Count != items[j].Count {
				return items[i].Count > items[j].Count
			}
			return items[i].Item < items[j].Item
		})
		if len(items) > topN {
			items = items[:topN]
		}
		s.TopItems = items
	}
	return s
}
