package core

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DistributionStats summarizes one observed distribution.
type DistributionStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// DatasetStats is the statistical profile of a dataset: the structural
// counters plus the distributions of basket sizes and edge weights.
type DatasetStats struct {
	Name          string            `json:"name"`
	Baskets       int               `json:"baskets"`
	DistinctItems int               `json:"distinct_items"`
	Nodes         int               `json:"nodes"`
	Edges         int               `json:"edges"`
	Density       float64           `json:"density"`
	BasketSize    DistributionStats `json:"basket_size"`
	EdgeWeight    DistributionStats `json:"edge_weight"`
}

// distributionOf computes the summary of a sample. The slice is sorted in
// place (Quantile requires it).
func distributionOf(values []float64) DistributionStats {
	if len(values) == 0 {
		return DistributionStats{}
	}
	sort.Float64s(values)

	d := DistributionStats{
		Mean:   stat.Mean(values, nil),
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
		Min:    values[0],
		Max:    values[len(values)-1],
	}
	// StdDev needs at least two observations.
	if len(values) > 1 {
		d.StdDev = stat.StdDev(values, nil)
	}
	return d
}

// Stats computes the statistical profile of the dataset. Basket sizes come
// from the transaction log; edge weights are scanned off the weight index.
func (ds *Dataset) Stats() DatasetStats {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	sizes := make([]float64, len(ds.baskets))
	for i, b := range ds.baskets {
		sizes[i] = float64(len(b))
	}

	weights := make([]float64, 0, ds.pairIndex.Len())
	ds.pairIndex.Ascend(PairWeightItem{}, func(item PairWeightItem) bool {
		weights = append(weights, float64(item.Weight))
		return true
	})

	return DatasetStats{
		Name:          ds.name,
		Baskets:       len(ds.baskets),
		DistinctItems: len(ds.itemCounts),
		Nodes:         ds.graph.NodeCount(),
		Edges:         ds.graph.EdgeCount(),
		Density:       ds.graph.Density(),
		BasketSize:    distributionOf(sizes),
		EdgeWeight:    distributionOf(weights),
	}
}
