// This file implements the operational methods of the Engine, wrapping core
// database actions (dataset management, basket ingestion, analysis queries)
// with persistence logic. Every modification is written to the append-only
// journal around being applied to the in-memory state, maintaining data
// durability.
package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/sanonone/basketdb/pkg/core"
	"github.com/sanonone/basketdb/pkg/core/recommend"
	"github.com/sanonone/basketdb/pkg/core/types"
	"github.com/sanonone/basketdb/pkg/metrics"
	"github.com/sanonone/basketdb/pkg/persistence"
)

// --- Dataset Operations ---

// CreateDataset registers a new, empty dataset.
// The operation is persisted to the journal.
func (e *Engine) CreateDataset(name string) error {
	payload, err := persistence.EncodeRecord(persistence.OpCreateDataset, &persistence.CreateDatasetRecord{Dataset: name})
	if err != nil {
		return err
	}

	// The memory update and its journal record must land on the same side
	// of a snapshot cut.
	e.persistMu.RLock()
	defer e.persistMu.RUnlock()

	if err := e.Journal.Append(persistence.OpCreateDataset, payload); err != nil {
		return fmt.Errorf("persistence error (journal write failed): %w", err)
	}

	if _, err := e.DB.CreateDataset(name); err != nil {
		return err
	}

	// Instant flush for single operations (durability)
	if err := e.Journal.Flush(); err != nil {
		return fmt.Errorf("CRITICAL: persistence flush failed: %w", err)
	}

	atomic.AddInt64(&e.dirtyCounter, 1)
	return nil
}

// DropDataset completely removes a dataset and all its data.
// The operation is persisted to the journal.
func (e *Engine) DropDataset(name string) error {
	payload, err := persistence.EncodeRecord(persistence.OpDropDataset, &persistence.DropDatasetRecord{Dataset: name})
	if err != nil {
		return err
	}

	e.persistMu.RLock()
	defer e.persistMu.RUnlock()

	if err := e.Journal.Append(persistence.OpDropDataset, payload); err != nil {
		return fmt.Errorf("persistence error (journal write failed): %w", err)
	}

	if err := e.DB.DropDataset(name); err != nil {
		return err
	}
	metrics.TotalBaskets.DeleteLabelValues(name)

	// Instant flush for single operations (durability)
	if err := e.Journal.Flush(); err != nil {
		return fmt.Errorf("CRITICAL: persistence flush failed: %w", err)
	}

	atomic.AddInt64(&e.dirtyCounter, 1)
	return nil
}

// Dataset retrieves a dataset by name for read-side access (graph queries,
// mining, recommendations).
func (e *Engine) Dataset(name string) (*core.Dataset, error) {
	ds, ok := e.DB.GetDataset(name)
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, core.ErrDatasetNotFound)
	}
	return ds, nil
}

// Datasets returns the names of all datasets in ascending order.
func (e *Engine) Datasets() []string {
	return e.DB.ListDatasets()
}

// DatasetInfo returns the summary counters of a dataset.
func (e *Engine) DatasetInfo(name string) (types.DatasetInfo, error) {
	ds, err := e.Dataset(name)
	if err != nil {
		return types.DatasetInfo{}, err
	}
	return ds.Info(), nil
}

// --- Ingestion Operations ---

// ObserveBasket records one transaction into the named dataset, creating the
// dataset on first use.
//
// This operation updates the in-memory graph immediately and appends the
// canonical basket to the journal for durability. The returned basket is the
// canonical form (normalized, de-duplicated, sorted); an empty canonical
// basket is dropped without touching the journal.
func (e *Engine) ObserveBasket(dataset string, items []string) (types.Basket, error) {
	ds, err := e.DB.GetOrCreateDataset(dataset)
	if err != nil {
		return nil, err
	}

	e.persistMu.RLock()
	defer e.persistMu.RUnlock()

	// 1. Memory
	b := ds.ObserveBasket(items)
	if len(b) == 0 {
		return b, nil
	}

	// 2. Persistence
	payload, err := persistence.EncodeRecord(persistence.OpBasket, &persistence.BasketRecord{Dataset: dataset, Items: b})
	if err != nil {
		return nil, err
	}
	if err := e.Journal.Append(persistence.OpBasket, payload); err != nil {
		// Warn: Persistence failed but memory success. Inconsistency risk.
		return nil, fmt.Errorf("CRITICAL: persistence failed (data in RAM only): %w", err)
	}

	// Instant flush for single operations (durability)
	if err := e.Journal.Flush(); err != nil {
		return nil, fmt.Errorf("CRITICAL: persistence flush failed: %w", err)
	}

	atomic.AddInt64(&e.dirtyCounter, 1)
	metrics.TotalBaskets.WithLabelValues(ds.Name()).Set(float64(ds.BasketCount()))
	return b, nil
}

// ObserveBaskets ingests multiple transactions with a single flush at the
// end, trading per-basket durability for much higher throughput. It returns
// the number of non-empty baskets recorded.
func (e *Engine) ObserveBaskets(dataset string, baskets [][]string) (int, error) {
	ds, err := e.DB.GetOrCreateDataset(dataset)
	if err != nil {
		return 0, err
	}

	e.persistMu.RLock()
	defer e.persistMu.RUnlock()

	recorded := 0
	for _, items := range baskets {
		b := ds.ObserveBasket(items)
		if len(b) == 0 {
			continue
		}
		payload, err := persistence.EncodeRecord(persistence.OpBasket, &persistence.BasketRecord{Dataset: dataset, Items: b})
		if err != nil {
			return recorded, err
		}
		if err := e.Journal.Append(persistence.OpBasket, payload); err != nil {
			return recorded, fmt.Errorf("batch persistence partial failure: %w", err)
		}
		recorded++
	}

	if err := e.Journal.Flush(); err != nil {
		return recorded, fmt.Errorf("batch persistence flush failed: %w", err)
	}

	atomic.AddInt64(&e.dirtyCounter, int64(recorded))
	metrics.TotalBaskets.WithLabelValues(ds.Name()).Set(float64(ds.BasketCount()))
	return recorded, nil
}

// ImportBaskets performs a high-speed bulk ingestion.
//
// Unlike ObserveBaskets, this method bypasses the journal to maximize
// throughput and creates a full database snapshot upon completion.
//
// Use this method for initial dataset loading or massive restores.
// Note: This operation acquires the administrative lock to ensure consistency
// during the snapshot.
func (e *Engine) ImportBaskets(dataset string, baskets [][]string) (int, error) {
	ds, err := e.DB.GetOrCreateDataset(dataset)
	if err != nil {
		return 0, err
	}

	// Block administrative operations (like other saves/rewrites) during import
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	recorded := 0
	for _, items := range baskets {
		if b := ds.ObserveBasket(items); len(b) > 0 {
			recorded++
		}
	}

	// Immediate Snapshot (Bulk Persistence)
	// Uses the private version that assumes adminMu is already held.
	if err := e.saveSnapshotLocked(); err != nil {
		return recorded, fmt.Errorf("import memory success but snapshot failed: %w", err)
	}

	metrics.TotalBaskets.WithLabelValues(ds.Name()).Set(float64(ds.BasketCount()))
	return recorded, nil
}

// AddEdge adds co-purchase weight between two products directly, without a
// basket observation. The operation is persisted to the journal.
func (e *Engine) AddEdge(dataset, a, b string, inc int) error {
	ds, err := e.DB.GetOrCreateDataset(dataset)
	if err != nil {
		return err
	}

	e.persistMu.RLock()
	defer e.persistMu.RUnlock()

	// 1. Memory (validates endpoints and increment)
	if err := ds.AddEdge(a, b, inc); err != nil {
		return err
	}

	// 2. Persistence
	payload, err := persistence.EncodeRecord(persistence.OpEdge, &persistence.EdgeRecord{Dataset: dataset, A: a, B: b, Inc: inc})
	if err != nil {
		return err
	}
	if err := e.Journal.Append(persistence.OpEdge, payload); err != nil {
		return fmt.Errorf("CRITICAL: persistence failed (data in RAM only): %w", err)
	}

	// Instant flush for single operations (durability)
	if err := e.Journal.Flush(); err != nil {
		return fmt.Errorf("CRITICAL: persistence flush failed: %w", err)
	}

	atomic.AddInt64(&e.dirtyCounter, 1)
	return nil
}

// SetLabel attaches a display label to a product identifier. An empty label
// removes the assignment. The operation is persisted to the journal.
func (e *Engine) SetLabel(dataset, id, label string) error {
	ds, err := e.DB.GetOrCreateDataset(dataset)
	if err != nil {
		return err
	}

	e.persistMu.RLock()
	defer e.persistMu.RUnlock()

	ds.SetLabel(id, label)

	payload, err := persistence.EncodeRecord(persistence.OpLabel, &persistence.LabelRecord{Dataset: dataset, ID: id, Label: label})
	if err != nil {
		return err
	}
	if err := e.Journal.Append(persistence.OpLabel, payload); err != nil {
		return fmt.Errorf("persistence error (journal write failed): %w", err)
	}
	if err := e.Journal.Flush(); err != nil {
		return fmt.Errorf("CRITICAL: persistence flush failed: %w", err)
	}

	atomic.AddInt64(&e.dirtyCounter, 1)
	return nil
}

// --- Analysis Operations ---

// TopConnections returns the k strongest co-purchase partners of a product.
func (e *Engine) TopConnections(dataset, productID string, k int) ([]types.Recommendation, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Graph().TopConnections(productID, k)
}

// Neighbors returns every direct co-purchase partner of a product with the
// observed weights.
func (e *Engine) Neighbors(dataset, productID string) (map[string]int, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Graph().Neighbors(productID)
}

// BFS returns the breadth-first visitation order from a product. A negative
// maxDepth means unlimited.
func (e *Engine) BFS(dataset, start string, maxDepth int) ([]string, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Graph().BFSDepth(start, maxDepth)
}

// DFS returns the depth-first visitation order from a product. A negative
// maxDepth means unlimited.
func (e *Engine) DFS(dataset, start string, maxDepth int) ([]string, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Graph().DFSDepth(start, maxDepth)
}

// ShortestPath returns the minimum-hop connection between two products.
// The boolean reports whether any path exists.
func (e *Engine) ShortestPath(dataset, from, to string) ([]string, bool, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, false, err
	}
	return ds.Graph().ShortestPath(from, to)
}

// WithinDistance returns every product reachable from start in at most
// radius hops, the start excluded.
func (e *Engine) WithinDistance(dataset, start string, radius int) ([]string, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Graph().WithinDistance(start, radius)
}

// Components returns the connected components of the co-purchase graph,
// ordered by their smallest member.
func (e *Engine) Components(dataset string) ([][]string, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Graph().Components(), nil
}

// ClusteringCoefficient measures how tightly the neighborhood of a product
// is interconnected.
func (e *Engine) ClusteringCoefficient(dataset, productID string) (float64, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return 0, err
	}
	return ds.Graph().ClusteringCoefficient(productID)
}

// Recommend returns up to k product suggestions for the given product,
// using the requested source (graph traversal or mined pairs).
func (e *Engine) Recommend(dataset, productID string, k int, src recommend.Source, minSupport float64) ([]types.Recommendation, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	r := recommend.New(ds.Graph(), ds.Miner(), recommend.Options{MinSupport: minSupport})
	return r.Recommend(productID, k, src)
}

// RecommendForBasket suggests products for a whole basket by aggregating
// the connection weights of its members.
func (e *Engine) RecommendForBasket(dataset string, items []string, k int) ([]types.Recommendation, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	r := recommend.New(ds.Graph(), nil, recommend.Options{})
	return r.ForBasket(items, k)
}

// SimilarProducts ranks products whose neighborhoods overlap the target's
// (Jaccard similarity).
func (e *Engine) SimilarProducts(dataset, productID string, k int) ([]types.Recommendation, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	r := recommend.New(ds.Graph(), nil, recommend.Options{})
	return r.Similar(productID, k)
}

// Bundles proposes product groups that are frequently bought together.
func (e *Engine) Bundles(dataset string, minSize, maxSize, k int) ([]types.Bundle, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	r := recommend.New(ds.Graph(), nil, recommend.Options{})
	return r.Bundles(minSize, maxSize, k)
}

// FrequentPairs mines all product pairs meeting the minimum support.
func (e *Engine) FrequentPairs(dataset string, minSupport float64) ([]types.FrequentPair, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Miner().FrequentPairs(minSupport)
}

// FrequentItems mines all single products meeting the minimum support.
func (e *Engine) FrequentItems(dataset string, minSupport float64) ([]types.FrequentItem, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Miner().FrequentItems(minSupport)
}

// Support returns the fraction of recorded baskets containing both products.
func (e *Engine) Support(dataset, a, b string) (float64, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return 0, err
	}
	return ds.Miner().Support(types.NewPair(a, b))
}

// TopPairs returns the n most frequent pairs regardless of support,
// served from the weight index.
func (e *Engine) TopPairs(dataset string, n int) ([]types.FrequentPair, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.TopPairs(n)
}

// FrequentItemsets mines itemsets of exactly size k meeting the minimum
// support.
func (e *Engine) FrequentItemsets(dataset string, k int, minSupport float64) ([]types.FrequentItemset, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Miner().FrequentItemsets(k, minSupport)
}

// Apriori mines frequent itemsets level by level up to maxK, stopping early
// at the first empty level.
func (e *Engine) Apriori(dataset string, maxK int, minSupport float64) (map[int][]types.FrequentItemset, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Miner().Apriori(maxK, minSupport)
}

// Rules derives association rules from the frequent pairs of a dataset.
func (e *Engine) Rules(dataset string, minSupport, minConfidence float64) ([]types.Rule, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	return ds.Miner().Rules(minSupport, minConfidence)
}

// Stats computes the statistical profile of a dataset.
func (e *Engine) Stats(dataset string) (core.DatasetStats, error) {
	ds, err := e.Dataset(dataset)
	if err != nil {
		return core.DatasetStats{}, err
	}
	return ds.Stats(), nil
}
