// Package core is the main container for BasketDB data. A DB orchestrates
// any number of named datasets; each dataset pairs an append-only basket log
// with the structures derived from it: the co-purchase graph, per-item
// occurrence counts, and a B-Tree secondary index over edge weights for
// global strongest-pair queries.
//
// The basket log is the authoritative state. Everything else is derived and
// can be rebuilt from it, which is exactly what snapshot loading does.
package core

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/btree"

	"github.com/sanonone/basketdb/pkg/core/graph"
	"github.com/sanonone/basketdb/pkg/core/mining"
	"github.com/sanonone/basketdb/pkg/core/types"
)

var (
	// ErrDatasetNotFound is returned when an operation references a
	// dataset name that was never created.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetExists is returned when creating a dataset whose name is
	// already taken.
	ErrDatasetExists = errors.New("dataset already exists")
)

// Dataset is one independent analysis universe: a basket log plus the graph
// and indexes derived from it. Datasets never share state, so tests and
// multi-tenant servers can hold as many as they like side by side.
type Dataset struct {
	mu   sync.RWMutex
	name string

	// baskets is the authoritative transaction log, in observation order.
	baskets []types.Basket

	// itemCounts maps each item to the number of baskets containing it.
	itemCounts map[string]int

	// directEdges accumulates the weight added through AddEdge, the write
	// path that bypasses basket observation. Kept separate so snapshots
	// can replay both sources faithfully.
	directEdges map[types.Pair]int

	// labels holds optional display labels keyed by product identifier.
	labels map[string]string

	graph     *graph.Graph
	pairIndex *btree.BTreeG[PairWeightItem]

	// miner caches the miner built from the current basket log; any new
	// observation invalidates it.
	miner *mining.Miner
}

func newDataset(name string) *Dataset {
	return &Dataset{
		name:        name,
		itemCounts:  make(map[string]int),
		directEdges: make(map[types.Pair]int),
		labels:      make(map[string]string),
		graph:       graph.New(),
		pairIndex:   newPairIndex(),
	}
}

// Name returns the dataset name.
func (ds *Dataset) Name() string { return ds.name }

// Graph returns the live co-purchase graph of the dataset. The graph locks
// itself, so queries and traversals on the returned value are safe while
// the dataset keeps ingesting.
func (ds *Dataset) Graph() *graph.Graph { return ds.graph }

// ObserveBasket records one transaction: the raw items are canonicalized
// (normalized, de-duplicated, sorted) and every co-occurring pair adds one
// unit of weight to the graph, the write path that lets transaction data
// populate the graph without direct edge insertions. The canonical basket
// is returned. A basket with no valid items is ignored entirely so it never
// dilutes support denominators.
func (ds *Dataset) ObserveBasket(items []string) types.Basket {
	b := types.NewBasket(items)
	if len(b) == 0 {
		return b
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.observeLocked(b)
	return b
}

func (ds *Dataset) observeLocked(b types.Basket) {
	ds.baskets = append(ds.baskets, b)
	for _, item := range b {
		ds.itemCounts[item]++
	}
	for i := 0; i < len(b); i++ {
		for j := i + 1; j < len(b); j++ {
			// Canonical baskets hold distinct, non-empty identifiers,
			// so the edge bump cannot fail.
			ds.bumpEdgeLocked(b[i], b[j], 1)
		}
	}
	ds.miner = nil
}

// AddEdge adds weight between two products directly, without any basket
// being observed. It is the second, explicit write path into the graph;
// the increment is remembered apart from the basket log so snapshots can
// restore it.
func (ds *Dataset) AddEdge(a, b string, inc int) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := ds.bumpEdgeLocked(a, b, inc); err != nil {
		return err
	}
	ds.directEdges[types.NewPair(a, b)] += inc
	return nil
}

// bumpEdgeLocked applies an edge increment to the graph and keeps the
// weight index in step: the stale index entry is removed and the entry for
// the new total inserted.
func (ds *Dataset) bumpEdgeLocked(a, b string, inc int) error {
	if err := ds.graph.AddEdge(a, b, inc); err != nil {
		return err
	}
	p := types.NewPair(a, b)
	w, _ := ds.graph.EdgeWeight(p.A, p.B)
	if w > inc {
		ds.pairIndex.Delete(PairWeightItem{Weight: w - inc, A: p.A, B: p.B})
	}
	ds.pairIndex.Set(PairWeightItem{Weight: w, A: p.A, B: p.B})
	return nil
}

// SetLabel attaches a display label to a product identifier. An empty
// label removes the entry.
func (ds *Dataset) SetLabel(id, label string) {
	id = types.NormalizeID(id)
	if id == "" {
		return
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if label == "" {
		delete(ds.labels, id)
		return
	}
	ds.labels[id] = label
}

// Label returns the display label of a product, if one was set.
func (ds *Dataset) Label(id string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	label, ok := ds.labels[types.NormalizeID(id)]
	return label, ok
}

// Baskets returns a copy of the basket log. The baskets themselves are
// immutable and shared.
func (ds *Dataset) Baskets() []types.Basket {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	out := make([]types.Basket, len(ds.baskets))
	copy(out, ds.baskets)
	return out
}

// BasketCount returns the number of observed transactions.
func (ds *Dataset) BasketCount() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return len(ds.baskets)
}

// ItemCount returns the number of baskets containing the given product.
func (ds *Dataset) ItemCount(id string) int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.itemCounts[types.NormalizeID(id)]
}

// Miner returns a miner over the current basket log. The instance is
// cached until the next observation, and since miners are immutable the
// returned value stays valid even while new baskets arrive.
func (ds *Dataset) Miner() *mining.Miner {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.miner == nil {
		ds.miner = mining.NewMiner(ds.baskets)
	}
	return ds.miner
}

// TopPairs returns the n globally strongest edges straight from the weight
// index, heaviest first, without rescanning the basket log. Count is the
// edge weight; support relates it to the basket total and is zero when the
// graph was populated purely through direct edge writes.
func (ds *Dataset) TopPairs(n int) ([]types.FrequentPair, error) {
	if n < 1 {
		return nil, fmt.Errorf("top pairs n=%d must be positive: %w", n, types.ErrInvalidParameter)
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return topPairsFromIndex(ds.pairIndex, n, len(ds.baskets)), nil
}

// PairsInWeightRange returns every edge whose weight lies in [min, max],
// ascending by weight.
func (ds *Dataset) PairsInWeightRange(min, max int) ([]types.FrequentPair, error) {
	if min < 1 || max < min {
		return nil, fmt.Errorf("weight range [%d,%d]: %w", min, max, types.ErrInvalidParameter)
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return pairsInRangeFromIndex(ds.pairIndex, min, max, len(ds.baskets)), nil
}

// Info summarizes the dataset for the API.
func (ds *Dataset) Info() types.DatasetInfo {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return types.DatasetInfo{
		Name:    ds.name,
		Nodes:   ds.graph.NodeCount(),
		Edges:   ds.graph.EdgeCount(),
		Baskets: len(ds.baskets),
		Density: ds.graph.Density(),
	}
}

// --- DB: THE DATASET REGISTRY ---

// DB holds every dataset of one BasketDB instance.
type DB struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewDB creates and returns a new, empty DB instance.
func NewDB() *DB {
	return &DB{
		datasets: make(map[string]*Dataset),
	}
}

// CreateDataset registers a new, empty dataset under the given name.
// Fails with ErrDatasetExists if the name is taken and with
// ErrInvalidParameter for a blank name.
func (db *DB) CreateDataset(name string) (*Dataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("dataset name must not be empty: %w", types.ErrInvalidParameter)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.datasets[name]; ok {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrDatasetExists)
	}
	ds := newDataset(name)
	db.datasets[name] = ds
	return ds, nil
}

// GetDataset retrieves a dataset by name.
func (db *DB) GetDataset(name string) (*Dataset, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ds, ok := db.datasets[name]
	return ds, ok
}

// GetOrCreateDataset returns the named dataset, creating it on first use.
func (db *DB) GetOrCreateDataset(name string) (*Dataset, error) {
	if ds, ok := db.GetDataset(name); ok {
		return ds, nil
	}
	ds, err := db.CreateDataset(name)
	if errors.Is(err, ErrDatasetExists) {
		// Lost a creation race; the winner's instance is the one to use.
		ds, _ = db.GetDataset(name)
		return ds, nil
	}
	return ds, err
}

// DropDataset removes a dataset and all of its data. Fails with
// ErrDatasetNotFound if the name is unknown.
func (db *DB) DropDataset(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.datasets[name]; !ok {
		return fmt.Errorf("dataset %q: %w", name, ErrDatasetNotFound)
	}
	delete(db.datasets, name)
	return nil
}

// ListDatasets returns the dataset names in ascending order.
func (db *DB) ListDatasets() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]string, 0, len(db.datasets))
	for name := range db.datasets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// --- SNAPSHOT ---

// SnapshotState is the complete serializable state of a DB: per dataset the
// authoritative inputs only. Derived structures (graph, indexes, counts)
// are rebuilt on load.
type SnapshotState struct {
	Datasets map[string]*DatasetSnapshot
}

// DatasetSnapshot carries the authoritative state of a single dataset.
type DatasetSnapshot struct {
	Baskets [][]string
	Edges   []EdgeSnapshot
	Labels  map[string]string
}

// EdgeSnapshot is one accumulated direct edge write.
type EdgeSnapshot struct {
	A      string
	B      string
	Weight int
}

// exportLocked builds the serializable image of the dataset.
// Caller must hold ds.mu (read or write).
func (ds *Dataset) exportLocked() *DatasetSnapshot {
	snap := &DatasetSnapshot{
		Baskets: make([][]string, len(ds.baskets)),
		Edges:   make([]EdgeSnapshot, 0, len(ds.directEdges)),
		Labels:  make(map[string]string, len(ds.labels)),
	}
	for i, b := range ds.baskets {
		snap.Baskets[i] = b
	}
	for p, weight := range ds.directEdges {
		snap.Edges = append(snap.Edges, EdgeSnapshot{A: p.A, B: p.B, Weight: weight})
	}
	for id, label := range ds.labels {
		snap.Labels[id] = label
	}
	return snap
}

// Export returns a self-consistent copy of the authoritative state of the
// dataset. Used by journal compaction.
func (ds *Dataset) Export() *DatasetSnapshot {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.exportLocked()
}

// Snapshot serializes the current state of every dataset in gob format.
// Dataset read locks are taken before the registry lock is released, so the
// snapshot is consistent while lookups keep working during the encode.
func (db *DB) Snapshot(w io.Writer) error {
	// 1. Pin the dataset list and lock each dataset for reading.
	db.mu.RLock()
	locked := make([]*Dataset, 0, len(db.datasets))
	for _, ds := range db.datasets {
		ds.mu.RLock()
		locked = append(locked, ds)
	}
	db.mu.RUnlock()

	defer func() {
		for _, ds := range locked {
			ds.mu.RUnlock()
		}
	}()

	// 2. Build the serializable image.
	state := SnapshotState{Datasets: make(map[string]*DatasetSnapshot, len(locked))}
	for _, ds := range locked {
		state.Datasets[ds.name] = ds.exportLocked()
	}

	return gob.NewEncoder(w).Encode(state)
}

// LoadFromSnapshot replaces the DB content with the decoded snapshot,
// rebuilding every derived structure by replaying the authoritative inputs.
func (db *DB) LoadFromSnapshot(r io.Reader) error {
	var state SnapshotState
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.datasets = make(map[string]*Dataset, len(state.Datasets))
	for name, snap := range state.Datasets {
		ds := newDataset(name)
		for _, items := range snap.Baskets {
			if b := types.NewBasket(items); len(b) > 0 {
				ds.observeLocked(b)
			}
		}
		for _, e := range snap.Edges {
			if err := ds.bumpEdgeLocked(e.A, e.B, e.Weight); err != nil {
				return fmt.Errorf("snapshot edge %s-%s: %w", e.A, e.B, err)
			}
			ds.directEdges[types.NewPair(e.A, e.B)] = e.Weight
		}
		for id, label := range snap.Labels {
			ds.labels[id] = label
		}
		db.datasets[name] = ds
	}
	return nil
}
