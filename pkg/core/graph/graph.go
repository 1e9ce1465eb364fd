// Package graph implements the weighted undirected co-purchase graph at the
// heart of the engine: products are nodes and edge weights count how many
// times two products were observed in the same transaction.
//
// The representation is an adjacency list (a map from each node to its
// weighted neighbor map) rather than an adjacency matrix. Co-purchase graphs
// are sparse, so the list costs O(V+E) space against O(V²) for a matrix,
// which matters once the catalog reaches the thousands of products.
//
// A Graph guards itself with a read-write mutex: construction can proceed
// from one writer while queries and traversals, which never mutate, run
// concurrently under the read lock.
package graph

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// ErrInvalidParameter mirrors types.ErrInvalidParameter so callers of this
// package can match either sentinel.
var ErrInvalidParameter = types.ErrInvalidParameter

var (
	// ErrNodeNotFound is returned when an operation references a product
	// that is not present in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrSelfLoop is returned when an edge from a product to itself is
	// attempted. Co-purchase relations are defined only between distinct
	// products.
	ErrSelfLoop = errors.New("self loop not allowed")
)

// Graph is the in-memory product graph. The zero value is not usable; create
// instances with New. Each Graph owns its node and edge maps exclusively,
// so independent graphs never share state.
type Graph struct {
	mu sync.RWMutex

	// adj maps a node to its weighted neighbors. The symmetry invariant
	// holds at all times: adj[a][b] == adj[b][a] for every edge {a,b}.
	adj map[string]map[string]int

	// edges counts logical (unordered) edges, maintained incrementally so
	// EdgeCount never has to walk the adjacency map.
	edges int
}

// New creates an empty product graph.
func New() *Graph {
	return &Graph{
		adj: make(map[string]map[string]int),
	}
}

// --- MUTATION API ---

// AddNode inserts a product with no connections. The operation is
// idempotent: adding an existing node changes nothing. Identifiers that
// normalize to the empty string are ignored.
func (g *Graph) AddNode(id string) {
	id = types.NormalizeID(id)
	if id == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(id)
}

func (g *Graph) addNodeLocked(id string) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[string]int)
	}
}

// AddEdge records inc joint occurrences of products a and b. Both endpoints
// are created if absent. If the edge already exists its weight grows by inc,
// otherwise the edge is created with weight inc; both directions of the
// adjacency list are updated under the same lock so readers never observe a
// half-written edge.
//
// A self loop (a == b after normalization) fails with ErrSelfLoop and a
// non-positive increment fails with ErrInvalidParameter.
func (g *Graph) AddEdge(a, b string, inc int) error {
	a, b = types.NormalizeID(a), types.NormalizeID(b)
	if a == "" || b == "" {
		return fmt.Errorf("empty product identifier: %w", ErrInvalidParameter)
	}
	if a == b {
		return fmt.Errorf("edge %q-%q: %w", a, b, ErrSelfLoop)
	}
	if inc < 1 {
		return fmt.Errorf("weight increment %d must be positive: %w", inc, ErrInvalidParameter)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.addNodeLocked(a)
	g.addNodeLocked(b)
	if _, exists := g.adj[a][b]; !exists {
		g.edges++
	}
	g.adj[a][b] += inc
	g.adj[b][a] += inc
	return nil
}

// RemoveNode deletes a product and every edge incident to it. Both sides of
// each incident edge are removed in the same critical section, so the
// symmetry invariant is preserved. Fails with ErrNodeNotFound if the product
// is absent.
func (g *Graph) RemoveNode(id string) error {
	id = types.NormalizeID(id)

	g.mu.Lock()
	defer g.mu.Unlock()

	neighbors, ok := g.adj[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrNodeNotFound)
	}
	for n := range neighbors {
		delete(g.adj[n], id)
		g.edges--
	}
	delete(g.adj, id)
	return nil
}

// --- QUERY API ---

// HasNode reports whether the product is present.
func (g *Graph) HasNode(id string) bool {
	id = types.NormalizeID(id)
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.adj[id]
	return ok
}

// HasEdge reports whether an edge exists between a and b. Missing endpoints
// simply yield false.
func (g *Graph) HasEdge(a, b string) bool {
	a, b = types.NormalizeID(a), types.NormalizeID(b)
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.adj[a][b]
	return ok
}

// Neighbors returns a copy of the weighted neighbor map of the product.
// An isolated node yields an empty map. Fails with ErrNodeNotFound if the
// product is absent.
func (g *Graph) Neighbors(id string) (map[string]int, error) {
	id = types.NormalizeID(id)
	g.mu.RLock()
	defer g.mu.RUnlock()

	neighbors, ok := g.adj[id]
	if !ok {
		return nil, fmt.Errorf("neighbors of %q: %w", id, ErrNodeNotFound)
	}
	out := make(map[string]int, len(neighbors))
	for n, w := range neighbors {
		out[n] = w
	}
	return out, nil
}

// EdgeWeight returns the weight of the edge between a and b, or 0 if the two
// products share no edge. It never fails for products that exist; an absent
// endpoint fails with ErrNodeNotFound.
func (g *Graph) EdgeWeight(a, b string) (int, error) {
	a, b = types.NormalizeID(a), types.NormalizeID(b)
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.adj[a]; !ok {
		return 0, fmt.Errorf("edge weight %q-%q: %q: %w", a, b, a, ErrNodeNotFound)
	}
	if _, ok := g.adj[b]; !ok {
		return 0, fmt.Errorf("edge weight %q-%q: %q: %w", a, b, b, ErrNodeNotFound)
	}
	return g.adj[a][b], nil
}

// Degree returns the number of neighbors of the product, failing with
// ErrNodeNotFound if it is absent.
func (g *Graph) Degree(id string) (int, error) {
	id = types.NormalizeID(id)
	g.mu.RLock()
	defer g.mu.RUnlock()

	neighbors, ok := g.adj[id]
	if !ok {
		return 0, fmt.Errorf("degree of %q: %w", id, ErrNodeNotFound)
	}
	return len(neighbors), nil
}

// NodeCount returns the number of products in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.adj)
}

// EdgeCount returns the number of unordered edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// Nodes returns every product identifier in ascending order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodesLocked()
}

func (g *Graph) nodesLocked() []string {
	out := make([]string, 0, len(g.adj))
	for id := range g.adj {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Density returns 2E / (V·(V−1)), the fraction of possible edges actually
// present. A graph with fewer than two nodes has density 0.
func (g *Graph) Density() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v := len(g.adj)
	if v < 2 {
		return 0
	}
	return float64(2*g.edges) / float64(v*(v-1))
}

// TopConnections returns the k neighbors of the product with the highest
// edge weights, strongest first, ties broken by identifier ascending. Fewer
// than k neighbors yields all of them; the result is deterministic for a
// fixed graph. Fails with ErrNodeNotFound for an absent product and with
// ErrInvalidParameter for k < 1.
func (g *Graph) TopConnections(id string, k int) ([]types.Recommendation, error) {
	id = types.NormalizeID(id)
	if k < 1 {
		return nil, fmt.Errorf("top connections k=%d must be positive: %w", k, ErrInvalidParameter)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	neighbors, ok := g.adj[id]
	if !ok {
		return nil, fmt.Errorf("top connections of %q: %w", id, ErrNodeNotFound)
	}

	// Keep the k best candidates in a bounded heap whose root is the
	// current weakest, evicting it whenever a stronger neighbor appears.
	h := newWorstFirstHeap(k)
	for n, w := range neighbors {
		heap.Push(h, connCandidate{id: n, weight: w})
		if h.Len() > k {
			heap.Pop(h)
		}
	}

	// The heap pops weakest first; filling the result backwards yields
	// strongest-first order.
	out := make([]types.Recommendation, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		c := heap.Pop(h).(connCandidate)
		out[i] = types.Recommendation{ID: c.id, Score: float64(c.weight)}
	}
	return out, nil
}

// neighborsSortedLocked returns the neighbor identifiers of id in ascending
// order. Traversals rely on this fixed iteration order to stay deterministic
// regardless of insertion history. Caller must hold at least the read lock.
func (g *Graph) neighborsSortedLocked(id string) []string {
	neighbors := g.adj[id]
	out := make([]string, 0, len(neighbors))
	for n := range neighbors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
