// This file implements the traversal algorithms over the product graph:
// breadth-first and depth-first visitation, shortest-path search, reachable
// neighborhoods, connected components and the clustering coefficient.
//
// All traversals share the same discipline: a visited set guarantees each
// node is taken at most once (so cycles and disconnected components can
// never cause non-termination), and neighbors are always iterated in
// ascending identifier order so the output is deterministic for a fixed
// graph, independent of insertion history. Depth-first search uses an
// explicit stack instead of recursion to stay safe on large, skewed graphs.
// Every operation runs under a single read-lock acquisition, giving it a
// consistent snapshot of the graph.
package graph

import (
	"fmt"
	"sort"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// step carries a node through a frontier together with its hop distance
// from the traversal origin.
type step struct {
	id    string
	depth int
}

// --- VISITATION ORDER ---

// BFS explores the graph level by level from start and returns the full
// visitation order. Fails with ErrNodeNotFound if start is absent.
func (g *Graph) BFS(start string) ([]string, error) {
	return g.BFSDepth(start, -1)
}

// BFSDepth is BFS bounded to maxDepth hops from start; nodes further away
// are not visited. A negative maxDepth means unlimited, zero visits only the
// start node itself.
func (g *Graph) BFSDepth(start string, maxDepth int) ([]string, error) {
	start = types.NormalizeID(start)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.adj[start]; !ok {
		return nil, fmt.Errorf("bfs from %q: %w", start, ErrNodeNotFound)
	}
	return g.bfsOrderLocked(start, maxDepth), nil
}

// bfsOrderLocked runs the FIFO-frontier visit. Nodes are marked visited when
// enqueued so each one is enqueued at most once. Caller must hold at least
// the read lock.
func (g *Graph) bfsOrderLocked(start string, maxDepth int) []string {
	visited := map[string]bool{start: true}
	queue := []step{{id: start, depth: 0}}
	order := make([]string, 0, len(g.adj))

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		order = append(order, cur.id)
		if maxDepth >= 0 && cur.depth >= maxDepth {
			continue
		}
		for _, n := range g.neighborsSortedLocked(cur.id) {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, step{id: n, depth: cur.depth + 1})
			}
		}
	}
	return order
}

// DFS explores the graph depth-first from start and returns the full
// visitation order. Fails with ErrNodeNotFound if start is absent.
func (g *Graph) DFS(start string) ([]string, error) {
	return g.DFSDepth(start, -1)
}

// DFSDepth is DFS bounded to maxDepth hops. A negative maxDepth means
// unlimited, zero visits only the start node itself.
func (g *Graph) DFSDepth(start string, maxDepth int) ([]string, error) {
	start = types.NormalizeID(start)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.adj[start]; !ok {
		return nil, fmt.Errorf("dfs from %q: %w", start, ErrNodeNotFound)
	}

	visited := make(map[string]bool)
	stack := []step{{id: start, depth: 0}}
	order := make([]string, 0, len(g.adj))

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[cur.id] {
			continue
		}
		if maxDepth >= 0 && cur.depth > maxDepth {
			continue
		}
		visited[cur.id] = true
		order = append(order, cur.id)

		// Push in descending order so the lexicographically smallest
		// neighbor is popped, and therefore explored, first.
		neighbors := g.neighborsSortedLocked(cur.id)
		for i := len(neighbors) - 1; i >= 0; i-- {
			if !visited[neighbors[i]] {
				stack = append(stack, step{id: neighbors[i], depth: cur.depth + 1})
			}
		}
	}
	return order, nil
}

// --- PATH SEARCH ---

// ShortestPath returns the path with the fewest edges between start and
// goal, both endpoints included. The boolean is false when goal is
// unreachable from start, which is a valid outcome rather than an error.
// Fails with ErrNodeNotFound if either endpoint is absent.
func (g *Graph) ShortestPath(start, goal string) ([]string, bool, error) {
	start, goal = types.NormalizeID(start), types.NormalizeID(goal)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.checkEndpointsLocked(start, goal, "shortest path"); err != nil {
		return nil, false, err
	}
	if start == goal {
		return []string{start}, true, nil
	}

	// Breadth-first expansion with predecessor tracking: the first time the
	// goal is dequeued the walk back through parent is minimal by edge count.
	parent := map[string]string{start: start}
	queue := []string{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, n := range g.neighborsSortedLocked(cur) {
			if _, seen := parent[n]; seen {
				continue
			}
			parent[n] = cur
			if n == goal {
				return rebuildPath(parent, start, goal), true, nil
			}
			queue = append(queue, n)
		}
	}
	return nil, false, nil
}

// DFSPath returns some path between start and goal found by depth-first
// search. Unlike ShortestPath the result is not guaranteed minimal. The
// boolean is false when goal is unreachable. Fails with ErrNodeNotFound if
// either endpoint is absent.
func (g *Graph) DFSPath(start, goal string) ([]string, bool, error) {
	start, goal = types.NormalizeID(start), types.NormalizeID(goal)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.checkEndpointsLocked(start, goal, "dfs path"); err != nil {
		return nil, false, err
	}
	if start == goal {
		return []string{start}, true, nil
	}

	parent := map[string]string{start: start}
	visited := make(map[string]bool)
	stack := []string{start}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[cur] {
			continue
		}
		visited[cur] = true
		if cur == goal {
			return rebuildPath(parent, start, goal), true, nil
		}

		neighbors := g.neighborsSortedLocked(cur)
		for i := len(neighbors) - 1; i >= 0; i-- {
			n := neighbors[i]
			if !visited[n] {
				parent[n] = cur
				stack = append(stack, n)
			}
		}
	}
	return nil, false, nil
}

// rebuildPath walks the predecessor map backwards from goal to start and
// reverses the result. parent[start] must be start itself.
func rebuildPath(parent map[string]string, start, goal string) []string {
	path := []string{goal}
	for cur := goal; cur != start; {
		cur = parent[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (g *Graph) checkEndpointsLocked(start, goal, op string) error {
	if _, ok := g.adj[start]; !ok {
		return fmt.Errorf("%s: %q: %w", op, start, ErrNodeNotFound)
	}
	if _, ok := g.adj[goal]; !ok {
		return fmt.Errorf("%s: %q: %w", op, goal, ErrNodeNotFound)
	}
	return nil
}

// --- NEIGHBORHOOD AND STRUCTURE ---

// WithinDistance returns every product reachable from start in at most
// radius hops, in ascending order, excluding start itself. A radius of zero
// yields an empty result. Fails with ErrNodeNotFound for an absent start and
// ErrInvalidParameter for a negative radius.
func (g *Graph) WithinDistance(start string, radius int) ([]string, error) {
	start = types.NormalizeID(start)
	if radius < 0 {
		return nil, fmt.Errorf("radius %d must not be negative: %w", radius, ErrInvalidParameter)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.adj[start]; !ok {
		return nil, fmt.Errorf("within distance of %q: %w", start, ErrNodeNotFound)
	}

	order := g.bfsOrderLocked(start, radius)
	out := make([]string, 0, len(order)-1)
	for _, id := range order {
		if id != start {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Connected reports whether a path exists between a and b. Fails with
// ErrNodeNotFound if either product is absent.
func (g *Graph) Connected(a, b string) (bool, error) {
	a, b = types.NormalizeID(a), types.NormalizeID(b)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.checkEndpointsLocked(a, b, "connected"); err != nil {
		return false, err
	}
	if a == b {
		return true, nil
	}

	visited := map[string]bool{a: true}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for n := range g.adj[cur] {
			if n == b {
				return true, nil
			}
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return false, nil
}

// Components returns the connected components of the graph. Each component
// is sorted ascending and the components themselves are ordered by their
// smallest member, so the result is fully deterministic.
func (g *Graph) Components() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool, len(g.adj))
	var components [][]string

	for _, id := range g.nodesLocked() {
		if seen[id] {
			continue
		}
		component := g.bfsOrderLocked(id, -1)
		for _, member := range component {
			seen[member] = true
		}
		sort.Strings(component)
		components = append(components, component)
	}
	return components
}

// ClusteringCoefficient measures how tightly the neighborhood of a product
// is interconnected: the number of edges between its neighbors divided by
// the maximum possible. Products with fewer than two neighbors score 0.
// Fails with ErrNodeNotFound if the product is absent.
func (g *Graph) ClusteringCoefficient(id string) (float64, error) {
	id = types.NormalizeID(id)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.adj[id]; !ok {
		return 0, fmt.Errorf("clustering coefficient of %q: %w", id, ErrNodeNotFound)
	}

	neighbors := g.neighborsSortedLocked(id)
	if len(neighbors) < 2 {
		return 0, nil
	}

	linked := 0
	for i, a := range neighbors {
		for _, b := range neighbors[i+1:] {
			if _, ok := g.adj[a][b]; ok {
				linked++
			}
		}
	}
	possible := len(neighbors) * (len(neighbors) - 1) / 2
	return float64(linked) / float64(possible), nil
}
