package graph

import (
	"errors"
	"slices"
	"testing"
)

// testGraph builds the fixture used across the traversal tests:
//
//	a—b, a—c, b—d, c—d, d—e   plus the isolated node z
func testGraph() *Graph {
	g := New()
	g.AddEdge("a", "b", 1)
	g.AddEdge("a", "c", 1)
	g.AddEdge("b", "d", 1)
	g.AddEdge("c", "d", 1)
	g.AddEdge("d", "e", 1)
	g.AddNode("z")
	return g
}

func TestBFSOrder(t *testing.T) {
	g := testGraph()

	order, err := g.BFS("a")
	if err != nil {
		t.Fatalf("BFS failed: %v", err)
	}
	want := []string{"a", "b", "c", "d", "e"}
	if !slices.Equal(order, want) {
		t.Errorf("Got %v, want %v", order, want)
	}
}

func TestDFSOrder(t *testing.T) {
	g := testGraph()

	order, err := g.DFS("a")
	if err != nil {
		t.Fatalf("DFS failed: %v", err)
	}
	// Depth-first with ascending neighbor order: a dives through b into d,
	// then c, then e.
	want := []string{"a", "b", "d", "c", "e"}
	if !slices.Equal(order, want) {
		t.Errorf("Got %v, want %v", order, want)
	}
}

func TestTraversalMissingStart(t *testing.T) {
	g := testGraph()
	if _, err := g.BFS("ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("BFS: got %v, want ErrNodeNotFound", err)
	}
	if _, err := g.DFS("ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("DFS: got %v, want ErrNodeNotFound", err)
	}
}

func TestDepthLimits(t *testing.T) {
	g := testGraph()

	// 1. Depth 0 is just the start node
	order, err := g.BFSDepth("a", 0)
	if err != nil {
		t.Fatalf("BFSDepth failed: %v", err)
	}
	if !slices.Equal(order, []string{"a"}) {
		t.Errorf("Depth 0: got %v, want [a]", order)
	}

	// 2. Depth 1 stops at the direct neighbors
	order, err = g.BFSDepth("a", 1)
	if err != nil {
		t.Fatalf("BFSDepth failed: %v", err)
	}
	if !slices.Equal(order, []string{"a", "b", "c"}) {
		t.Errorf("Depth 1: got %v, want [a b c]", order)
	}

	// 3. Same bound for DFS
	order, err = g.DFSDepth("a", 1)
	if err != nil {
		t.Fatalf("DFSDepth failed: %v", err)
	}
	if !slices.Equal(order, []string{"a", "b", "c"}) {
		t.Errorf("DFS depth 1: got %v, want [a b c]", order)
	}
}

func TestShortestPath(t *testing.T) {
	g := testGraph()

	// 1. Minimal path by edge count, deterministic branch choice
	path, found, err := g.ShortestPath("a", "e")
	if err != nil {
		t.Fatalf("ShortestPath failed: %v", err)
	}
	if !found {
		t.Fatal("No path found between connected nodes")
	}
	want := []string{"a", "b", "d", "e"}
	if !slices.Equal(path, want) {
		t.Errorf("Got %v, want %v", path, want)
	}

	// 2. Start equals goal
	path, found, err = g.ShortestPath("a", "a")
	if err != nil || !found {
		t.Fatalf("Trivial path failed: %v", err)
	}
	if !slices.Equal(path, []string{"a"}) {
		t.Errorf("Got %v, want [a]", path)
	}

	// 3. Unreachable goal is a not-found result, not an error
	_, found, err = g.ShortestPath("a", "z")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if found {
		t.Error("Found a path to an isolated node")
	}

	// 4. Absent endpoints
	if _, _, err := g.ShortestPath("ghost", "a"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Got %v, want ErrNodeNotFound", err)
	}
	if _, _, err := g.ShortestPath("a", "ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Got %v, want ErrNodeNotFound", err)
	}
}

func TestBFSPathNeverLongerThanDFSPath(t *testing.T) {
	g := testGraph()
	nodes := []string{"a", "b", "c", "d", "e"}

	for _, start := range nodes {
		for _, goal := range nodes {
			bfsPath, bfsFound, err := g.ShortestPath(start, goal)
			if err != nil {
				t.Fatalf("ShortestPath(%s,%s) failed: %v", start, goal, err)
			}
			dfsPath, dfsFound, err := g.DFSPath(start, goal)
			if err != nil {
				t.Fatalf("DFSPath(%s,%s) failed: %v", start, goal, err)
			}
			if bfsFound != dfsFound {
				t.Fatalf("Reachability disagreement for (%s,%s)", start, goal)
			}
			if bfsFound && len(bfsPath) > len(dfsPath) {
				t.Errorf("BFS path %v longer than DFS path %v", bfsPath, dfsPath)
			}
		}
	}
}

func TestTraversalCompleteness(t *testing.T) {
	g := testGraph()
	component := []string{"a", "b", "c", "d", "e"}

	// Every node of the component is visited exactly once from any start
	for _, start := range component {
		for name, traverse := range map[string]func(string) ([]string, error){
			"BFS": g.BFS,
			"DFS": g.DFS,
		} {
			order, err := traverse(start)
			if err != nil {
				t.Fatalf("%s(%s) failed: %v", name, start, err)
			}
			if len(order) != len(component) {
				t.Errorf("%s(%s): visited %d nodes, want %d", name, start, len(order), len(component))
			}
			seen := make(map[string]int)
			for _, id := range order {
				seen[id]++
			}
			for _, id := range component {
				if seen[id] != 1 {
					t.Errorf("%s(%s): node %s visited %d times", name, start, id, seen[id])
				}
			}
			if slices.Contains(order, "z") {
				t.Errorf("%s(%s): isolated node z must never be visited", name, start)
			}
		}
	}
}

func TestWithinDistance(t *testing.T) {
	g := testGraph()

	got, err := g.WithinDistance("a", 2)
	if err != nil {
		t.Fatalf("WithinDistance failed: %v", err)
	}
	want := []string{"b", "c", "d"}
	if !slices.Equal(got, want) {
		t.Errorf("Got %v, want %v", got, want)
	}

	got, err = g.WithinDistance("a", 0)
	if err != nil {
		t.Fatalf("WithinDistance failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Radius 0: got %v, want empty", got)
	}

	if _, err := g.WithinDistance("a", -1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Got %v, want ErrInvalidParameter", err)
	}
}

func TestConnected(t *testing.T) {
	g := testGraph()

	ok, err := g.Connected("a", "e")
	if err != nil || !ok {
		t.Errorf("a and e should be connected (err=%v)", err)
	}
	ok, err = g.Connected("a", "z")
	if err != nil {
		t.Fatalf("Connected failed: %v", err)
	}
	if ok {
		t.Error("a and the isolated z reported connected")
	}
}

func TestComponents(t *testing.T) {
	g := testGraph()
	g.AddEdge("x", "y", 1)

	comps := g.Components()
	if len(comps) != 3 {
		t.Fatalf("Got %d components, want 3", len(comps))
	}
	// Ordered by smallest member: [a..e], [x y], [z]
	if !slices.Equal(comps[0], []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("First component: got %v", comps[0])
	}
	if !slices.Equal(comps[1], []string{"x", "y"}) {
		t.Errorf("Second component: got %v", comps[1])
	}
	if !slices.Equal(comps[2], []string{"z"}) {
		t.Errorf("Third component: got %v", comps[2])
	}
}

func TestClusteringCoefficient(t *testing.T) {
	g := New()
	g.AddEdge("a", "b", 1)
	g.AddEdge("b", "c", 1)
	g.AddEdge("a", "c", 1)
	g.AddEdge("c", "d", 1)

	// 1. Neighbors of a (b and c) are linked: full coefficient
	cc, err := g.ClusteringCoefficient("a")
	if err != nil {
		t.Fatalf("ClusteringCoefficient failed: %v", err)
	}
	if cc != 1.0 {
		t.Errorf("Got %f, want 1.0", cc)
	}

	// 2. c has neighbors a, b, d with one link out of three possible
	cc, err = g.ClusteringCoefficient("c")
	if err != nil {
		t.Fatalf("ClusteringCoefficient failed: %v", err)
	}
	if want := 1.0 / 3.0; cc != want {
		t.Errorf("Got %f, want %f", cc, want)
	}

	// 3. Degree below two scores zero
	cc, err = g.ClusteringCoefficient("d")
	if err != nil || cc != 0 {
		t.Errorf("Got %f (%v), want 0", cc, err)
	}

	if _, err := g.ClusteringCoefficient("ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Got %v, want ErrNodeNotFound", err)
	}
}
