package recommend

import (
	"errors"
	"slices"
	"testing"

	"github.com/sanonone/basketdb/pkg/core/graph"
	"github.com/sanonone/basketdb/pkg/core/mining"
	"github.com/sanonone/basketdb/pkg/core/types"
)

func miningFixture() *mining.Miner {
	raw := [][]string{
		{"a", "b"},
		{"a", "b", "c"},
		{"a"},
		{"b", "c"},
	}
	baskets := make([]types.Basket, 0, len(raw))
	for _, items := range raw {
		baskets = append(baskets, types.NewBasket(items))
	}
	return mining.NewMiner(baskets)
}

func TestParseSource(t *testing.T) {
	for raw, want := range map[string]Source{
		"":       SourceGraph,
		"graph":  SourceGraph,
		"mining": SourceMining,
	} {
		got, err := ParseSource(raw)
		if err != nil || got != want {
			t.Errorf("ParseSource(%q): got %q (%v), want %q", raw, got, err, want)
		}
	}
	if _, err := ParseSource("magic"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Got %v, want ErrInvalidParameter", err)
	}
}

func TestRecommendGraphMode(t *testing.T) {
	g := graph.New()
	g.AddEdge("milk", "eggs", 10)
	g.AddEdge("milk", "bread", 5)
	g.AddEdge("milk", "butter", 5)
	r := New(g, nil, Options{})

	// 1. Top two by weight, equal weights broken by ascending identifier
	recs, err := r.Recommend("milk", 2, SourceGraph)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Got %d recommendations, want 2", len(recs))
	}
	if recs[0].ID != "eggs" || recs[1].ID != "bread" {
		t.Errorf("Got [%s %s], want [eggs bread]", recs[0].ID, recs[1].ID)
	}

	// 2. Unknown product is an error in graph mode
	if _, err := r.Recommend("ghost", 2, SourceGraph); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("Got %v, want ErrNodeNotFound", err)
	}

	// 3. Parameter validation
	if _, err := r.Recommend("milk", 0, SourceGraph); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("k=0: got %v, want ErrInvalidParameter", err)
	}
	if _, err := r.Recommend("milk", 2, Source("bogus")); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("bogus source: got %v, want ErrInvalidParameter", err)
	}
}

func TestRecommendMiningMode(t *testing.T) {
	r := New(graph.New(), miningFixture(), Options{MinSupport: 0.5})

	// 1. Partners of b in the frequent pairs, support-ranked
	recs, err := r.Recommend("b", 5, SourceMining)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Got %d recommendations, want 2", len(recs))
	}
	if recs[0].ID != "a" || recs[1].ID != "c" {
		t.Errorf("Got [%s %s], want [a c]", recs[0].ID, recs[1].ID)
	}
	if recs[0].Score != 0.5 {
		t.Errorf("Score: got %g, want 0.5", recs[0].Score)
	}

	// 2. A product outside every frequent pair is an empty result, no error
	recs, err = r.Recommend("ghost", 5, SourceMining)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Got %d recommendations for an unmined product, want 0", len(recs))
	}

	// 3. Mining mode without transactions reports the empty dataset
	empty := New(graph.New(), nil, Options{})
	if _, err := empty.Recommend("b", 5, SourceMining); !errors.Is(err, mining.ErrEmptyDataset) {
		t.Errorf("Got %v, want ErrEmptyDataset", err)
	}
}

func TestForBasket(t *testing.T) {
	g := graph.New()
	g.AddEdge("bread", "milk", 10)
	g.AddEdge("bread", "butter", 7)
	g.AddEdge("milk", "eggs", 8)
	g.AddEdge("bread", "eggs", 5)
	g.AddEdge("butter", "eggs", 3)
	r := New(g, nil, Options{})

	// Scores sum across members: eggs 5+8=13, butter 7
	recs, err := r.ForBasket([]string{"bread", "milk"}, 3)
	if err != nil {
		t.Fatalf("ForBasket failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Got %d recommendations, want 2", len(recs))
	}
	if recs[0].ID != "eggs" || recs[0].Score != 13 {
		t.Errorf("First: got %s (%.0f), want eggs (13)", recs[0].ID, recs[0].Score)
	}
	if recs[1].ID != "butter" || recs[1].Score != 7 {
		t.Errorf("Second: got %s (%.0f), want butter (7)", recs[1].ID, recs[1].Score)
	}

	// Members the graph has never seen are skipped, not fatal
	recs, err = r.ForBasket([]string{"bread", "unicorn"}, 5)
	if err != nil {
		t.Fatalf("ForBasket failed: %v", err)
	}
	if len(recs) == 0 {
		t.Error("Known member should still produce recommendations")
	}

	// Empty basket
	recs, err = r.ForBasket(nil, 5)
	if err != nil || len(recs) != 0 {
		t.Errorf("Empty basket: got %v (%v), want empty", recs, err)
	}
}

func TestSimilar(t *testing.T) {
	g := graph.New()
	g.AddEdge("a", "b", 1)
	g.AddEdge("a", "c", 1)
	g.AddEdge("d", "b", 1)
	g.AddEdge("d", "c", 1)
	r := New(g, nil, Options{})

	// a and d share both neighbors: Jaccard 1. b and c share none with a.
	recs, err := r.Similar("a", 5)
	if err != nil {
		t.Fatalf("Similar failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Got %d similar items, want 1", len(recs))
	}
	if recs[0].ID != "d" || recs[0].Score != 1.0 {
		t.Errorf("Got %s (%g), want d (1.0)", recs[0].ID, recs[0].Score)
	}

	if _, err := r.Similar("ghost", 5); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("Got %v, want ErrNodeNotFound", err)
	}
}

func TestBundles(t *testing.T) {
	g := graph.New()
	g.AddEdge("milk", "eggs", 10)
	g.AddEdge("milk", "bread", 5)
	g.AddEdge("eggs", "bread", 2)
	r := New(g, nil, Options{})

	bundles, err := r.Bundles(2, 3, 10)
	if err != nil {
		t.Fatalf("Bundles failed: %v", err)
	}
	// All three seeds produce the same member set; the best score wins
	if len(bundles) != 1 {
		t.Fatalf("Got %d bundles, want 1", len(bundles))
	}
	if !slices.Equal(bundles[0].Items, []string{"bread", "eggs", "milk"}) {
		t.Errorf("Got %v, want [bread eggs milk]", bundles[0].Items)
	}
	if bundles[0].Score != 15 {
		t.Errorf("Score: got %g, want 15 from milk's two strongest edges", bundles[0].Score)
	}

	if _, err := r.Bundles(1, 3, 10); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("minSize=1: got %v, want ErrInvalidParameter", err)
	}
}
