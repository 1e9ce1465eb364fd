package mining

import (
	"errors"
	"testing"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// fixtureBaskets is the canonical four-transaction dataset used across the
// mining tests: {a,b}, {a,b,c}, {a}, {b,c}.
func fixtureBaskets() []types.Basket {
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
	return baskets
}

func TestSupport(t *testing.T) {
	m := NewMiner(fixtureBaskets())

	// a and b share two of the four baskets
	s, err := m.Support(types.NewPair("a", "b"))
	if err != nil {
		t.Fatalf("Support failed: %v", err)
	}
	if s != 0.5 {
		t.Errorf("support(a,b): got %g, want 0.5", s)
	}

	s, err = m.Support(types.NewPair("b", "c"))
	if err != nil {
		t.Fatalf("Support failed: %v", err)
	}
	if s != 0.5 {
		t.Errorf("support(b,c): got %g, want 0.5", s)
	}

	// Unknown items simply have zero support
	s, err = m.Support(types.NewPair("a", "ghost"))
	if err != nil {
		t.Fatalf("Support failed: %v", err)
	}
	if s != 0 {
		t.Errorf("support(a,ghost): got %g, want 0", s)
	}
}

func TestSupportEmptyDataset(t *testing.T) {
	m := NewMiner(nil)
	if _, err := m.Support(types.NewPair("a", "b")); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("Got %v, want ErrEmptyDataset", err)
	}
	if _, err := m.FrequentPairs(0.5); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("Got %v, want ErrEmptyDataset", err)
	}
}

func TestFrequentPairs(t *testing.T) {
	m := NewMiner(fixtureBaskets())

	// 1. Threshold met by exactly two pairs, tie broken lexicographically
	pairs, err := m.FrequentPairs(0.5)
	if err != nil {
		t.Fatalf("FrequentPairs failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Got %d pairs, want 2", len(pairs))
	}
	if pairs[0].Pair != types.NewPair("a", "b") {
		t.Errorf("First pair: got %+v, want (a,b)", pairs[0].Pair)
	}
	if pairs[1].Pair != types.NewPair("b", "c") {
		t.Errorf("Second pair: got %+v, want (b,c)", pairs[1].Pair)
	}
	if pairs[0].Count != 2 || pairs[0].Support != 0.5 {
		t.Errorf("Got count=%d support=%g, want 2 and 0.5", pairs[0].Count, pairs[0].Support)
	}

	// 2. Raising the threshold empties the result without error
	pairs, err = m.FrequentPairs(0.6)
	if err != nil {
		t.Fatalf("FrequentPairs failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Got %d pairs, want 0", len(pairs))
	}
}

func TestFrequentPairsInvalidSupport(t *testing.T) {
	m := NewMiner(fixtureBaskets())
	for _, bad := range []float64{0, -0.2, 1.5} {
		if _, err := m.FrequentPairs(bad); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("min_support=%g: got %v, want ErrInvalidParameter", bad, err)
		}
	}
	// 1.0 is inside the valid range
	if _, err := m.FrequentPairs(1.0); err != nil {
		t.Errorf("min_support=1.0 rejected: %v", err)
	}
}

func TestSetSemanticsAndNormalization(t *testing.T) {
	baskets := []types.Basket{
		types.NewBasket([]string{"Milk", "milk ", "BREAD"}),
		types.NewBasket([]string{"bread", "milk"}),
	}
	m := NewMiner(baskets)

	// Duplicates collapse: the pair counts once per basket
	s, err := m.Support(types.NewPair("milk", "bread"))
	if err != nil {
		t.Fatalf("Support failed: %v", err)
	}
	if s != 1.0 {
		t.Errorf("Got %g, want 1.0", s)
	}
	if got := m.ItemCount("MILK"); got != 2 {
		t.Errorf("ItemCount: got %d, want 2", got)
	}
}

func TestMiningOrderIndependence(t *testing.T) {
	forward := fixtureBaskets()
	reversed := make([]types.Basket, len(forward))
	for i, b := range forward {
		reversed[len(forward)-1-i] = b
	}

	a, err := NewMiner(forward).FrequentPairs(0.5)
	if err != nil {
		t.Fatalf("FrequentPairs failed: %v", err)
	}
	b, err := NewMiner(reversed).FrequentPairs(0.5)
	if err != nil {
		t.Fatalf("FrequentPairs failed: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("Result sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Position %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSingletonBasketsContributeNoPairs(t *testing.T) {
	m := NewMiner([]types.Basket{
		types.NewBasket([]string{"a"}),
		types.NewBasket([]string{"b"}),
		types.NewBasket(nil),
	})
	pairs, err := m.FrequentPairs(0.1)
	if err != nil {
		t.Fatalf("FrequentPairs failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Got %d pairs from singleton baskets, want 0", len(pairs))
	}
}

func TestFrequentItems(t *testing.T) {
	m := NewMiner(fixtureBaskets())

	items, err := m.FrequentItems(0.7)
	if err != nil {
		t.Fatalf("FrequentItems failed: %v", err)
	}
	// a and b each appear in 3 of 4 baskets; the tie is broken by item
	if len(items) != 2 {
		t.Fatalf("Got %d items, want 2", len(items))
	}
	if items[0].Item != "a" || items[1].Item != "b" {
		t.Errorf("Got [%s %s], want [a b]", items[0].Item, items[1].Item)
	}
	if items[0].Count != 3 || items[0].Support != 0.75 {
		t.Errorf("Got count=%d support=%g, want 3 and 0.75", items[0].Count, items[0].Support)
	}
}

func TestTopPairs(t *testing.T) {
	m := NewMiner(fixtureBaskets())

	top, err := m.TopPairs(1)
	if err != nil {
		t.Fatalf("TopPairs failed: %v", err)
	}
	if len(top) != 1 || top[0].Pair != types.NewPair("a", "b") {
		t.Errorf("Got %+v, want the single pair (a,b)", top)
	}

	if _, err := m.TopPairs(0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Got %v, want ErrInvalidParameter", err)
	}
}
