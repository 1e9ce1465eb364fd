package mining

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestFrequentItemsets(t *testing.T) {
	m := NewMiner(fixtureBaskets())

	// 1. Size 3: only {a,b,c} co-occurs, in one of four baskets
	sets, err := m.FrequentItemsets(3, 0.25)
	if err != nil {
		t.Fatalf("FrequentItemsets failed: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("Got %d itemsets, want 1", len(sets))
	}
	if !slices.Equal(sets[0].Items, []string{"a", "b", "c"}) {
		t.Errorf("Got %v, want [a b c]", sets[0].Items)
	}
	if sets[0].Count != 1 || sets[0].Support != 0.25 {
		t.Errorf("Got count=%d support=%g, want 1 and 0.25", sets[0].Count, sets[0].Support)
	}

	// 2. Size 2 agrees with the pair miner
	sets, err = m.FrequentItemsets(2, 0.5)
	if err != nil {
		t.Fatalf("FrequentItemsets failed: %v", err)
	}
	pairs, err := m.FrequentPairs(0.5)
	if err != nil {
		t.Fatalf("FrequentPairs failed: %v", err)
	}
	if len(sets) != len(pairs) {
		t.Fatalf("Itemsets of size 2 (%d) disagree with pairs (%d)", len(sets), len(pairs))
	}
	for i := range sets {
		if sets[i].Items[0] != pairs[i].Pair.A || sets[i].Items[1] != pairs[i].Pair.B {
			t.Errorf("Position %d: %v vs %+v", i, sets[i].Items, pairs[i].Pair)
		}
		if sets[i].Count != pairs[i].Count {
			t.Errorf("Position %d: count %d vs %d", i, sets[i].Count, pairs[i].Count)
		}
	}

	// 3. Invalid size
	if _, err := m.FrequentItemsets(0, 0.5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("k=0: got %v, want ErrInvalidParameter", err)
	}
}

func TestApriori(t *testing.T) {
	m := NewMiner(fixtureBaskets())

	levels, err := m.Apriori(3, 0.5)
	if err != nil {
		t.Fatalf("Apriori failed: %v", err)
	}

	// Levels 1 and 2 survive the threshold; level 3 is empty and stops the run
	if len(levels) != 2 {
		t.Fatalf("Got %d levels, want 2", len(levels))
	}
	if len(levels[1]) != 3 {
		t.Errorf("Level 1: got %d itemsets, want 3", len(levels[1]))
	}
	if len(levels[2]) != 2 {
		t.Errorf("Level 2: got %d itemsets, want 2", len(levels[2]))
	}
	if _, ok := levels[3]; ok {
		t.Error("Level 3 present despite no frequent 3-itemsets at 0.5")
	}

	if _, err := m.Apriori(0, 0.5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("max_k=0: got %v, want ErrInvalidParameter", err)
	}
}

func TestRules(t *testing.T) {
	m := NewMiner(fixtureBaskets())

	rules, err := m.Rules(0.5, 0.5)
	if err != nil {
		t.Fatalf("Rules failed: %v", err)
	}
	// Pairs (a,b) and (b,c) both count 2; item counts a=3 b=3 c=2.
	// Confidences: a->b 2/3, b->a 2/3, b->c 2/3, c->b 1 — all pass 0.5.
	if len(rules) != 4 {
		t.Fatalf("Got %d rules, want 4", len(rules))
	}
	if rules[0].Antecedent != "c" || rules[0].Consequent != "b" {
		t.Errorf("Strongest rule: got %s->%s, want c->b", rules[0].Antecedent, rules[0].Consequent)
	}
	if rules[0].Confidence != 1.0 {
		t.Errorf("c->b confidence: got %g, want 1.0", rules[0].Confidence)
	}
	// lift(c->b) = (2/4) / ((2/4)*(3/4))
	if want := (0.5) / (0.5 * 0.75); math.Abs(rules[0].Lift-want) > 1e-12 {
		t.Errorf("c->b lift: got %g, want %g", rules[0].Lift, want)
	}
	// Confidence ties are ordered by antecedent then consequent
	if rules[1].Antecedent != "a" || rules[1].Consequent != "b" {
		t.Errorf("Second rule: got %s->%s, want a->b", rules[1].Antecedent, rules[1].Consequent)
	}

	// Tightening confidence keeps only the certain rule
	rules, err = m.Rules(0.5, 0.9)
	if err != nil {
		t.Fatalf("Rules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].Antecedent != "c" {
		t.Errorf("Got %+v, want only c->b", rules)
	}

	if _, err := m.Rules(0.5, 1.5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Got %v, want ErrInvalidParameter", err)
	}
}
