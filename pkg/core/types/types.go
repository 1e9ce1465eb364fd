// Package types defines the shared value types exchanged between the core
// packages (graph, mining, recommend) and the layers built on top of them.
// Everything here is a plain in-memory value: the core exposes results as
// slices and maps of these types with no serialization format attached.
package types

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalidParameter reports a numeric or enum argument outside its valid
// range (non-positive k, min_support outside (0,1], unknown recommendation
// source). It is shared across the core packages so callers can match the
// kind with errors.Is regardless of which component rejected the value.
var ErrInvalidParameter = errors.New("invalid parameter")

// NormalizeID canonicalizes a product identifier: surrounding whitespace is
// trimmed and the result is lower-cased. Identifiers that differ only by case
// or padding always collapse to the same product.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Basket is one transaction: the set of product identifiers observed
// together once. The canonical form is normalized, de-duplicated and sorted
// ascending, which makes pair generation and mining results independent of
// the order the loader supplied the items in.
type Basket []string

// NewBasket builds the canonical form of a transaction from raw items.
// Duplicates collapse to a single occurrence and empty identifiers are
// dropped, so a zero-length result is possible and valid.
func NewBasket(items []string) Basket {
	seen := make(map[string]struct{}, len(items))
	b := make(Basket, 0, len(items))
	for _, raw := range items {
		id := NormalizeID(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		b = append(b, id)
	}
	sort.Strings(b)
	return b
}

// Contains reports whether the basket holds the given (already normalized)
// identifier. The canonical ordering allows a binary search.
func (b Basket) Contains(id string) bool {
	i := sort.SearchStrings(b, id)
	return i < len(b) && b[i] == id
}

// ContainsPair reports whether both members of the pair appear in the basket.
func (b Basket) ContainsPair(p Pair) bool {
	return b.Contains(p.A) && b.Contains(p.B)
}

// Pair is an unordered pair of product identifiers in canonical form:
// both members normalized and A ordered before B.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPair canonicalizes two identifiers into a Pair. The members are
// normalized and swapped if needed so that A < B; a pair built from
// ("Milk", "bread") and one built from ("bread", "milk ") compare equal.
func NewPair(a, b string) Pair {
	a, b = NormalizeID(a), NormalizeID(b)
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Other returns the member of the pair that is not id, and whether id is a
// member at all.
func (p Pair) Other(id string) (string, bool) {
	switch id {
	case p.A:
		return p.B, true
	case p.B:
		return p.A, true
	}
	return "", false
}

// Less orders pairs lexicographically on (A, B). This is the canonical
// tie-break order used wherever rankings tie.
func (p Pair) Less(q Pair) bool {
	if p.A != q.A {
		return p.A < q.A
	}
	return p.B < q.B
}

// FrequentPair is a mined co-occurrence result: the pair, how many baskets
// contained both members, and that count as a fraction of all baskets.
type FrequentPair struct {
	Pair    Pair    `json:"pair"`
	Count   int     `json:"count"`
	Support float64 `json:"support"`
}

// FrequentItem is the 1-itemset analogue of FrequentPair.
type FrequentItem struct {
	Item    string  `json:"item"`
	Count   int     `json:"count"`
	Support float64 `json:"support"`
}

// FrequentItemset is a mined k-itemset: the sorted member identifiers with
// their joint occurrence count and support.
type FrequentItemset struct {
	Items   []string `json:"items"`
	Count   int      `json:"count"`
	Support float64  `json:"support"`
}

// Rule is a directed association rule "antecedent -> consequent" derived
// from a frequent pair. Confidence is the conditional probability of the
// consequent given the antecedent; lift above 1 means the two products
// co-occur more often than independence would predict.
type Rule struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}

// Recommendation is one ranked result: a related product and the strength
// of the relation (edge weight in graph mode, support in mining mode,
// similarity or summed weight for the derived rankings).
type Recommendation struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Bundle is a group of products frequently bought together, scored by the
// summed weight of the edges that formed it. Items are sorted ascending.
type Bundle struct {
	Items []string `json:"items"`
	Score float64  `json:"score"`
}

// DatasetInfo models the summary of one dataset for the API.
type DatasetInfo struct {
	Name    string  `json:"name"`
	Nodes   int     `json:"nodes"`
	Edges   int     `json:"edges"`
	Baskets int     `json:"baskets"`
	Density float64 `json:"density"`
}
