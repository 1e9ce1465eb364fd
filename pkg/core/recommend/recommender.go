// Package recommend ranks related products for a query product, a whole
// basket, or the catalog at large. Two explicit ranking sources exist: the
// co-purchase graph (edge weights) and the miner (pair support). The source
// is a validated enum rather than a free-form string, so an unknown mode
// fails fast instead of silently falling back.
package recommend

import (
	"fmt"
	"slices"
	"sort"

	"github.com/sanonone/basketdb/pkg/core/graph"
	"github.com/sanonone/basketdb/pkg/core/mining"
	"github.com/sanonone/basketdb/pkg/core/types"
)

// ErrInvalidParameter mirrors types.ErrInvalidParameter so callers of this
// package can match either sentinel.
var ErrInvalidParameter = types.ErrInvalidParameter

// Source selects the ranking strategy for Recommend.
type Source string

const (
	// SourceGraph ranks by co-purchase edge weight. This is the default.
	SourceGraph Source = "graph"
	// SourceMining ranks by the support of the miner's frequent pairs.
	SourceMining Source = "mining"
)

// ParseSource validates a raw source value. The empty string selects the
// default graph source; anything else unknown fails with
// ErrInvalidParameter.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case "":
		return SourceGraph, nil
	case SourceGraph:
		return SourceGraph, nil
	case SourceMining:
		return SourceMining, nil
	}
	return "", fmt.Errorf("unknown recommendation source %q: %w", s, ErrInvalidParameter)
}

// DefaultMinSupport is the frequent-pair threshold used by the mining
// source when the caller does not configure one.
const DefaultMinSupport = 0.01

// Options tunes a Recommender.
type Options struct {
	// MinSupport is the threshold handed to the miner in mining mode.
	// Zero means DefaultMinSupport.
	MinSupport float64
}

// Recommender ranks related products over one graph and, for the mining
// source, one miner. It holds no mutable state of its own and is safe for
// concurrent use as long as the underlying graph is in its read phase.
type Recommender struct {
	graph      *graph.Graph
	miner      *mining.Miner
	minSupport float64
}

// New builds a recommender. The miner may be nil when only the graph source
// will be used; a mining-mode query without a miner reports an empty
// dataset.
func New(g *graph.Graph, m *mining.Miner, opts Options) *Recommender {
	minSupport := opts.MinSupport
	if minSupport == 0 {
		minSupport = DefaultMinSupport
	}
	return &Recommender{graph: g, miner: m, minSupport: minSupport}
}

// Recommend returns up to k products related to the given one, strongest
// relation first. In graph mode the ranking is edge weight descending with
// ties broken by identifier ascending, and an absent product fails with
// graph.ErrNodeNotFound. In mining mode the ranking is frequent-pair support
// restricted to pairs containing the product; a product that never reached
// a frequent pair yields an empty result, because infrequency is a valid
// outcome rather than an error. k must be positive.
func (r *Recommender) Recommend(id string, k int, src Source) ([]types.Recommendation, error) {
	if k < 1 {
		return nil, fmt.Errorf("recommend k=%d must be positive: %w", k, ErrInvalidParameter)
	}
	switch src {
	case SourceGraph:
		return r.graph.TopConnections(id, k)
	case SourceMining:
		return r.fromMining(id, k)
	}
	return nil, fmt.Errorf("unknown recommendation source %q: %w", src, ErrInvalidParameter)
}

func (r *Recommender) fromMining(id string, k int) ([]types.Recommendation, error) {
	if r.miner == nil {
		return nil, fmt.Errorf("recommend: no transactions loaded: %w", mining.ErrEmptyDataset)
	}
	pairs, err := r.miner.FrequentPairs(r.minSupport)
	if err != nil {
		return nil, err
	}

	id = types.NormalizeID(id)
	out := make([]types.Recommendation, 0, k)
	// Frequent pairs are already ordered by support descending with the
	// lexicographic tie-break, which keeps partners of equal support in
	// ascending order after filtering.
	for _, fp := range pairs {
		partner, ok := fp.Pair.Other(id)
		if !ok {
			continue
		}
		out = append(out, types.Recommendation{ID: partner, Score: fp.Support})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// ForBasket recommends up to k products to add to a basket. Every basket
// member contributes its neighbors, scores are the summed edge weights
// across members, and products already in the basket are excluded. Members
// missing from the graph are skipped; an empty basket yields an empty
// result.
func (r *Recommender) ForBasket(items []string, k int) ([]types.Recommendation, error) {
	if k < 1 {
		return nil, fmt.Errorf("basket recommend k=%d must be positive: %w", k, ErrInvalidParameter)
	}
	basket := types.NewBasket(items)
	if len(basket) == 0 {
		return nil, nil
	}

	scores := make(map[string]int)
	for _, member := range basket {
		neighbors, err := r.graph.Neighbors(member)
		if err != nil {
			continue
		}
		for n, w := range neighbors {
			if basket.Contains(n) {
				continue
			}
			scores[n] += w
		}
	}
	return rankScores(scores, k), nil
}

// Similar returns up to k products whose neighborhoods overlap the given
// product's, ranked by Jaccard similarity of the neighbor sets. Products
// sharing no neighbor with the query are omitted. Fails with
// graph.ErrNodeNotFound for an absent product.
func (r *Recommender) Similar(id string, k int) ([]types.Recommendation, error) {
	if k < 1 {
		return nil, fmt.Errorf("similar k=%d must be positive: %w", k, ErrInvalidParameter)
	}
	id = types.NormalizeID(id)
	target, err := r.graph.Neighbors(id)
	if err != nil {
		return nil, err
	}
	if len(target) == 0 {
		return nil, nil
	}

	type scored struct {
		id    string
		score float64
	}
	var out []scored
	for _, other := range r.graph.Nodes() {
		if other == id {
			continue
		}
		neighbors, err := r.graph.Neighbors(other)
		if err != nil || len(neighbors) == 0 {
			continue
		}
		intersection := 0
		for n := range neighbors {
			if _, ok := target[n]; ok {
				intersection++
			}
		}
		if intersection == 0 {
			continue
		}
		union := len(target) + len(neighbors) - intersection
		out = append(out, scored{id: other, score: float64(intersection) / float64(union)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	if len(out) > k {
		out = out[:k]
	}
	recs := make([]types.Recommendation, len(out))
	for i, s := range out {
		recs[i] = types.Recommendation{ID: s.id, Score: s.score}
	}
	return recs, nil
}

// Bundles proposes up to k groups of products frequently bought together.
// Each node seeds one candidate bundle from its strongest maxSize−1
// connections; candidates below minSize members are dropped, duplicates
// keep their best score, and the rest rank by score descending with ties on
// the member list ascending.
func (r *Recommender) Bundles(minSize, maxSize, k int) ([]types.Bundle, error) {
	if minSize < 2 || maxSize < minSize {
		return nil, fmt.Errorf("bundle size bounds [%d,%d]: %w", minSize, maxSize, ErrInvalidParameter)
	}
	if k < 1 {
		return nil, fmt.Errorf("bundles k=%d must be positive: %w", k, ErrInvalidParameter)
	}

	best := make(map[string]types.Bundle)
	for _, node := range r.graph.Nodes() {
		top, err := r.graph.TopConnections(node, maxSize-1)
		if err != nil || len(top) < minSize-1 {
			continue
		}
		members := make([]string, 0, len(top)+1)
		members = append(members, node)
		score := 0.0
		for _, conn := range top {
			members = append(members, conn.ID)
			score += conn.Score
		}
		sort.Strings(members)

		key := fmt.Sprint(members)
		if prev, ok := best[key]; !ok || score > prev.Score {
			best[key] = types.Bundle{Items: members, Score: score}
		}
	}

	bundles := make([]types.Bundle, 0, len(best))
	for _, b := range best {
		bundles = append(bundles, b)
	}
	sort.Slice(bundles, func(i, j int) bool {
		if bundles[i].Score != bundles[j].Score {
			return bundles[i].Score > bundles[j].Score
		}
		return slices.Compare(bundles[i].Items, bundles[j].Items) < 0
	})
	if len(bundles) > k {
		bundles = bundles[:k]
	}
	return bundles, nil
}

// rankScores turns an accumulated score map into a ranked result: score
// descending, identifier ascending, truncated to k.
func rankScores(scores map[string]int, k int) []types.Recommendation {
	out := make([]types.Recommendation, 0, len(scores))
	for id, score := range scores {
		out = append(out, types.Recommendation{ID: id, Score: float64(score)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
