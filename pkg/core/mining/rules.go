// Association rule generation from frequent pairs. Every frequent pair
// {a,b} yields up to two directed rules, a->b and b->a, each with its own
// confidence; support and lift are symmetric.
package mining

import (
	"fmt"
	"sort"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// Rules derives association rules from the pairs meeting minSupport,
// keeping those whose confidence meets minConfidence. Confidence of a->b is
// the fraction of baskets containing a that also contain b; lift relates the
// observed co-occurrence to what independent products would show.
//
// Results are sorted by confidence descending, ties by (antecedent,
// consequent) ascending. Both thresholds must lie in (0,1].
func (m *Miner) Rules(minSupport, minConfidence float64) ([]types.Rule, error) {
	if minConfidence <= 0 || minConfidence > 1 {
		return nil, fmt.Errorf("min confidence %g outside (0,1]: %w", minConfidence, ErrInvalidParameter)
	}
	pairs, err := m.FrequentPairs(minSupport)
	if err != nil {
		return nil, err
	}

	total := float64(m.total)
	var rules []types.Rule

	appendRule := func(antecedent, consequent string, pairCount int) {
		antCount := m.itemCounts[antecedent]
		if antCount == 0 {
			return
		}
		confidence := float64(pairCount) / float64(antCount)
		if confidence < minConfidence {
			return
		}
		support := float64(pairCount) / total
		consSupport := float64(m.itemCounts[consequent]) / total
		rules = append(rules, types.Rule{
			Antecedent: antecedent,
			Consequent: consequent,
			Support:    support,
			Confidence: confidence,
			Lift:       confidence / consSupport,
		})
	}

	for _, fp := range pairs {
		appendRule(fp.Pair.A, fp.Pair.B, fp.Count)
		appendRule(fp.Pair.B, fp.Pair.A, fp.Count)
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		if rules[i].Antecedent != rules[j].Antecedent {
			return rules[i].Antecedent < rules[j].Antecedent
		}
		return rules[i].Consequent < rules[j].Consequent
	})
	return rules, nil
}
