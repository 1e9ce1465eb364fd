package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/basketdb/pkg/core/graph"
	"github.com/sanonone/basketdb/pkg/core/recommend"
	"github.com/sanonone/basketdb/pkg/engine"
)

type Service struct {
	engine *engine.Engine
}

func NewService(eng *engine.Engine) *Service {
	return &Service{
		engine: eng,
	}
}

// datasetOr maps the optional dataset argument to the default store
func datasetOr(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

// describe hydrates a product ID with its display label when one is set
func (s *Service) describe(dataset, id string) string {
	ds, err := s.engine.Dataset(dataset)
	if err != nil {
		return id
	}
	if label, ok := ds.Label(id); ok {
		return fmt.Sprintf("%s (%s)", label, id)
	}
	return id
}

// --- Tool Handlers ---

func (s *Service) ObserveBasket(ctx context.Context, req *mcp.CallToolRequest, args ObserveBasketArgs) (*mcp.CallToolResult, ObserveBasketResult, error) {
	b, err := s.engine.ObserveBasket(datasetOr(args.Dataset), args.Items)
	if err != nil {
		return nil, ObserveBasketResult{}, err
	}
	if len(b) == 0 {
		return nil, ObserveBasketResult{Basket: []string{}, Status: "empty after normalization, nothing recorded"}, nil
	}
	return nil, ObserveBasketResult{Basket: []string(b), Status: "recorded"}, nil
}

func (s *Service) Recommend(ctx context.Context, req *mcp.CallToolRequest, args RecommendArgs) (*mcp.CallToolResult, RecommendResult, error) {
	ds := datasetOr(args.Dataset)

	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}
	src, err := recommend.ParseSource(args.Source)
	if err != nil {
		return nil, RecommendResult{}, err
	}
	minSupport := args.MinSupport
	if minSupport <= 0 {
		minSupport = recommend.DefaultMinSupport
	}

	recs, err := s.engine.Recommend(ds, args.ProductID, limit, src, minSupport)
	if err != nil {
		return nil, RecommendResult{}, err
	}
	if len(recs) == 0 {
		return nil, RecommendResult{Results: []string{fmt.Sprintf("No recommendations for '%s' yet.", args.ProductID)}}, nil
	}

	res := make([]string, 0, len(recs))
	for _, rec := range recs {
		res = append(res, fmt.Sprintf("%s (score %.2f)", s.describe(ds, rec.ID), rec.Score))
	}
	return nil, RecommendResult{Results: res}, nil
}

func (s *Service) FrequentPairs(ctx context.Context, req *mcp.CallToolRequest, args FrequentPairsArgs) (*mcp.CallToolResult, RecommendResult, error) {
	ds := datasetOr(args.Dataset)

	minSupport := args.MinSupport
	if minSupport <= 0 {
		minSupport = recommend.DefaultMinSupport
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	pairs, err := s.engine.FrequentPairs(ds, minSupport)
	if err != nil {
		return nil, RecommendResult{}, err
	}
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	if len(pairs) == 0 {
		return nil, RecommendResult{Results: []string{"No pair reaches that support."}}, nil
	}

	res := make([]string, 0, len(pairs))
	for _, p := range pairs {
		res = append(res, fmt.Sprintf("%s + %s (together in %d baskets, support %.3f)",
			s.describe(ds, p.Pair.A), s.describe(ds, p.Pair.B), p.Count, p.Support))
	}
	return nil, RecommendResult{Results: res}, nil
}

func (s *Service) Rules(ctx context.Context, req *mcp.CallToolRequest, args RulesArgs) (*mcp.CallToolResult, RecommendResult, error) {
	ds := datasetOr(args.Dataset)

	minSupport := args.MinSupport
	if minSupport <= 0 {
		minSupport = recommend.DefaultMinSupport
	}
	minConfidence := args.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.5
	}

	rules, err := s.engine.Rules(ds, minSupport, minConfidence)
	if err != nil {
		return nil, RecommendResult{}, err
	}
	if len(rules) == 0 {
		return nil, RecommendResult{Results: []string{"No rule meets those thresholds."}}, nil
	}

	res := make([]string, 0, len(rules))
	for _, rule := range rules {
		res = append(res, fmt.Sprintf("who buys %s also buys %s (confidence %.0f%%, lift %.2f)",
			s.describe(ds, rule.Antecedent), s.describe(ds, rule.Consequent), rule.Confidence*100, rule.Lift))
	}
	return nil, RecommendResult{Results: res}, nil
}

func (s *Service) FindConnection(ctx context.Context, req *mcp.CallToolRequest, args FindConnectionArgs) (*mcp.CallToolResult, FindConnectionResult, error) {
	ds := datasetOr(args.Dataset)

	path, found, err := s.engine.ShortestPath(ds, args.SourceID, args.TargetID)
	if err != nil {
		return nil, FindConnectionResult{}, err
	}
	if !found {
		return nil, FindConnectionResult{
			PathDescription: fmt.Sprintf("No purchase connection between '%s' and '%s'.", args.SourceID, args.TargetID),
		}, nil
	}

	steps := make([]string, len(path))
	for i, id := range path {
		steps[i] = s.describe(ds, id)
	}
	return nil, FindConnectionResult{PathDescription: strings.Join(steps, " -> ")}, nil
}

func (s *Service) Traverse(ctx context.Context, req *mcp.CallToolRequest, args TraverseArgs) (*mcp.CallToolResult, TraverseResult, error) {
	ds := datasetOr(args.Dataset)
	depth := args.Depth
	if depth <= 0 {
		depth = 1
	}

	neighbors, err := s.engine.Neighbors(ds, args.RootID)
	if err != nil {
		// A product nobody paired up yet is an answer, not an error.
		if errors.Is(err, graph.ErrNodeNotFound) {
			return nil, TraverseResult{
				GraphDescription: fmt.Sprintf("'%s' has never been bought together with anything.", args.RootID),
			}, nil
		}
		return nil, TraverseResult{}, err
	}

	// Format as a readable description for the LLM
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Co-purchase context around '%s' (Depth %d):\n", args.RootID, depth))

	// Strongest edges first, ties alphabetical
	ids := make([]string, 0, len(neighbors))
	for id := range neighbors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if neighbors[ids[i]] != neighbors[ids[j]] {
			return neighbors[ids[i]] > neighbors[ids[j]]
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("- [THIS] --(%d times)--> %s\n", neighbors[id], s.describe(ds, id)))
	}

	// For deeper exploration, list what is reachable but not adjacent
	if depth > 1 {
		reach, err := s.engine.WithinDistance(ds, args.RootID, depth)
		if err != nil {
			return nil, TraverseResult{}, err
		}
		indirect := make([]string, 0, len(reach))
		for _, id := range reach {
			if _, direct := neighbors[id]; !direct {
				indirect = append(indirect, s.describe(ds, id))
			}
		}
		if len(indirect) > 0 {
			sb.WriteString(fmt.Sprintf("\nAlso within %d hops:\n", depth))
			for _, d := range indirect {
				sb.WriteString(fmt.Sprintf("- %s\n", d))
			}
		}
	}

	return nil, TraverseResult{GraphDescription: sb.String()}, nil
}

func (s *Service) Stats(ctx context.Context, req *mcp.CallToolRequest, args StatsArgs) (*mcp.CallToolResult, StatsResult, error) {
	st, err := s.engine.Stats(datasetOr(args.Dataset))
	if err != nil {
		return nil, StatsResult{}, err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Dataset '%s':\n", st.Name))
	sb.WriteString(fmt.Sprintf("- %d baskets over %d distinct products\n", st.Baskets, st.DistinctItems))
	sb.WriteString(fmt.Sprintf("- co-purchase graph: %d nodes, %d edges (density %.4f)\n", st.Nodes, st.Edges, st.Density))
	sb.WriteString(fmt.Sprintf("- basket size: mean %.2f, median %.0f, max %.0f\n", st.BasketSize.Mean, st.BasketSize.Median, st.BasketSize.Max))
	sb.WriteString(fmt.Sprintf("- edge weight: mean %.2f, max %.0f\n", st.EdgeWeight.Mean, st.EdgeWeight.Max))
	return nil, StatsResult{Summary: sb.String()}, nil
}
