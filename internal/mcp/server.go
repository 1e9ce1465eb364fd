package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/basketdb/pkg/engine"
)

func NewMCPServer(eng *engine.Engine) *mcp.Server {
	service := NewService(eng)

	// Create Server instance
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "BasketDB Analysis",
		Version: "0.3.1",
	}, nil) // Options can be nil for default

	// Register Tools using the Generic AddTool which inspects structs!

	mcp.AddTool(s, &mcp.Tool{
		Name:        "observe_basket",
		Description: "Record one shopping basket (the product IDs bought together in a transaction) into a dataset.",
	}, service.ObserveBasket)

	// recommend_products carries a hand-built schema: the inferred one cannot
	// express the 'source' enum.
	mcp.AddTool(s, &mcp.Tool{
		Name:        "recommend_products",
		Description: "Suggest products frequently bought together with a given product.",
		InputSchema: recommendInputSchema(),
	}, service.Recommend)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "frequent_pairs",
		Description: "List the product pairs most often bought together in a dataset.",
	}, service.FrequentPairs)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "association_rules",
		Description: "Derive 'who buys X also buys Y' rules with confidence and lift.",
	}, service.Rules)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "find_connection",
		Description: "Discover how two products are connected through co-purchases (Pathfinding).",
	}, service.FindConnection)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "explore_connections",
		Description: "Explore the co-purchase neighborhood of a product to understand its context.",
	}, service.Traverse)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "dataset_stats",
		Description: "Summarize a dataset: basket count, graph shape, size and weight distributions.",
	}, service.Stats)

	return s
}

// recommendInputSchema builds the recommend_products input schema by hand so
// that 'source' is a real enum in the tool contract.
func recommendInputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"product_id": {Type: "string", Description: "The product to find companions for"},
			"dataset":    {Type: "string", Description: "The dataset to query. Defaults to 'default'"},
			"limit":      {Type: "integer", Description: "Max number of results (default 5)"},
			"source": {
				Type:        "string",
				Description: "Ranking source: 'graph' uses co-purchase edge weights, 'mining' uses pair support. Default 'graph'",
				Enum:        []any{"graph", "mining"},
			},
			"min_support": {Type: "number", Description: "Minimum support for the 'mining' source (0.0-1.0). Default 0.01"},
		},
		Required: []string{"product_id"},
	}
}
