package mcp

// --- Tool Arguments ---

type ObserveBasketArgs struct {
	Items   []string `json:"items" jsonschema:"Product IDs bought together in one transaction,required"`
	Dataset string   `json:"dataset,omitempty" jsonschema:"The dataset to record into. Defaults to 'default'"`
}

type ObserveBasketResult struct {
	Basket []string `json:"basket"`
	Status string   `json:"status"`
}

// RecommendArgs is validated against the hand-built schema in NewMCPServer
// (the 'source' enum lives there), so the jsonschema tags are omitted here.
type RecommendArgs struct {
	ProductID  string  `json:"product_id"`
	Dataset    string  `json:"dataset,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Source     string  `json:"source,omitempty"`
	MinSupport float64 `json:"min_support,omitempty"`
}

type RecommendResult struct {
	Results []string `json:"results"` // Formatted strings for the LLM
}

type FrequentPairsArgs struct {
	Dataset    string  `json:"dataset,omitempty" jsonschema:"The dataset to mine. Defaults to 'default'"`
	MinSupport float64 `json:"min_support,omitempty" jsonschema:"description=Minimum fraction of baskets a pair must appear in (0.0-1.0). Default 0.01."`
	Limit      int     `json:"limit,omitempty" jsonschema:"Max number of results (default 10)"`
}

type RulesArgs struct {
	Dataset       string  `json:"dataset,omitempty"`
	MinSupport    float64 `json:"min_support,omitempty" jsonschema:"description=Minimum pair support (0.0-1.0). Default 0.01."`
	MinConfidence float64 `json:"min_confidence,omitempty" jsonschema:"description=Minimum rule confidence (0.0-1.0). Default 0.5."`
}

type FindConnectionArgs struct {
	SourceID string `json:"source_id" jsonschema:"description=Start product ID,required"`
	TargetID string `json:"target_id" jsonschema:"description=End product ID,required"`
	Dataset  string `json:"dataset,omitempty"`
}

type FindConnectionResult struct {
	PathDescription string `json:"path_description"` // "A -> B -> C"
}

type TraverseArgs struct {
	RootID  string `json:"root_id" jsonschema:"required"`
	Dataset string `json:"dataset,omitempty"`
	Depth   int    `json:"depth,omitempty" jsonschema:"Depth (default 1)"`
}

type TraverseResult struct {
	GraphDescription string `json:"graph_description"` // Textual description of connections
}

type StatsArgs struct {
	Dataset string `json:"dataset,omitempty"`
}

type StatsResult struct {
	Summary string `json:"summary"`
}
