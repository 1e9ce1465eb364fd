package server

import (
	"github.com/sanonone/basketdb/pkg/core/types"
)

// DatasetCreateRequest defines the body for dataset creation.
type DatasetCreateRequest struct {
	Name string `json:"name"`
}

// BasketObserveRequest defines the body for recording a single transaction.
type BasketObserveRequest struct {
	Items []string `json:"items"`
}

// BasketObserveResponse echoes the canonical form the transaction was
// recorded as.
type BasketObserveResponse struct {
	Status string       `json:"status"`
	Basket types.Basket `json:"basket"`
}

// BasketBatchRequest defines the body for bulk transaction ingestion.
type BasketBatchRequest struct {
	Baskets [][]string `json:"baskets"`
}

// BasketBatchResponse reports how many non-empty baskets were recorded.
type BasketBatchResponse struct {
	Status   string `json:"status"`
	Recorded int    `json:"recorded"`
}

// ImportRequest defines the body for an asynchronous file import.
type ImportRequest struct {
	// Path of the transaction file on the server's filesystem.
	Path string `json:"path"`
	// Format selects the loader: auto (default), csv, json, pdf, pdf-layout.
	Format string `json:"format,omitempty"`
	// Mode is "import" (default: snapshot at the end, bypasses the journal)
	// or "observe" (journaled, slower).
	Mode string `json:"mode,omitempty"`
}

// ImportResult is stored as the task result of a completed import.
type ImportResult struct {
	Dataset  string `json:"dataset"`
	Path     string `json:"path"`
	Loaded   int    `json:"loaded"`
	Recorded int    `json:"recorded"`
}

// EdgeAddRequest defines the body for a direct edge weight increment.
type EdgeAddRequest struct {
	A   string `json:"a"`
	B   string `json:"b"`
	Inc int    `json:"inc,omitempty"` // Default 1 if 0
}

// LabelSetRequest defines the body for attaching a display label to a
// product. An empty label removes the assignment.
type LabelSetRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RecommendBasketRequest defines the body for basket-level recommendations.
type RecommendBasketRequest struct {
	Items []string `json:"items"`
	K     int      `json:"k,omitempty"`
}

// PathResponse is the answer to a path query between two products.
type PathResponse struct {
	Path  []string `json:"path"`
	Found bool     `json:"found"`
}
