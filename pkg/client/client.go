// Package client provides a Go client for interacting with the BasketDB API.
//
// It offers a type-safe way to perform all major operations, including:
//   - Dataset management (Create, Drop, List, Info, Stats).
//   - Transaction ingestion (ObserveBasket, ObserveBaskets, async Import).
//   - Graph access (TopConnections, Neighbors, ShortestPath, Components).
//   - Mining and recommendations (FrequentPairs, Rules, Recommend, Bundles).
//   - System administration tasks (Save, Journal Rewrite, Task Status).
//
// The client handles HTTP communication, JSON serialization/deserialization, and
// standardized error handling.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Custom Errors ---

// APIError represents an error returned by the BasketDB API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// --- JSON Response Structs ---

// resultsResponse models the generic {"results": ...} envelope of the query
// endpoints; the concrete shape is decoded by each method.
type resultsResponse struct {
	Results json.RawMessage `json:"results"`
}

// Pair is an unordered product pair in canonical form (A before B).
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// FrequentPair models one mined co-occurrence result.
type FrequentPair struct {
	Pair    Pair    `json:"pair"`
	Count   int     `json:"count"`
	Support float64 `json:"support"`
}

// Rule models one association rule "antecedent -> consequent".
type Rule struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}

// Recommendation models one ranked suggestion.
type Recommendation struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Bundle models one suggested product group.
type Bundle struct {
	Items []string `json:"items"`
	Score float64  `json:"score"`
}

// DatasetInfo models the summary counters of a dataset.
type DatasetInfo struct {
	Name    string  `json:"name"`
	Nodes   int     `json:"nodes"`
	Edges   int     `json:"edges"`
	Baskets int     `json:"baskets"`
	Density float64 `json:"density"`
}

// DistributionStats models the summary of one observed distribution.
type DistributionStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// DatasetStats models the statistical profile of a dataset.
type DatasetStats struct {
	Name          string            `json:"name"`
	Baskets       int               `json:"baskets"`
	DistinctItems int               `json:"distinct_items"`
	Nodes         int               `json:"nodes"`
	Edges         int               `json:"edges"`
	Density       float64           `json:"density"`
	BasketSize    DistributionStats `json:"basket_size"`
	EdgeWeight    DistributionStats `json:"edge_weight"`
}

// Task represents an asynchronous operation on the BasketDB server.
type Task struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Error           string          `json:"error,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`

	client *Client // Reference to the client for polling.
}

// ImportResult is the typed result of a completed import task.
type ImportResult struct {
	Dataset  string `json:"dataset"`
	Path     string `json:"path"`
	Loaded   int    `json:"loaded"`
	Recorded int    `json:"recorded"`
}

// --- Client ---

// Client is the Go client for interacting with BasketDB.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new BasketDB client.
func New(host string, port int) *Client {
	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken configures the bearer token sent with every request. An empty
// token disables authentication.
func (c *Client) SetToken(token string) {
	c.token = token
}

// jsonRequest is a helper method to execute all requests to the API.
// It handles JSON serialization, HTTP calls, and error management.
func (c *Client) jsonRequest(method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil // For 204 responses (e.g., DELETE).
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

// results decodes the {"results": ...} envelope into out.
func (c *Client) results(method, endpoint string, payload, out any) error {
	respBody, err := c.jsonRequest(method, endpoint, payload)
	if err != nil {
		return err
	}
	var envelope resultsResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("invalid JSON response for %s: %w", endpoint, err)
	}
	if envelope.Results == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Results, out); err != nil {
		return fmt.Errorf("invalid results payload for %s: %w", endpoint, err)
	}
	return nil
}

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh() error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updatedTask, err := t.client.GetTaskStatus(t.ID)
	if err != nil {
		return err
	}
	t.Status = updatedTask.Status
	t.ProgressMessage = updatedTask.ProgressMessage
	t.Error = updatedTask.Error
	t.Result = updatedTask.Result
	return nil
}

// Wait blocks until the task is completed, checking its status at regular intervals.
func (t *Task) Wait(interval, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("timeout exceeded while waiting for task %s", t.ID)
		case <-ticker.C:
			if err := t.Refresh(); err != nil {
				return err
			}
			switch t.Status {
			case "completed":
				return nil
			case "failed":
				return fmt.Errorf("task %s failed with error: %s", t.ID, t.Error)
			case "running", "started":
				// Continue waiting.
			default:
				return fmt.Errorf("unknown task status: %s", t.Status)
			}
		}
	}
}

// ImportResult decodes the typed result of a completed import task.
func (t *Task) ImportResult() (*ImportResult, error) {
	if t.Result == nil {
		return nil, fmt.Errorf("task %s has no result yet", t.ID)
	}
	var res ImportResult
	if err := json.Unmarshal(t.Result, &res); err != nil {
		return nil, fmt.Errorf("invalid import result for task %s: %w", t.ID, err)
	}
	return &res, nil
}

// --- Dataset Methods ---

// CreateDataset registers a new, empty dataset.
func (c *Client) CreateDataset(name string) error {
	payload := map[string]string{"name": name}
	_, err := c.jsonRequest(http.MethodPost, "/datasets", payload)
	return err
}

// DropDataset removes a dataset and all its data.
func (c *Client) DropDataset(name string) error {
	_, err := c.jsonRequest(http.MethodDelete, "/datasets/"+url.PathEscape(name), nil)
	return err
}

// ListDatasets returns the names of all datasets.
func (c *Client) ListDatasets() ([]string, error) {
	respBody, err := c.jsonRequest(http.MethodGet, "/datasets", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Datasets []string `json:"datasets"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response for ListDatasets: %w", err)
	}
	return resp.Datasets, nil
}

// GetDatasetInfo retrieves the summary counters of a dataset.
func (c *Client) GetDatasetInfo(name string) (*DatasetInfo, error) {
	respBody, err := c.jsonRequest(http.MethodGet, "/datasets/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	var resp DatasetInfo
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response for GetDatasetInfo: %w", err)
	}
	return &resp, nil
}

// GetStats retrieves the statistical profile of a dataset.
func (c *Client) GetStats(dataset string) (*DatasetStats, error) {
	respBody, err := c.jsonRequest(http.MethodGet, c.datasetPath(dataset, "stats"), nil)
	if err != nil {
		return nil, err
	}
	var resp DatasetStats
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response for GetStats: %w", err)
	}
	return &resp, nil
}

// --- Ingestion Methods ---

// ObserveBasket records one transaction and returns its canonical form.
func (c *Client) ObserveBasket(dataset string, items []string) ([]string, error) {
	payload := map[string]any{"items": items}
	respBody, err := c.jsonRequest(http.MethodPost, c.datasetPath(dataset, "baskets"), payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Status string   `json:"status"`
		Basket []string `json:"basket"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response for ObserveBasket: %w", err)
	}
	return resp.Basket, nil
}

// ObserveBaskets records multiple transactions in a single request and
// returns how many non-empty baskets were recorded.
func (c *Client) ObserveBaskets(dataset string, baskets [][]string) (int, error) {
	payload := map[string]any{"baskets": baskets}
	respBody, err := c.jsonRequest(http.MethodPost, c.datasetPath(dataset, "baskets/batch"), payload)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Status   string `json:"status"`
		Recorded int    `json:"recorded"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, fmt.Errorf("invalid JSON response for ObserveBaskets: %w", err)
	}
	return resp.Recorded, nil
}

// Import starts an asynchronous file import on the server and returns a Task.
// Format selects the loader ("auto", "csv", "json", "pdf", "pdf-layout");
// mode is "import" (default) or "observe".
func (c *Client) Import(dataset, path, format, mode string) (*Task, error) {
	payload := map[string]string{"path": path}
	if format != "" {
		payload["format"] = format
	}
	if mode != "" {
		payload["mode"] = mode
	}
	respBody, err := c.jsonRequest(http.MethodPost, c.datasetPath(dataset, "import"), payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status string `json:"status"`
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response for Import: %w", err)
	}
	return &Task{ID: resp.TaskID, Status: "started", client: c}, nil
}

// AddEdge adds co-purchase weight between two products directly. An inc of 0
// means 1.
func (c *Client) AddEdge(dataset, a, b string, inc int) error {
	payload := map[string]any{"a": a, "b": b}
	if inc != 0 {
		payload["inc"] = inc
	}
	_, err := c.jsonRequest(http.MethodPost, c.datasetPath(dataset, "edges"), payload)
	return err
}

// SetLabel attaches a display label to a product. An empty label removes it.
func (c *Client) SetLabel(dataset, id, label string) error {
	payload := map[string]string{"id": id, "label": label}
	_, err := c.jsonRequest(http.MethodPost, c.datasetPath(dataset, "labels"), payload)
	return err
}

// GetLabel retrieves the display label of a product, if one is set.
func (c *Client) GetLabel(dataset, id string) (string, bool, error) {
	endpoint := c.datasetPath(dataset, "labels") + "?id=" + url.QueryEscape(id)
	respBody, err := c.jsonRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, err
	}
	var resp struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Found bool   `json:"found"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", false, fmt.Errorf("invalid JSON response for GetLabel: %w", err)
	}
	return resp.Label, resp.Found, nil
}

// --- Graph Methods ---

// TopConnections returns the k strongest co-purchase partners of a product.
func (c *Client) TopConnections(dataset, productID string, k int) ([]Recommendation, error) {
	endpoint := c.datasetPath(dataset, "graph/top") + "?id=" + url.QueryEscape(productID) + "&k=" + strconv.Itoa(k)
	var recs []Recommendation
	if err := c.results(http.MethodGet, endpoint, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Neighbors returns every direct co-purchase partner of a product with the
// observed weights.
func (c *Client) Neighbors(dataset, productID string) (map[string]int, error) {
	endpoint := c.datasetPath(dataset, "graph/neighbors") + "?id=" + url.QueryEscape(productID)
	var neighbors map[string]int
	if err := c.results(http.MethodGet, endpoint, nil, &neighbors); err != nil {
		return nil, err
	}
	return neighbors, nil
}

// ShortestPath returns the minimum-hop connection between two products. The
// boolean reports whether any path exists.
func (c *Client) ShortestPath(dataset, from, to string) ([]string, bool, error) {
	endpoint := c.datasetPath(dataset, "graph/path") +
		"?from=" + url.QueryEscape(from) + "&to=" + url.QueryEscape(to)
	respBody, err := c.jsonRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	var resp struct {
		Path  []string `json:"path"`
		Found bool     `json:"found"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, false, fmt.Errorf("invalid JSON response for ShortestPath: %w", err)
	}
	return resp.Path, resp.Found, nil
}

// Components returns the connected components of the co-purchase graph,
// each sorted internally and ordered by smallest member.
func (c *Client) Components(dataset string) ([][]string, error) {
	var components [][]string
	if err := c.results(http.MethodGet, c.datasetPath(dataset, "graph/components"), nil, &components); err != nil {
		return nil, err
	}
	return components, nil
}

// --- Mining Methods ---

// FrequentPairs mines all product pairs meeting the minimum support.
func (c *Client) FrequentPairs(dataset string, minSupport float64) ([]FrequentPair, error) {
	endpoint := c.datasetPath(dataset, "mine/pairs") + "?min_support=" + formatFloat(minSupport)
	var pairs []FrequentPair
	if err := c.results(http.MethodGet, endpoint, nil, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// TopPairs returns the n most frequent pairs regardless of support.
func (c *Client) TopPairs(dataset string, n int) ([]FrequentPair, error) {
	endpoint := c.datasetPath(dataset, "mine/top-pairs") + "?n=" + strconv.Itoa(n)
	var pairs []FrequentPair
	if err := c.results(http.MethodGet, endpoint, nil, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// Rules derives association rules from the frequent pairs of a dataset.
func (c *Client) Rules(dataset string, minSupport, minConfidence float64) ([]Rule, error) {
	endpoint := c.datasetPath(dataset, "mine/rules") +
		"?min_support=" + formatFloat(minSupport) + "&min_confidence=" + formatFloat(minConfidence)
	var rules []Rule
	if err := c.results(http.MethodGet, endpoint, nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Support returns the fraction of recorded baskets containing both products.
func (c *Client) Support(dataset, a, b string) (float64, error) {
	endpoint := c.datasetPath(dataset, "mine/support") +
		"?a=" + url.QueryEscape(a) + "&b=" + url.QueryEscape(b)
	respBody, err := c.jsonRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Support float64 `json:"support"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, fmt.Errorf("invalid JSON response for Support: %w", err)
	}
	return resp.Support, nil
}

// --- Recommendation Methods ---

// Recommend returns up to k suggestions for a product. Source selects the
// ranking ("graph" or "mining", empty means graph); minSupport only applies
// to the mining source, 0 means the server default.
func (c *Client) Recommend(dataset, productID string, k int, source string, minSupport float64) ([]Recommendation, error) {
	endpoint := c.datasetPath(dataset, "recommend") +
		"?id=" + url.QueryEscape(productID) + "&k=" + strconv.Itoa(k)
	if source != "" {
		endpoint += "&source=" + url.QueryEscape(source)
	}
	if minSupport > 0 {
		endpoint += "&min_support=" + formatFloat(minSupport)
	}
	var recs []Recommendation
	if err := c.results(http.MethodGet, endpoint, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// RecommendForBasket suggests products for a whole basket.
func (c *Client) RecommendForBasket(dataset string, items []string, k int) ([]Recommendation, error) {
	payload := map[string]any{"items": items}
	if k > 0 {
		payload["k"] = k
	}
	var recs []Recommendation
	if err := c.results(http.MethodPost, c.datasetPath(dataset, "recommend/basket"), payload, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// SimilarProducts ranks products whose co-purchase neighborhoods overlap the
// target's.
func (c *Client) SimilarProducts(dataset, productID string, k int) ([]Recommendation, error) {
	endpoint := c.datasetPath(dataset, "recommend/similar") +
		"?id=" + url.QueryEscape(productID) + "&k=" + strconv.Itoa(k)
	var recs []Recommendation
	if err := c.results(http.MethodGet, endpoint, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Bundles proposes product groups that are frequently bought together.
func (c *Client) Bundles(dataset string, minSize, maxSize, k int) ([]Bundle, error) {
	endpoint := c.datasetPath(dataset, "recommend/bundles") +
		"?min_size=" + strconv.Itoa(minSize) + "&max_size=" + strconv.Itoa(maxSize) + "&k=" + strconv.Itoa(k)
	var bundles []Bundle
	if err := c.results(http.MethodGet, endpoint, nil, &bundles); err != nil {
		return nil, err
	}
	return bundles, nil
}

// --- Administration Methods ---

// Save triggers a full database snapshot on the server.
func (c *Client) Save() error {
	_, err := c.jsonRequest(http.MethodPost, "/system/save", nil)
	return err
}

// JournalRewrite compacts the server's journal into its canonical form.
func (c *Client) JournalRewrite() error {
	_, err := c.jsonRequest(http.MethodPost, "/system/journal-rewrite", nil)
	return err
}

// GetTaskStatus retrieves the status of a long-running task.
func (c *Client) GetTaskStatus(taskID string) (*Task, error) {
	respBody, err := c.jsonRequest(http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := json.Unmarshal(respBody, &task); err != nil {
		return nil, fmt.Errorf("invalid JSON response for GetTaskStatus: %w", err)
	}
	task.client = c
	return &task, nil
}

// --- Helpers ---

// datasetPath builds "/datasets/{name}/{suffix}" with the name escaped.
func (c *Client) datasetPath(dataset, suffix string) string {
	return "/datasets/" + url.PathEscape(dataset) + "/" + suffix
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
