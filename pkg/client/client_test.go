package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/sanonone/basketdb/internal/server"
	"github.com/sanonone/basketdb/pkg/engine"
)

// newTestClient starts a real in-process server over HTTP and returns a
// client bound to it. The suite is hermetic: no external process needed.
func newTestClient(t *testing.T, authToken string) *Client {
	t.Helper()

	eng, err := engine.Open(engine.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("engine open failed: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	srv, err := server.NewServer(eng, ":0", "", authToken)
	if err != nil {
		t.Fatalf("server construction failed: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parsing test server URL failed: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing test server port failed: %v", err)
	}
	return New(u.Hostname(), port)
}

func TestClientIntegration(t *testing.T) {
	client := newTestClient(t, "")

	t.Run("A - Dataset Management", func(t *testing.T) {
		if err := client.CreateDataset("shop"); err != nil {
			t.Fatalf("CreateDataset failed: %v", err)
		}

		// Creating it twice must surface the conflict as an APIError.
		err := client.CreateDataset("shop")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
			t.Fatalf("duplicate CreateDataset: got %v, want 409 APIError", err)
		}
		t.Log(" -> CreateDataset OK")

		names, err := client.ListDatasets()
		if err != nil {
			t.Fatalf("ListDatasets failed: %v", err)
		}
		if !reflect.DeepEqual(names, []string{"shop"}) {
			t.Fatalf("ListDatasets: got %v, want [shop]", names)
		}
		t.Log(" -> ListDatasets OK")

		info, err := client.GetDatasetInfo("shop")
		if err != nil {
			t.Fatalf("GetDatasetInfo failed: %v", err)
		}
		if info.Name != "shop" || info.Baskets != 0 {
			t.Fatalf("GetDatasetInfo returned incorrect data. Got: %+v", info)
		}

		if err := client.CreateDataset("temp"); err != nil {
			t.Fatalf("CreateDataset for temp failed: %v", err)
		}
		if err := client.DropDataset("temp"); err != nil {
			t.Fatalf("DropDataset failed: %v", err)
		}
		_, err = client.GetDatasetInfo("temp")
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			t.Fatalf("GetDatasetInfo after drop: got %v, want 404 APIError", err)
		}
		t.Log(" -> DropDataset OK")
	})

	t.Run("B - Ingestion and Labels", func(t *testing.T) {
		// A messy basket comes back canonical.
		basket, err := client.ObserveBasket("shop", []string{"Milk", "bread", "milk "})
		if err != nil {
			t.Fatalf("ObserveBasket failed: %v", err)
		}
		if !reflect.DeepEqual(basket, []string{"bread", "milk"}) {
			t.Fatalf("canonical basket: got %v, want [bread milk]", basket)
		}
		t.Log(" -> ObserveBasket OK")

		recorded, err := client.ObserveBaskets("shop", [][]string{
			{"milk", "bread", "eggs"},
			{"milk", "butter"},
			{"  "},
		})
		if err != nil {
			t.Fatalf("ObserveBaskets failed: %v", err)
		}
		if recorded != 2 {
			t.Fatalf("recorded: got %d, want 2", recorded)
		}
		t.Log(" -> ObserveBaskets OK")

		if err := client.AddEdge("shop", "usb", "cable", 0); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
		neighbors, err := client.Neighbors("shop", "usb")
		if err != nil {
			t.Fatalf("Neighbors failed: %v", err)
		}
		if neighbors["cable"] != 1 {
			t.Fatalf("usb neighbors: got %v, want cable with weight 1", neighbors)
		}
		t.Log(" -> AddEdge OK")

		if err := client.SetLabel("shop", "milk", "Whole Milk"); err != nil {
			t.Fatalf("SetLabel failed: %v", err)
		}
		label, found, err := client.GetLabel("shop", "milk")
		if err != nil {
			t.Fatalf("GetLabel failed: %v", err)
		}
		if !found || label != "Whole Milk" {
			t.Fatalf("GetLabel: got %q/%v, want Whole Milk/true", label, found)
		}
		if _, found, _ := client.GetLabel("shop", "bread"); found {
			t.Fatal("GetLabel for unlabelled product reported found")
		}
		t.Log(" -> Labels OK")
	})

	t.Run("C - Analysis", func(t *testing.T) {
		// Fixture from B: 3 baskets, bread+milk together in 2 of them.
		recs, err := client.TopConnections("shop", "bread", 2)
		if err != nil {
			t.Fatalf("TopConnections failed: %v", err)
		}
		if len(recs) == 0 || recs[0].ID != "milk" || recs[0].Score != 2 {
			t.Fatalf("TopConnections: got %+v, want milk with score 2 first", recs)
		}

		path, found, err := client.ShortestPath("shop", "butter", "eggs")
		if err != nil {
			t.Fatalf("ShortestPath failed: %v", err)
		}
		if !found || len(path) != 3 {
			t.Fatalf("ShortestPath: got %v (found=%v), want a 3-hop path", path, found)
		}

		components, err := client.Components("shop")
		if err != nil {
			t.Fatalf("Components failed: %v", err)
		}
		if len(components) != 2 || len(components[0]) != 4 {
			t.Fatalf("Components: got %v, want the 4-product component first of 2", components)
		}
		t.Log(" -> Graph queries OK")

		pairs, err := client.FrequentPairs("shop", 0.5)
		if err != nil {
			t.Fatalf("FrequentPairs failed: %v", err)
		}
		if len(pairs) != 1 || pairs[0].Pair.A != "bread" || pairs[0].Pair.B != "milk" || pairs[0].Count != 2 {
			t.Fatalf("FrequentPairs: got %+v, want bread+milk with count 2", pairs)
		}

		top, err := client.TopPairs("shop", 1)
		if err != nil {
			t.Fatalf("TopPairs failed: %v", err)
		}
		if len(top) != 1 || top[0].Pair.A != "bread" {
			t.Fatalf("TopPairs: got %+v", top)
		}

		support, err := client.Support("shop", "milk", "bread")
		if err != nil {
			t.Fatalf("Support failed: %v", err)
		}
		if support < 0.666 || support > 0.667 {
			t.Fatalf("Support: got %v, want 2/3", support)
		}

		rules, err := client.Rules("shop", 0.5, 0.9)
		if err != nil {
			t.Fatalf("Rules failed: %v", err)
		}
		if len(rules) != 1 || rules[0].Antecedent != "bread" || rules[0].Consequent != "milk" {
			t.Fatalf("Rules: got %+v, want bread -> milk only", rules)
		}
		t.Log(" -> Mining queries OK")

		recs, err = client.Recommend("shop", "bread", 5, "", 0)
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}
		if len(recs) == 0 || recs[0].ID != "milk" {
			t.Fatalf("Recommend: got %+v, want milk first", recs)
		}

		recs, err = client.RecommendForBasket("shop", []string{"bread"}, 5)
		if err != nil {
			t.Fatalf("RecommendForBasket failed: %v", err)
		}
		for _, r := range recs {
			if r.ID == "bread" {
				t.Fatalf("basket recommendation suggested a product already in the basket: %+v", recs)
			}
		}

		similar, err := client.SimilarProducts("shop", "eggs", 3)
		if err != nil {
			t.Fatalf("SimilarProducts failed: %v", err)
		}
		if len(similar) == 0 {
			t.Fatal("SimilarProducts returned nothing")
		}

		bundles, err := client.Bundles("shop", 2, 3, 5)
		if err != nil {
			t.Fatalf("Bundles failed: %v", err)
		}
		if len(bundles) == 0 {
			t.Fatal("Bundles returned nothing")
		}
		t.Log(" -> Recommendations OK")
	})

	t.Run("D - Import Task and System", func(t *testing.T) {
		csvPath := filepath.Join(t.TempDir(), "receipts.csv")
		if err := os.WriteFile(csvPath, []byte("milk,bread\neggs,flour\n"), 0o644); err != nil {
			t.Fatalf("writing fixture failed: %v", err)
		}

		task, err := client.Import("pantry", csvPath, "csv", "")
		if err != nil {
			t.Fatalf("Import failed to start task: %v", err)
		}
		if err := task.Wait(20*time.Millisecond, 5*time.Second); err != nil {
			t.Fatalf("Import failed while waiting for task: %v", err)
		}
		result, err := task.ImportResult()
		if err != nil {
			t.Fatalf("ImportResult failed: %v", err)
		}
		if result.Loaded != 2 || result.Recorded != 2 {
			t.Fatalf("import result: got %+v, want 2 loaded and 2 recorded", result)
		}

		info, err := client.GetDatasetInfo("pantry")
		if err != nil {
			t.Fatalf("GetDatasetInfo failed: %v", err)
		}
		if info.Baskets != 2 {
			t.Fatalf("imported baskets: got %d, want 2", info.Baskets)
		}
		t.Log(" -> Import OK")

		stats, err := client.GetStats("shop")
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		if stats.Baskets != 3 || stats.BasketSize.Max != 3 {
			t.Fatalf("stats: got %+v, want 3 baskets with max size 3", stats)
		}

		if err := client.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := client.JournalRewrite(); err != nil {
			t.Fatalf("JournalRewrite failed: %v", err)
		}
		t.Log(" -> System OK")

		_, err = client.GetTaskStatus("no-such-task")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			t.Fatalf("GetTaskStatus for unknown id: got %v, want 404 APIError", err)
		}
	})
}

func TestClientAuth(t *testing.T) {
	client := newTestClient(t, "sesamo")

	// 1. Without the token every call is rejected.
	_, err := client.ListDatasets()
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated call: got %v, want 401 APIError", err)
	}

	// 2. With the token the same call goes through.
	client.SetToken("sesamo")
	if _, err := client.ListDatasets(); err != nil {
		t.Fatalf("authenticated ListDatasets failed: %v", err)
	}
}
