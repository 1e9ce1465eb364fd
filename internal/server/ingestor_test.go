package server

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sanonone/basketdb/pkg/engine"
)

func TestIngestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingestors.state")

	// 1. A missing file yields an empty state.
	st := loadIngestState(path)
	if got := st.lastSeen("daily", "/data/a.csv"); got != 0 {
		t.Errorf("fresh state lastSeen: got %d, want 0", got)
	}

	// 2. Recorded mod times survive a save/load cycle.
	st.markSeen("daily", "/data/a.csv", 42)
	if err := st.save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	reloaded := loadIngestState(path)
	if got := reloaded.lastSeen("daily", "/data/a.csv"); got != 42 {
		t.Errorf("reloaded lastSeen: got %d, want 42", got)
	}

	// 3. Corruption falls back to an empty state instead of failing.
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("failed to corrupt state file: %v", err)
	}
	corrupt := loadIngestState(path)
	if got := corrupt.lastSeen("daily", "/data/a.csv"); got != 0 {
		t.Errorf("corrupt state lastSeen: got %d, want 0", got)
	}
}

func TestNewIngestorValidation(t *testing.T) {
	state := loadIngestState(filepath.Join(t.TempDir(), "state"))
	var wg sync.WaitGroup

	valid := IngestorConfig{
		Name:     "daily",
		Dataset:  "groceries",
		Schedule: "1h",
		Source:   SourceConfig{Type: "filesystem", Path: t.TempDir()},
	}
	if _, err := NewIngestor(valid, nil, state, &wg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *IngestorConfig)
	}{
		{"bad schedule", func(c *IngestorConfig) { c.Schedule = "soon" }},
		{"missing dataset", func(c *IngestorConfig) { c.Dataset = "" }},
		{"unknown source type", func(c *IngestorConfig) { c.Source.Type = "s3" }},
		{"unknown format", func(c *IngestorConfig) { c.Format = "parquet" }},
		{"broken pattern", func(c *IngestorConfig) { c.IncludePatterns = []string{"[unclosed"} }},
	}
	for _, tc := range cases {
		config := valid
		tc.mutate(&config)
		if _, err := NewIngestor(config, nil, state, &wg); err == nil {
			t.Errorf("%s: got nil error, want validation failure", tc.name)
		}
	}
}

func TestIngestorFilePatterns(t *testing.T) {
	state := loadIngestState(filepath.Join(t.TempDir(), "state"))
	var wg sync.WaitGroup

	ing, err := NewIngestor(IngestorConfig{
		Name:            "daily",
		Dataset:         "groceries",
		Schedule:        "1h",
		Source:          SourceConfig{Type: "filesystem", Path: t.TempDir()},
		IncludePatterns: []string{"*.csv"},
		ExcludePatterns: []string{"tmp*"},
	}, nil, state, &wg)
	if err != nil {
		t.Fatalf("NewIngestor failed: %v", err)
	}

	cases := map[string]bool{
		"day1.csv":    true,
		"day1.json":   false,
		"tmp_day.csv": false,
	}
	for name, want := range cases {
		if got := ing.includeFile(name); got != want {
			t.Errorf("includeFile(%q): got %v, want %v", name, got, want)
		}
	}

	// No include patterns means everything not excluded passes.
	open, err := NewIngestor(IngestorConfig{
		Name:            "all",
		Dataset:         "groceries",
		Schedule:        "1h",
		Source:          SourceConfig{Type: "filesystem", Path: t.TempDir()},
		ExcludePatterns: []string{"*.bak"},
	}, nil, state, &wg)
	if err != nil {
		t.Fatalf("NewIngestor failed: %v", err)
	}
	if !open.includeFile("anything.json") {
		t.Error("includeFile(anything.json): got false, want true without include patterns")
	}
	if open.includeFile("old.bak") {
		t.Error("includeFile(old.bak): got true, want excluded")
	}
}

func TestIngestorSynchronize(t *testing.T) {
	// 1. A source directory with one transaction file.
	srcDir := t.TempDir()
	csvPath := filepath.Join(srcDir, "day1.csv")
	if err := os.WriteFile(csvPath, []byte("milk,bread\nmilk,eggs\n"), 0644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	eng, err := engine.Open(engine.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	defer eng.Close()

	srv := &Server{
		Engine: eng,
		ingestorConfig: &Config{Ingestors: []IngestorConfig{{
			Name:     "daily",
			Dataset:  "groceries",
			Schedule: "1h",
			Source:   SourceConfig{Type: "filesystem", Path: srcDir},
			Labels:   map[string]string{"milk": "Whole Milk"},
		}}},
	}
	service, err := NewIngestorService(srv)
	if err != nil {
		t.Fatalf("NewIngestorService failed: %v", err)
	}
	if len(service.ingestors) != 1 {
		t.Fatalf("got %d ingestors, want 1", len(service.ingestors))
	}
	ing := service.ingestors[0]

	// 2. The first pass ingests the file and applies the labels.
	ing.synchronize()
	ds, err := eng.Dataset("groceries")
	if err != nil {
		t.Fatalf("dataset missing after synchronize: %v", err)
	}
	if got := ds.BasketCount(); got != 2 {
		t.Fatalf("baskets after first pass: got %d, want 2", got)
	}
	if label, ok := ds.Label("milk"); !ok || label != "Whole Milk" {
		t.Errorf("label after first pass: got %q (%v), want \"Whole Milk\"", label, ok)
	}

	// 3. An unchanged file is not ingested twice.
	ing.synchronize()
	if got := ds.BasketCount(); got != 2 {
		t.Errorf("baskets after no-op pass: got %d, want still 2", got)
	}

	// 4. A modified file is picked up again in full.
	if err := os.WriteFile(csvPath, []byte("milk,bread\nmilk,eggs\nmilk,juice\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite source file: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(csvPath, future, future); err != nil {
		t.Fatalf("failed to bump mod time: %v", err)
	}
	ing.synchronize()
	if got := ds.BasketCount(); got != 5 {
		t.Errorf("baskets after modified pass: got %d, want 5", got)
	}

	// 5. The sidecar state lives next to the journal.
	if _, err := os.Stat(filepath.Join(eng.DataDir(), "ingestors.state")); err != nil {
		t.Errorf("ingest state file missing: %v", err)
	}

	// 6. The status snapshot reflects the finished run.
	status := ing.GetStatus()
	if status.Name != "daily" || status.Dataset != "groceries" {
		t.Errorf("status identity: got %+v", status)
	}
	if status.CurrentState != "idle" {
		t.Errorf("status state: got %q, want idle", status.CurrentState)
	}
	if status.LastRun.IsZero() {
		t.Error("status last run: got zero time, want a timestamp")
	}
}

func TestIngestorServiceStartStop(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "day1.csv"), []byte("milk,bread\n"), 0644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	eng, err := engine.Open(engine.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	defer eng.Close()

	srv := &Server{
		Engine: eng,
		ingestorConfig: &Config{Ingestors: []IngestorConfig{{
			Name:     "daily",
			Dataset:  "groceries",
			Schedule: "1h",
			Source:   SourceConfig{Type: "filesystem", Path: srcDir},
		}}},
	}
	service, err := NewIngestorService(srv)
	if err != nil {
		t.Fatalf("NewIngestorService failed: %v", err)
	}

	// The worker synchronizes once right after starting.
	service.Start()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if ds, err := eng.Dataset("groceries"); err == nil && ds.BasketCount() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker did not ingest the source file in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
	service.Stop()

	statuses := service.GetStatuses()
	if len(statuses) != 1 || statuses[0].Name != "daily" {
		t.Errorf("statuses after stop: got %+v, want one entry named daily", statuses)
	}

	// Triggering an unknown worker is an error.
	if err := service.Trigger("nightly"); err == nil {
		t.Error("Trigger(nightly): got nil error, want unknown ingestor failure")
	}
}

func TestLoadIngestorsConfig(t *testing.T) {
	// 1. An empty path is a valid, empty configuration.
	config, err := LoadIngestorsConfig("")
	if err != nil {
		t.Fatalf("empty path: got error %v", err)
	}
	if len(config.Ingestors) != 0 {
		t.Errorf("empty path: got %d ingestors, want 0", len(config.Ingestors))
	}

	// 2. Environment variables expand inside the file.
	t.Setenv("BASKET_SRC", "/srv/receipts")
	path := filepath.Join(t.TempDir(), "ingestors.yaml")
	yamlBody := `
ingestors:
  - name: daily
    dataset: groceries
    schedule: 15m
    format: csv
    import_mode: observe
    source:
      type: filesystem
      path: ${BASKET_SRC}
    include_patterns: ["*.csv"]
    labels:
      milk: Whole Milk
`
	if err := os.WriteFile(path, []byte(yamlBody), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	config, err = LoadIngestorsConfig(path)
	if err != nil {
		t.Fatalf("valid config: got error %v", err)
	}
	if len(config.Ingestors) != 1 {
		t.Fatalf("valid config: got %d ingestors, want 1", len(config.Ingestors))
	}
	ing := config.Ingestors[0]
	if ing.Source.Path != "/srv/receipts" {
		t.Errorf("env expansion: got path %q, want /srv/receipts", ing.Source.Path)
	}
	if ing.Labels["milk"] != "Whole Milk" {
		t.Errorf("labels: got %v, want milk -> Whole Milk", ing.Labels)
	}

	// 3. Unknown keys are rejected, catching typos early.
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("ingestors:\n  - nome: daily\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadIngestorsConfig(bad); err == nil {
		t.Error("unknown key: got nil error, want strict decode failure")
	}
}
