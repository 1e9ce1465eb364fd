package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanonone/basketdb/pkg/loader"
	"github.com/sanonone/basketdb/pkg/metrics"
)

// Ingestor watches a filesystem source on a schedule and feeds every new or
// modified transaction file into its target dataset.
type Ingestor struct {
	config       IngestorConfig
	server       *Server
	loader       loader.Loader
	state        *ingestState
	ticker       *time.Ticker
	stopCh       chan struct{}
	lastRun      atomic.Value // time.Time
	currentState atomic.Value // string
	wg           *sync.WaitGroup
	labelsOnce   sync.Once
}

// NewIngestor validates the configuration and prepares a worker. It does not
// start the schedule; IngestorService.Start does.
func NewIngestor(config IngestorConfig, server *Server, state *ingestState, wg *sync.WaitGroup) (*Ingestor, error) {
	schedule, err := time.ParseDuration(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule '%s' for ingestor '%s': %w", config.Schedule, config.Name, err)
	}
	if config.Dataset == "" {
		return nil, fmt.Errorf("ingestor '%s' has no target dataset", config.Name)
	}
	if config.Source.Type != "filesystem" {
		return nil, fmt.Errorf("unsupported source type '%s' for ingestor '%s'", config.Source.Type, config.Name)
	}
	ld, err := loader.ForFormat(config.Format)
	if err != nil {
		return nil, fmt.Errorf("ingestor '%s': %w", config.Name, err)
	}
	for _, pattern := range append(append([]string{}, config.IncludePatterns...), config.ExcludePatterns...) {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return nil, fmt.Errorf("invalid pattern '%s' for ingestor '%s': %w", pattern, config.Name, err)
		}
	}

	i := &Ingestor{
		config: config,
		server: server,
		loader: ld,
		state:  state,
		ticker: time.NewTicker(schedule),
		stopCh: make(chan struct{}),
		wg:     wg,
	}
	i.currentState.Store("idle")
	i.lastRun.Store(time.Time{})
	return i, nil
}

// run is the main loop of the worker goroutine.
func (i *Ingestor) run() {
	defer i.wg.Done()
	log.Printf("INFO: Starting ingestor '%s' with schedule %s", i.config.Name, i.config.Schedule)

	// Run once at startup so a fresh server catches up immediately.
	i.synchronize()

	for {
		select {
		case <-i.ticker.C:
			i.synchronize()
		case <-i.stopCh:
			i.ticker.Stop()
			log.Printf("INFO: Ingestor '%s' stopped.", i.config.Name)
			return
		}
	}
}

// synchronize scans the source for changed files and ingests them.
func (i *Ingestor) synchronize() {
	i.currentState.Store("synchronizing")
	i.lastRun.Store(time.Now())
	defer i.currentState.Store("idle")

	log.Printf("INFO: Ingestor '%s': synchronization started for '%s'...", i.config.Name, i.config.Source.Path)

	i.labelsOnce.Do(i.applyLabels)

	changedFiles, err := i.findChangedFiles(i.config.Source.Path)
	if err != nil {
		log.Printf("ERROR: Ingestor '%s': scan failed: %v", i.config.Name, err)
		return
	}
	if len(changedFiles) == 0 {
		log.Printf("INFO: Ingestor '%s': no new or modified files found.", i.config.Name)
		return
	}

	log.Printf("INFO: Ingestor '%s': found %d files to ingest.", i.config.Name, len(changedFiles))
	ingested := 0
	for _, file := range changedFiles {
		if err := i.processFile(file); err != nil {
			log.Printf("ERROR: Ingestor '%s': could not process '%s': %v", i.config.Name, file, err)
			continue
		}
		metrics.IngestedFiles.WithLabelValues(i.config.Name).Inc()
		ingested++
	}

	if err := i.state.save(); err != nil {
		log.Printf("WARNING: Ingestor '%s': could not persist state: %v", i.config.Name, err)
	}
	log.Printf("INFO: Ingestor '%s': synchronization finished, %d/%d files ingested.", i.config.Name, ingested, len(changedFiles))
}

// applyLabels pushes the display labels from the configuration into the
// dataset. Labels are idempotent, but journaling them on every tick would
// bloat the journal, so they go in once per process.
func (i *Ingestor) applyLabels() {
	for id, label := range i.config.Labels {
		if err := i.server.Engine.SetLabel(i.config.Dataset, id, label); err != nil {
			log.Printf("WARNING: Ingestor '%s': could not set label for '%s': %v", i.config.Name, id, err)
		}
	}
}

// findChangedFiles walks the source directory and returns every file whose
// mod time is newer than the one recorded in the ingest state.
func (i *Ingestor) findChangedFiles(root string) ([]string, error) {
	var changed []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !i.includeFile(filepath.Base(path)) {
			return nil
		}
		if info.ModTime().UnixNano() > i.state.lastSeen(i.config.Name, path) {
			changed = append(changed, path)
		}
		return nil
	})
	return changed, err
}

// includeFile applies the exclude patterns first, then the include patterns.
// No include patterns means everything not excluded passes.
func (i *Ingestor) includeFile(name string) bool {
	for _, pattern := range i.config.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return false
		}
	}
	if len(i.config.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range i.config.IncludePatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// processFile loads one transaction file and records its baskets.
func (i *Ingestor) processFile(path string) error {
	log.Printf("  -> Ingesting '%s'...", path)

	baskets, err := i.loader.Load(path)
	if err != nil {
		return err
	}

	rows := make([][]string, len(baskets))
	for n, b := range baskets {
		rows[n] = []string(b)
	}

	var recorded int
	if i.config.ImportMode == "import" {
		recorded, err = i.server.Engine.ImportBaskets(i.config.Dataset, rows)
	} else {
		recorded, err = i.server.Engine.ObserveBaskets(i.config.Dataset, rows)
	}
	if err != nil {
		return err
	}
	log.Printf("  -> Recorded %d baskets from '%s'.", recorded, path)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	i.state.markSeen(i.config.Name, path, info.ModTime().UnixNano())
	return nil
}

// GetStatus returns a snapshot of the worker for the status endpoint.
func (i *Ingestor) GetStatus() IngestorStatus {
	return IngestorStatus{
		Name:         i.config.Name,
		Dataset:      i.config.Dataset,
		IsRunning:    true,
		LastRun:      i.lastRun.Load().(time.Time),
		CurrentState: i.currentState.Load().(string),
	}
}

// Stop signals the worker goroutine to exit.
func (i *Ingestor) Stop() {
	close(i.stopCh)
}
