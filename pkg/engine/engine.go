// Package engine provides the high-level, embedded interface for BasketDB.
//
// It orchestrates the in-memory analysis structures (Core) and the on-disk
// persistence layer (Journal/Snapshot), providing a thread-safe database
// instance that can be used directly within Go applications without network
// overhead.
//
// Basic usage:
//
//	opts := engine.DefaultOptions("./data")
//	db, err := engine.Open(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanonone/basketdb/pkg/core"
	"github.com/sanonone/basketdb/pkg/metrics"
	"github.com/sanonone/basketdb/pkg/persistence"
)

// Options configures the behavior of the Engine, including persistence paths
// and automatic maintenance policies.
type Options struct {
	// DataDir is the directory where journal and snapshot files will be stored.
	// It is created automatically if it does not exist.
	DataDir string

	// JournalFilename is the name of the append-only journal
	// (default: "basketdb.journal"). The snapshot file will effectively be
	// named <JournalFilename>.bdb.
	JournalFilename string

	// AutoSaveInterval defines how much time must pass since the last save
	// before a new snapshot is triggered (if AutoSaveThreshold is also met).
	// Set to 0 to disable auto-saving based on time.
	AutoSaveInterval time.Duration

	// AutoSaveThreshold defines how many write operations must occur
	// before a new snapshot is triggered (if AutoSaveInterval is also met).
	// Set to 0 to disable auto-saving based on write count.
	AutoSaveThreshold int64

	// JournalRewritePercentage triggers an automatic journal compaction
	// (rewrite) when the journal file size exceeds the base size by this
	// percentage. E.g., 100 means rewrite when size doubles. Set to 0 to disable.
	JournalRewritePercentage int

	// MaintenanceInterval defines how often the background snapshot and
	// rewrite policies are evaluated. Default: 1 second.
	MaintenanceInterval time.Duration
}

// DefaultOptions returns a standard configuration suitable for most use cases.
//
// Defaults:
//   - DataDir: provided path
//   - JournalFilename: "basketdb.journal"
//   - AutoSave: Every 60s if at least 1000 changes occurred
//   - JournalRewrite: At 100% growth
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:                  dataDir,
		JournalFilename:          "basketdb.journal",
		AutoSaveInterval:         60 * time.Second,
		AutoSaveThreshold:        1000,
		JournalRewritePercentage: 100,
		MaintenanceInterval:      1 * time.Second,
	}
}

// Engine is the main entry point for BasketDB.
// It coordinates the in-memory Core and the on-disk Persistence.
//
// Use Open() to initialize an Engine and Close() to shut it down gracefully.
type Engine struct {
	// DB is the underlying in-memory core.
	// While exported, it is recommended to use Engine methods (e.g.,
	// ObserveBasket, AddEdge) to ensure operations are correctly persisted
	// to disk.
	DB *core.DB

	// Journal handles the append-only log using lazy batching for better write
	// performance. The lazy writer buffers records and flushes them periodically
	// (every 100ms or 1000 entries) while ensuring data durability through
	// periodic fsync operations (every 1 second).
	Journal *persistence.LazyJournalWriter

	opts            Options
	journalPath     string
	snapPath        string
	journalBaseSize int64

	// dirtyCounter tracks the number of write operations since the last save.
	dirtyCounter int64
	lastSaveTime time.Time

	// Mutex for Engine-level administrative tasks (like Rewrite/Save)
	// Note: core.DB has its own internal granular locks for data access.
	adminMu sync.Mutex

	// persistMu makes each {journal record + memory update} pair atomic with
	// respect to a snapshot or rewrite cut. Writers hold it shared; the
	// snapshot/rewrite path holds it exclusively while it captures state and
	// swaps or truncates the journal. Without it a write could land its frame
	// before the truncate while its memory effect misses the snapshot.
	persistMu sync.RWMutex

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open initializes a new Engine instance using the provided options.
//
// It performs the following actions:
// 1. Creates DataDir if missing.
// 2. Loads the latest Snapshot (.bdb) and replays the journal, guided by
//    the checkpoint marker at the journal head.
// 3. Starts background goroutines for auto-saving and compaction.
//
// This method blocks until the database is fully loaded and ready.
func Open(opts Options) (*Engine, error) {
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if opts.JournalFilename == "" {
		opts.JournalFilename = "basketdb.journal"
	}
	journalPath := filepath.Join(opts.DataDir, opts.JournalFilename)
	snapPath := strings.TrimSuffix(journalPath, filepath.Ext(journalPath)) + ".bdb"

	e := &Engine{
		DB:           core.NewDB(),
		opts:         opts,
		journalPath:  journalPath,
		snapPath:     snapPath,
		lastSaveTime: time.Now(),
		closed:       make(chan struct{}),
	}

	// 1. Open the journal with lazy batching for improved write performance.
	// The lazy writer batches records and flushes periodically rather than on
	// every write, improving ingestion throughput while maintaining durability
	// through periodic fsync.
	journalWriter, err := persistence.NewJournalWriter(journalPath)
	if err != nil {
		return nil, err
	}
	e.Journal = persistence.NewLazyJournalWriter(journalWriter)

	// 2. Recover state. The checkpoint marker at the journal head decides
	// whether the snapshot file is loaded first, skipped as stale, or the
	// journal itself is discarded as already folded into the snapshot.
	if err := e.recoverState(); err != nil {
		e.Journal.Close()
		return nil, fmt.Errorf("failed to recover state: %w", err)
	}

	// Record journal size for Rewrite logic
	info, _ := e.Journal.File().Stat()
	e.journalBaseSize = info.Size()

	// Seed the per-dataset gauges with the recovered state
	for _, name := range e.DB.ListDatasets() {
		if ds, ok := e.DB.GetDataset(name); ok {
			metrics.TotalBaskets.WithLabelValues(name).Set(float64(ds.BasketCount()))
		}
	}

	// 3. Start Background Tasks
	e.wg.Add(1)
	go e.backgroundTasks()

	return e, nil
}

// Close performs a clean shutdown of the Engine.
//
// It stops background maintenance tasks and closes the journal file.
// Note: It does not force a final snapshot, but all data is already persisted
// in the journal, ensuring durability on restart.
func (e *Engine) Close() error {
	var err error

	// Executes the block only once, even if called 100 times
	e.closeOnce.Do(func() {
		close(e.closed)
		e.wg.Wait() // Wait for background tasks

		// Final sync
		if e.Journal != nil {
			err = e.Journal.Close()
		}
	})

	return err
}

// DataDir returns the directory holding the journal and snapshot files.
// Layers that keep sidecar state (like the server's ingestors) store it here.
func (e *Engine) DataDir() string {
	return e.opts.DataDir
}

// backgroundTasks handles automatic saving and journal rewriting.
// (Unexported: internal use only)
func (e *Engine) backgroundTasks() {
	defer e.wg.Done()

	// Use the configured value or a safe default if 0
	interval := e.opts.MaintenanceInterval
	if interval <= 0 {
		interval = 1 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.closed:
			return
		case <-ticker.C:
			e.checkMaintenance()
		}
	}
}

// checkMaintenance evaluates if a snapshot or journal rewrite is needed.
// (Unexported: internal use only)
func (e *Engine) checkMaintenance() {
	// Lightweight atomic check
	dirty := atomic.LoadInt64(&e.dirtyCounter)

	// Auto-Save Policy
	if e.opts.AutoSaveThreshold > 0 && e.opts.AutoSaveInterval > 0 {
		if dirty >= e.opts.AutoSaveThreshold && time.Since(e.lastSaveTime) >= e.opts.AutoSaveInterval {
			if err := e.SaveSnapshot(); err != nil {
				// Log error but continue (background task)
				slog.Error("Background snapshot failed", "error", err)
			}
		}
	}

	if err := e.Journal.Flush(); err != nil {
		slog.Error("Background journal flush failed", "error", err)
	}

	// Journal Rewrite Policy
	if e.opts.JournalRewritePercentage > 0 {
		info, err := e.Journal.File().Stat()
		if err == nil {
			currentSize := info.Size()
			threshold := e.journalBaseSize + (e.journalBaseSize * int64(e.opts.JournalRewritePercentage) / 100)
			// Min threshold 1MB to avoid rewriting tiny files constantly
			if threshold < 1024*1024 {
				threshold = 1024 * 1024
			}

			if e.journalBaseSize > 0 && currentSize > threshold {
				if err := e.RewriteJournal(); err != nil {
					slog.Error("Background journal rewrite failed", "error", err)
				}
			}
		}
	}
}
