// Package server implements the main BasketDB server logic.
//
// This file holds the sidecar state the ingestors use to remember which
// source files they have already consumed. Without it a restart would replay
// every file and double-count the baskets.

package server

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// ingestState maps ingestor name -> file path -> mod time (unix nanos) and
// persists itself as a small JSON file next to the journal.
type ingestState struct {
	mu   sync.Mutex
	path string
	seen map[string]map[string]int64
}

// loadIngestState reads the state file, tolerating a missing or unreadable
// one: losing the state only costs a re-ingest, never data.
func loadIngestState(path string) *ingestState {
	st := &ingestState{
		path: path,
		seen: make(map[string]map[string]int64),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARNING: could not read ingest state '%s': %v", path, err)
		}
		return st
	}
	if err := json.Unmarshal(data, &st.seen); err != nil {
		log.Printf("WARNING: ingest state '%s' is corrupt, starting fresh: %v", path, err)
		st.seen = make(map[string]map[string]int64)
	}
	return st
}

// lastSeen returns the mod time recorded for a file, zero if never ingested.
func (st *ingestState) lastSeen(name, file string) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.seen[name][file]
}

// markSeen records the mod time of a file that was just consumed.
func (st *ingestState) markSeen(name, file string, modTime int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	files, ok := st.seen[name]
	if !ok {
		files = make(map[string]int64)
		st.seen[name] = files
	}
	files[file] = modTime
}

// save writes the state atomically (temp file + rename), the same pattern
// the engine uses for snapshots.
func (st *ingestState) save() error {
	st.mu.Lock()
	data, err := json.MarshalIndent(st.seen, "", "  ")
	st.mu.Unlock()
	if err != nil {
		return err
	}

	tempPath := st.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, st.path)
}
