package server

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"
)

// IngestorStatus is the wire form of a worker snapshot for the status API.
type IngestorStatus struct {
	Name         string    `json:"name"`
	Dataset      string    `json:"dataset"`
	IsRunning    bool      `json:"is_running"`
	LastRun      time.Time `json:"last_run"`
	CurrentState string    `json:"current_state"`
}

// IngestorService owns the configured ingestor workers and their shared
// persistent state.
type IngestorService struct {
	server    *Server
	ingestors []*Ingestor
	state     *ingestState
	wg        sync.WaitGroup
}

// NewIngestorService builds a worker for every configured ingestor. A broken
// entry is logged and skipped so one bad stanza does not take down the rest.
func NewIngestorService(server *Server) (*IngestorService, error) {
	state := loadIngestState(filepath.Join(server.Engine.DataDir(), "ingestors.state"))
	service := &IngestorService{
		server: server,
		state:  state,
	}

	for _, config := range server.ingestorConfig.Ingestors {
		ing, err := NewIngestor(config, server, state, &service.wg)
		if err != nil {
			log.Printf("ERROR: Could not create ingestor '%s': %v", config.Name, err)
			continue
		}
		service.ingestors = append(service.ingestors, ing)
	}
	return service, nil
}

// Start launches every worker goroutine.
func (s *IngestorService) Start() {
	for _, ing := range s.ingestors {
		s.wg.Add(1)
		go ing.run()
	}
}

// Stop signals every worker and waits for them to finish the current pass.
func (s *IngestorService) Stop() {
	for _, ing := range s.ingestors {
		ing.Stop()
	}
	s.wg.Wait()
}

// GetStatuses returns a snapshot of every worker.
func (s *IngestorService) GetStatuses() []IngestorStatus {
	statuses := make([]IngestorStatus, 0, len(s.ingestors))
	for _, ing := range s.ingestors {
		statuses = append(statuses, ing.GetStatus())
	}
	return statuses
}

// Trigger starts an out-of-schedule synchronization for one ingestor.
func (s *IngestorService) Trigger(name string) error {
	for _, ing := range s.ingestors {
		if ing.config.Name == name {
			go ing.synchronize()
			return nil
		}
	}
	return fmt.Errorf("no ingestor named '%s'", name)
}
