package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sanonone/basketdb/pkg/persistence"
)

// Journal head classification driving the recovery decision.
const (
	headEmpty      = iota // no frames at all
	headCheckpoint        // first frame is a checkpoint marker
	headRecord            // first frame is a regular data record
	headDamaged           // first frame cannot be read back
)

// journalHead classifies the first frame of the journal file.
func (e *Engine) journalHead() (int, *persistence.CheckpointRecord) {
	file, err := os.Open(e.journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return headEmpty, nil
		}
		return headDamaged, nil
	}
	defer file.Close()

	op, payload, _, err := persistence.ReadFrame(bufio.NewReader(file))
	if err == io.EOF {
		return headEmpty, nil
	}
	if err != nil {
		return headDamaged, nil
	}
	if op != persistence.OpCheckpoint {
		return headRecord, nil
	}
	rec, err := persistence.DecodeRecord(op, payload)
	if err != nil {
		return headDamaged, nil
	}
	return headCheckpoint, rec.(*persistence.CheckpointRecord)
}

// loadSnapshot restores the DB image from the snapshot file and returns the
// snapshot identity carried by its header frame.
func (e *Engine) loadSnapshot() (string, error) {
	f, err := os.Open(e.snapPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	op, payload, _, err := persistence.ReadFrame(r)
	if err != nil {
		return "", fmt.Errorf("unreadable snapshot header: %w", err)
	}
	rec, err := persistence.DecodeRecord(op, payload)
	if err != nil {
		return "", fmt.Errorf("invalid snapshot header: %w", err)
	}
	ckpt, ok := rec.(*persistence.CheckpointRecord)
	if !ok {
		return "", errors.New("snapshot does not start with a checkpoint frame")
	}
	if err := e.DB.LoadFromSnapshot(r); err != nil {
		return "", err
	}
	return ckpt.ID, nil
}

// appendCheckpoint writes a checkpoint marker as the next journal frame.
// The marker is fsynced so no later record can reach disk before it.
func (e *Engine) appendCheckpoint(origin, id string) error {
	payload, err := persistence.EncodeRecord(persistence.OpCheckpoint, &persistence.CheckpointRecord{Origin: origin, ID: id})
	if err != nil {
		return err
	}
	if err := e.Journal.Append(persistence.OpCheckpoint, payload); err != nil {
		return err
	}
	return e.Journal.Sync()
}

// resetJournal drops the whole journal content and re-arms it against the
// loaded snapshot.
func (e *Engine) resetJournal(snapshotID string) error {
	if err := e.Journal.Truncate(); err != nil {
		return err
	}
	return e.appendCheckpoint(persistence.CheckpointSnapshot, snapshotID)
}

// recoverState rebuilds the in-memory DB from the snapshot and journal files.
//
// The first journal frame decides how the two files combine:
//   - checkpoint(snapshot) matching the snapshot header: load the snapshot,
//     then replay the frames after the marker.
//   - checkpoint(snapshot) naming a different ID: the truncate after saving
//     the snapshot never landed, so the journal content is already inside
//     the snapshot and is discarded.
//   - checkpoint(rewrite): the journal is self-contained; a leftover
//     snapshot file is stale and removed.
//   - plain record: no snapshot was saved against this journal; a snapshot
//     file lying around anyway captured the journal whole.
//   - empty or damaged head: the snapshot alone (if present) carries the
//     state.
func (e *Engine) recoverState() error {
	kind, ckpt := e.journalHead()
	_, statErr := os.Stat(e.snapPath)
	snapExists := statErr == nil

	switch kind {
	case headEmpty:
		if !snapExists {
			return nil // fresh database
		}
		id, err := e.loadSnapshot()
		if err != nil {
			return err
		}
		// The truncate landed but the marker append did not.
		return e.appendCheckpoint(persistence.CheckpointSnapshot, id)

	case headCheckpoint:
		if ckpt.Origin == persistence.CheckpointRewrite {
			if snapExists {
				slog.Warn("Removing snapshot superseded by rewritten journal", "path", e.snapPath)
				if err := os.Remove(e.snapPath); err != nil {
					return err
				}
			}
			return e.replayAndRepair()
		}
		if !snapExists {
			slog.Warn("Journal expects a snapshot that is missing; replaying partial state", "path", e.snapPath)
			return e.replayAndRepair()
		}
		id, err := e.loadSnapshot()
		if err != nil {
			return err
		}
		if id != ckpt.ID {
			slog.Warn("Discarding journal already captured by a newer snapshot", "journal_checkpoint", ckpt.ID, "snapshot", id)
			return e.resetJournal(id)
		}
		return e.replayAndRepair()

	case headRecord:
		if !snapExists {
			return e.replayAndRepair()
		}
		id, err := e.loadSnapshot()
		if err != nil {
			return err
		}
		slog.Warn("Discarding journal captured whole by the snapshot")
		return e.resetJournal(id)

	default: // headDamaged
		if !snapExists {
			slog.Warn("Journal head unreadable and no snapshot present; starting empty")
			return e.Journal.Truncate()
		}
		id, err := e.loadSnapshot()
		if err != nil {
			return err
		}
		slog.Warn("Journal head unreadable; recovering from snapshot only")
		return e.resetJournal(id)
	}
}

// replayAndRepair replays the journal, then truncates any torn tail so that
// frames appended afterwards stay reachable by the next recovery.
func (e *Engine) replayAndRepair() error {
	valid, err := e.replayJournal()
	if err != nil {
		return err
	}
	info, err := os.Stat(e.journalPath)
	if err != nil {
		return err
	}
	if info.Size() > valid {
		slog.Warn("Truncating damaged journal tail", "valid_bytes", valid, "file_bytes", info.Size())
		if err := os.Truncate(e.journalPath, valid); err != nil {
			return err
		}
	}
	return nil
}

// replayJournal reads the journal file and reconstructs the state. It
// handles the logic of compacting records (loading into maps first), so that
// datasets dropped later in the log never materialize. It returns the number
// of journal bytes that replayed cleanly.
func (e *Engine) replayJournal() (int64, error) {
	file, err := os.Open(e.journalPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	// Temporary state structures for compaction
	type datasetState struct {
		baskets [][]string
		edges   []*persistence.EdgeRecord
		labels  map[string]string
	}
	datasets := make(map[string]*datasetState)

	stateFor := func(name string) *datasetState {
		st, ok := datasets[name]
		if !ok {
			st = &datasetState{labels: make(map[string]string)}
			datasets[name] = st
		}
		return st
	}

	reader := bufio.NewReader(file)
	var valid int64

	// Phase 1: Read and Aggregate (Compaction logic)
	for {
		op, payload, n, err := persistence.ReadFrame(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			// The file may end with a partial write from a crash. Everything
			// up to the torn frame is preserved; the tail is discarded.
			slog.Warn("Journal replay stopped at damaged frame", "error", err)
			break
		}

		rec, err := persistence.DecodeRecord(op, payload)
		if err != nil {
			if errors.Is(err, persistence.ErrUnknownOpCode) {
				// Frame written by a newer version; skip it.
				valid += int64(n)
				continue
			}
			slog.Warn("Journal replay stopped at undecodable record", "error", err)
			break
		}
		valid += int64(n)

		switch r := rec.(type) {
		case *persistence.CreateDatasetRecord:
			stateFor(r.Dataset)
		case *persistence.DropDatasetRecord:
			delete(datasets, r.Dataset)
		case *persistence.BasketRecord:
			st := stateFor(r.Dataset)
			st.baskets = append(st.baskets, r.Items)
		case *persistence.EdgeRecord:
			st := stateFor(r.Dataset)
			st.edges = append(st.edges, r)
		case *persistence.LabelRecord:
			st := stateFor(r.Dataset)
			if r.Label == "" {
				delete(st.labels, r.ID)
			} else {
				st.labels[r.ID] = r.Label
			}
		case *persistence.CheckpointRecord:
			// Markers carry no dataset state.
		}
	}

	// Phase 2: Apply to Core
	for name, st := range datasets {
		ds, err := e.DB.GetOrCreateDataset(name)
		if err != nil {
			return valid, err
		}
		for _, items := range st.baskets {
			ds.ObserveBasket(items)
		}
		for _, edge := range st.edges {
			if err := ds.AddEdge(edge.A, edge.B, edge.Inc); err != nil {
				slog.Warn("Skipping invalid edge record during replay", "a", edge.A, "b", edge.B, "error", err)
			}
		}
		for id, label := range st.labels {
			ds.SetLabel(id, label)
		}
	}

	return valid, nil
}

// SaveSnapshot writes a point-in-time .bdb snapshot and truncates the
// journal. The two files are paired through a checkpoint identity, so
// recovery can tell which file carries which part of the state.
func (e *Engine) SaveSnapshot() error {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	return e.saveSnapshotLocked()
}

// saveSnapshotLocked creates the snapshot and truncates the journal while
// holding off writers, so no {journal record, memory update} pair can
// straddle the cut. The snapshot file starts with a checkpoint frame and the
// truncated journal gets the same marker as its first record.
func (e *Engine) saveSnapshotLocked() error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	id := uuid.NewString()

	tempSnap := e.snapPath + ".tmp"
	f, err := os.Create(tempSnap)
	if err != nil {
		return err
	}
	defer os.Remove(tempSnap)

	buf := bufio.NewWriter(f)
	frames := persistence.NewFrameWriter(buf)
	header, err := persistence.EncodeRecord(persistence.OpCheckpoint, &persistence.CheckpointRecord{Origin: persistence.CheckpointSnapshot, ID: id})
	if err != nil {
		f.Close()
		return err
	}
	if err := frames.WriteFrame(persistence.OpCheckpoint, header); err != nil {
		f.Close()
		return err
	}
	if err := e.DB.Snapshot(buf); err != nil {
		f.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return err
	}
	// The rename must publish a fully durable file.
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	f.Close()

	if err := os.Rename(tempSnap, e.snapPath); err != nil {
		return err
	}

	if err := e.Journal.Truncate(); err != nil {
		return err
	}
	if err := e.appendCheckpoint(persistence.CheckpointSnapshot, id); err != nil {
		return err
	}

	if info, err := e.Journal.File().Stat(); err == nil {
		e.journalBaseSize = info.Size()
	}
	atomic.StoreInt64(&e.dirtyCounter, 0)
	e.lastSaveTime = time.Now()
	return nil
}

// RewriteJournal compacts the journal file in background: the full basket
// log is kept (it is the authoritative state) but records of dropped
// datasets and superseded labels disappear. The rewritten journal opens
// with a rewrite checkpoint and is fully self-contained, so the snapshot
// file is removed once the swap lands; the next save re-creates it.
func (e *Engine) RewriteJournal() error {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	tempPath := filepath.Join(e.opts.DataDir, "rewrite.tmp")
	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	defer os.Remove(tempPath)

	buf := bufio.NewWriter(f)
	frames := persistence.NewFrameWriter(buf)

	writeRecord := func(op byte, rec any) error {
		payload, err := persistence.EncodeRecord(op, rec)
		if err != nil {
			return err
		}
		return frames.WriteFrame(op, payload)
	}

	if err := writeRecord(persistence.OpCheckpoint, &persistence.CheckpointRecord{Origin: persistence.CheckpointRewrite}); err != nil {
		f.Close()
		return err
	}

	for _, name := range e.DB.ListDatasets() {
		ds, ok := e.DB.GetDataset(name)
		if !ok {
			continue
		}
		snap := ds.Export()

		if err := writeRecord(persistence.OpCreateDataset, &persistence.CreateDatasetRecord{Dataset: name}); err != nil {
			f.Close()
			return err
		}
		for _, items := range snap.Baskets {
			if err := writeRecord(persistence.OpBasket, &persistence.BasketRecord{Dataset: name, Items: items}); err != nil {
				f.Close()
				return err
			}
		}
		for _, edge := range snap.Edges {
			if err := writeRecord(persistence.OpEdge, &persistence.EdgeRecord{Dataset: name, A: edge.A, B: edge.B, Inc: edge.Weight}); err != nil {
				f.Close()
				return err
			}
		}
		for id, label := range snap.Labels {
			if err := writeRecord(persistence.OpLabel, &persistence.LabelRecord{Dataset: name, ID: id, Label: label}); err != nil {
				f.Close()
				return err
			}
		}
	}

	if err := buf.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	f.Close()

	// Atomic swap managed by the journal writer
	if err := e.Journal.ReplaceWith(tempPath); err != nil {
		return err
	}

	// The swapped-in journal supersedes the snapshot.
	if err := os.Remove(e.snapPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	info, _ := e.Journal.File().Stat()
	e.journalBaseSize = info.Size()
	return nil
}
