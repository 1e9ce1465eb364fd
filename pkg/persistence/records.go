package persistence

import (
	"encoding/json"
	"fmt"
)

// Journal record payloads. Each frame carries one record, JSON-encoded with
// short keys to keep the journal compact. The dataset name travels inside
// the payload so a single journal file can serve the whole DB.

// CreateDatasetRecord registers a dataset.
type CreateDatasetRecord struct {
	Dataset string `json:"d"`
}

// DropDatasetRecord removes a dataset.
type DropDatasetRecord struct {
	Dataset string `json:"d"`
}

// BasketRecord is one observed transaction in canonical form.
type BasketRecord struct {
	Dataset string   `json:"d"`
	Items   []string `json:"i"`
}

// EdgeRecord is one direct edge weight increment.
type EdgeRecord struct {
	Dataset string `json:"d"`
	A       string `json:"a"`
	B       string `json:"b"`
	Inc     int    `json:"w"`
}

// LabelRecord attaches a display label to a product. An empty label
// removes the assignment.
type LabelRecord struct {
	Dataset string `json:"d"`
	ID      string `json:"id"`
	Label   string `json:"l"`
}

// Checkpoint origins. They tell recovery whether the journal complements the
// snapshot file or supersedes it.
const (
	// CheckpointSnapshot heads a journal truncated right after a snapshot:
	// the snapshot holds everything before the marker, the journal holds
	// everything after it. The same checkpoint is also the first frame of the
	// snapshot file itself, so recovery can verify the two files pair up.
	CheckpointSnapshot = "snapshot"
	// CheckpointRewrite heads a rewritten journal: the journal is
	// self-contained and any snapshot file on disk is stale.
	CheckpointRewrite = "rewrite"
)

// CheckpointRecord is the payload of an OpCheckpoint frame. ID is the
// snapshot identity; a journal whose head names an ID different from the
// snapshot file's one was captured whole by that snapshot and must not be
// replayed on top of it.
type CheckpointRecord struct {
	Origin string `json:"o"`
	ID     string `json:"id,omitempty"`
}

// EncodeRecord serializes a record payload for the given operation code.
func EncodeRecord(op byte, rec any) ([]byte, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record (op 0x%02x): %w", op, err)
	}
	return payload, nil
}

// DecodeRecord deserializes a frame payload into the record type matching
// its operation code.
func DecodeRecord(op byte, payload []byte) (any, error) {
	var rec any
	switch op {
	case OpCreateDataset:
		rec = &CreateDatasetRecord{}
	case OpDropDataset:
		rec = &DropDatasetRecord{}
	case OpBasket:
		rec = &BasketRecord{}
	case OpEdge:
		rec = &EdgeRecord{}
	case OpLabel:
		rec = &LabelRecord{}
	case OpCheckpoint:
		rec = &CheckpointRecord{}
	default:
		return nil, fmt.Errorf("op 0x%02x: %w", op, ErrUnknownOpCode)
	}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("failed to decode record (op 0x%02x): %w", op, err)
	}
	return rec, nil
}
