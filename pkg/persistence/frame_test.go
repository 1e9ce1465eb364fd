package persistence

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)

	// 1. Write a mixed sequence of records
	frames := []struct {
		op      byte
		payload string
	}{
		{OpCreateDataset, `{"d":"retail"}`},
		{OpBasket, `{"d":"retail","i":["bread","milk"]}`},
		{OpEdge, `{"d":"retail","a":"milk","b":"cereal","w":3}`},
	}
	for _, f := range frames {
		if err := fw.WriteFrame(f.op, []byte(f.payload)); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	// 2. Read them back in order
	r := bytes.NewReader(buf.Bytes())
	for i, want := range frames {
		op, payload, n, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if op != want.op {
			t.Errorf("frame %d op: got 0x%02x, want 0x%02x", i, op, want.op)
		}
		if string(payload) != want.payload {
			t.Errorf("frame %d payload: got %q, want %q", i, payload, want.payload)
		}
		if n != HeaderSize+len(want.payload) {
			t.Errorf("frame %d size: got %d, want %d", i, n, HeaderSize+len(want.payload))
		}
	}

	// 3. A clean end of stream is io.EOF, not corruption
	if _, _, _, err := ReadFrame(r); err != io.EOF {
		t.Errorf("end of stream: got %v, want io.EOF", err)
	}
}

func TestFrameTornTail(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	fw.WriteFrame(OpBasket, []byte(`{"d":"retail","i":["a","b"]}`))
	fw.WriteFrame(OpBasket, []byte(`{"d":"retail","i":["c","d"]}`))

	// Simulate a crash mid-write: cut the stream inside the second frame.
	torn := buf.Bytes()[:buf.Len()-5]
	r := bytes.NewReader(torn)

	if _, _, _, err := ReadFrame(r); err != nil {
		t.Fatalf("first frame should survive: %v", err)
	}
	if _, _, _, err := ReadFrame(r); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("torn frame: got %v, want ErrIncompleteFrame", err)
	}
}

func TestFrameTornHeader(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	fw.WriteFrame(OpBasket, []byte(`{"d":"x","i":["a","b"]}`))

	// Only part of the next header made it to disk.
	torn := append(buf.Bytes(), MagicByte, OpBasket, 0x10)
	r := bytes.NewReader(torn)

	ReadFrame(r)
	if _, _, _, err := ReadFrame(r); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("partial header: got %v, want ErrIncompleteFrame", err)
	}
}

func TestFrameChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	fw.WriteFrame(OpEdge, []byte(`{"d":"retail","a":"x","b":"y","w":1}`))

	// Flip one payload byte; the CRC must catch it.
	data := buf.Bytes()
	data[HeaderSize] ^= 0xFF

	if _, _, _, err := ReadFrame(bytes.NewReader(data)); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("corrupted payload: got %v, want ErrChecksumMismatch", err)
	}
}

func TestFrameInvalidMagic(t *testing.T) {
	data := []byte{0x00, OpBasket, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, _, _, err := ReadFrame(bytes.NewReader(data)); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("bad magic: got %v, want ErrInvalidMagic", err)
	}
}

func TestRecordCodec(t *testing.T) {
	payload, err := EncodeRecord(OpBasket, &BasketRecord{Dataset: "retail", Items: []string{"bread", "milk"}})
	if err != nil {
		t.Fatalf("EncodeRecord failed: %v", err)
	}

	rec, err := DecodeRecord(OpBasket, payload)
	if err != nil {
		t.Fatalf("DecodeRecord failed: %v", err)
	}
	basket, ok := rec.(*BasketRecord)
	if !ok {
		t.Fatalf("DecodeRecord type: got %T, want *BasketRecord", rec)
	}
	if basket.Dataset != "retail" || len(basket.Items) != 2 {
		t.Errorf("decoded record: got %+v", basket)
	}

	payload, err = EncodeRecord(OpCheckpoint, &CheckpointRecord{Origin: CheckpointSnapshot, ID: "a1b2"})
	if err != nil {
		t.Fatalf("EncodeRecord checkpoint failed: %v", err)
	}
	rec, err = DecodeRecord(OpCheckpoint, payload)
	if err != nil {
		t.Fatalf("DecodeRecord checkpoint failed: %v", err)
	}
	ckpt, ok := rec.(*CheckpointRecord)
	if !ok || ckpt.Origin != CheckpointSnapshot || ckpt.ID != "a1b2" {
		t.Errorf("decoded checkpoint: got %+v", rec)
	}

	if _, err := DecodeRecord(0x7F, []byte(`{}`)); !errors.Is(err, ErrUnknownOpCode) {
		t.Errorf("unknown op: got %v, want ErrUnknownOpCode", err)
	}
}
