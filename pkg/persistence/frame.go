package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the journal binary protocol.
const (
	// MagicByte is the marker used to identify the start of a valid frame.
	// It helps in scanning for recovery if the file is heavily corrupted.
	MagicByte = 0xB5

	// HeaderSize is the fixed size of the frame metadata:
	// 1 byte (Magic) + 1 byte (OpCode) + 4 bytes (Length) + 4 bytes (CRC32) = 10 bytes.
	HeaderSize = 10
)

// Operation codes identifying the record type carried by a frame payload.
const (
	// OpCreateDataset registers a new dataset.
	OpCreateDataset = 0x01
	// OpDropDataset removes a dataset and its data.
	OpDropDataset = 0x02
	// OpBasket records one observed transaction.
	OpBasket = 0x03
	// OpEdge records a direct edge weight increment.
	OpEdge = 0x04
	// OpLabel records a product label assignment.
	OpLabel = 0x05
	// OpCheckpoint marks how the journal relates to the snapshot file. It is
	// only ever the first frame: after a snapshot truncates the journal, or at
	// the head of a rewritten journal. It carries no dataset state.
	OpCheckpoint = 0x06
)

var (
	// ErrInvalidMagic indicates the file stream lost synchronization or is not a valid journal.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates data corruption within the frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended abruptly (e.g., power loss during write).
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrUnknownOpCode indicates a frame with an operation code this version does not handle.
	ErrUnknownOpCode = errors.New("unknown operation code")
)

// FrameWriter handles the safe writing of binary frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter creates a writer that wraps an underlying io.Writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes the payload into a binary frame and writes it.
// Frame Format: [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)]
func (fw *FrameWriter) WriteFrame(op byte, payload []byte) error {
	// 1. Prepare Header Buffer
	header := make([]byte, HeaderSize)

	header[0] = MagicByte
	header[1] = op

	// Payload Length (uint32 Little Endian)
	length := uint32(len(payload))
	binary.LittleEndian.PutUint32(header[2:6], length)

	// Checksum (IEEE 802.3)
	checksum := crc32.ChecksumIEEE(payload)
	binary.LittleEndian.PutUint32(header[6:10], checksum)

	// 2. Write Header
	// Header and payload are written sequentially; 'fw.w' should be a
	// bufio.Writer so both land in a single syscall.
	if _, err := fw.w.Write(header); err != nil {
		return err
	}

	// 3. Write Payload
	if _, err := fw.w.Write(payload); err != nil {
		return err
	}

	return nil
}

// ReadFrame reads the next frame from the reader.
// It performs validation of the Magic Byte and the CRC32 Checksum.
// Returns the operation code, the payload, the total bytes read
// (header + payload), and an error.
func ReadFrame(r io.Reader) (byte, []byte, int, error) {
	header := make([]byte, HeaderSize)

	// 1. Read Header
	// ReadFull ensures we get exactly HeaderSize bytes or an error.
	if _, err := io.ReadFull(r, header); err != nil {
		// If we are at EOF exactly at a frame boundary, it's a clean exit.
		if err == io.EOF {
			return 0, nil, 0, io.EOF
		}
		// Partial header (e.g. 5 bytes then EOF) means a torn write.
		return 0, nil, 0, ErrIncompleteFrame
	}

	// 2. Validate Magic Byte
	if header[0] != MagicByte {
		return 0, nil, HeaderSize, ErrInvalidMagic
	}

	op := header[1]

	// 3. Parse Length and Expected CRC
	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])

	// 4. Read Payload
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		// Even EOF is an error here because 'length' bytes were promised.
		return op, nil, HeaderSize, ErrIncompleteFrame
	}

	// 5. Verify Checksum
	actualCRC := crc32.ChecksumIEEE(payload)
	if actualCRC != expectedCRC {
		return op, nil, HeaderSize + int(length), ErrChecksumMismatch
	}

	return op, payload, HeaderSize + int(length), nil
}
