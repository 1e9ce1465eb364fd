package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// HeaderMode controls how the CSV loader treats the first row of a file.
type HeaderMode int

const (
	// HeaderAuto sniffs the first row and skips it when its first cell looks
	// like a column title.
	HeaderAuto HeaderMode = iota
	// HeaderSkip always discards the first row.
	HeaderSkip
	// HeaderKeep always treats the first row as data.
	HeaderKeep
)

// headerWords are first-cell values that mark a header row during sniffing.
var headerWords = map[string]struct{}{
	"transaction":    {},
	"transaction_id": {},
	"items":          {},
	"basket":         {},
}

// CSVLoader reads one transaction per row: every non-empty cell is an item.
// Rows may have different lengths, which is the natural shape of a basket
// export.
type CSVLoader struct {
	// Comma is the field separator. Zero means ',' (or '\t' for .tsv files).
	Comma rune
	// Header controls first-row handling, HeaderAuto by default.
	Header HeaderMode
}

func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

func (l *CSVLoader) SupportedExtensions() []string {
	return []string{".csv", ".tsv"}
}

func (l *CSVLoader) Load(path string) ([]types.Basket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	comma := l.Comma
	if comma == 0 && strings.ToLower(filepath.Ext(path)) == ".tsv" {
		comma = '\t'
	}
	return l.read(f, comma)
}

// Read parses CSV data from an arbitrary reader using the configured
// separator.
func (l *CSVLoader) Read(r io.Reader) ([]types.Basket, error) {
	return l.read(r, l.Comma)
}

func (l *CSVLoader) read(r io.Reader, comma rune) ([]types.Basket, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // baskets have no fixed width
	cr.TrimLeadingSpace = true
	if comma != 0 {
		cr.Comma = comma
	}

	var baskets []types.Basket
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv parse failed: %w", err)
		}
		if first {
			first = false
			if l.skipFirstRow(row) {
				continue
			}
		}
		b := types.NewBasket(row)
		if len(b) == 0 {
			continue
		}
		baskets = append(baskets, b)
	}
	return baskets, nil
}

func (l *CSVLoader) skipFirstRow(row []string) bool {
	switch l.Header {
	case HeaderSkip:
		return true
	case HeaderKeep:
		return false
	}
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	_, ok := headerWords[first]
	return ok
}
