// Package loader reads transaction files into baskets.
//
// Each loader understands one on-disk format (CSV rows, JSON lines, PDF
// receipts) and turns it into canonical baskets ready for ingestion. The
// AutoLoader picks the right one from the file extension, which is what the
// server's background ingestors use.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// ErrUnsupportedFormat reports a file extension or format name that no
// registered loader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Loader defines the contract for reading a transaction file and extracting
// its baskets.
type Loader interface {
	// Load reads the file at the given path and returns its transactions in
	// canonical basket form. Empty transactions are dropped.
	Load(path string) ([]types.Basket, error)

	// SupportedExtensions lists the file extensions (with leading dot) this
	// loader claims.
	SupportedExtensions() []string
}

// AutoLoader automatically selects the correct loader based on file extension.
type AutoLoader struct {
	byExt map[string]Loader
}

// NewAutoLoader builds the default dispatch table: CSV, JSON lines, and
// plain-text PDF receipts. Additional loaders can be attached with Register.
func NewAutoLoader() *AutoLoader {
	a := &AutoLoader{byExt: make(map[string]Loader)}
	a.Register(NewCSVLoader())
	a.Register(NewJSONLoader())
	a.Register(NewPDFReceiptLoader())
	return a
}

// Register routes every extension the loader claims to it, replacing any
// previous assignment for the same extension.
func (a *AutoLoader) Register(l Loader) {
	for _, ext := range l.SupportedExtensions() {
		a.byExt[strings.ToLower(ext)] = l
	}
}

func (a *AutoLoader) Load(path string) ([]types.Basket, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := a.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(a.SupportedExtensions(), ", "))
	}
	return l.Load(path)
}

func (a *AutoLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(a.byExt))
	for ext := range a.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ForFormat resolves an explicit format name (as used in ingestor configs)
// to a loader. An empty name or "auto" yields the extension dispatcher.
func ForFormat(format string) (Loader, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto":
		return NewAutoLoader(), nil
	case "csv":
		return NewCSVLoader(), nil
	case "json", "jsonl":
		return NewJSONLoader(), nil
	case "pdf":
		return NewPDFReceiptLoader(), nil
	case "pdf-layout":
		return NewPDFLayoutLoader(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}
