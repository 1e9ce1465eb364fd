package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// JSONLoader reads JSON Lines: one transaction per line, either a plain
// array of item identifiers or an object with an "items" field.
//
//	["milk", "bread", "eggs"]
//	{"items": ["milk", "bread"], "total": 7.40}
//
// Extra object fields (prices, timestamps) are ignored.
type JSONLoader struct{}

func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

func (l *JSONLoader) SupportedExtensions() []string {
	return []string{".json", ".jsonl", ".ndjson"}
}

func (l *JSONLoader) Load(path string) ([]types.Basket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.Read(f)
}

// Read parses JSON Lines data from an arbitrary reader.
func (l *JSONLoader) Read(r io.Reader) ([]types.Basket, error) {
	sc := bufio.NewScanner(r)
	// A single line can hold a very wide basket; the default 64KB limit is
	// too small for some exports.
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var baskets []types.Basket
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		items, err := decodeTransactionLine([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		b := types.NewBasket(items)
		if len(b) == 0 {
			continue
		}
		baskets = append(baskets, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("json lines read failed: %w", err)
	}
	return baskets, nil
}

func decodeTransactionLine(raw []byte) ([]string, error) {
	if raw[0] == '[' {
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var row struct {
		Items []string `json:"items"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return row.Items, nil
}
