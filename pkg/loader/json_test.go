package loader

import (
	"strings"
	"testing"
)

func TestJSONLoaderMixedShapes(t *testing.T) {
	input := `["milk", "bread"]

{"items": ["eggs", "milk", "butter"], "total": 7.40, "store": "centro"}
["jam"]
`
	baskets, err := NewJSONLoader().Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// 1. Blank lines are skipped, both line shapes parse
	if len(baskets) != 3 {
		t.Fatalf("Got %d baskets, want 3", len(baskets))
	}
	if len(baskets[0]) != 2 || baskets[0][0] != "bread" {
		t.Errorf("Array line: got %v, want [bread milk]", baskets[0])
	}
	if len(baskets[1]) != 3 {
		t.Errorf("Object line: got %v, want three items", baskets[1])
	}

	// 2. Duplicates inside one line collapse
	baskets, err = NewJSONLoader().Read(strings.NewReader(`["milk", "Milk", "milk "]`))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(baskets) != 1 || len(baskets[0]) != 1 {
		t.Errorf("Got %v, want a single one-item basket", baskets)
	}
}

func TestJSONLoaderRejectsMalformedLine(t *testing.T) {
	input := `["milk"]
{"items": broken}
`
	if _, err := NewJSONLoader().Read(strings.NewReader(input)); err == nil {
		t.Fatal("Expected an error for malformed JSON, got nil")
	} else if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Error should point at line 2, got: %v", err)
	}
}

func TestJSONLoaderEmptyObjectItems(t *testing.T) {
	// An object without items produces no basket rather than an error
	baskets, err := NewJSONLoader().Read(strings.NewReader(`{"total": 3.20}`))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(baskets) != 0 {
		t.Errorf("Got %d baskets, want 0", len(baskets))
	}
}
