package loader

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// PDFLayoutLoader is a higher-fidelity PDF reader for receipts whose text
// layer confuses the plain extractor. It pulls the raw page content streams
// with pdfcpu and reads the text-show operands in drawing order, so every
// show operation becomes one candidate item.
//
// It uses a temporary directory to buffer the content streams extracted by
// pdfcpu.
type PDFLayoutLoader struct{}

func NewPDFLayoutLoader() *PDFLayoutLoader {
	return &PDFLayoutLoader{}
}

func (l *PDFLayoutLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

func (l *PDFLayoutLoader) Load(path string) ([]types.Basket, error) {
	tempDir, err := os.MkdirTemp("", "basketdb_pdf_extract_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTCONTENT
	conf.ValidationMode = model.ValidationRelaxed // Be tolerant with malformed PDFs

	if err := api.ExtractContentFile(path, tempDir, nil, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu extraction failed: %w", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, err
	}

	// One content file per page; keep page order despite lexicographic names.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := pageNumber(names[i]), pageNumber(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})

	var baskets []types.Basket
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tempDir, name))
		if err != nil {
			continue
		}
		b := types.NewBasket(parseContentStrings(data))
		if len(b) == 0 {
			continue
		}
		baskets = append(baskets, b)
	}
	return baskets, nil
}

// pageNumber extracts the trailing page index from an extracted file name,
// tolerating naming differences between pdfcpu versions.
func pageNumber(name string) int {
	end := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] >= '0' && name[i] <= '9' {
			if end < 0 {
				end = i + 1
			}
			continue
		}
		if end >= 0 {
			n := 0
			for _, c := range name[i+1 : end] {
				n = n*10 + int(c-'0')
			}
			return n
		}
	}
	return 0
}

// parseContentStrings reads the text-show operands out of a decoded PDF
// content stream: literal strings, hex strings, and TJ arrays. Fragments
// inside one TJ array belong to a single line, so they are joined; every
// other string is one line of its own.
func parseContentStrings(data []byte) []string {
	var (
		out     []string
		current strings.Builder
		inArray bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '[':
			inArray = true
		case ']':
			if inArray {
				flush()
				inArray = false
			}
		case '(':
			s, next := parseLiteralString(data, i)
			current.WriteString(s)
			i = next
			if !inArray {
				flush()
			}
		case '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i++ // dictionary, not a hex string
				continue
			}
			s, next := parseHexString(data, i)
			current.WriteString(s)
			i = next
			if !inArray {
				flush()
			}
		}
	}
	flush()
	return out
}

// parseLiteralString decodes a PDF literal string starting at data[start]
// == '('. It returns the decoded text and the index of the closing ')'.
// Balanced unescaped parentheses are legal inside the string.
func parseLiteralString(data []byte, start int) (string, int) {
	var b strings.Builder
	depth := 1
	i := start + 1
	for ; i < len(data); i++ {
		c := data[i]
		if c == '\\' && i+1 < len(data) {
			i++
			switch {
			case data[i] == 'n':
				b.WriteByte('\n')
			case data[i] == 'r':
				b.WriteByte('\r')
			case data[i] == 't':
				b.WriteByte('\t')
			case data[i] == '\n':
				// escaped newline is a line continuation
			case data[i] >= '0' && data[i] <= '7':
				v, n := 0, 0
				for n < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7' {
					v = v*8 + int(data[i]-'0')
					i++
					n++
				}
				i--
				b.WriteByte(byte(v))
			default:
				b.WriteByte(data[i])
			}
			continue
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
			if depth == 0 {
				break
			}
		}
		b.WriteByte(c)
	}
	return b.String(), i
}

// parseHexString decodes a PDF hex string starting at data[start] == '<'.
// It returns the decoded text and the index of the closing '>'.
func parseHexString(data []byte, start int) (string, int) {
	i := start + 1
	var digits []byte
	for ; i < len(data) && data[i] != '>'; i++ {
		c := data[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0') // the final zero is implied
	}
	decoded, err := hex.DecodeString(string(digits))
	if err != nil {
		return "", i
	}
	return string(decoded), i
}
