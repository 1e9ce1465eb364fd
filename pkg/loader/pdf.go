package loader

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sanonone/basketdb/pkg/core/types"
)

// PDFReceiptLoader extracts transactions from PDF receipts: one receipt per
// page, one item per text line.
type PDFReceiptLoader struct{}

func NewPDFReceiptLoader() *PDFReceiptLoader {
	return &PDFReceiptLoader{}
}

func (l *PDFReceiptLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

func (l *PDFReceiptLoader) Load(path string) ([]types.Basket, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var baskets []types.Basket
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}

		b := types.NewBasket(strings.Split(text, "\n"))
		if len(b) == 0 {
			continue
		}
		baskets = append(baskets, b)
	}
	return baskets, nil
}
