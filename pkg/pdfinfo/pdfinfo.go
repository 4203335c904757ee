// Package pdfinfo reads lightweight structural facts out of PDF files.
package pdfinfo

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PageCount returns the number of pages in a PDF.
func PageCount(data io.ReaderAt, size int64) (int, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return 0, fmt.Errorf("open PDF: %w", err)
	}
	return reader.NumPage(), nil
}

