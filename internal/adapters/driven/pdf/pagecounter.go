// Package pdf provides local PDF inspection helpers.
package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
)

// Ensure PageCounter implements the interface.
var _ driven.PageCounter = (*PageCounter)(nil)

// PageCounter counts PDF pages with pdfcpu.
type PageCounter struct{}

// New creates a page counter.
func New() *PageCounter {
	return &PageCounter{}
}

// Count returns the number of pages in the PDF at path.
func (p *PageCounter) Count(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", path, err)
	}
	return n, nil
}
