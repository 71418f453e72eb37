package domain

import (
	"path/filepath"
	"strings"
)

// SourceDocument is a single uploaded accountability PDF to be audited.
type SourceDocument struct {
	// Name is the file name as uploaded (e.g. "OS-2024-0117.pdf").
	Name string

	// Path is the location on disk where the document bytes live.
	Path string

	// Pages is the page count of the PDF, or 0 when counting failed.
	Pages int
}

// ID returns the ledger lookup identifier for the document.
func (d SourceDocument) ID() string {
	return DocumentID(d.Name)
}

// DocumentID derives the ledger lookup key from an uploaded file name.
// The declared-expenses ledger stores the accountability file name in its
// description column, sometimes with the .pdf extension and sometimes
// without, so the identifier is the base name with the extension removed.
// Case variants are handled by the ledger adapter, not here.
func DocumentID(filename string) string {
	name := filepath.Base(filename)
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".pdf") {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
