package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

var (
	errEmptyDocument = errors.New("empty document")
	errNotPDF        = errors.New("missing %PDF header")
	errNoPages       = errors.New("document has no pages")
)

// Inspector checks that a protocol document is a readable PDF.
type Inspector struct {
	maxBytes int64
}

func NewInspector(maxBytes int64) *Inspector {
	return &Inspector{maxBytes: maxBytes}
}

// Inspect returns the page count. The parser panics on some malformed
// inputs, so panics are reported as errors.
func (i *Inspector) Inspect(file domain.ProtocolFile) (pages int, err error) {
	size := int64(len(file.Content))
	if size == 0 {
		return 0, errEmptyDocument
	}
	if i.maxBytes > 0 && size > i.maxBytes {
		return 0, fmt.Errorf("document exceeds %d bytes", i.maxBytes)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(file.Content, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, errNotPDF
	}

	defer func() {
		if r := recover(); r != nil {
			pages = 0
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(file.Content), size)
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	pages = reader.NumPage()
	if pages < 1 {
		return 0, errNoPages
	}
	return pages, nil
}
