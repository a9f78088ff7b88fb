// Package textract turns contract documents (.docx, .doc, .pdf) into plain
// text for the extraction prompt.
package textract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// PDFExtractor extracts text content from PDF files.
type PDFExtractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// Reader dispatches on file extension. Legacy .doc files go through a
// LibreOffice conversion first; converted copies land under convertedDir and
// are reused on later runs.
type Reader struct {
	pdf          PDFExtractor
	converter    *DocConverter
	convertedDir string
}

// NewReader builds a reader. converter may be nil when LibreOffice is
// unavailable; .doc files then fail with a recorded error instead of
// aborting the run.
func NewReader(pdf PDFExtractor, converter *DocConverter, convertedDir string) *Reader {
	if pdf == nil {
		pdf = NewPdfToText("")
	}
	return &Reader{pdf: pdf, converter: converter, convertedDir: convertedDir}
}

// Text extracts the document's plain text.
func (r *Reader) Text(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return ExtractDocxText(path)
	case ".doc":
		if r.converter == nil {
			return "", eris.Errorf("textract: %s needs LibreOffice for conversion", path)
		}
		outDir := filepath.Join(r.convertedDir, filepath.Base(filepath.Dir(path)))
		converted, err := r.converter.Convert(ctx, path, outDir)
		if err != nil {
			return "", err
		}
		return ExtractDocxText(converted)
	case ".pdf":
		return r.pdf.ExtractText(ctx, path)
	}
	return "", eris.Errorf("textract: unsupported extension for %s", path)
}
