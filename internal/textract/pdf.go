package textract

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"

	"github.com/procudo/contract-cli/internal/hr"
)

// scannedPDFWarning is prepended when a PDF yields almost no text, which
// usually means it is a scanned image.
const scannedPDFWarning = "[WARNING: Scanned/image PDF, minimal text extracted]\n"

const scannedPDFMinChars = 50

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext"
// is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout on the given PDF and returns stdout,
// NFC normalized. The -layout flag keeps pricing table columns aligned so
// rows stay recognizable.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "textract: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	text := hr.NFC(stdout.String())
	if len(text) < scannedPDFMinChars {
		text = scannedPDFWarning + text
	}
	return text, nil
}
