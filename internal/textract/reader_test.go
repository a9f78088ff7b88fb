package textract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPDF struct {
	text string
	err  error
}

func (s *stubPDF) ExtractText(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func TestReaderDocx(t *testing.T) {
	path := writeDocx(t, sampleDocumentXML)
	r := NewReader(&stubPDF{}, nil, "")

	text, err := r.Text(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "UGOVOR O ODRŽAVANJU")
}

func TestReaderPDFDispatch(t *testing.T) {
	r := NewReader(&stubPDF{text: "pdf sadržaj"}, nil, "")

	text, err := r.Text(context.Background(), "/some/Ugovor.PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf sadržaj", text)
}

func TestReaderDocWithoutConverter(t *testing.T) {
	r := NewReader(&stubPDF{}, nil, "")

	_, err := r.Text(context.Background(), "/some/Ugovor.doc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LibreOffice")
}

func TestReaderUnsupportedExtension(t *testing.T) {
	r := NewReader(&stubPDF{}, nil, "")

	_, err := r.Text(context.Background(), "/some/Ugovor.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestPdfToTextBinPath(t *testing.T) {
	p := NewPdfToText("")
	assert.Equal(t, "pdftotext", p.binPath)

	p = NewPdfToText("/custom/pdftotext")
	assert.Equal(t, "/custom/pdftotext", p.binPath)
}

func TestPdfToTextMissingBinary(t *testing.T) {
	p := NewPdfToText("/nonexistent/pdftotext")
	_, err := p.ExtractText(context.Background(), "/some.pdf")
	require.Error(t, err)
}
