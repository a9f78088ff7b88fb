package textract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/procudo/contract-cli/internal/hr"
)

// ExtractDocxText reads word/document.xml from a .docx archive and renders it
// as plain text in document order. Tables become pipe-delimited rows wrapped
// in [TABLE id=N] markers so the extraction prompt can locate pricing tables;
// heading paragraphs are prefixed with [H].
func ExtractDocxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", eris.Wrapf(err, "textract: open docx %s", path)
	}
	defer zr.Close()

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", eris.Wrapf(err, "textract: open document.xml in %s", path)
			}
			break
		}
	}
	if doc == nil {
		return "", eris.Errorf("textract: %s has no word/document.xml", path)
	}
	defer doc.Close()

	text, err := renderDocumentXML(doc)
	if err != nil {
		return "", eris.Wrapf(err, "textract: parse document.xml in %s", path)
	}
	return text, nil
}

// renderDocumentXML streams WordprocessingML and flattens it. Nested tables
// are folded into the cell of the outer table that contains them.
func renderDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var parts []string
	tableID := 0

	var (
		tblDepth  int
		paragraph strings.Builder
		isHeading bool
		inText    bool
		rows      [][]string
		row       []string
		cell      strings.Builder
	)

	flushParagraph := func() {
		text := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if text == "" {
			return
		}
		if isHeading {
			parts = append(parts, "[H] "+text)
		} else {
			parts = append(parts, text)
		}
		isHeading = false
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					rows = nil
				}
			case "tr":
				if tblDepth == 1 {
					row = nil
				}
			case "tc":
				if tblDepth == 1 {
					cell.Reset()
				}
			case "p":
				if tblDepth == 0 {
					paragraph.Reset()
					isHeading = false
				}
			case "pStyle":
				if tblDepth == 0 {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" && strings.Contains(strings.ToLower(attr.Value), "heading") {
							isHeading = true
						}
					}
				}
			case "t":
				inText = true
			}

		case xml.CharData:
			if !inText {
				continue
			}
			if tblDepth > 0 {
				cell.Write(t)
			} else {
				paragraph.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tblDepth == 0 {
					flushParagraph()
				} else {
					cell.WriteByte(' ')
				}
			case "tc":
				if tblDepth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
					cell.Reset()
				}
			case "tr":
				if tblDepth == 1 && len(row) > 0 {
					rows = append(rows, row)
					row = nil
				}
			case "tbl":
				tblDepth--
				if tblDepth == 0 && len(rows) > 0 {
					parts = append(parts, fmt.Sprintf("[TABLE id=%d]", tableID))
					for _, r := range rows {
						parts = append(parts, strings.Join(r, " | "))
					}
					parts = append(parts, "[/TABLE]")
					tableID++
					rows = nil
				}
			}
		}
	}

	return hr.NFC(strings.Join(parts, "\n")), nil
}
