package spreadsheet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/model"
)

// Fill colors. Grey marks locked cells, yellow marks cells the reviewer is
// expected to edit.
const (
	headerColor   = "FF4472C4"
	lockedColor   = "FFF2F2F2"
	editableColor = "FFFFF2CC"
)

func headerStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font = *xlsx.NewFont(10, "Arial")
	s.Font.Bold = true
	s.Font.Color = "FFFFFFFF"
	s.ApplyFont = true
	s.Fill = *xlsx.NewFill("solid", headerColor, headerColor)
	s.ApplyFill = true
	return s
}

func bodyStyle(editable bool) *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font = *xlsx.NewFont(10, "Arial")
	s.ApplyFont = true
	color := lockedColor
	if editable {
		color = editableColor
	}
	s.Fill = *xlsx.NewFill("solid", color, color)
	s.ApplyFill = true
	return s
}

// Writer builds the three-sheet review workbook.
type Writer struct {
	rate string // HRK→EUR rate embedded in the EUR-equivalent formulas

	locked   *xlsx.Style
	editable *xlsx.Style
	header   *xlsx.Style
}

// NewWriter returns a writer that embeds the given HRK→EUR rate.
func NewWriter(rate string) *Writer {
	return &Writer{
		rate:     rate,
		locked:   bodyStyle(false),
		editable: bodyStyle(true),
		header:   headerStyle(),
	}
}

// Write builds the workbook and saves it atomically next to path.
func (w *Writer) Write(path string, extractions []*model.ClientExtraction, inv *model.Inventory) error {
	file, err := w.Build(extractions, inv)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "spreadsheet: create output dir for %s", path)
	}
	tmp := path + ".tmp"
	if err := file.Save(tmp); err != nil {
		return eris.Wrapf(err, "spreadsheet: save workbook %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "spreadsheet: rename workbook %s", path)
	}
	zap.L().Info("spreadsheet: workbook written",
		zap.String("path", path),
		zap.Int("clients", len(extractions)),
	)
	return nil
}

// Build assembles the workbook in memory.
func (w *Writer) Build(extractions []*model.ClientExtraction, inv *model.Inventory) (*xlsx.File, error) {
	sorted := make([]*model.ClientExtraction, len(extractions))
	copy(sorted, extractions)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].ClientID) < strings.ToLower(sorted[j].ClientID)
	})

	file := xlsx.NewFile()
	if err := w.buildOverview(file, sorted, inv); err != nil {
		return nil, err
	}
	if err := w.buildPricing(file, sorted); err != nil {
		return nil, err
	}
	if err := w.buildInventory(file, inv); err != nil {
		return nil, err
	}
	return file, nil
}

func (w *Writer) addHeader(sheet *xlsx.Sheet, headers []string, widths []float64) {
	row := sheet.AddRow()
	for i, h := range headers {
		cell := row.AddCell()
		cell.SetString(h)
		cell.SetStyle(w.header)
		if i < len(widths) {
			sheet.SetColWidth(i, i, widths[i])
		}
	}
}

func (w *Writer) setCell(row *xlsx.Row, value string, editable bool) *xlsx.Cell {
	cell := row.AddCell()
	cell.SetString(value)
	if editable {
		cell.SetStyle(w.editable)
	} else {
		cell.SetStyle(w.locked)
	}
	return cell
}

func (w *Writer) buildOverview(file *xlsx.File, extractions []*model.ClientExtraction, inv *model.Inventory) error {
	sheet, err := file.AddSheet(SheetOverview)
	if err != nil {
		return eris.Wrap(err, "spreadsheet: add overview sheet")
	}
	w.addHeader(sheet, overviewHeaders,
		[]float64{25, 20, 30, 15, 30, 15, 30, 14, 16, 30, 15})

	for rowNum, ce := range extractions {
		row := sheet.AddRow()

		var chain *model.DocumentChain
		if client := inv.Client(ce.ClientID); client != nil {
			chain = client.Chain
		}

		clientName := ce.ClientID
		if ce.Result != nil && ce.Result.Legal.Name != "" {
			clientName = ce.Result.Legal.Name
		}
		w.setCell(row, clientName, false)
		w.setCell(row, ce.ClientID, false)

		mainDoc := ""
		latestAnnex := ""
		if chain != nil {
			if chain.MainContract != "" {
				mainDoc = filepath.Base(chain.MainContract)
			}
			if len(chain.Annexes) > 0 {
				latestAnnex = filepath.Base(chain.Annexes[len(chain.Annexes)-1])
			}
		}
		w.setCell(row, mainDoc, false)

		contractDate := ""
		annexDate := ""
		if ce.Result != nil {
			if ce.Result.DocumentType == "contract" {
				contractDate = ce.Result.DocumentDate
			} else {
				annexDate = ce.Result.DocumentDate
			}
		}
		w.setCell(row, contractDate, false)
		w.setCell(row, latestAnnex, false)
		w.setCell(row, annexDate, false)

		w.setCell(row, filepath.Base(ce.SourceFile), false)

		confidence := ""
		if ce.Result != nil {
			confidence = confidenceLabels[ce.Result.Confidence]
		}
		w.setCell(row, confidence, false)

		statusCell := w.setCell(row, "", true)
		dv := xlsx.NewDataValidation(rowNum+1, ovStatus, rowNum+1, ovStatus, true)
		if err := dv.SetDropList(statusDropList); err != nil {
			return eris.Wrap(err, "spreadsheet: status dropdown")
		}
		statusCell.SetDataValidation(dv)

		notes := ""
		if ce.Error != "" {
			notes = "GREŠKA: " + ce.Error
		} else if ce.Result != nil && len(ce.Result.Notes) > 0 {
			notes = strings.Join(ce.Result.Notes, "; ")
		}
		w.setCell(row, notes, true)
		w.setCell(row, "", true)
	}
	return nil
}

func (w *Writer) buildPricing(file *xlsx.File, extractions []*model.ClientExtraction) error {
	sheet, err := file.AddSheet(SheetPricing)
	if err != nil {
		return eris.Wrap(err, "spreadsheet: add pricing sheet")
	}
	w.addHeader(sheet, pricingHeaders,
		[]float64{25, 40, 18, 10, 20, 15, 18, 14, 15})

	rowNum := 1
	for _, ce := range extractions {
		if ce.Result == nil {
			continue
		}
		for _, item := range ce.Result.Items {
			row := sheet.AddRow()
			rowNum++

			w.setCell(row, ce.ClientID, false)
			w.setCell(row, item.ServiceLabel, false)

			price, _ := item.Price.Float64()
			priceCell := row.AddCell()
			priceCell.SetFloatWithFormat(price, "#,##0.00")
			priceCell.SetStyle(w.locked)

			w.setCell(row, string(item.Currency), false)

			// EUR equivalent as a formula with a fallback: an unreadable
			// value must never read back as zero.
			eurCell := row.AddCell()
			eurCell.SetFormula(fmt.Sprintf(
				`IFERROR(IF(D%d="HRK",C%d/%s,C%d),"")`,
				rowNum, rowNum, w.rate, rowNum))
			eurCell.SetStyle(w.locked)

			w.setCell(row, string(item.Unit), false)

			w.setCell(row, "", true) // new price EUR
			pctCell := row.AddCell()
			pctCell.SetFormula(fmt.Sprintf(
				`IFERROR(IF(AND(G%d<>"",E%d>0),(G%d-E%d)/E%d*100,""),"")`,
				rowNum, rowNum, rowNum, rowNum, rowNum))
			pctCell.SetStyle(w.editable)
			w.setCell(row, "", true) // effective date
		}
	}
	return nil
}

func (w *Writer) buildInventory(file *xlsx.File, inv *model.Inventory) error {
	sheet, err := file.AddSheet(SheetInventory)
	if err != nil {
		return eris.Wrap(err, "spreadsheet: add inventory sheet")
	}
	w.addHeader(sheet, inventoryHeaders,
		[]float64{25, 45, 12, 14, 18, 22, 20})

	clients := make([]model.ClientEntry, len(inv.Clients))
	copy(clients, inv.Clients)
	sort.Slice(clients, func(i, j int) bool {
		return strings.ToLower(clients[i].FolderName) < strings.ToLower(clients[j].FolderName)
	})

	for _, client := range clients {
		for _, f := range client.Files {
			row := sheet.AddRow()
			w.setCell(row, client.FolderName, false)
			w.setCell(row, f.Filename, false)
			w.setCell(row, f.Extension, false)

			sizeCell := row.AddCell()
			sizeCell.SetFloatWithFormat(float64(f.SizeBytes)/1024, "#,##0.0")
			sizeCell.SetStyle(w.locked)

			modified := ""
			if f.ModifiedAt != nil {
				modified = f.ModifiedAt.Format("02.01.2006 15:04")
			}
			w.setCell(row, modified, false)
			w.setCell(row, string(f.DocType), false)
			w.setCell(row, string(f.Status), false)
		}
	}
	return nil
}
