package spreadsheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/currency"
	"github.com/procudo/contract-cli/internal/hr"
)

// NewPrice is one reviewed pricing row that carries a change. All amounts are
// EUR, rounded half-up to 2 places.
type NewPrice struct {
	ServiceLabel  string
	BaseEUR       decimal.Decimal
	NewPriceEUR   decimal.Decimal
	PctChange     *decimal.Decimal // set when the reviewer entered a percentage
	EffectiveDate time.Time        // zero when the reviewer left it blank
}

// ApprovedClient is a client whose overview row was marked Odobreno, together
// with the price changes recorded for it.
type ApprovedClient struct {
	ClientID   string
	ClientName string
	Notes      string
	NewPrices  []NewPrice
}

// ReadResult is everything the review workbook decided.
type ReadResult struct {
	Approved []ApprovedClient
	Warnings []string
}

// Reader extracts reviewer decisions from a workbook the Writer produced.
type Reader struct {
	conv *currency.Converter
}

func NewReader(conv *currency.Converter) *Reader {
	return &Reader{conv: conv}
}

// ReadDecisions opens the workbook and returns the approved clients with
// their resolved new prices. Header integrity is checked before any row is
// trusted. A percentage entry always wins over an absolute price on the same
// row; when both are present and disagree in direction, a warning is raised.
func (r *Reader) ReadDecisions(path string) (*ReadResult, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "spreadsheet: open workbook %s", path)
	}

	overview, ok := file.Sheet[SheetOverview]
	if !ok {
		return nil, eris.Errorf("spreadsheet: workbook %s has no sheet %q", path, SheetOverview)
	}
	pricing, ok := file.Sheet[SheetPricing]
	if !ok {
		return nil, eris.Errorf("spreadsheet: workbook %s has no sheet %q", path, SheetPricing)
	}
	if err := validateHeaders(SheetOverview, headerRow(overview), overviewHeaders); err != nil {
		return nil, err
	}
	if err := validateHeaders(SheetPricing, headerRow(pricing), pricingHeaders); err != nil {
		return nil, err
	}
	if inventory, ok := file.Sheet[SheetInventory]; ok {
		if err := validateHeaders(SheetInventory, headerRow(inventory), inventoryHeaders); err != nil {
			return nil, err
		}
	}

	result := &ReadResult{}

	approved := map[string]*ApprovedClient{} // by folder id
	byName := map[string]string{}            // NFC display name → folder id
	var order []string
	for _, row := range overview.Rows[1:] {
		folder := cellString(row, ovFolder)
		if folder == "" {
			continue
		}
		status := ReviewStatus(cellString(row, ovStatus))
		if status != StatusApproved {
			continue
		}
		name := cellString(row, ovClient)
		approved[folder] = &ApprovedClient{
			ClientID:   folder,
			ClientName: name,
			Notes:      cellString(row, ovNotes),
		}
		byName[hr.NFC(strings.ToLower(name))] = folder
		order = append(order, folder)
	}

	for i, row := range pricing.Rows[1:] {
		rowNum := i + 2
		clientKey := cellString(row, prClient)
		if clientKey == "" {
			continue
		}
		client, ok := approved[clientKey]
		if !ok {
			// Fall back on the display name. A reviewer who sorted the
			// sheet in Excel keeps values with their rows, so this only
			// fires for hand-edited ids.
			if folder, found := byName[hr.NFC(strings.ToLower(clientKey))]; found {
				client = approved[folder]
				ok = true
			}
		}
		if !ok {
			continue // not approved, nothing to collect
		}

		np, warns, skip := r.readPricingRow(row, rowNum, client.ClientID)
		result.Warnings = append(result.Warnings, warns...)
		if !skip {
			client.NewPrices = append(client.NewPrices, np)
		}
	}

	for _, folder := range order {
		result.Approved = append(result.Approved, *approved[folder])
	}
	zap.L().Info("spreadsheet: decisions read",
		zap.String("path", path),
		zap.Int("approved", len(result.Approved)),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// readPricingRow resolves one pricing row into a NewPrice. skip is true when
// the reviewer recorded no change on the row.
func (r *Reader) readPricingRow(row *xlsx.Row, rowNum int, clientID string) (NewPrice, []string, bool) {
	var warnings []string
	label := cellString(row, prService)

	base, baseOK := r.baseEUR(row)
	if !baseOK {
		warnings = append(warnings,
			fmt.Sprintf("%s, redak %d: trenutna cijena nije čitljiva, redak preskočen", clientID, rowNum))
		return NewPrice{}, warnings, true
	}

	newAbs, hasAbs := cellDecimal(row, prNewPrice)
	pct, hasPct := cellDecimal(row, prPctChange)

	if !hasAbs && !hasPct {
		return NewPrice{}, warnings, true
	}

	np := NewPrice{ServiceLabel: label, BaseEUR: base}
	if hasPct {
		np.PctChange = &pct
		np.NewPriceEUR = currency.ApplyPercent(base, pct)
		if hasAbs {
			absDir := newAbs.Sub(base).Sign()
			if absDir != 0 && pct.Sign() != 0 && absDir != pct.Sign() {
				warnings = append(warnings, fmt.Sprintf(
					"%s, redak %d: postotak (%s%%) i nova cijena (%s) ne slažu se u smjeru, primijenjen postotak",
					clientID, rowNum, pct.String(), currency.FormatNumber(newAbs)))
			}
		}
	} else {
		np.NewPriceEUR = currency.RoundHalfUp(newAbs)
	}

	if raw := cellString(row, prEffectiveDate); raw != "" {
		if t, ok := hr.ParseDate(raw); ok {
			np.EffectiveDate = t
		} else {
			warnings = append(warnings, fmt.Sprintf(
				"%s, redak %d: datum primjene %q nije prepoznat", clientID, rowNum, raw))
		}
	}
	return np, warnings, false
}

// baseEUR returns the row's current price in EUR. The EUR column carries a
// formula; Excel caches its value on save, but a workbook written by this
// tool and never opened has no cached value, so the amount is recomputed from
// the price and currency columns.
func (r *Reader) baseEUR(row *xlsx.Row) (decimal.Decimal, bool) {
	if d, ok := cellDecimal(row, prEURValue); ok {
		return currency.RoundHalfUp(d), true
	}
	price, ok := cellDecimal(row, prCurrentPrice)
	if !ok {
		return decimal.Zero, false
	}
	if cellString(row, prCurrency) == "HRK" {
		return currency.RoundHalfUp(r.conv.HRKToEUR(price)), true
	}
	return currency.RoundHalfUp(price), true
}

func headerRow(sheet *xlsx.Sheet) []string {
	if len(sheet.Rows) == 0 {
		return nil
	}
	var out []string
	for _, cell := range sheet.Rows[0].Cells {
		out = append(out, strings.TrimSpace(cell.String()))
	}
	return out
}

func cellString(row *xlsx.Row, col int) string {
	if col >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(hr.NFC(row.Cells[col].String()))
}

// cellDecimal reads a numeric cell. A numeric cell holds a canonical
// dot-decimal value; a text cell holds whatever the reviewer typed, in
// Croatian convention ("1.200,50"). A formula cell with no cached value
// counts as empty.
func cellDecimal(row *xlsx.Row, col int) (decimal.Decimal, bool) {
	if col >= len(row.Cells) {
		return decimal.Zero, false
	}
	cell := row.Cells[col]
	raw := strings.TrimSpace(cell.Value)
	if raw == "" {
		return decimal.Zero, false
	}
	if cell.Type() == xlsx.CellTypeNumeric {
		f, err := cell.Float()
		if err != nil {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f).Round(4), true
	}
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	if d, err := currency.ParseNumber(raw); err == nil {
		return d, true
	}
	return decimal.Zero, false
}
