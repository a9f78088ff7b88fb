// Package spreadsheet writes the review workbook and reads the decisions a
// human records in it. The header rows are a versioned contract: the read
// path refuses a workbook whose headers drifted from the schema it was
// written with.
package spreadsheet

import (
	"fmt"

	"github.com/procudo/contract-cli/internal/model"
)

// Sheet names. The workbook is reviewed by Croatian-speaking staff.
const (
	SheetOverview  = "Pregled klijenata"
	SheetPricing   = "Cijene"
	SheetInventory = "Inventar"
)

// ReviewStatus is the reviewer's decision on an overview row. Only approved
// rows feed generation.
type ReviewStatus string

const (
	StatusApproved        ReviewStatus = "Odobreno"
	StatusRejected        ReviewStatus = "Odbijeno"
	StatusSkipped         ReviewStatus = "Preskočeno"
	StatusNeedsDiscussion ReviewStatus = "Za raspravu"
)

// statusDropList is the dropdown offered on the Status column.
var statusDropList = []string{
	string(StatusApproved),
	string(StatusRejected),
	string(StatusSkipped),
	string(StatusNeedsDiscussion),
}

// Overview sheet columns.
const (
	ovClient = iota
	ovFolder
	ovMainDocument
	ovContractDate
	ovLatestAnnex
	ovAnnexDate
	ovReferenceDoc
	ovConfidence
	ovStatus
	ovNotes
	ovReviewDate
)

var overviewHeaders = []string{
	"Klijent",
	"Mapa",
	"Glavni dokument",
	"Datum ugovora",
	"Posljednji aneks",
	"Datum aneksa",
	"Referentni dokument",
	"Pouzdanost",
	"Status",
	"Napomene",
	"Datum pregleda",
}

// Pricing sheet columns. Columns up to prUnit are locked; the last three are
// the reviewer's input.
const (
	prClient = iota
	prService
	prCurrentPrice
	prCurrency
	prEURValue
	prUnit
	prNewPrice
	prPctChange
	prEffectiveDate
)

var pricingHeaders = []string{
	"Klijent",
	"Usluga",
	"Trenutna cijena",
	"Valuta",
	"EUR protuvrijednost",
	"Jedinica",
	"Nova cijena EUR",
	"% promjene",
	"Primjena od",
}

// Inventory sheet columns, fully locked.
const (
	invClient = iota
	invFile
	invExtension
	invSizeKB
	invModified
	invDocType
	invStatus
)

var inventoryHeaders = []string{
	"Klijent",
	"Datoteka",
	"Ekstenzija",
	"Veličina (KB)",
	"Datum izmjene",
	"Klasifikacija",
	"Status",
}

// confidenceLabels maps extraction confidence onto the reviewer-facing label.
var confidenceLabels = map[model.Confidence]string{
	model.ConfidenceHigh:   "Visoka",
	model.ConfidenceMedium: "Srednja",
	model.ConfidenceLow:    "Niska",
}

// StructuralIntegrityError reports a header cell that no longer matches the
// schema the workbook was generated with. Reading stops on the first
// mismatch: a reordered or renamed column means every positional read after
// it is suspect.
type StructuralIntegrityError struct {
	Sheet  string
	Column int
	Want   string
	Got    string
}

func (e *StructuralIntegrityError) Error() string {
	return fmt.Sprintf(
		"spreadsheet: sheet %q column %d: header %q, expected %q (workbook structure was modified)",
		e.Sheet, e.Column+1, e.Got, e.Want)
}

// validateHeaders compares the first row of a sheet against the schema.
func validateHeaders(sheet string, got, want []string) error {
	for i, w := range want {
		var g string
		if i < len(got) {
			g = got[i]
		}
		if g != w {
			return &StructuralIntegrityError{Sheet: sheet, Column: i, Want: w, Got: g}
		}
	}
	return nil
}
