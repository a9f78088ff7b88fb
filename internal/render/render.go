// Package render resolves everything a generated annex needs: the legal
// parties, the reference to the document being amended, the final pricing
// lines and the monthly hour fund. The actual document templating is an
// external collaborator behind the Renderer interface.
package render

import (
	"context"
)

// PricingLine is one row of the annex pricing table, formatted for display.
// JSON tags carry the template variable names the annex templates use.
type PricingLine struct {
	Position string `json:"pozicija"`
	Label    string `json:"opis"`
	Unit     string `json:"mjera"`
	Quantity string `json:"kolicina"`
	Price    string `json:"cijena"` // Croatian convention, EUR
}

// AnnexContext is the fully resolved variable set for one annex document.
// Fields that could not be resolved carry the visible placeholder so a
// reviewer cannot miss them in the rendered document.
type AnnexContext struct {
	ClientName     string `json:"korisnik_naziv"`
	ClientTaxID    string `json:"korisnik_oib"`
	ClientAddress  string `json:"korisnik_adresa"`
	ClientDirector string `json:"korisnik_direktor"`

	ProviderName     string `json:"davatelj_naziv"`
	ProviderTaxID    string `json:"davatelj_oib"`
	ProviderAddress  string `json:"davatelj_adresa"`
	ProviderDirector string `json:"davatelj_direktor"`

	AnnexNumber string `json:"broj_aneksa"`
	AnnexDate   string `json:"datum_aneksa"` // Croatian long form, "16. veljače 2026."

	// The new annex amends the latest valid document: an annex when the
	// extraction source was one, otherwise the base contract.
	ReferenceNumber string `json:"referentni_broj"`
	ReferenceDate   string `json:"datum_referentnog"`
	ReferenceNom    string `json:"referentni_naziv_nom"` // "Aneks" or "Ugovor"
	ReferenceGen    string `json:"referentni_naziv_gen"` // "Aneksa" or "Ugovora"

	MonthlyFee        string        `json:"mjesecna_naknada"`
	CurrencyConverted bool          `json:"valuta_konverzija"` // true when source amounts were HRK
	Lines             []PricingLine `json:"stavke"`

	TotalHours string `json:"ukupno_sati"`
	L1Hours    string `json:"l1_sati"`
	L2Hours    string `json:"l2_sati"`

	VATNote  string `json:"vat_note"`
	Location string `json:"mjesto"`
}

// Renderer turns a resolved context into document bytes. Implementations are
// injected; this package never renders anything itself.
type Renderer interface {
	Render(ctx context.Context, annex *AnnexContext) ([]byte, error)
}
