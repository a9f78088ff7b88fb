package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency enumerates the two currencies contracts are written in. HRK
// appears only in pre-2023 documents.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyHRK Currency = "HRK"
)

// ValidCurrency reports whether s is a known currency code.
func ValidCurrency(s string) bool {
	return s == string(CurrencyEUR) || s == string(CurrencyHRK)
}

// Confidence is the extraction collaborator's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ValidConfidence reports whether s is a known confidence level.
func ValidConfidence(s string) bool {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// BillingUnit describes how a priced service is billed.
type BillingUnit string

const (
	BillingMonthly BillingUnit = "monthly"
	BillingAnnual  BillingUnit = "annual"
	BillingOneOff  BillingUnit = "one_off"
	BillingHourly  BillingUnit = "hourly"
)

// PricingItem is one line of a contract's pricing table. Price is an exact
// decimal; the raw source text is kept for audit.
type PricingItem struct {
	Position      string          `json:"position,omitempty"`
	ServiceLabel  string          `json:"service_label"`
	Unit          BillingUnit     `json:"unit,omitempty"`
	Quantity      string          `json:"quantity,omitempty"`
	PriceRaw      string          `json:"price_raw"`
	Price         decimal.Decimal `json:"price"`
	Currency      Currency        `json:"currency"`
	Confidence    Confidence      `json:"confidence,omitempty"`
	SourceSection string          `json:"source_section,omitempty"`
}

// LegalFields are the client's identity details as written in the document.
type LegalFields struct {
	Name     string `json:"name"`
	TaxID    string `json:"tax_id,omitempty"` // OIB, 11 digits
	Address  string `json:"address,omitempty"`
	Director string `json:"director,omitempty"`
}

// ExtractionResult is one validated structured record per client. Keyed by
// client id, never by position.
type ExtractionResult struct {
	ClientID          string        `json:"client_id"`
	Legal             LegalFields   `json:"legal"`
	DocumentType      string        `json:"document_type"` // "contract" or "annex"
	ContractNumber    string        `json:"contract_number,omitempty"`
	ParentContractRef string        `json:"parent_contract_ref,omitempty"`
	DocumentDate      string        `json:"document_date,omitempty"`
	Items             []PricingItem `json:"items"`
	Currency          Currency      `json:"currency"`
	Confidence        Confidence    `json:"confidence"`
	Notes             []string      `json:"notes,omitempty"`
}

// ExtractionState is the per-client outcome within a run.
type ExtractionState string

const (
	ExtractionCompleted ExtractionState = "completed"
	ExtractionFailed    ExtractionState = "failed"
)

// ClientExtraction wraps an ExtractionResult with pipeline metadata. This is
// the unit persisted to data/extractions/<client>.json. A failed extraction
// carries Error and no Result.
type ClientExtraction struct {
	SchemaVersion int               `json:"schema_version"`
	ClientID      string            `json:"client_id"`
	SourceFile    string            `json:"source_file"`
	ExtractedAt   time.Time         `json:"extracted_at"`
	State         ExtractionState   `json:"state"`
	Result        *ExtractionResult `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
}
