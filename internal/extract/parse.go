package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/procudo/contract-cli/internal/currency"
	"github.com/procudo/contract-cli/internal/hr"
	"github.com/procudo/contract-cli/internal/model"
)

// SchemaValidationError reports why a tool response was rejected. The raw
// input is kept so the record can be inspected without replaying the request.
type SchemaValidationError struct {
	ClientID string
	Field    string
	Reason   string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("extract: client %q: field %q: %s", e.ClientID, e.Field, e.Reason)
}

// toolInput mirrors the extract_contract_data tool schema.
type toolInput struct {
	ClientName           string         `json:"client_name"`
	ClientOIB            string         `json:"client_oib"`
	ClientAddress        string         `json:"client_address"`
	ClientDirector       string         `json:"client_director"`
	DocumentType         string         `json:"document_type"`
	ContractNumber       string         `json:"contract_number"`
	ParentContractNumber string         `json:"parent_contract_number"`
	DocumentDate         string         `json:"document_date"`
	PricingItems         []toolLineItem `json:"pricing_items"`
	Currency             string         `json:"currency"`
	Confidence           string         `json:"confidence"`
	Notes                []string       `json:"notes"`
}

type toolLineItem struct {
	Position      string `json:"position"`
	ServiceName   string `json:"service_name"`
	Unit          string `json:"unit"`
	Quantity      string `json:"quantity"`
	PriceRaw      string `json:"price_raw"`
	SourceSection string `json:"source_section"`
}

// ParseToolInput validates raw tool_use JSON into an ExtractionResult. Every
// price is parsed into an exact decimal; a row whose price does not parse
// fails the whole document rather than dropping the row.
func ParseToolInput(clientID string, raw json.RawMessage) (*model.ExtractionResult, error) {
	var in toolInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &SchemaValidationError{ClientID: clientID, Field: "input", Reason: err.Error()}
	}

	if strings.TrimSpace(in.ClientName) == "" {
		return nil, &SchemaValidationError{ClientID: clientID, Field: "client_name", Reason: "empty"}
	}
	if in.DocumentType != "contract" && in.DocumentType != "annex" {
		return nil, &SchemaValidationError{ClientID: clientID, Field: "document_type",
			Reason: fmt.Sprintf("unknown value %q", in.DocumentType)}
	}
	if !model.ValidCurrency(in.Currency) {
		return nil, &SchemaValidationError{ClientID: clientID, Field: "currency",
			Reason: fmt.Sprintf("unknown value %q", in.Currency)}
	}
	if !model.ValidConfidence(in.Confidence) {
		return nil, &SchemaValidationError{ClientID: clientID, Field: "confidence",
			Reason: fmt.Sprintf("unknown value %q", in.Confidence)}
	}
	if len(in.PricingItems) == 0 {
		return nil, &SchemaValidationError{ClientID: clientID, Field: "pricing_items", Reason: "empty"}
	}

	cur := model.Currency(in.Currency)
	result := &model.ExtractionResult{
		ClientID: clientID,
		Legal: model.LegalFields{
			Name:     hr.NFC(strings.TrimSpace(in.ClientName)),
			TaxID:    strings.TrimSpace(in.ClientOIB),
			Address:  hr.NFC(strings.TrimSpace(in.ClientAddress)),
			Director: hr.NFC(strings.TrimSpace(in.ClientDirector)),
		},
		DocumentType:      in.DocumentType,
		ContractNumber:    strings.TrimSpace(in.ContractNumber),
		ParentContractRef: strings.TrimSpace(in.ParentContractNumber),
		DocumentDate:      strings.TrimSpace(in.DocumentDate),
		Currency:          cur,
		Confidence:        model.Confidence(in.Confidence),
		Notes:             in.Notes,
	}

	if result.Legal.TaxID != "" && !validOIB(result.Legal.TaxID) {
		result.Notes = append(result.Notes, fmt.Sprintf("OIB %q is not 11 digits", result.Legal.TaxID))
		result.Legal.TaxID = ""
	}

	for i, row := range in.PricingItems {
		if strings.TrimSpace(row.ServiceName) == "" {
			return nil, &SchemaValidationError{ClientID: clientID,
				Field: fmt.Sprintf("pricing_items[%d].service_name", i), Reason: "empty"}
		}
		price, err := currency.ParseNumber(row.PriceRaw)
		if err != nil {
			return nil, &SchemaValidationError{ClientID: clientID,
				Field:  fmt.Sprintf("pricing_items[%d].price_raw", i),
				Reason: fmt.Sprintf("unparseable %q: %v", row.PriceRaw, err)}
		}
		result.Items = append(result.Items, model.PricingItem{
			Position:      strings.TrimSpace(row.Position),
			ServiceLabel:  hr.NFC(strings.TrimSpace(row.ServiceName)),
			Unit:          billingUnit(row.Unit),
			Quantity:      strings.TrimSpace(row.Quantity),
			PriceRaw:      row.PriceRaw,
			Price:         price,
			Currency:      cur,
			Confidence:    model.Confidence(in.Confidence),
			SourceSection: strings.TrimSpace(row.SourceSection),
		})
	}

	return result, nil
}

// validOIB: Croatian tax IDs are exactly 11 digits.
func validOIB(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// billingUnit maps free-form Croatian unit labels onto billing units.
func billingUnit(unit string) model.BillingUnit {
	switch strings.ToLower(hr.NFC(strings.TrimSpace(unit))) {
	case "sat", "sati", "h":
		return model.BillingHourly
	case "mjesec", "mjesečno", "mj", "paušal":
		return model.BillingMonthly
	case "godina", "godišnje":
		return model.BillingAnnual
	case "kom", "komad", "jednokratno":
		return model.BillingOneOff
	}
	return ""
}
