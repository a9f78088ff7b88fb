package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/config"
	"github.com/procudo/contract-cli/internal/currency"
	"github.com/procudo/contract-cli/internal/hr"
	"github.com/procudo/contract-cli/internal/model"
	"github.com/procudo/contract-cli/internal/spreadsheet"
)

// Visible placeholders for fields that could not be resolved. Long form for
// legal fields, short form for hour figures.
const (
	placeholder      = "___________"
	hoursPlaceholder = "___"
)

// BuildContext resolves the full variable set for one client's annex.
// Warnings cover unmatched reviewed prices, ambiguous matches and every
// field left as a placeholder; none of them stop generation.
func BuildContext(
	ce *model.ClientExtraction,
	approved spreadsheet.ApprovedClient,
	src SourceData,
	cfg *config.Config,
	conv *currency.Converter,
	annexNumber string,
	effectiveDate time.Time,
) (*AnnexContext, []string, error) {
	if ce.Result == nil {
		return nil, nil, fmt.Errorf("render: no extraction result for %s", ce.ClientID)
	}
	ex := ce.Result
	isHRK := ex.Currency == model.CurrencyHRK

	matched, unmatched := spreadsheet.MatchPrices(ce.ClientID, ex.Items, approved.NewPrices)
	var warnings []string
	for _, u := range unmatched {
		warnings = append(warnings, u.Error())
	}
	src.FillFromNotes(ex.Notes)

	lines := make([]PricingLine, 0, len(matched))
	monthlyFee := ""
	for i, m := range matched {
		if m.Err != nil {
			warnings = append(warnings, m.Err.Error())
		}
		price := resolveLinePrice(m, isHRK, conv)
		if i == 0 {
			monthlyFee = price
		}
		lines = append(lines, PricingLine{
			Position: m.Item.Position,
			Label:    m.Item.ServiceLabel,
			Unit:     string(m.Item.Unit),
			Quantity: m.Item.Quantity,
			Price:    price,
		})
	}

	refNom, refGen := "Ugovor", "Ugovora"
	if ex.DocumentType == "annex" {
		refNom, refGen = "Aneks", "Aneksa"
	}

	ac := &AnnexContext{
		ClientName:     orPlaceholder(ex.Legal.Name, ce.ClientID),
		ClientTaxID:    orPlaceholder(ex.Legal.TaxID, placeholder),
		ClientAddress:  orPlaceholder(firstNonEmpty(src.Address, ex.Legal.Address), placeholder),
		ClientDirector: orPlaceholder(firstNonEmpty(src.Director, ex.Legal.Director), placeholder),

		ProviderName:     cfg.Company.Name,
		ProviderTaxID:    cfg.Company.TaxID,
		ProviderAddress:  cfg.Company.Address,
		ProviderDirector: cfg.Company.Director,

		AnnexNumber: annexNumber,
		AnnexDate:   hr.Date(effectiveDate),

		ReferenceNumber: orPlaceholder(ex.ContractNumber, placeholder),
		ReferenceDate:   orPlaceholder(ex.DocumentDate, placeholder),
		ReferenceNom:    refNom,
		ReferenceGen:    refGen,

		MonthlyFee:        monthlyFee,
		CurrencyConverted: isHRK,
		Lines:             lines,

		TotalHours: orPlaceholder(src.TotalHours, hoursPlaceholder),
		L1Hours:    orPlaceholder(src.L1Hours, hoursPlaceholder),
		L2Hours:    orPlaceholder(src.L2Hours, hoursPlaceholder),

		VATNote:  cfg.Generation.VATNote,
		Location: cfg.Company.Location,
	}

	if missing := ac.placeholderFields(); len(missing) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%s: nepopunjena polja u aneksu: %s", ce.ClientID, strings.Join(missing, ", ")))
		zap.L().Warn("render: placeholder fields in annex",
			zap.String("client", ce.ClientID),
			zap.Strings("fields", missing),
		)
	}
	return ac, warnings, nil
}

// resolveLinePrice returns the display price for one pricing line. A line
// without a reviewed change keeps its current price, converted to EUR when
// the source document was HRK.
func resolveLinePrice(m spreadsheet.MatchedPrice, isHRK bool, conv *currency.Converter) string {
	var eur decimal.Decimal
	if m.New != nil {
		eur = m.New.NewPriceEUR
	} else if isHRK {
		eur = currency.RoundHalfUp(conv.HRKToEUR(m.Item.Price))
	} else {
		eur = currency.RoundHalfUp(m.Item.Price)
	}
	if eur.IsZero() {
		return ""
	}
	return currency.FormatNumber(eur)
}

// placeholderFields lists the reviewer-facing labels of every field still
// holding a placeholder.
func (ac *AnnexContext) placeholderFields() []string {
	checks := []struct {
		value string
		label string
	}{
		{ac.ClientTaxID, "OIB klijenta"},
		{ac.ClientAddress, "adresa klijenta"},
		{ac.ClientDirector, "direktor klijenta"},
		{ac.ReferenceNumber, "broj referentnog dokumenta"},
		{ac.ReferenceDate, "datum referentnog dokumenta"},
		{ac.TotalHours, "ukupno sati"},
		{ac.L1Hours, "L1 sati"},
		{ac.L2Hours, "L2 sati"},
	}
	var missing []string
	for _, c := range checks {
		if c.value == "" || strings.Contains(c.value, "___") {
			missing = append(missing, c.label)
		}
	}
	return missing
}

func orPlaceholder(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
