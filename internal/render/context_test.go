package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procudo/contract-cli/internal/config"
	"github.com/procudo/contract-cli/internal/currency"
	"github.com/procudo/contract-cli/internal/model"
	"github.com/procudo/contract-cli/internal/spreadsheet"
)

func testConfig() *config.Config {
	return &config.Config{
		Company: config.CompanyConfig{
			Name:     "Procudo d.o.o.",
			TaxID:    "98765432109",
			Address:  "Savska 1, 10000 Zagreb",
			Director: "Ana Anić",
			Location: "Zagreb",
		},
		Generation: config.GenerationConfig{
			VATNote: "Sve cijene su izražene bez PDV-a.",
		},
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func testExtraction(cur model.Currency, prices ...string) *model.ClientExtraction {
	labels := []string{"Mjesečno održavanje sustava", "Dodatni sati podrške"}
	var items []model.PricingItem
	for i, p := range prices {
		d, _ := decimal.NewFromString(p)
		items = append(items, model.PricingItem{
			Position:     string(rune('1' + i)),
			ServiceLabel: labels[i%len(labels)],
			Unit:         model.BillingMonthly,
			Price:        d,
			PriceRaw:     p,
			Currency:     cur,
		})
	}
	return &model.ClientExtraction{
		SchemaVersion: model.SchemaVersion,
		ClientID:      "Alfa",
		SourceFile:    "Alfa/Ugovor o održavanju.docx",
		State:         model.ExtractionCompleted,
		Result: &model.ExtractionResult{
			ClientID:       "Alfa",
			Legal:          model.LegalFields{Name: "Alfa d.o.o.", TaxID: "12345678901"},
			DocumentType:   "contract",
			ContractNumber: "U-19-07",
			DocumentDate:   "15.03.2019",
			Items:          items,
			Currency:       cur,
			Confidence:     model.ConfidenceHigh,
		},
	}
}

func TestBuildContextApprovedPrice(t *testing.T) {
	conv, err := currency.NewConverter(currency.DefaultHRKRate)
	require.NoError(t, err)

	ce := testExtraction(model.CurrencyEUR, "100.00", "50.00")
	approved := spreadsheet.ApprovedClient{
		ClientID: "Alfa",
		NewPrices: []spreadsheet.NewPrice{
			{ServiceLabel: "Mjesečno održavanje sustava", NewPriceEUR: dec(t, "110.00")},
		},
	}
	src := SourceData{
		Director: "Ivan Horvat", Address: "Ilica 42, 10000 Zagreb",
		TotalHours: "6", L1Hours: "5", L2Hours: "1",
	}

	ac, warnings, err := BuildContext(ce, approved, src, testConfig(), conv,
		"U-26-03", time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "Alfa d.o.o.", ac.ClientName)
	assert.Equal(t, "Ivan Horvat", ac.ClientDirector)
	assert.Equal(t, "Procudo d.o.o.", ac.ProviderName)
	assert.Equal(t, "U-26-03", ac.AnnexNumber)
	assert.Equal(t, "16. veljače 2026.", ac.AnnexDate)
	assert.Equal(t, "Ugovor", ac.ReferenceNom)
	assert.Equal(t, "Ugovora", ac.ReferenceGen)
	assert.Equal(t, "U-19-07", ac.ReferenceNumber)
	assert.False(t, ac.CurrencyConverted)

	require.Len(t, ac.Lines, 2)
	assert.Equal(t, "110,00", ac.Lines[0].Price)
	assert.Equal(t, "50,00", ac.Lines[1].Price) // unchanged line keeps its price
	assert.Equal(t, "110,00", ac.MonthlyFee)
	assert.Equal(t, "6", ac.TotalHours)
}

func TestBuildContextHRKConversion(t *testing.T) {
	conv, err := currency.NewConverter(currency.DefaultHRKRate)
	require.NoError(t, err)

	// 753.45 HRK → 100.00 EUR; the reviewer approved nothing, the line keeps
	// its converted value.
	ce := testExtraction(model.CurrencyHRK, "753.45")
	src := SourceData{Director: "Ivan Horvat", Address: "Ilica 42, 10000 Zagreb",
		TotalHours: "4", L1Hours: "4", L2Hours: "0"}

	ac, _, err := BuildContext(ce, spreadsheet.ApprovedClient{ClientID: "Alfa"}, src,
		testConfig(), conv, "U-26-04", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, ac.CurrencyConverted)
	require.Len(t, ac.Lines, 1)
	assert.Equal(t, "100,00", ac.Lines[0].Price)
	assert.Equal(t, "100,00", ac.MonthlyFee)
}

func TestBuildContextAnnexReference(t *testing.T) {
	conv, err := currency.NewConverter(currency.DefaultHRKRate)
	require.NoError(t, err)

	ce := testExtraction(model.CurrencyEUR, "100.00")
	ce.Result.DocumentType = "annex"
	ce.Result.ContractNumber = "U-24-11"

	ac, _, err := BuildContext(ce, spreadsheet.ApprovedClient{ClientID: "Alfa"},
		SourceData{}, testConfig(), conv, "U-26-05", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Aneks", ac.ReferenceNom)
	assert.Equal(t, "Aneksa", ac.ReferenceGen)
	assert.Equal(t, "U-24-11", ac.ReferenceNumber)
}

func TestBuildContextPlaceholderWarnings(t *testing.T) {
	conv, err := currency.NewConverter(currency.DefaultHRKRate)
	require.NoError(t, err)

	ce := testExtraction(model.CurrencyEUR, "100.00")
	ce.Result.Legal.TaxID = ""

	ac, warnings, err := BuildContext(ce, spreadsheet.ApprovedClient{ClientID: "Alfa"},
		SourceData{}, testConfig(), conv, "U-26-06", time.Now())
	require.NoError(t, err)

	assert.Equal(t, placeholder, ac.ClientTaxID)
	assert.Equal(t, placeholder, ac.ClientDirector)
	assert.Equal(t, hoursPlaceholder, ac.TotalHours)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "OIB klijenta")
	assert.Contains(t, warnings[0], "ukupno sati")
}

func TestBuildContextHoursRecoveredFromNotes(t *testing.T) {
	conv, err := currency.NewConverter(currency.DefaultHRKRate)
	require.NoError(t, err)

	ce := testExtraction(model.CurrencyEUR, "100.00")
	ce.Result.Notes = []string{"Monthly allocation of 3 hours total, 2 client hours and 1 server hour."}

	ac, _, err := BuildContext(ce, spreadsheet.ApprovedClient{ClientID: "Alfa"},
		SourceData{Director: "Ivan Horvat", Address: "Ilica 42, 10000 Zagreb"},
		testConfig(), conv, "U-26-07", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "3", ac.TotalHours)
	assert.Equal(t, "2", ac.L1Hours)
	assert.Equal(t, "1", ac.L2Hours)
}

func TestBuildContextNoResult(t *testing.T) {
	conv, err := currency.NewConverter(currency.DefaultHRKRate)
	require.NoError(t, err)

	ce := &model.ClientExtraction{ClientID: "Alfa", State: model.ExtractionFailed, Error: "boom"}
	_, _, err = BuildContext(ce, spreadsheet.ApprovedClient{ClientID: "Alfa"},
		SourceData{}, testConfig(), conv, "U-26-08", time.Now())
	require.Error(t, err)
}

func TestNextAnnexSeq(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, name := range []string{
		"Aneks_U-26-03.docx",
		"sub/Aneks_U-26-07.docx",
		"Aneks_U-25-99.docx", // previous year, ignored
		"Ugovor.docx",
		"Aneks_U-26-05.txt", // wrong extension
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(other, "aneks_u-26-04.docx"), []byte("x"), 0o644))

	assert.Equal(t, 8, NextAnnexSeq(now, dir, other))
	assert.Equal(t, 1, NextAnnexSeq(now, t.TempDir()))
	assert.Equal(t, "U-26-08", FormatAnnexNumber(now, 8))
}

func TestCandidateDocumentsOrder(t *testing.T) {
	root := t.TempDir()
	clientDir := filepath.Join(root, "Alfa")
	require.NoError(t, os.MkdirAll(clientDir, 0o755))
	for _, name := range []string{
		"Ugovor o održavanju.docx",
		"Aneks_U-24-11.docx",
		"Aneks_U-21-05.docx",
		"Ponuda 2024.docx", // no contract keyword
	} {
		require.NoError(t, os.WriteFile(filepath.Join(clientDir, name), []byte("x"), 0o644))
	}

	ce := &model.ClientExtraction{
		ClientID:   "Alfa",
		SourceFile: "Alfa/Aneks_U-24-11.docx",
	}
	got := CandidateDocuments(root, ce)
	require.Len(t, got, 3)
	assert.Equal(t, filepath.Join(clientDir, "Aneks_U-24-11.docx"), got[0])
	assert.Equal(t, filepath.Join(clientDir, "Aneks_U-21-05.docx"), got[1])
	assert.Equal(t, filepath.Join(clientDir, "Ugovor o održavanju.docx"), got[2])
}
