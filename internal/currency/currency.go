// Package currency implements exact decimal parsing, formatting and
// fixed-rate conversion for contract prices. All arithmetic is
// decimal.Decimal; binary floats never touch a monetary value.
package currency

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// DefaultHRKRate is the official fixed HRK→EUR conversion rate.
const DefaultHRKRate = "7.53450"

// ParseNumber parses a number written in Croatian convention: dot is the
// thousands separator, comma the decimal separator ("2.260,35" → 2260.35).
// The convention is fixed by the domain and never auto-detected.
func ParseNumber(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return decimal.Zero, eris.New("currency: empty number")
	}
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, eris.Wrapf(err, "currency: parse %q", s)
	}
	return d, nil
}

// FormatNumber renders d in Croatian convention with two decimals:
// 2260.35 → "2.260,35". Round-trips exactly through ParseNumber.
func FormatNumber(d decimal.Decimal) string {
	s := d.StringFixed(2) // "-2260.35"
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}

// Converter performs fixed-rate HRK↔EUR conversion. Conversion itself keeps
// full precision; amounts are rounded half-up to 2 places only where they are
// formatted or stored, so converting back recovers the original within a cent.
type Converter struct {
	rate decimal.Decimal
}

// NewConverter builds a converter from a rate string (e.g. "7.53450").
func NewConverter(rate string) (*Converter, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, eris.Wrapf(err, "currency: invalid rate %q", rate)
	}
	if r.Sign() <= 0 {
		return nil, eris.Errorf("currency: rate must be positive, got %s", r)
	}
	return &Converter{rate: r}, nil
}

// Rate returns the configured conversion rate.
func (c *Converter) Rate() decimal.Decimal {
	return c.rate
}

// HRKToEUR converts an HRK amount to EUR at full precision. Callers round
// with RoundHalfUp at the formatting or storage boundary.
func (c *Converter) HRKToEUR(hrk decimal.Decimal) decimal.Decimal {
	return hrk.Div(c.rate)
}

// EURToHRK converts back. Used for round-trip verification only; generated
// documents are EUR.
func (c *Converter) EURToHRK(eur decimal.Decimal) decimal.Decimal {
	return eur.Mul(c.rate).Round(2)
}

// RoundHalfUp rounds d half-up to 2 decimal places. shopspring's Round is
// half-away-from-zero, which matches the domain's rule for positive prices.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ApplyPercent returns base × (1 + pct/100) rounded half-up to 2 places.
func ApplyPercent(base, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100)))
	return base.Mul(factor).Round(2)
}
