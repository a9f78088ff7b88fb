// Package hr holds Croatian locale helpers shared by the inventory scanner,
// the extraction gate and the review workbook: NFC canonicalization and date
// formatting. Number formatting lives in internal/currency.
package hr

import (
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

// monthsGenitive are the genitive-case month names used in Croatian dates
// ("16. veljače 2026."). Index 0 is a placeholder.
var monthsGenitive = [13]string{
	"",
	"siječnja",
	"veljače",
	"ožujka",
	"travnja",
	"svibnja",
	"lipnja",
	"srpnja",
	"kolovoza",
	"rujna",
	"listopada",
	"studenoga",
	"prosinca",
}

// NFC returns s in Unicode composed form. Croatian diacritics arrive in both
// composed and decomposed forms depending on the filesystem and the document
// producer; everything compared or persisted goes through this first.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// Date formats t in Croatian convention: "16. veljače 2026."
func Date(t time.Time) string {
	return fmt.Sprintf("%d. %s %d.", t.Day(), monthsGenitive[t.Month()], t.Year())
}

// ParseDate parses the date formats that appear in contract headers and
// spreadsheet cells. Returns the zero time and false when nothing matches.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"02.01.2006", "02.01.2006.", "2006-01-02", "2.1.2006", "2.1.2006."} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
