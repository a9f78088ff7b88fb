package inventory

import (
	"regexp"
	"strings"

	"github.com/procudo/contract-cli/internal/hr"
	"github.com/procudo/contract-cli/internal/model"
)

// validExtensions are the document formats the pipeline can process.
var validExtensions = map[string]bool{
	".docx": true,
	".doc":  true,
	".pdf":  true,
}

// formatPriority ranks cross-format duplicates: structured word processor
// format first, then the legacy format, then PDF. Lower is better.
var formatPriority = map[string]int{
	".docx": 0,
	".doc":  1,
	".pdf":  2,
}

// skipFiles are filesystem junk, never inventoried.
var skipFiles = map[string]bool{
	".ds_store":   true,
	"thumbs.db":   true,
	"desktop.ini": true,
	".gitkeep":    true,
}

// classificationRule maps a filename pattern to a document type. First match
// wins, so more specific patterns come first.
type classificationRule struct {
	re      *regexp.Regexp
	docType model.DocType
}

var classificationRules = []classificationRule{
	{regexp.MustCompile(`raskid`), model.DocTypeTermination},
	{regexp.MustCompile(`anex|aneks|dodatak`), model.DocTypeAnnex},
	{regexp.MustCompile(`ugovor\s+o\s+(?:održavanj|servisiranj|pružanj)`), model.DocTypeContract},
	{regexp.MustCompile(`ponuda`), model.DocTypeOffer},
	{regexp.MustCompile(`cjenik|cijena`), model.DocTypePriceList},
	{regexp.MustCompile(`prilog`), model.DocTypeAttachment},
	{regexp.MustCompile(`ugovor|cooperation\s+agreement`), model.DocTypeContract},
}

// amendmentNumberRe matches the U-YY-NN numbering contracts and annexes carry
// in their filenames.
var amendmentNumberRe = regexp.MustCompile(`(?i)U-(\d{2})-(\d{2,3})`)

// copySuffixRe strips trailing copy/version markers during stem
// normalization: "(2)", "copy", "kopija", "v3", "final", "konačna".
var copySuffixRe = regexp.MustCompile(`(?i)[\s_-]*(?:\(\d+\)|copy|kopija|v\d+|final|konacn[aoi]|konačn[aoi])$`)

var separatorRe = regexp.MustCompile(`[_\-]+`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// Classify assigns a document type from the filename alone. Files in
// unsupported formats and files matching no keyword come back unclassified;
// the caller flags them for external classification instead of guessing.
func Classify(filename, extension string) model.DocType {
	if !validExtensions[strings.ToLower(extension)] {
		return model.DocTypeUnclassified
	}

	name := hr.NFC(strings.ToLower(filename))
	for _, rule := range classificationRules {
		if rule.re.MatchString(name) {
			return rule.docType
		}
	}
	return model.DocTypeUnclassified
}

// AmendmentNumber extracts a U-YY-NN reference from a filename, normalized to
// upper case. Empty when absent.
func AmendmentNumber(filename string) string {
	m := amendmentNumberRe.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return "U-" + m[1] + "-" + m[2]
}

// NormalizeStem canonicalizes a filename for duplicate comparison: strip the
// extension, lowercase, NFC, collapse separators, strip copy markers.
func NormalizeStem(filename string) string {
	stem := filename
	if idx := strings.LastIndex(stem, "."); idx > 0 {
		stem = stem[:idx]
	}
	stem = hr.NFC(strings.ToLower(stem))
	stem = separatorRe.ReplaceAllString(stem, " ")
	stem = whitespaceRe.ReplaceAllString(stem, " ")
	stem = copySuffixRe.ReplaceAllString(stem, "")
	return strings.TrimSpace(stem)
}
