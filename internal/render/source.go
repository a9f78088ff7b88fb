package render

import (
	"regexp"
	"strings"

	"github.com/procudo/contract-cli/internal/hr"
)

// SourceData is what can be recovered directly from the text of an existing
// contract or annex: the client's signing director and address from the
// header paragraph, and the monthly hour fund.
type SourceData struct {
	Director   string
	Address    string
	TotalHours string
	L1Hours    string
	L2Hours    string
}

// Complete reports whether every field is filled.
func (d *SourceData) Complete() bool {
	return d.Director != "" && d.Address != "" &&
		d.TotalHours != "" && d.L1Hours != "" && d.L2Hours != ""
}

// Merge fills d's empty fields from other.
func (d *SourceData) Merge(other SourceData) {
	if d.Director == "" {
		d.Director = other.Director
	}
	if d.Address == "" {
		d.Address = other.Address
	}
	if d.TotalHours == "" {
		d.TotalHours = other.TotalHours
	}
	if d.L1Hours == "" {
		d.L1Hours = other.L1Hours
	}
	if d.L2Hours == "" {
		d.L2Hours = other.L2Hours
	}
}

var (
	directorRe   = regexp.MustCompile(`(?i)direktor(?:ica|a)?\s+([^(,]+)`)
	addrCommaRe  = regexp.MustCompile(`^[^,]+,\s*(.+?),\s*(?:OIB|MB)`)
	addrStreetRe = regexp.MustCompile(`(\S+\s+\d+\S*,\s*\d{5}\s+\S+)`)
	streetNumRe  = regexp.MustCompile(`\d+\S*,`)

	totalHoursRe    = regexp.MustCompile(`je\s+(\d+)\s+sat`)
	totalHoursEOLRe = regexp.MustCompile(`je\s+(\d+)\s*$`)
	sysAdminHoursRe = regexp.MustCompile(`(?i)(\d+)\s+sistem\s+administrator`)
	clientHoursRe   = regexp.MustCompile(`(?i)(\d+)\s+klijentsk\w*\s+sat`)
	sysEngineerRe   = regexp.MustCompile(`(?i)(\d+)\s+sistem\s+inženjer`)
	serverHoursRe   = regexp.MustCompile(`(?i)(\d+)\s+poslužiteljsk\w*\s+sat`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ParseSourceText scans extracted document text for the client header
// paragraph and the hour-fund paragraphs. providerName identifies the
// provider party so its own "kojeg zastupa" paragraph is skipped.
func ParseSourceText(text, providerName string) SourceData {
	var data SourceData
	providerKey := strings.ToLower(collapse(firstWord(providerName)))

	for _, line := range strings.Split(hr.NFC(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(collapse(line))

		if data.Director == "" && strings.Contains(lower, "kojeg zastupa") {
			if providerKey != "" && strings.Contains(lower, providerKey) {
				continue
			}
			if m := directorRe.FindStringSubmatch(line); m != nil {
				data.Director = strings.TrimRight(collapse(m[1]), ",")
			}
			data.Address = parseAddress(line)
		}

		if data.TotalHours == "" && strings.Contains(lower, "fond sati") {
			if m := totalHoursRe.FindStringSubmatch(line); m != nil {
				data.TotalHours = m[1]
			} else if m := totalHoursEOLRe.FindStringSubmatch(line); m != nil {
				data.TotalHours = m[1]
			}
		}

		if data.L1Hours == "" {
			if strings.Contains(lower, "sistem administrator") {
				if m := sysAdminHoursRe.FindStringSubmatch(line); m != nil {
					data.L1Hours = m[1]
				}
			} else if strings.Contains(lower, "klijentsk") {
				if m := clientHoursRe.FindStringSubmatch(line); m != nil {
					data.L1Hours = m[1]
				}
			}
		}

		if data.L2Hours == "" {
			if strings.Contains(lower, "sistem inženjer") {
				if m := sysEngineerRe.FindStringSubmatch(line); m != nil {
					data.L2Hours = m[1]
				}
			} else if strings.Contains(lower, "poslužiteljsk") {
				if m := serverHoursRe.FindStringSubmatch(line); m != nil {
					data.L2Hours = m[1]
				}
			}
		}
	}

	data.inferHourSplit()
	return data
}

// parseAddress recovers the client address from the header paragraph. Two
// shapes occur: "Company, Address, City, OIB:" and "Company Street N, 10000
// City, OIB:" with no comma after the company name.
func parseAddress(line string) string {
	var candidate string
	if m := addrCommaRe.FindStringSubmatch(line); m != nil {
		candidate = strings.TrimRight(strings.TrimSpace(m[1]), ",")
	}
	if m := addrStreetRe.FindStringSubmatch(line); m != nil {
		if candidate == "" || !streetNumRe.MatchString(candidate) {
			candidate = strings.TrimRight(strings.TrimSpace(m[1]), ",")
		}
	}
	return collapse(candidate)
}

// inferHourSplit fills a missing L1/L2 breakdown. A contract that states
// only a total assigns everything to L1.
func (d *SourceData) inferHourSplit() {
	if d.TotalHours == "" {
		return
	}
	if d.L1Hours == "" && d.L2Hours == "" {
		d.L1Hours = d.TotalHours
		d.L2Hours = "0"
	} else if d.L1Hours != "" && d.L2Hours == "" {
		d.L2Hours = "0"
	}
}

var (
	notesTotalRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s+hours?\s+total`),
		regexp.MustCompile(`(?i)(\d+)\s+hours?\s+monthly`),
		regexp.MustCompile(`(?i)(?:fund|allocation)\s+(?:of\s+)?(\d+)\s+hours?`),
		regexp.MustCompile(`(?i)includes?\s+(\d+)\s+hours?`),
		regexp.MustCompile(`(?i)is\s+(\d+)\s+hours?`),
	}
	notesL1Res = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s+(?:client|L1|workstation|klijentsk\w*)\s+hours?`),
		regexp.MustCompile(`(?i)(\d+)\s+hours?\s+for\s+(?:workstation|radnih|client|desktop)`),
	}
	notesL2Res = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s+(?:server|L2|L3|poslužiteljsk\w*|engineer)\s+hours?`),
		regexp.MustCompile(`(?i)(\d+)\s+hours?\s+for\s+(?:server|poslužitelj)`),
	}
)

// FillFromNotes recovers hour-fund figures from the extraction notes, which
// often describe the allocation in English ("3 hours total, 2 client hours
// and 1 server hour"). Source-document figures always win; this only fills
// blanks.
func (d *SourceData) FillFromNotes(notes []string) {
	if len(notes) == 0 {
		return
	}
	text := strings.Join(notes, " ")
	if d.TotalHours == "" {
		d.TotalHours = firstMatch(notesTotalRes, text)
	}
	if d.L1Hours == "" {
		d.L1Hours = firstMatch(notesL1Res, text)
	}
	if d.L2Hours == "" {
		d.L2Hours = firstMatch(notesL2Res, text)
	}
	d.inferHourSplit()
}

func firstMatch(res []*regexp.Regexp, text string) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
