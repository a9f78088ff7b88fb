package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procudo/contract-cli/internal/model"
)

func fileEntry(rel string, dt model.DocType) model.FileEntry {
	name := rel
	if i := lastSlash(rel); i >= 0 {
		name = rel[i+1:]
	}
	ext := ""
	if j := lastDot(name); j > 0 {
		ext = name[j:]
	}
	mt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return model.FileEntry{
		Filename:        name,
		RelativePath:    rel,
		Extension:       ext,
		ModifiedAt:      &mt,
		DocType:         dt,
		Status:          model.FileSelected,
		AmendmentNumber: AmendmentNumber(name),
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func TestDedupExactPrefersDocx(t *testing.T) {
	files := []model.FileEntry{
		fileEntry("Klijent/Ugovor o održavanju.pdf", model.DocTypeContract),
		fileEntry("Klijent/Ugovor o održavanju.docx", model.DocTypeContract),
		fileEntry("Klijent/Ugovor o održavanju.doc", model.DocTypeContract),
	}
	files = dedupExact(files)

	var kept []string
	for _, f := range files {
		if f.Status == model.FileSelected {
			kept = append(kept, f.RelativePath)
		} else {
			assert.Equal(t, model.FileDuplicateSkipped, f.Status)
			assert.Equal(t, "Klijent/Ugovor o održavanju.docx", f.DuplicateOf)
		}
	}
	require.Len(t, kept, 1)
	assert.Equal(t, "Klijent/Ugovor o održavanju.docx", kept[0])
}

func TestDedupExactSeparateDirectories(t *testing.T) {
	files := []model.FileEntry{
		fileEntry("A/Ugovor.docx", model.DocTypeContract),
		fileEntry("B/Ugovor.docx", model.DocTypeContract),
	}
	files = dedupExact(files)
	for _, f := range files {
		assert.Equal(t, model.FileSelected, f.Status)
	}
}

func TestDedupFuzzyNearIdenticalStems(t *testing.T) {
	// Same document, one filename with a typo and a different format.
	files := []model.FileEntry{
		fileEntry("K/Ugovor o održavanju 2021.docx", model.DocTypeContract),
		fileEntry("K/Ugovor o održavanje 2021.pdf", model.DocTypeContract),
	}
	files = dedupFuzzy(files, fuzzyDedupThreshold)

	assert.Equal(t, model.FileSelected, files[0].Status)
	assert.Equal(t, model.FileDuplicateSkipped, files[1].Status)
	assert.Equal(t, files[0].RelativePath, files[1].DuplicateOf)
}

func TestDedupFuzzyRespectsAmendmentNumbers(t *testing.T) {
	// Near-identical names with different U-YY-NN markers are distinct
	// documents and must both survive.
	files := []model.FileEntry{
		fileEntry("K/Aneks U-21-15.docx", model.DocTypeAnnex),
		fileEntry("K/Aneks U-21-16.docx", model.DocTypeAnnex),
	}
	files = dedupFuzzy(files, fuzzyDedupThreshold)
	for _, f := range files {
		assert.Equal(t, model.FileSelected, f.Status)
	}
}

func TestDedupFuzzyDistinctNamesSurvive(t *testing.T) {
	files := []model.FileEntry{
		fileEntry("K/Ugovor o održavanju.docx", model.DocTypeContract),
		fileEntry("K/Cooperation agreement hosting.docx", model.DocTypeContract),
	}
	files = dedupFuzzy(files, fuzzyDedupThreshold)
	for _, f := range files {
		assert.Equal(t, model.FileSelected, f.Status)
	}
}
