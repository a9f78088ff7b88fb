package render

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/model"
)

// DocumentReader supplies the plain text of a source document.
type DocumentReader interface {
	Text(ctx context.Context, path string) (string, error)
}

// CandidateDocuments returns the documents worth parsing for a client's
// director, address and hour fund, best first: the extraction source, then
// every contract or annex .docx in the client folder, annexes before
// contracts and newer names first.
func CandidateDocuments(sourceRoot string, ce *model.ClientExtraction) []string {
	var candidates []string
	seen := map[string]bool{}
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			candidates = append(candidates, path)
		}
	}

	if ce.SourceFile != "" && strings.EqualFold(filepath.Ext(ce.SourceFile), ".docx") {
		add(filepath.Join(sourceRoot, ce.SourceFile))
	}

	clientDir := filepath.Join(sourceRoot, ce.ClientID)
	var found []string
	_ = filepath.WalkDir(clientDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".docx") {
			return nil
		}
		name := strings.ToLower(filepath.Base(path))
		for _, kw := range []string{"ugovor", "aneks", "anex", "dodatak"} {
			if strings.Contains(name, kw) {
				found = append(found, path)
				break
			}
		}
		return nil
	})
	sort.Slice(found, func(i, j int) bool {
		a, b := strings.ToLower(filepath.Base(found[i])), strings.ToLower(filepath.Base(found[j]))
		aAnnex := strings.Contains(a, "aneks") || strings.Contains(a, "anex")
		bAnnex := strings.Contains(b, "aneks") || strings.Contains(b, "anex")
		if aAnnex != bAnnex {
			return aAnnex
		}
		return a > b // newer annexes have higher numbers in the name
	})
	for _, f := range found {
		add(f)
	}
	return candidates
}

// ResolveSourceData parses candidate documents in priority order, merging
// until every field is filled or the candidates run out. Unreadable
// candidates are skipped; they were already reported during extraction.
func ResolveSourceData(ctx context.Context, reader DocumentReader, sourceRoot, providerName string, ce *model.ClientExtraction) SourceData {
	var best SourceData
	for _, path := range CandidateDocuments(sourceRoot, ce) {
		text, err := reader.Text(ctx, path)
		if err != nil {
			zap.L().Debug("render: candidate document unreadable",
				zap.String("path", path), zap.Error(err))
			continue
		}
		best.Merge(ParseSourceText(text, providerName))
		if best.Complete() {
			break
		}
	}
	return best
}
