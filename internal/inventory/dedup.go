package inventory

import (
	"path/filepath"
	"sort"

	"github.com/agext/levenshtein"

	"github.com/procudo/contract-cli/internal/model"
)

// fuzzyDedupThreshold is the stem similarity at which two files in the same
// directory and of the same type are treated as the same document.
const fuzzyDedupThreshold = 0.90

// dedupExact groups selected files by (directory, normalized stem) and keeps
// exactly one representative per group by format priority.
func dedupExact(files []model.FileEntry) []model.FileEntry {
	type key struct {
		dir  string
		stem string
	}
	groups := map[key][]int{}
	for i, f := range files {
		if f.Status != model.FileSelected {
			continue
		}
		k := key{dir: filepath.Dir(f.RelativePath), stem: NormalizeStem(f.Filename)}
		groups[k] = append(groups[k], i)
	}

	for _, idxs := range groups {
		if len(idxs) <= 1 {
			continue
		}
		sort.Slice(idxs, func(a, b int) bool {
			return priorityOf(files[idxs[a]]) < priorityOf(files[idxs[b]])
		})
		best := idxs[0]
		for _, dup := range idxs[1:] {
			files[dup].Status = model.FileDuplicateSkipped
			files[dup].DuplicateOf = files[best].RelativePath
		}
	}
	return files
}

// dedupFuzzy catches near-identical stems ("Ugovor o održavanju" vs "Ugovor
// o odrzavanju kopija") within the same directory and document type. Files
// with different amendment numbers are never merged: a near-identical name
// with a different U-YY-NN is a different document.
func dedupFuzzy(files []model.FileEntry, threshold float64) []model.FileEntry {
	type key struct {
		dir string
		dt  model.DocType
	}
	groups := map[key][]int{}
	for i, f := range files {
		if f.Status != model.FileSelected {
			continue
		}
		k := key{dir: filepath.Dir(f.RelativePath), dt: f.DocType}
		groups[k] = append(groups[k], i)
	}

	params := levenshtein.NewParams()
	for _, idxs := range groups {
		for ai := 0; ai < len(idxs); ai++ {
			a := idxs[ai]
			if files[a].Status != model.FileSelected {
				continue
			}
			for _, b := range idxs[ai+1:] {
				if files[b].Status != model.FileSelected {
					continue
				}
				if files[a].AmendmentNumber != "" && files[b].AmendmentNumber != "" &&
					files[a].AmendmentNumber != files[b].AmendmentNumber {
					continue
				}

				sim := levenshtein.Similarity(
					NormalizeStem(files[a].Filename),
					NormalizeStem(files[b].Filename),
					params,
				)
				if sim < threshold {
					continue
				}

				if priorityOf(files[b]) < priorityOf(files[a]) {
					files[a].Status = model.FileDuplicateSkipped
					files[a].DuplicateOf = files[b].RelativePath
				} else {
					files[b].Status = model.FileDuplicateSkipped
					files[b].DuplicateOf = files[a].RelativePath
				}
			}
		}
	}
	return files
}

func priorityOf(f model.FileEntry) int {
	if p, ok := formatPriority[f.Extension]; ok {
		return p
	}
	return 99
}
