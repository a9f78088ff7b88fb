package inventory

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/procudo/contract-cli/internal/model"
)

var amendmentKeyRe = regexp.MustCompile(`^U-(\d{2})-(\d{2,3})$`)

// buildChain derives the contractual document chain from a client's selected
// files: the main contract, its amendments in chronological order, and the
// document whose pricing is currently in force.
func buildChain(files []model.FileEntry) *model.DocumentChain {
	var contracts, annexes, priceLists []model.FileEntry
	for _, f := range files {
		if f.Status != model.FileSelected {
			continue
		}
		switch f.DocType {
		case model.DocTypeContract:
			contracts = append(contracts, f)
		case model.DocTypeAnnex:
			annexes = append(annexes, f)
		case model.DocTypePriceList:
			priceLists = append(priceLists, f)
		}
	}

	chain := &model.DocumentChain{}

	// Main contract: prefer one without an amendment number, oldest first.
	// A "ugovor" carrying its own U-YY-NN marker is treated as an annex when
	// a plain base contract also exists.
	if len(contracts) > 0 {
		sort.SliceStable(contracts, func(a, b int) bool {
			an, bn := contracts[a].AmendmentNumber == "", contracts[b].AmendmentNumber == ""
			if an != bn {
				return an
			}
			return modTime(contracts[a]).Before(modTime(contracts[b]))
		})
		chain.MainContract = contracts[0].RelativePath
		for _, extra := range contracts[1:] {
			if extra.AmendmentNumber != "" {
				annexes = append(annexes, extra)
			}
		}
	}

	sort.SliceStable(annexes, func(a, b int) bool {
		ay, as, aok := amendmentKey(annexes[a].AmendmentNumber)
		by, bs, bok := amendmentKey(annexes[b].AmendmentNumber)
		if aok && bok {
			if ay != by {
				return ay < by
			}
			if as != bs {
				return as < bs
			}
		} else if aok != bok {
			return bok // unnumbered annexes sort first
		}
		return modTime(annexes[a]).Before(modTime(annexes[b]))
	})
	for _, a := range annexes {
		chain.Annexes = append(chain.Annexes, a.RelativePath)
	}
	for _, p := range priceLists {
		chain.PriceLists = append(chain.PriceLists, p.RelativePath)
	}

	// The latest annex supersedes the main contract's pricing.
	if len(chain.Annexes) > 0 {
		chain.LatestValidDocument = chain.Annexes[len(chain.Annexes)-1]
	} else {
		chain.LatestValidDocument = chain.MainContract
	}
	return chain
}

// amendmentKey parses the two-digit contract year and sequence number out of
// a U-YY-NN marker. Years 00-49 map to 2000s, 50-99 to 1900s.
func amendmentKey(num string) (year, seq int, ok bool) {
	m := amendmentKeyRe.FindStringSubmatch(num)
	if m == nil {
		return 0, 0, false
	}
	yy, _ := strconv.Atoi(m[1])
	seq, _ = strconv.Atoi(m[2])
	if yy < 50 {
		year = 2000 + yy
	} else {
		year = 1900 + yy
	}
	return year, seq, true
}

func modTime(f model.FileEntry) time.Time {
	if f.ModifiedAt == nil {
		return time.Time{}
	}
	return *f.ModifiedAt
}
