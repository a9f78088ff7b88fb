package spreadsheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/procudo/contract-cli/internal/hr"
	"github.com/procudo/contract-cli/internal/model"
)

// labelMatchThreshold is the minimum similarity for a service label to be
// considered the same line item across extraction and review.
const labelMatchThreshold = 0.70

// AmbiguousMatchError reports a reviewed price that could not be attached to
// exactly one extracted item: either one label matched several candidates
// equally well, or (empty Candidates) it matched nothing above the
// similarity threshold. The caller must not guess.
type AmbiguousMatchError struct {
	ClientID     string
	ServiceLabel string
	Candidates   []string
}

func (e *AmbiguousMatchError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("spreadsheet: reviewed price for %s, %q matches no extracted item",
			e.ClientID, e.ServiceLabel)
	}
	return fmt.Sprintf("spreadsheet: ambiguous price match for %s, %q matches %s equally",
		e.ClientID, e.ServiceLabel, strings.Join(e.Candidates, ", "))
}

// MatchedPrice pairs an extracted pricing item with the reviewed price that
// applies to it. New is nil when the reviewer left the item unchanged. Err is
// set when the item matched ambiguously.
type MatchedPrice struct {
	Item model.PricingItem
	New  *NewPrice
	Err  error
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(hr.NFC(s)), " "))
}

// MatchPrices assigns each reviewed price to the extracted item it belongs
// to. Matching is greedy by descending similarity; every reviewed price is
// consumed at most once. A tie in either direction, two prices equally close
// to one item or one price equally close to two items, flags the affected
// items instead of picking by order. Reviewed prices that match nothing are
// returned so the caller can surface them.
func MatchPrices(clientID string, items []model.PricingItem, prices []NewPrice) ([]MatchedPrice, []*AmbiguousMatchError) {
	params := levenshtein.NewParams()

	type pair struct {
		item  int
		price int
		score float64
	}
	var pairs []pair
	for i, item := range items {
		a := normalizeLabel(item.ServiceLabel)
		for j, p := range prices {
			score := levenshtein.Similarity(a, normalizeLabel(p.ServiceLabel), params)
			if score >= labelMatchThreshold {
				pairs = append(pairs, pair{item: i, price: j, score: score})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	matched := make([]MatchedPrice, len(items))
	for i, item := range items {
		matched[i] = MatchedPrice{Item: item}
	}
	itemDone := make(map[int]bool)
	priceDone := make(map[int]bool)
	for idx, p := range pairs {
		if itemDone[p.item] || priceDone[p.price] {
			continue
		}
		// A tie between live candidates cannot be resolved by order of
		// appearance, in either direction.
		var tiedPrices, tiedItems []int
		for _, q := range pairs[idx+1:] {
			if q.score != p.score {
				continue
			}
			if q.item == p.item && !priceDone[q.price] {
				tiedPrices = append(tiedPrices, q.price)
			}
			if q.price == p.price && !itemDone[q.item] {
				tiedItems = append(tiedItems, q.item)
			}
		}
		if len(tiedPrices) > 0 {
			candidates := []string{prices[p.price].ServiceLabel}
			for _, j := range tiedPrices {
				candidates = append(candidates, prices[j].ServiceLabel)
			}
			matched[p.item].Err = &AmbiguousMatchError{
				ClientID:     clientID,
				ServiceLabel: items[p.item].ServiceLabel,
				Candidates:   candidates,
			}
			itemDone[p.item] = true
			priceDone[p.price] = true
			for _, j := range tiedPrices {
				priceDone[j] = true
			}
			continue
		}
		if len(tiedItems) > 0 {
			candidates := []string{items[p.item].ServiceLabel}
			for _, i := range tiedItems {
				candidates = append(candidates, items[i].ServiceLabel)
			}
			ambig := &AmbiguousMatchError{
				ClientID:     clientID,
				ServiceLabel: prices[p.price].ServiceLabel,
				Candidates:   candidates,
			}
			matched[p.item].Err = ambig
			itemDone[p.item] = true
			for _, i := range tiedItems {
				matched[i].Err = ambig
				itemDone[i] = true
			}
			priceDone[p.price] = true
			continue
		}
		np := prices[p.price]
		matched[p.item].New = &np
		itemDone[p.item] = true
		priceDone[p.price] = true
	}

	var unmatched []*AmbiguousMatchError
	for j, p := range prices {
		if !priceDone[j] {
			unmatched = append(unmatched, &AmbiguousMatchError{
				ClientID:     clientID,
				ServiceLabel: p.ServiceLabel,
			})
		}
	}
	return matched, unmatched
}
