// Package aggregator merges per-venue order books into the single
// price-ordered view streamed to RPC subscribers, mirroring
// original_source/src/orderbook.rs's AggregatedOrderbook/finalize.
package aggregator

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/zenixls2/bookaggregator/internal/book"
)

// VenueQuantity is one venue's contribution at a given price.
type VenueQuantity struct {
	Venue    string
	Quantity decimal.Decimal
}

type priceEntries struct {
	price   decimal.Decimal
	entries []VenueQuantity
}

// Aggregator merges many venues' books by price. It is transient: created
// fresh per aggregation cycle and consumed by Finalize.
type Aggregator struct {
	bid map[string]*priceEntries
	ask map[string]*priceEntries
}

// New returns an empty Aggregator ready to receive Merge calls.
func New() *Aggregator {
	return &Aggregator{
		bid: make(map[string]*priceEntries),
		ask: make(map[string]*priceEntries),
	}
}

// Merge folds one venue's book into the aggregate. Multiple venues at the
// same price accumulate multiple entries at that key, in merge order.
func (a *Aggregator) Merge(ob *book.Orderbook) {
	mergeSide(a.bid, ob.Venue, ob.Bids())
	mergeSide(a.ask, ob.Venue, ob.Asks())
}

func mergeSide(dst map[string]*priceEntries, venue string, levels []book.PriceLevel) {
	for _, lv := range levels {
		key := lv.Price.String()
		pe, ok := dst[key]
		if !ok {
			pe = &priceEntries{price: lv.Price}
			dst[key] = pe
		}
		pe.entries = append(pe.entries, VenueQuantity{Venue: venue, Quantity: lv.Quantity})
	}
}

// Level is one output row of a Summary: venue, price, amount.
type Level struct {
	Exchange string
	Price    float64
	Amount   float64
}

// Summary is the finalized, RPC-ready aggregated view.
type Summary struct {
	Spread float64
	Bids   []Level
	Asks   []Level
}

// maxEntriesPerSide caps the number of Level rows emitted per side
// regardless of how many venues share a top price (spec §4.2).
const maxEntriesPerSide = 10

// Finalize walks the bid side from the highest price down and the ask side
// from the lowest price up, stopping each traversal at whichever comes
// first: L distinct price levels visited, or 10 Level entries emitted.
// Spread is computed from the first-emitted bid/ask entries.
func (a *Aggregator) Finalize(l int) (Summary, error) {
	bids, err := finalizeSide(a.bid, l, true)
	if err != nil {
		return Summary{}, fmt.Errorf("finalize bids: %w", err)
	}
	asks, err := finalizeSide(a.ask, l, false)
	if err != nil {
		return Summary{}, fmt.Errorf("finalize asks: %w", err)
	}

	spread := 0.0
	if len(bids) > 0 && len(asks) > 0 {
		spread = asks[0].Price - bids[0].Price
	}

	return Summary{Spread: spread, Bids: bids, Asks: asks}, nil
}

// finalizeSide returns entries in price-visiting order: descending for
// bids, ascending for asks. Within a price, entries preserve merge
// (venue) order.
func finalizeSide(side map[string]*priceEntries, l int, descending bool) ([]Level, error) {
	ordered := make([]*priceEntries, 0, len(side))
	for _, pe := range side {
		ordered = append(ordered, pe)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if descending {
			return ordered[i].price.Cmp(ordered[j].price) > 0
		}
		return ordered[i].price.Cmp(ordered[j].price) < 0
	})

	out := make([]Level, 0, maxEntriesPerSide)
	priceLevels := 0
	for _, pe := range ordered {
		if priceLevels >= l {
			break
		}
		priceLevels++
		for _, entry := range pe.entries {
			price, _ := pe.price.Float64()
			if math.IsNaN(price) || math.IsInf(price, 0) {
				return nil, fmt.Errorf("price conversion error: %s", pe.price.String())
			}
			amount, _ := entry.Quantity.Float64()
			if math.IsNaN(amount) || math.IsInf(amount, 0) {
				return nil, fmt.Errorf("volume conversion error: %s", entry.Quantity.String())
			}
			out = append(out, Level{Exchange: entry.Venue, Price: price, Amount: amount})
			if len(out) == maxEntriesPerSide {
				return out, nil
			}
		}
	}
	return out, nil
}
