// Package book implements the per-venue order book model: a price-indexed
// depth map per side plus a ticker overlay, with insert/trim/clear
// operations matching the original Rust orderbook (originally a BTreeMap
// keyed by BigDecimal) using shopspring/decimal for exact price comparison.
package book

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies a bid or ask entry.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// level is a single stored price/quantity pair, keyed in the parent map by
// the decimal's canonical string so lookups stay O(1) while iteration can
// still walk prices in numeric order.
type level struct {
	price decimal.Decimal
	qty   decimal.Decimal
}

// PriceLevel is the externally visible (price, quantity) pair returned by
// the read-only accessors.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Orderbook is one venue's view of a single trading pair: two price-indexed
// depth maps plus a ticker overlay (last traded price, 24h volume).
type Orderbook struct {
	Venue string

	bid map[string]level
	ask map[string]level

	LastPrice decimal.Decimal
	Volume    decimal.Decimal
	Timestamp int64 // unix millis, set at construction/update
}

// New creates an empty book for the given venue.
func New(venue string) *Orderbook {
	return &Orderbook{
		Venue:     venue,
		bid:       make(map[string]level),
		ask:       make(map[string]level),
		LastPrice: decimal.Zero,
		Volume:    decimal.Zero,
		Timestamp: nowMillis(),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Clone returns a deep copy, used by venue parsers that return a snapshot
// of an accumulator they keep mutating.
func (ob *Orderbook) Clone() *Orderbook {
	out := &Orderbook{
		Venue:     ob.Venue,
		bid:       make(map[string]level, len(ob.bid)),
		ask:       make(map[string]level, len(ob.ask)),
		LastPrice: ob.LastPrice,
		Volume:    ob.Volume,
		Timestamp: ob.Timestamp,
	}
	for k, v := range ob.bid {
		out.bid[k] = v
	}
	for k, v := range ob.ask {
		out.ask[k] = v
	}
	return out
}

// Insert sets the quantity for a price on the given side. A zero quantity
// deletes the price level — this is the canonical delta semantics every
// venue parser relies on for incremental (non-snapshot) updates.
func (ob *Orderbook) Insert(side Side, price, qty decimal.Decimal) {
	m := ob.sideMap(side)
	key := price.String()
	if qty.IsZero() {
		delete(m, key)
		return
	}
	m[key] = level{price: price, qty: qty}
	ob.Timestamp = nowMillis()
}

// Clear empties both sides. Ticker fields are retained.
func (ob *Orderbook) Clear() {
	ob.bid = make(map[string]level)
	ob.ask = make(map[string]level)
}

// Trim drops the worst entries until each side has at most L levels. Worst
// on the bid side is the lowest price; worst on the ask side is the
// highest price.
func (ob *Orderbook) Trim(l int) {
	if l < 0 {
		l = 0
	}
	bids := ob.sortedBid()
	if len(bids) > l {
		for _, dropped := range bids[:len(bids)-l] {
			delete(ob.bid, dropped.price.String())
		}
	}
	asks := ob.sortedAsk()
	if len(asks) > l {
		for _, dropped := range asks[l:] {
			delete(ob.ask, dropped.price.String())
		}
	}
}

func (ob *Orderbook) sideMap(side Side) map[string]level {
	if side == Bid {
		return ob.bid
	}
	return ob.ask
}

// sortedBid returns bid levels ascending by price (worst-first).
func (ob *Orderbook) sortedBid() []level {
	return sortedAscending(ob.bid)
}

// sortedAsk returns ask levels ascending by price (best-first).
func (ob *Orderbook) sortedAsk() []level {
	return sortedAscending(ob.ask)
}

func sortedAscending(m map[string]level) []level {
	out := make([]level, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].price.Cmp(out[j].price) < 0
	})
	return out
}

// Bids returns bid entries ascending by price; "best bid" is the last one.
func (ob *Orderbook) Bids() []PriceLevel {
	return toPriceLevels(ob.sortedBid())
}

// Asks returns ask entries ascending by price; "best ask" is the first one.
func (ob *Orderbook) Asks() []PriceLevel {
	return toPriceLevels(ob.sortedAsk())
}

func toPriceLevels(levels []level) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, lv := range levels {
		out[i] = PriceLevel{Price: lv.price, Quantity: lv.qty}
	}
	return out
}

// BidLen and AskLen report current side sizes, mainly for tests.
func (ob *Orderbook) BidLen() int { return len(ob.bid) }
func (ob *Orderbook) AskLen() int { return len(ob.ask) }
