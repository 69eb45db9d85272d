package book

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestInsertZeroDeletes(t *testing.T) {
	ob := New("")
	ob.Insert(Bid, d("100"), d("1"))
	if ob.BidLen() != 1 {
		t.Fatalf("expected 1 bid level, got %d", ob.BidLen())
	}
	ob.Insert(Bid, d("100"), d("0"))
	if ob.BidLen() != 0 {
		t.Fatalf("insert with qty 0 should delete the price level, got %d entries", ob.BidLen())
	}
}

func TestTrimAsksKeepsLowest(t *testing.T) {
	ob := New("")
	for _, p := range []string{"1", "2", "3", "4", "5"} {
		ob.Insert(Ask, d(p), d("10"))
	}
	ob.Trim(3)
	if ob.AskLen() != 3 {
		t.Fatalf("expected 3 ask levels after trim, got %d", ob.AskLen())
	}
	asks := ob.Asks()
	want := []string{"1", "2", "3"}
	for i, lv := range asks {
		if lv.Price.String() != want[i] {
			t.Fatalf("ask[%d] = %s, want %s", i, lv.Price.String(), want[i])
		}
	}
}

func TestTrimBidsKeepsHighest(t *testing.T) {
	ob := New("")
	for _, p := range []string{"1", "2", "3", "4", "5"} {
		ob.Insert(Bid, d(p), d("10"))
	}
	ob.Trim(3)
	if ob.BidLen() != 3 {
		t.Fatalf("expected 3 bid levels after trim, got %d", ob.BidLen())
	}
	bids := ob.Bids()
	want := []string{"3", "4", "5"}
	for i, lv := range bids {
		if lv.Price.String() != want[i] {
			t.Fatalf("bid[%d] = %s, want %s", i, lv.Price.String(), want[i])
		}
	}
}

func TestClearRetainsTicker(t *testing.T) {
	ob := New("binance")
	ob.Insert(Bid, d("1"), d("1"))
	ob.LastPrice = d("100")
	ob.Volume = d("5")
	ob.Clear()
	if ob.BidLen() != 0 || ob.AskLen() != 0 {
		t.Fatalf("clear should empty both sides")
	}
	if !ob.LastPrice.Equal(d("100")) || !ob.Volume.Equal(d("5")) {
		t.Fatalf("clear must retain ticker fields")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ob := New("kraken")
	ob.Insert(Ask, d("100"), d("5"))
	clone := ob.Clone()
	ob.Insert(Ask, d("100"), d("0"))
	if clone.AskLen() != 1 {
		t.Fatalf("mutating the original must not affect the clone")
	}
}
