package venues

import (
	"testing"
)

func TestSubscribeTextRendersPositionalPlaceholders(t *testing.T) {
	spec := Default["binance"]
	got := spec.SubscribeTexts("BTCUSDT", 20)
	want := `{"id": 1, "method": "SUBSCRIBE", "params": ["BTCUSDT@depth20@100ms"]}`
	if got[0] != want {
		t.Fatalf("got %q, want %q", got[0], want)
	}
}

func TestSubscribeTextToleratesSurplusArgs(t *testing.T) {
	// A template referencing only {0} must still accept the level
	// argument without error or leftover token.
	got := SubscribeText(`{"channel":"order_book_{0}"}`, "btcusd", 25)
	want := `{"channel":"order_book_btcusd"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestBinanceSubscriptionAckYieldsNone exercises scenario E2: a bare
// subscription acknowledgement carries no update id and no levels and must
// be silently dropped rather than treated as a valid (empty) book.
func TestBinanceSubscriptionAckYieldsNone(t *testing.T) {
	acc := newBinanceAccumulator()
	ob, err := acc.parse([]byte(`{"id": 1, "result": null}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ob != nil {
		t.Fatalf("expected nil (benign) result for a subscription ack, got %+v", ob)
	}
}

// TestBinanceSnapshotAndTicker exercises scenario E1: a depth snapshot
// populates the book and a following ticker frame updates last price/volume
// on the same accumulator instance.
func TestBinanceSnapshotAndTicker(t *testing.T) {
	acc := newBinanceAccumulator()
	ob, err := acc.parse([]byte(`{"lastUpdateId": 160, "bids":[["0.01", "0.2"]], "asks": []}`))
	if err != nil {
		t.Fatalf("parse depth: %v", err)
	}
	if ob == nil || ob.BidLen() != 1 {
		t.Fatalf("expected one bid level, got %+v", ob)
	}

	ob2, err := acc.parse([]byte(`{"e":"24hrTicker","c":"0.015","v":"1000","s":"BTCUSDT"}`))
	if err != nil {
		t.Fatalf("parse ticker: %v", err)
	}
	if ob2.LastPrice.String() != "0.015" {
		t.Fatalf("expected last price 0.015, got %s", ob2.LastPrice.String())
	}
	if ob2.BidLen() != 1 {
		t.Fatalf("ticker frame must not clear existing depth, got %d bids", ob2.BidLen())
	}
}

// TestBitstampSnapshot exercises scenario E3.
func TestBitstampSnapshot(t *testing.T) {
	raw := `{"data":{
		"timestamp":"1691595437",
		"microtimestamp":"1691595437334962",
		"bids":[],
		"asks":[["29737","0.67548438"],["29738","0.67255217"]]
	},"channel":"order_book_btcusd","event":"data"}`
	ob, err := bitstampParse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ob.AskLen() != 2 {
		t.Fatalf("expected 2 ask levels, got %d", ob.AskLen())
	}
}

func TestBitstampSubscriptionAckYieldsNone(t *testing.T) {
	raw := `{"event": "bts:subscription_succeeded", "channel": "order_book_btcusd", "data": {}}`
	ob, err := bitstampParse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ob != nil {
		t.Fatalf("expected nil for a non-data event, got %+v", ob)
	}
}

// TestKrakenSnapshotThenZeroQuantityDelta exercises scenario E6: a book
// snapshot followed by a delta that zeroes out one of its levels.
func TestKrakenSnapshotThenZeroQuantityDelta(t *testing.T) {
	acc := newKrakenAccumulator()
	snapshot := `[336,{"as":[["0.05010500","0.00000500","1"]],"bs":[["0.05010400","0.00000500","1"]]},"book-25","XBT/USD"]`
	ob, err := acc.parse([]byte(snapshot))
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if ob.AskLen() != 1 || ob.BidLen() != 1 {
		t.Fatalf("expected one level per side after snapshot, got bid=%d ask=%d", ob.BidLen(), ob.AskLen())
	}

	delta := `[336,{"a":[["0.05010500","0.00000000","2"]]},"book-25","XBT/USD"]`
	ob2, err := acc.parse([]byte(delta))
	if err != nil {
		t.Fatalf("parse delta: %v", err)
	}
	if ob2.AskLen() != 0 {
		t.Fatalf("expected the zero-quantity delta to delete the ask level, got %d", ob2.AskLen())
	}
	if ob2.BidLen() != 1 {
		t.Fatalf("delta must not disturb the untouched bid side, got %d", ob2.BidLen())
	}
}

func TestKrakenEventObjectYieldsNone(t *testing.T) {
	acc := newKrakenAccumulator()
	ob, err := acc.parse([]byte(`{"event":"heartbeat"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ob != nil {
		t.Fatalf("expected nil for an object-framed event message, got %+v", ob)
	}
}

func TestBtcmarketsRESTPollNotImplemented(t *testing.T) {
	spec := Default["btcmarkets"]
	if spec.WSAPI {
		t.Fatalf("btcmarkets must be registered as a REST-fallback venue")
	}
	if _, err := spec.RESTPoll("BTC-AUD"); err == nil {
		t.Fatalf("expected the REST stub to return an error")
	}
}

func TestOKXSnapshotThenUpdate(t *testing.T) {
	acc := newOKXAccumulator()
	snapshot := `{"arg":{"channel":"books","instId":"BTC-USDT"},"action":"snapshot","data":[{"bids":[["29737","2"]],"asks":[["29738","1"]]}]}`
	ob, err := acc.parse([]byte(snapshot))
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if ob.BidLen() != 1 || ob.AskLen() != 1 {
		t.Fatalf("expected one level per side after snapshot, got bid=%d ask=%d", ob.BidLen(), ob.AskLen())
	}

	update := `{"arg":{"channel":"books","instId":"BTC-USDT"},"action":"update","data":[{"bids":[["29737","0"]],"asks":[]}]}`
	ob2, err := acc.parse([]byte(update))
	if err != nil {
		t.Fatalf("parse update: %v", err)
	}
	if ob2.BidLen() != 0 {
		t.Fatalf("expected the zero-quantity update to delete the bid level, got %d", ob2.BidLen())
	}
	if ob2.AskLen() != 1 {
		t.Fatalf("update must not disturb the untouched ask side, got %d", ob2.AskLen())
	}
}

func TestOKXPongYieldsNone(t *testing.T) {
	acc := newOKXAccumulator()
	ob, err := acc.parse([]byte("pong"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ob != nil {
		t.Fatalf("expected nil for a pong heartbeat reply, got %+v", ob)
	}
}

func TestOKXSubscribeErrorIsReported(t *testing.T) {
	acc := newOKXAccumulator()
	_, err := acc.parse([]byte(`{"event":"error","msg":"channel does not exist","code":"60012"}`))
	if err == nil {
		t.Fatal("expected an error for an OKX subscription error event")
	}
}

func TestRegistryLookupUnknownVenue(t *testing.T) {
	if _, err := Default.Lookup("doesnotexist"); err == nil {
		t.Fatalf("expected an error for an unregistered venue")
	}
}
