package venues

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/zenixls2/bookaggregator/internal/book"
)

// krakenAccumulator mirrors wsapi.rs's KRAKEN static: a mutex-guarded map of
// pair -> Orderbook, since Kraken's array-framed messages carry the pair as
// a positional field rather than keying each message to a single book.
type krakenAccumulator struct {
	mu    sync.Mutex
	books map[string]*book.Orderbook
}

func newKrakenAccumulator() *krakenAccumulator {
	return &krakenAccumulator{books: make(map[string]*book.Orderbook)}
}

func (a *krakenAccumulator) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.books = make(map[string]*book.Orderbook)
}

func (a *krakenAccumulator) get(pair string) *book.Orderbook {
	ob, ok := a.books[pair]
	if !ok {
		ob = book.New("kraken")
		a.books[pair] = ob
	}
	return ob
}

type krakenBookData struct {
	As [][3]string `json:"as"`
	Bs [][3]string `json:"bs"`
	A  [][]string  `json:"a"`
	B  [][]string  `json:"b"`
}

type krakenTickerData struct {
	C [2]string `json:"c"`
	V [2]string `json:"v"`
}

// krakenDepthCap is the subscribed book depth (book-25); the accumulator
// trims to it after every book frame, snapshot or delta, since deltas can
// add levels beyond that depth.
const krakenDepthCap = 25

// parse handles Kraken's heterogeneous array framing: event messages (acks,
// heartbeats, system status) arrive as a JSON object and are ignored here;
// data messages arrive as a 4-element array
// [channelID, data, channelName, pair].
func (a *krakenAccumulator) parse(raw []byte) (*book.Orderbook, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("kraken: empty frame")
	}
	if raw[0] == '{' {
		return nil, nil
	}

	var frame [4]json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("kraken: decode frame: %w", err)
	}
	var channelName, pair string
	if err := json.Unmarshal(frame[2], &channelName); err != nil {
		return nil, fmt.Errorf("kraken: decode channel name: %w", err)
	}
	if err := json.Unmarshal(frame[3], &pair); err != nil {
		return nil, fmt.Errorf("kraken: decode pair: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	ob := a.get(pair)

	switch {
	case len(channelName) >= 4 && channelName[:4] == "book":
		var data krakenBookData
		if err := json.Unmarshal(frame[1], &data); err != nil {
			return nil, fmt.Errorf("kraken: decode book data: %w", err)
		}
		// A fresh snapshot always arrives on "as"/"bs"; incremental
		// updates only ever populate "a"/"b".
		if len(data.Bs) > 0 || len(data.As) > 0 {
			ob.Clear()
		}
		for _, lv := range data.Bs {
			if err := insertKraken(ob, book.Bid, lv[0], lv[1]); err != nil {
				return nil, err
			}
		}
		for _, lv := range data.B {
			if len(lv) < 2 {
				return nil, fmt.Errorf("kraken: malformed bid delta")
			}
			if err := insertKraken(ob, book.Bid, lv[0], lv[1]); err != nil {
				return nil, err
			}
		}
		for _, lv := range data.As {
			if err := insertKraken(ob, book.Ask, lv[0], lv[1]); err != nil {
				return nil, err
			}
		}
		for _, lv := range data.A {
			if len(lv) < 2 {
				return nil, fmt.Errorf("kraken: malformed ask delta")
			}
			if err := insertKraken(ob, book.Ask, lv[0], lv[1]); err != nil {
				return nil, err
			}
		}
		ob.Trim(krakenDepthCap)
		return ob.Clone(), nil

	case channelName == "ticker":
		var data krakenTickerData
		if err := json.Unmarshal(frame[1], &data); err != nil {
			return nil, fmt.Errorf("kraken: decode ticker data: %w", err)
		}
		volume, err := decimal.NewFromString(data.V[1])
		if err != nil {
			return nil, fmt.Errorf("kraken: volume: %w", err)
		}
		price, err := decimal.NewFromString(data.C[0])
		if err != nil {
			return nil, fmt.Errorf("kraken: last price: %w", err)
		}
		ob.Volume = volume
		ob.LastPrice = price
		return ob.Clone(), nil
	}
	return nil, nil
}

func insertKraken(ob *book.Orderbook, side book.Side, priceStr, qtyStr string) error {
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return fmt.Errorf("kraken: price: %w", err)
	}
	qty, err := decimal.NewFromString(qtyStr)
	if err != nil {
		return fmt.Errorf("kraken: quantity: %w", err)
	}
	ob.Insert(side, price, qty)
	return nil
}

func krakenSpec() *Spec {
	acc := newKrakenAccumulator()
	return &Spec{
		Name:     "kraken",
		Endpoint: "wss://ws.kraken.com",
		SubscribeTemplates: []string{
			`{"event":"subscribe","pair":["{0}"], "subscription": {"name":"book","depth":25}}`,
			`{"event":"subscribe","pair":["{0}"], "subscription": {"name":"ticker"}}`,
		},
		Parse: acc.parse,
		Clear: acc.clear,
		WSAPI: true,
	}
}
