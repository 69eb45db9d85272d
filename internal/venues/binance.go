package venues

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/zenixls2/bookaggregator/internal/book"
)

// binanceAccumulator mirrors wsapi.rs's BINANCE static: a process-wide,
// mutex-guarded book keyed by a constant sentinel, because Binance's partial
// depth stream carries no symbol field to key on. Spot and futures each get
// their own accumulator instance so the two streams never collide.
type binanceAccumulator struct {
	mu sync.Mutex
	ob *book.Orderbook
}

func newBinanceAccumulator() *binanceAccumulator {
	return &binanceAccumulator{}
}

func (a *binanceAccumulator) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ob = nil
}

type binanceTicker struct {
	EventType string `json:"e"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Symbol    string `json:"s"`
}

type binanceDepth struct {
	LastUpdateID uint64          `json:"lastUpdateId"`
	Bids         [][2]string     `json:"bids"`
	Asks         [][2]string     `json:"asks"`
	Result       json.RawMessage `json:"result"`
	ID           uint64          `json:"id"`
}

func (a *binanceAccumulator) parse(raw []byte) (*book.Orderbook, error) {
	var probe struct {
		EventType string `json:"e"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("binance: decode: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ob == nil {
		a.ob = book.New("binance")
	}

	if probe.EventType == "24hrTicker" {
		var t binanceTicker
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("binance: decode ticker: %w", err)
		}
		price, err := decimal.NewFromString(t.Close)
		if err != nil {
			return nil, fmt.Errorf("binance: close price: %w", err)
		}
		volume, err := decimal.NewFromString(t.Volume)
		if err != nil {
			return nil, fmt.Errorf("binance: volume: %w", err)
		}
		a.ob.LastPrice = price
		a.ob.Volume = volume
		return a.ob.Clone(), nil
	}

	var d binanceDepth
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("binance: decode depth: %w", err)
	}
	// A subscription ack carries no update id and no levels: benign, ignore.
	if d.LastUpdateID == 0 && len(d.Bids) == 0 && len(d.Asks) == 0 {
		return nil, nil
	}
	if len(d.Result) > 0 && string(d.Result) != "null" {
		return nil, fmt.Errorf("binance: unexpected non-null result field")
	}

	a.ob.Clear()
	for _, lv := range d.Bids {
		price, err := decimal.NewFromString(lv[0])
		if err != nil {
			return nil, fmt.Errorf("binance: bid price: %w", err)
		}
		qty, err := decimal.NewFromString(lv[1])
		if err != nil {
			return nil, fmt.Errorf("binance: bid quantity: %w", err)
		}
		a.ob.Insert(book.Bid, price, qty)
	}
	for _, lv := range d.Asks {
		price, err := decimal.NewFromString(lv[0])
		if err != nil {
			return nil, fmt.Errorf("binance: ask price: %w", err)
		}
		qty, err := decimal.NewFromString(lv[1])
		if err != nil {
			return nil, fmt.Errorf("binance: ask quantity: %w", err)
		}
		a.ob.Insert(book.Ask, price, qty)
	}
	return a.ob.Clone(), nil
}

// binanceSpec builds the spot or futures Spec. Futures only subscribes to
// the depth stream (no ticker channel), matching WS_APIMAP's entry.
func binanceSpec(endpoint string, withTicker bool) *Spec {
	acc := newBinanceAccumulator()
	templates := []string{`{"id": 1, "method": "SUBSCRIBE", "params": ["{0}@depth{1}@100ms"]}`}
	name := "binance"
	if withTicker {
		templates = append(templates, `{"id": 2, "method": "SUBSCRIBE", "params": ["{0}@ticker"]}`)
	} else {
		name = "binance_futures"
	}
	return &Spec{
		Name:               name,
		Endpoint:           endpoint,
		SubscribeTemplates: templates,
		Parse:              acc.parse,
		Clear:              acc.clear,
		WSAPI:              true,
	}
}
