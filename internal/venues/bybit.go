package venues

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zenixls2/bookaggregator/internal/book"
)

// bybitAccumulator keyed by symbol, adapted from the teacher's
// BybitConnector/BybitOrderbookData: Bybit's v5 public orderbook topic
// sends one "snapshot" frame followed by "delta" frames, so the accumulator
// must persist across messages the same way Kraken's does.
type bybitAccumulator struct {
	mu    sync.Mutex
	books map[string]*book.Orderbook
}

func newBybitAccumulator() *bybitAccumulator {
	return &bybitAccumulator{books: make(map[string]*book.Orderbook)}
}

func (a *bybitAccumulator) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.books = make(map[string]*book.Orderbook)
}

type bybitMessage struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
}

type bybitOrderbookData struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
}

func (a *bybitAccumulator) parse(raw []byte) (*book.Orderbook, error) {
	var msg bybitMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("bybit: decode: %w", err)
	}
	// Subscription acks ("op":"subscribe" replies) carry no topic: benign.
	if msg.Topic == "" {
		return nil, nil
	}
	var data bybitOrderbookData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, fmt.Errorf("bybit: decode orderbook data: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	ob, ok := a.books[data.Symbol]
	if !ok {
		ob = book.New("bybit")
		a.books[data.Symbol] = ob
	}
	if msg.Type == "snapshot" {
		ob.Clear()
	}
	for _, lv := range data.Bids {
		if len(lv) < 2 {
			continue
		}
		if err := insertKraken(ob, book.Bid, lv[0], lv[1]); err != nil {
			return nil, fmt.Errorf("bybit: %w", err)
		}
	}
	for _, lv := range data.Asks {
		if len(lv) < 2 {
			continue
		}
		if err := insertKraken(ob, book.Ask, lv[0], lv[1]); err != nil {
			return nil, fmt.Errorf("bybit: %w", err)
		}
	}
	return ob.Clone(), nil
}

func bybitSpec() *Spec {
	acc := newBybitAccumulator()
	return &Spec{
		Name:     "bybit",
		Endpoint: "wss://stream.bybit.com/v5/public/spot",
		SubscribeTemplates: []string{
			`{"op":"subscribe","args":["orderbook.200.{0}"]}`,
		},
		Parse: acc.parse,
		Clear: acc.clear,
		WSAPI: true,
	}
}
