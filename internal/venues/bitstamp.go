package venues

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zenixls2/bookaggregator/internal/book"
)

type bitstampEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
}

type bitstampDetail struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

func bitstampParse(raw []byte) (*book.Orderbook, error) {
	var env bitstampEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("bitstamp: decode: %w", err)
	}
	// Subscription acks and reconnect hints arrive with event != "data":
	// benign, nothing to merge yet.
	if env.Event != "data" {
		return nil, nil
	}
	if !strings.HasPrefix(env.Channel, "order_book_") {
		return nil, fmt.Errorf("bitstamp: non-orderbook channel %q on data event", env.Channel)
	}

	var detail bitstampDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		return nil, fmt.Errorf("bitstamp: decode detail: %w", err)
	}

	ob := book.New("bitstamp")
	for _, lv := range detail.Bids {
		price, err := decimal.NewFromString(lv[0])
		if err != nil {
			return nil, fmt.Errorf("bitstamp: bid price: %w", err)
		}
		qty, err := decimal.NewFromString(lv[1])
		if err != nil {
			return nil, fmt.Errorf("bitstamp: bid quantity: %w", err)
		}
		ob.Insert(book.Bid, price, qty)
	}
	for _, lv := range detail.Asks {
		price, err := decimal.NewFromString(lv[0])
		if err != nil {
			return nil, fmt.Errorf("bitstamp: ask price: %w", err)
		}
		qty, err := decimal.NewFromString(lv[1])
		if err != nil {
			return nil, fmt.Errorf("bitstamp: ask quantity: %w", err)
		}
		ob.Insert(book.Ask, price, qty)
	}
	return ob, nil
}

func bitstampSpec() *Spec {
	return &Spec{
		Name:     "bitstamp",
		Endpoint: "wss://ws.bitstamp.net",
		SubscribeTemplates: []string{
			`{"event":"bts:subscribe","data":{"channel":"order_book_{0}"}}`,
		},
		Parse: bitstampParse,
		Clear: func() {},
		WSAPI: true,
	}
}
