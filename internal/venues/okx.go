package venues

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zenixls2/bookaggregator/internal/book"
)

// okxAccumulator holds one per-instId book, adapted from the teacher's
// OKXConnector (internal/exchanges/okx.go) which tracked connection state
// per-symbol but never assembled a book; parsing is built fresh here, in
// the kraken/bybit style of a mutex-guarded per-pair accumulator.
type okxAccumulator struct {
	mu    sync.Mutex
	books map[string]*book.Orderbook
}

func newOKXAccumulator() *okxAccumulator {
	return &okxAccumulator{books: make(map[string]*book.Orderbook)}
}

func (a *okxAccumulator) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.books = make(map[string]*book.Orderbook)
}

func (a *okxAccumulator) get(instID string) *book.Orderbook {
	ob, ok := a.books[instID]
	if !ok {
		ob = book.New("okx")
		a.books[instID] = ob
	}
	return ob
}

type okxArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type okxBookData struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

type okxEnvelope struct {
	Event  string        `json:"event"`
	Msg    string        `json:"msg"`
	Arg    okxArg        `json:"arg"`
	Action string        `json:"action"`
	Data   []okxBookData `json:"data"`
}

// parse handles OKX v5 public channel frames: the client-initiated
// "ping"/"pong" text heartbeat, subscribe acks/errors, and "books" channel
// snapshot/update frames.
func (a *okxAccumulator) parse(raw []byte) (*book.Orderbook, error) {
	if string(raw) == "pong" {
		return nil, nil
	}

	var env okxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("okx: unmarshal frame: %w", err)
	}

	if env.Event != "" {
		if env.Event == "error" {
			return nil, fmt.Errorf("okx subscription error: %s", env.Msg)
		}
		return nil, nil
	}

	if env.Arg.Channel != "books" || len(env.Data) == 0 {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ob := a.get(env.Arg.InstID)
	for _, d := range env.Data {
		if env.Action == "snapshot" {
			ob.Clear()
		}
		for _, lv := range d.Bids {
			if len(lv) < 2 {
				continue
			}
			if err := insertKraken(ob, book.Bid, lv[0], lv[1]); err != nil {
				return nil, fmt.Errorf("okx: bad bid level: %w", err)
			}
		}
		for _, lv := range d.Asks {
			if len(lv) < 2 {
				continue
			}
			if err := insertKraken(ob, book.Ask, lv[0], lv[1]); err != nil {
				return nil, fmt.Errorf("okx: bad ask level: %w", err)
			}
		}
	}

	return ob.Clone(), nil
}

func okxSpec() *Spec {
	acc := newOKXAccumulator()
	return &Spec{
		Name:               "okx",
		Endpoint:           "wss://ws.okx.com:8443/ws/v5/public",
		WSAPI:              true,
		SubscribeTemplates: []string{`{"op":"subscribe","args":[{"channel":"books","instId":"{0}"}]}`},
		Heartbeat:          &Heartbeat{IntervalSeconds: 15, Payload: []byte("ping")},
		Parse:              acc.parse,
		Clear:              acc.clear,
	}
}
