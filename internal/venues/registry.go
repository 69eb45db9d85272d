// Package venues holds the static per-venue wire-protocol registry: how to
// reach each exchange, how to subscribe, how to parse its frames into the
// common book.Orderbook model, and how to drop any venue-local accumulator
// state. Grounded on original_source/src/apitree/wsapi.rs's WS_APIMAP and
// on the teacher repo's internal/exchanges/*.go connectors.
package venues

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zenixls2/bookaggregator/internal/book"
)

// ParseFunc turns one raw wire message into an updated book, or (nil, nil)
// for a benign, ignorable frame (subscription ack, reconnect hint).
type ParseFunc func(raw []byte) (*book.Orderbook, error)

// ClearFunc drops any process-wide accumulator state this venue's parser
// keeps, invoked on ingester teardown/reconnect.
type ClearFunc func()

// Heartbeat describes an application-level keepalive the ingester must send
// on a timer over the shared connection send-side.
type Heartbeat struct {
	IntervalSeconds int
	Payload         []byte
}

// Spec is the static, compile-time description of one venue.
type Spec struct {
	// Name is the registry key, duplicated here for logging convenience.
	Name string

	// Endpoint is the WebSocket URL (or, when RenderURL is true, a
	// template rendered once with the comma-joined pair list).
	Endpoint string

	// SubscribeTemplates are rendered per pair (when !RenderURL), in
	// order, and sent as individual text frames after connecting.
	// Placeholders are positional: {0}=pair, {1}=depth level.
	SubscribeTemplates []string

	// RenderURL, if true, means Endpoint itself is templated with a
	// comma-joined pair list and no per-pair subscribe frame is sent.
	RenderURL bool

	// Heartbeat is nil when the venue needs no app-level keepalive.
	Heartbeat *Heartbeat

	Parse ParseFunc
	Clear ClearFunc

	// WSAPI is false for venues handled via REST polling instead of a
	// streaming socket (spec §4.4's REST fallback path).
	WSAPI bool

	// RESTPoll is only set when WSAPI is false: it fetches one book per
	// tick for the first configured pair.
	RESTPoll func(pair string) (*book.Orderbook, error)
}

// SubscribeText renders a single subscribe template, substituting {0} with
// pair and {1} with level. Templates that reference only one placeholder
// (or neither) must still tolerate the surplus argument — NewReplacer
// simply never matches the unused token, so this holds automatically.
func SubscribeText(template, pair string, level int) string {
	r := strings.NewReplacer("{0}", pair, "{1}", strconv.Itoa(level))
	return r.Replace(template)
}

// SubscribeTexts renders every subscribe template for a venue, in order.
func (s *Spec) SubscribeTexts(pair string, level int) []string {
	out := make([]string, len(s.SubscribeTemplates))
	for i, tmpl := range s.SubscribeTemplates {
		out[i] = SubscribeText(tmpl, pair, level)
	}
	return out
}

// RenderEndpoint renders Endpoint against a comma-joined pair list when
// RenderURL is set; otherwise it returns Endpoint unchanged.
func (s *Spec) RenderEndpoint(pairs []string) string {
	if !s.RenderURL {
		return s.Endpoint
	}
	return SubscribeText(s.Endpoint, strings.Join(pairs, ","), 0)
}

// Registry is the venue_name -> Spec lookup table.
type Registry map[string]*Spec

// Default is the static, startup-initialized venue registry.
var Default = Registry{
	"binance":          binanceSpec("wss://stream.binance.com:9443/ws", true),
	"binance_futures":  binanceSpec("wss://fstream.binance.com:9443/ws", false),
	"bitstamp":         bitstampSpec(),
	"kraken":           krakenSpec(),
	"btcmarkets":       btcmarketsSpec(),
	"bybit":            bybitSpec(),
	"okx":              okxSpec(),
}

// Lookup returns the Spec for venue, or an error if the venue is not
// configured — absence is a configuration error, not a recoverable one.
func (r Registry) Lookup(venue string) (*Spec, error) {
	spec, ok := r[venue]
	if !ok {
		return nil, fmt.Errorf("venue %q is not registered", venue)
	}
	return spec, nil
}
