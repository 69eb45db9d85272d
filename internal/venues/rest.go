package venues

import (
	"fmt"

	"github.com/zenixls2/bookaggregator/internal/book"
)

// restNotImplemented backs every REST-fallback venue the registry lists but
// does not yet support, matching original_source/src/apitree/restapi.rs's
// btcmarkets_orderbook stub. Configuring one of these venues with ws_api:
// false is accepted, but every poll tick fails until a real implementation
// lands.
func restNotImplemented(venue string) func(pair string) (*book.Orderbook, error) {
	return func(pair string) (*book.Orderbook, error) {
		return nil, fmt.Errorf("%s: REST orderbook polling is not implemented", venue)
	}
}

func btcmarketsSpec() *Spec {
	return &Spec{
		Name:     "btcmarkets",
		Endpoint: "https://api.btcmarkets.net",
		Parse:    func(raw []byte) (*book.Orderbook, error) { return nil, nil },
		Clear:    func() {},
		WSAPI:    false,
		RESTPoll: restNotImplemented("btcmarkets"),
	}
}
