// Package rpc defines the BookSummary streaming RPC surface. spec.md §7
// treats the RPC schema as an external contract "consumed as given" rather
// than something this system defines — in a production build that contract
// would arrive as generated protoc-gen-go stubs from orderbook.proto. Since
// no protoc toolchain runs here, this package hand-writes the wire types and
// registers a JSON codec under the "proto" content-subtype so
// google.golang.org/grpc (the teacher's RPC stack choice is absent —
// see DESIGN.md — but grpc is the natural counterpart to
// original_source/src/proto/mod.rs's tonic service) can still serve and
// stream them without a .proto compile step.
package rpc

// Empty is the BookSummary request: it carries no fields.
type Empty struct{}

// Level is one aggregated price row: which venue contributed it, at what
// price, for how much.
type Level struct {
	Exchange string  `json:"exchange"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
}

// Summary is one BookSummary stream item.
type Summary struct {
	Spread float64 `json:"spread"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}

// ServiceName is the fully qualified gRPC service name, matching
// original_source/src/proto/mod.rs's generated orderbook.OrderbookAggregator.
const ServiceName = "orderbook.OrderbookAggregator"

// BookSummaryMethod is the single server-streaming method this service
// exposes.
const BookSummaryMethod = "BookSummary"
