package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding.Codec, grpc-go's documented extension point
// for swapping the wire codec without changing the ServiceDesc/handler
// plumbing. Registered under "proto" (grpc-go's default content-subtype) so
// this package's hand-written messages.go types can be served over a
// standard *grpc.Server and grpc.ClientConn without a protoc-generated
// marshaler.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "proto"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
