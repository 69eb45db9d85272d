package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// OrderbookAggregatorServer is implemented by internal/rpcserver.Server.
type OrderbookAggregatorServer interface {
	BookSummary(*Empty, OrderbookAggregator_BookSummaryServer) error
}

// OrderbookAggregator_BookSummaryServer is the server side of the
// BookSummary stream, matching the shape grpc.ServiceDesc.Streams expects
// (the subset of grpc.ServerStream a server-streaming handler needs).
type OrderbookAggregator_BookSummaryServer interface {
	Send(*Summary) error
	grpc.ServerStream
}

type bookSummaryServer struct {
	grpc.ServerStream
}

func (s *bookSummaryServer) Send(m *Summary) error {
	return s.ServerStream.SendMsg(m)
}

func bookSummaryHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(Empty)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(OrderbookAggregatorServer).BookSummary(req, &bookSummaryServer{stream})
}

// ServiceDesc is the hand-authored equivalent of what protoc-gen-go-grpc
// would emit for a service with a single server-streaming RPC.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderbookAggregatorServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    BookSummaryMethod,
			Handler:       bookSummaryHandler,
			ServerStreams: true,
		},
	},
	Metadata: "orderbook.proto",
}

// RegisterOrderbookAggregatorServer wires an implementation into a
// *grpc.Server, mirroring the generated RegisterOrderbookAggregatorServer
// function.
func RegisterOrderbookAggregatorServer(s *grpc.Server, srv OrderbookAggregatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// OrderbookAggregatorClient is the client side of the service, matching the
// generated client interface's shape.
type OrderbookAggregatorClient interface {
	BookSummary(ctx context.Context, in *Empty, opts ...grpc.CallOption) (OrderbookAggregator_BookSummaryClient, error)
}

// OrderbookAggregator_BookSummaryClient is the client side of the
// BookSummary stream.
type OrderbookAggregator_BookSummaryClient interface {
	Recv() (*Summary, error)
	grpc.ClientStream
}

type orderbookAggregatorClient struct {
	cc *grpc.ClientConn
}

// NewOrderbookAggregatorClient returns a client bound to cc, mirroring the
// generated NewOrderbookAggregatorClient constructor.
func NewOrderbookAggregatorClient(cc *grpc.ClientConn) OrderbookAggregatorClient {
	return &orderbookAggregatorClient{cc: cc}
}

func (c *orderbookAggregatorClient) BookSummary(ctx context.Context, in *Empty, opts ...grpc.CallOption) (OrderbookAggregator_BookSummaryClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/"+BookSummaryMethod, opts...)
	if err != nil {
		return nil, err
	}
	cs := &bookSummaryClient{stream}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return cs, nil
}

type bookSummaryClient struct {
	grpc.ClientStream
}

func (c *bookSummaryClient) Recv() (*Summary, error) {
	m := new(Summary)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
