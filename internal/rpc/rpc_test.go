package rpc

import "testing"

func TestJSONCodecRoundTrips(t *testing.T) {
	c := jsonCodec{}
	in := &Summary{Spread: 1.5, Bids: []Level{{Exchange: "binance", Price: 100, Amount: 2}}}

	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out Summary
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Spread != in.Spread || len(out.Bids) != 1 || out.Bids[0].Exchange != "binance" {
		t.Fatalf("round trip mismatch: got %+v", out)
	}
}

func TestCodecNameIsProto(t *testing.T) {
	if (jsonCodec{}).Name() != "proto" {
		t.Fatal("codec must register under the \"proto\" content-subtype grpc-go defaults to")
	}
}

func TestServiceDescExposesBookSummaryStream(t *testing.T) {
	if len(ServiceDesc.Streams) != 1 {
		t.Fatalf("expected exactly one stream, got %d", len(ServiceDesc.Streams))
	}
	stream := ServiceDesc.Streams[0]
	if stream.StreamName != BookSummaryMethod {
		t.Fatalf("expected stream name %q, got %q", BookSummaryMethod, stream.StreamName)
	}
	if !stream.ServerStreams || stream.ClientStreams {
		t.Fatal("BookSummary must be server-streaming only")
	}
}
