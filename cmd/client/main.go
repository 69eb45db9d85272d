// Command client is a minimal BookSummary stream consumer, grounded on
// original_source/src/client.rs: connect, call BookSummary with an empty
// request, print every Summary until the stream ends or errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/zenixls2/bookaggregator/internal/rpc"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "aggregator RPC address to dial")
	flag.Parse()

	conn, err := grpc.Dial(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	client := rpc.NewOrderbookAggregatorClient(conn)
	stream, err := client.BookSummary(context.Background(), &rpc.Empty{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "BookSummary: %v\n", err)
		os.Exit(1)
	}

	for {
		summary, err := stream.Recv()
		// Aborted is the server's signal that its broadcast hub closed: a
		// normal end of the stream, like io.EOF.
		if err == io.EOF || status.Code(err) == codes.Aborted {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "stream error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%+v\n", *summary)
	}
}
