package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/colortrack/internal/feed"
	"github.com/banshee-data/colortrack/internal/mailbox"
)

var (
	addr = flag.String("addr", "localhost:50051", "Position feed address")
	info = flag.String("info", "", "Client description sent to the server (defaults to hostname)")
)

func main() {
	flag.Parse()

	clientInfo := *info
	if clientInfo == "" {
		host, _ := os.Hostname()
		clientInfo = "feedclient@" + host
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := feed.Dial(*addr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *addr, err)
	}
	defer client.Close()

	server, err := client.Register(ctx, clientInfo)
	if err != nil {
		log.Fatalf("registration failed: %v", err)
	}
	log.Printf("connected to %s", server)

	err = client.StreamLocations(ctx, clientInfo, func(l mailbox.Location) error {
		fmt.Println(l)
		return nil
	})
	switch {
	case err == nil:
		log.Printf("server closed the stream")
	case ctx.Err() != nil:
	default:
		log.Fatalf("stream failed: %v", err)
	}
}
