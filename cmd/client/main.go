package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/omochice/room-chat/internal/client"
	"github.com/omochice/room-chat/internal/client/tcp"
	"github.com/omochice/room-chat/internal/client/ws"
	"github.com/omochice/room-chat/internal/logging"
	"github.com/omochice/room-chat/pkg/protocol"
)

func main() {
	transport := flag.String("transport", "ws", "Transport to use: ws or tcp")
	serverAddr := flag.String("server", "ws://localhost:8080/ws", "Server address (ws://host:port/ws, or host:port for tcp)")
	room := flag.String("room", "", "Room code to join")
	username := flag.String("username", "", "Username for chat")
	flag.Parse()

	log, err := logging.New(logging.Config{Level: "warn"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}

	if *room == "" || *username == "" {
		log.Fatal().Msg("room and username are required, use -room and -username")
	}

	var c client.Client
	switch *transport {
	case "ws":
		c = ws.New(*serverAddr, *username, log)
	case "tcp":
		c = tcp.New(*serverAddr, *username, log)
	default:
		log.Fatal().Str("transport", *transport).Msg("unknown transport")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = c.Connect(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to server")
	}
	defer c.Disconnect()

	fmt.Printf("Connected to %s as %s\n", *serverAddr, *username)

	if err := c.Join(*room); err != nil {
		log.Fatal().Err(err).Msg("failed to join room")
	}

	go func() {
		for f := range c.Frames() {
			switch v := f.(type) {
			case protocol.CountUpdate:
				fmt.Printf("*** %d in %s ***\n", v.Count, *room)
			case protocol.MessageRelay:
				fmt.Printf("[%s]: %s\n", v.From, v.Message)
			case protocol.Error:
				fmt.Printf("!!! %s\n", v.Error)
			}
		}
		fmt.Println("*** connection closed ***")
	}()

	fmt.Println("Type your messages (or 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if text == "quit" || text == "exit" {
			break
		}

		if err := c.Chat(*room, text); err != nil {
			log.Error().Err(err).Msg("failed to send message")
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("error reading input")
	}
}
