package main

import (
	"chat-relay/client"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the guest application.
const (
	exitOK        = 0
	exitRuntime   = 1
	exitConfig    = 2
	exitTransport = 3
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Guest error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if config.FrameSize < 1 {
		return exitConfig, fmt.Errorf("config error: FRAME_SIZE must be positive, got %d", config.FrameSize)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", config.RoomAddr)
	if err != nil {
		return exitTransport, fmt.Errorf("could not join the room at %s: %w", config.RoomAddr, err)
	}
	defer func() {
		log.Debug("Closing connection...")
		_ = conn.Close()
	}()

	log.Info("Joined the room", "address", config.RoomAddr, "nick", config.Nick)
	guest := client.NewGuest(log, config.Nick, config.FrameSize, config.QuitToken, config.HistoryToken, config.Colours)
	if err = guest.Run(ctx, conn, os.Stdin, os.Stdout); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
