package main

import (
	"chat-relay/contract"
	errs "chat-relay/errors"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/transport"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

// Exit codes for the room application.
const (
	exitOK        = 0
	exitRuntime   = 1
	exitConfig    = 2
	exitTransport = 3
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Room error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the room, its optional capabilities and its supervised workers,
// then blocks until a signal arrives or the control loop fails.
// Deferred cleanups run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Transport
	listener, err := transport.Listen(config.Host, config.Port, config.Backlog)
	if err != nil {
		return exitTransport, fmt.Errorf("failed to listen on %s:%d: %w", config.Host, config.Port, err)
	}
	mux, err := transport.NewMultiplexer(config.Multiplexer)
	if err != nil {
		_ = listener.Close()
		return exitTransport, err
	}
	log.Info("Listening", "address", listener.Addr(), "multiplexer", config.Multiplexer)

	// 3. Room and its optional capabilities
	metrics := observability.NewRoomMetrics(config.RoomName)
	room := runtime.NewRoom(log, listener, mux, metrics, runtime.Options{
		Name:          config.RoomName,
		Capacity:      config.Capacity,
		FrameSize:     config.FrameSize,
		QuitToken:     config.QuitToken,
		HistoryToken:  config.HistoryToken,
		HistoryLimit:  config.HistoryLimit,
		WaitTimeout:   config.WaitTimeout,
		IdleTimeout:   config.IdleTimeout,
		WriteAttempts: config.WriteAttempts,
	})

	var history contract.IHistoryRepository
	if config.HistoryToken != "" && config.HistoryLimit > 0 {
		db, err := repositories.OpenInMemory()
		if err != nil {
			return exitRuntime, fmt.Errorf("history store opening failed: %w", err)
		}
		defer func() {
			log.Debug("Closing history store...")
			_ = db.Close()
		}()
		history = repositories.NewHistoryRepository(db, log, &config.HistoryLimit)
		room.WithHistory(history)
	}

	if config.ModerationEnabled() {
		moderator, err := newModerator(log, config)
		if err != nil {
			return exitConfig, err
		}
		room.WithCensor(moderator)
	}

	// 4. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewHealthMonitoringWorker(log, metrics, config.MetricInterval))
	if config.MetricsPort > 0 {
		handler := internal.NewDebugHandler(log, config.RoomName, metrics.Registry(), history, config.HistoryLimit)
		sup.Add(workers.NewDebugServerWorker(log, config.Host, config.MetricsPort, handler))
	}
	if config.HealthPort > 0 {
		sup.Add(workers.NewHealthServerWorker(log, config.Host, config.HealthPort, config.RoomName))
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Run until stop or failure; a failing room cancels the workers
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sup.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return room.Run(gctx)
	})
	err = g.Wait()

	if serr := observability.WriteSummary(os.Stdout, metrics.Registry()); serr != nil {
		log.Warn("Summary unavailable", "error", serr)
	}
	if err != nil {
		log.Error("Room stopped on failure", "error", err, "multiplexer", errors.Is(err, errs.ErrMultiplex))
		return exitRuntime, err
	}
	log.Info("Room stopped cleanly")
	return exitOK, nil
}

func newModerator(log *slog.Logger, config internal.Config) (moderation.Moderator, error) {
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return moderation.Moderator{}, err
	}
	words := config.Words()
	if config.ModerationDir != "" {
		data, err := runtime.NewCensoredLoader(os.DirFS(config.ModerationDir)).LoadAll(".", words...)
		if err != nil {
			return moderation.Moderator{}, fmt.Errorf("censored words loading failed: %w", err)
		}
		log.Info("Censored words loaded", "words", len(data.Words), "languages", data.Languages)
		words = data.Words
	}
	return moderation.NewModerator(words, char, log)
}
