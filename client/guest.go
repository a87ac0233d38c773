// Package client is the thin terminal guest of a chat room.
package client

import (
	"bufio"
	"chat-relay/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/gookit/color"
)

// Guest turns console lines into frames and prints whatever the room relays.
type Guest struct {
	log          *slog.Logger
	nick         string
	frameSize    int
	quitToken    string
	historyToken string
	colours      bool
}

func NewGuest(log *slog.Logger, nick string, frameSize int, quitToken, historyToken string, colours bool) *Guest {
	return &Guest{
		log:          log,
		nick:         nick,
		frameSize:    frameSize,
		quitToken:    quitToken,
		historyToken: historyToken,
		colours:      colours,
	}
}

// Frame builds the bytes sent for one console line.
// Control tokens go out raw, text is prefixed with the "[nick]" field.
// A frame never exceeds the frame size, the room would truncate it anyway.
func (g *Guest) Frame(line string) []byte {
	line = strings.TrimRight(line, "\r\n")
	if g.isControl(line) {
		return []byte(line)
	}
	frame := line + "\n"
	if g.nick != "" {
		frame = fmt.Sprintf("[%s] %s", g.nick, frame)
	}
	if len(frame) > g.frameSize {
		// Cut on a rune boundary so the room never relays half a character
		end := g.frameSize
		for end > 0 && !utf8.RuneStart(frame[end]) {
			end--
		}
		frame = frame[:end]
	}
	return []byte(frame)
}

// Run relays lines from in to the room and frames from the room to out.
// It returns nil after sending the quit token, on end of input, when the
// room closes the connection or when ctx is canceled.
func (g *Guest) Run(ctx context.Context, conn net.Conn, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	received := make(chan error, 1)
	go func() { received <- g.receive(conn, out) }()

	lines := make(chan string)
	go g.scan(ctx, in, lines)

	for {
		select {
		case <-ctx.Done():
			g.log.Debug("Leaving the room (signal)")
			return g.leave(conn)
		case err := <-received:
			if err == nil {
				g.log.Info("Room closed the connection")
			}
			return err
		case line, ok := <-lines:
			if !ok {
				g.log.Debug("Leaving the room (end of input)")
				return g.leave(conn)
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := g.send(conn, g.Frame(line)); err != nil {
				return err
			}
			if strings.TrimRight(line, "\r\n") == g.quitToken {
				return nil
			}
		}
	}
}

func (g *Guest) isControl(line string) bool {
	return line == g.quitToken || (g.historyToken != "" && line == g.historyToken)
}

func (g *Guest) scan(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		g.log.Warn("Error while reading input", "error", err)
	}
}

func (g *Guest) receive(conn net.Conn, out io.Writer) error {
	buf := make([]byte, g.frameSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := out.Write(g.render(buf[:n])); werr != nil {
				return werr
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return nil
		default:
			return fmt.Errorf("receive failed: %w", err)
		}
	}
}

// render colours the sender's nick when colours are on.
func (g *Guest) render(frame []byte) []byte {
	if !g.colours {
		return frame
	}
	prefix, body := domain.SplitName(frame)
	if prefix == nil {
		return frame
	}
	return append([]byte(color.New(color.FgCyan, color.OpBold).Render(string(prefix))), body...)
}

func (g *Guest) send(conn net.Conn, frame []byte) error {
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func (g *Guest) leave(conn net.Conn) error {
	return g.send(conn, []byte(g.quitToken))
}
