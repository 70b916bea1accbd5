package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JamesPrial/komikshub-bot/pkg/chat"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// Console identity used by the stdio transport
const (
	ConsoleUserID = 1
	ConsoleChatID = 1
)

// StdioTransport drives the bot from a terminal. Each input line is one
// event: "/name" is a command, "#token" presses a button and anything else
// is text. The console user is privileged.
type StdioTransport struct {
	in      io.Reader
	out     io.Writer
	outMu   sync.Mutex
	running atomic.Bool
	logger  *slog.Logger
}

// NewStdioTransport creates a transport on stdin and stdout
func NewStdioTransport() *StdioTransport {
	return NewStdioTransportWithIO(os.Stdin, os.Stdout)
}

// NewStdioTransportWithIO creates a transport on the given reader and writer
func NewStdioTransportWithIO(in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		in:     in,
		out:    out,
		logger: logging.GetGlobalLogger("transport.stdio"),
	}
}

// Start reads events until EOF, Stop or ctx cancellation
func (t *StdioTransport) Start(ctx context.Context, handler Handler) error {
	t.running.Store(true)
	ctx = logging.WithTransport(ctx, t.Name())

	t.logger.InfoContext(ctx, "StdIO transport starting")

	scanner := bufio.NewScanner(t.in)
	for t.running.Load() && scanner.Scan() {
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "StdIO transport context cancelled")
			return ctx.Err()
		default:
		}

		ev, ok := ParseConsoleLine(scanner.Text())
		if !ok {
			continue
		}

		start := time.Now()
		reply := handler(ctx, ev)
		t.logger.DebugContext(ctx, "Console event handled",
			slog.String("kind", string(ev.Kind)),
			slog.Bool("replied", reply != nil),
			slog.Duration("duration", time.Since(start)),
		)
		if reply != nil {
			if err := t.write(reply); err != nil {
				return fmt.Errorf("error writing to stdout: %w", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		t.logger.ErrorContext(ctx, "Error reading from stdin", slog.String("error", err.Error()))
		return fmt.Errorf("error reading from stdin: %w", err)
	}

	t.logger.InfoContext(ctx, "StdIO transport stopped")
	return nil
}

// ParseConsoleLine turns one console line into an event. Blank lines yield
// false.
func ParseConsoleLine(line string) (chat.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return chat.Event{}, false
	}
	ev := chat.Event{
		UserID:     ConsoleUserID,
		ChatID:     ConsoleChatID,
		ChatType:   chat.ChatPrivate,
		Kind:       chat.KindText,
		Payload:    line,
		Privileged: true,
	}
	switch {
	case strings.HasPrefix(line, "/") && len(line) > 1:
		name, _, _ := strings.Cut(line[1:], " ")
		name, _, _ = strings.Cut(name, "@")
		ev.Kind, ev.Payload = chat.KindCommand, strings.ToLower(name)
	case strings.HasPrefix(line, "#") && len(line) > 1:
		ev.Kind, ev.Payload = chat.KindButtonClick, line[1:]
	}
	return ev, true
}

// write prints a reply followed by its buttons, one per line
func (t *StdioTransport) write(reply *chat.Reply) error {
	var b strings.Builder
	b.WriteString(reply.Text)
	b.WriteByte('\n')
	for _, a := range reply.Actions {
		if a.URL != "" {
			fmt.Fprintf(&b, "  [%s] %s\n", a.Label, a.URL)
		} else {
			fmt.Fprintf(&b, "  [%s] #%s\n", a.Label, a.Token)
		}
	}

	t.outMu.Lock()
	defer t.outMu.Unlock()
	_, err := io.WriteString(t.out, b.String())
	return err
}

// Stop makes Start return after the current line
func (t *StdioTransport) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "StdIO transport stopping")
	t.running.Store(false)
	return nil
}

// Name returns the name of the transport
func (t *StdioTransport) Name() string {
	return "stdio"
}
