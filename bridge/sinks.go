package bridge

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/treebridge/bridge/internal/config"
	"github.com/hazyhaar/treebridge/bridge/internal/sink"
	"github.com/hazyhaar/treebridge/journal"
)

// Sink is the output interface for outbound envelopes.
type Sink = sink.Sink

// MessageFunc is called for each outbound envelope.
type MessageFunc = sink.MessageFunc

// NewStdoutSink creates a JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, retries int, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return sink.NewWebhook(url, sink.WithWebhookRetries(retries), sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink: the logic context
// receives typed messages with no serialisation.
func NewCallbackSink(fn MessageFunc) Sink {
	return sink.NewCallback(fn)
}

// SinksFromConfig builds the sinks cfg lists. A journal sink requires j.
func SinksFromConfig(cfg *Config, j *journal.Journal, stdout io.Writer, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	for i, sc := range cfg.Sinks {
		switch sc.Type {
		case config.SinkStdout:
			out = append(out, NewStdoutSink(stdout))
		case config.SinkWebhook:
			out = append(out, NewWebhookSink(sc.URL, sc.Retries, logger))
		case config.SinkJournal:
			if j == nil {
				return nil, fmt.Errorf("bridge: sinks[%d]: journal sink without an open journal", i)
			}
			out = append(out, j.Sink())
		default:
			return nil, fmt.Errorf("bridge: sinks[%d]: unknown type %q", i, sc.Type)
		}
	}
	return out, nil
}
