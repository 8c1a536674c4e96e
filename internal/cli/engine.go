package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/yolodolo42/a2ui/internal/auth"
	"github.com/yolodolo42/a2ui/internal/history"
	"github.com/yolodolo42/a2ui/internal/journal"
	"github.com/yolodolo42/a2ui/internal/outbound"
	"github.com/yolodolo42/a2ui/internal/session"
)

// engine is a session plus the persistence it was opened with.
type engine struct {
	*session.Session
	journal *journal.Store
	history *history.Logger
}

func (e *engine) Close() {
	if e.history != nil {
		e.history.Close()
	}
	if e.journal != nil {
		_ = e.journal.Close()
	}
}

func buildTransport(s Settings) (outbound.Transport, error) {
	switch s.TransportKind {
	case "", "none":
		return nil, nil
	case "stdout":
		return &outbound.Writer{W: os.Stdout}, nil
	case "websocket", "ws":
		if s.TransportURL == "" {
			return nil, fmt.Errorf("transport.url is required for websocket transport")
		}
		ws := outbound.NewWebSocket(s.TransportURL, s.TransportTimeout)
		ws.Header = endpointHeader(s)
		return ws, nil
	case "http":
		if s.TransportURL == "" {
			return nil, fmt.Errorf("transport.url is required for http transport")
		}
		h := outbound.NewHTTP(s.TransportURL, s.TransportTimeout)
		h.Header = endpointHeader(s)
		return h, nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", s.TransportKind)
	}
}

// endpointHeader authenticates against the configured endpoint. A token set
// in the config or environment wins over the credential store.
func endpointHeader(s Settings) http.Header {
	if s.TransportToken != "" {
		return http.Header{"Authorization": {"Bearer " + s.TransportToken}}
	}
	store, err := auth.NewStore(s.DataDir)
	if err != nil {
		slog.Warn("credential store unavailable", "err", err)
		return nil
	}
	return store.Header(s.TransportURL)
}

// openEngine builds a session from settings. Persistence failures degrade to
// a warning; the session still works without them.
func openEngine(s Settings, withTransport bool) (*engine, error) {
	var opts session.Options
	opts.ID = uuid.NewString()
	opts.ThreadID = s.ThreadID
	opts.Strict = s.Strict
	opts.Logger = slog.Default()

	if withTransport {
		t, err := buildTransport(s)
		if err != nil {
			return nil, err
		}
		opts.Transport = t
	}

	e := &engine{}
	if s.Journal && withTransport && opts.Transport != nil {
		j, err := journal.Open(s.DataDir)
		if err != nil {
			slog.Warn("action journal disabled", "err", err)
		} else {
			e.journal = j
			opts.Recorder = j
		}
	}
	if s.History {
		h, err := history.Open(s.DataDir, opts.ID)
		if err != nil {
			slog.Warn("session log disabled", "err", err)
		} else {
			e.history = h
			opts.History = h
		}
	}

	sess, err := session.New(opts)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Session = sess
	return e, nil
}
