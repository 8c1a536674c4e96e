// Package session wires one conversation's engine together: a registry and
// store, the router that feeds them, the action resolver, and the outbound
// channel. Sessions share nothing with each other.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yolodolo42/a2ui/internal/action"
	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/history"
	"github.com/yolodolo42/a2ui/internal/outbound"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/router"
	"github.com/yolodolo42/a2ui/internal/surface"
)

// Options configures a Session. The zero value is an offline session with a
// random id.
type Options struct {
	ID        string
	ThreadID  string
	Strict    bool
	Logger    *slog.Logger
	Transport outbound.Transport
	Recorder  outbound.Recorder
	History   *history.Logger
	Clock     func() time.Time
}

type Session struct {
	ID string

	registry *surface.Registry
	store    *datamodel.Store
	router   *router.Router
	resolver *action.Resolver
	channel  *outbound.Channel
	history  *history.Logger
	logger   *slog.Logger
}

// New builds a session.
func New(opts Options) (*Session, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)

	store := datamodel.NewStore(logger)
	registry := surface.NewRegistry(store, logger)

	var ropts []router.Option
	if opts.Strict {
		v, err := protocol.NewValidator()
		if err != nil {
			return nil, fmt.Errorf("compile envelope schema: %w", err)
		}
		ropts = append(ropts, router.WithValidator(v))
	}
	if opts.History != nil {
		ropts = append(ropts, router.WithObserver(opts.History))
	}

	resolver := action.NewResolver(registry, logger)
	if opts.Clock != nil {
		resolver.WithClock(opts.Clock)
	}

	var copts []outbound.ChannelOption
	if opts.Recorder != nil {
		copts = append(copts, outbound.WithRecorder(opts.Recorder))
	}

	return &Session{
		ID:       id,
		registry: registry,
		store:    store,
		router:   router.New(registry, logger, ropts...),
		resolver: resolver,
		channel:  outbound.NewChannel(opts.ThreadID, opts.Transport, logger, copts...),
		history:  opts.History,
		logger:   logger.With("component", "session"),
	}, nil
}

func (s *Session) Registry() *surface.Registry { return s.registry }
func (s *Session) Store() *datamodel.Store     { return s.store }
func (s *Session) Channel() *outbound.Channel  { return s.channel }
func (s *Session) Resolver() *action.Resolver  { return s.resolver }

// Apply dispatches one decoded message.
func (s *Session) Apply(ctx context.Context, messageID string, env protocol.Envelope) error {
	return s.router.Dispatch(ctx, messageID, env)
}

// DispatchRaw validates, decodes and applies one raw message.
func (s *Session) DispatchRaw(ctx context.Context, messageID string, raw []byte) error {
	return s.router.DispatchRaw(ctx, messageID, raw)
}

// Consume applies a JSONL stream belonging to messageID.
func (s *Session) Consume(ctx context.Context, messageID string, r io.Reader) (router.Stats, error) {
	return s.router.Consume(ctx, messageID, r)
}

// Input writes a bound component's new value into the data model.
func (s *Session) Input(t action.Trigger, v datamodel.Value) error {
	return s.resolver.Write(t, v)
}

// Resolve builds the UserAction a gesture on t would emit, without sending.
func (s *Session) Resolve(t action.Trigger) (protocol.UserAction, bool) {
	return s.resolver.Resolve(t)
}

// Result is the outcome of firing one action.
type Result struct {
	Action protocol.UserAction
	RunID  string
	Sent   bool
	Reply  router.Stats
}

// Fire resolves the action on t and, when a transport is configured, sends
// it and applies the reply stream under the run id. ok is false when the
// gesture produced no action.
func (s *Session) Fire(ctx context.Context, t action.Trigger) (res Result, ok bool, err error) {
	ua, ok := s.resolver.Resolve(t)
	if !ok {
		return Result{}, false, nil
	}
	return s.dispatch(ctx, ua)
}

// Dispatch sends an already resolved action the same way Fire does.
func (s *Session) Dispatch(ctx context.Context, ua protocol.UserAction) (Result, error) {
	res, _, err := s.dispatch(ctx, ua)
	return res, err
}

func (s *Session) dispatch(ctx context.Context, ua protocol.UserAction) (Result, bool, error) {
	env := s.channel.Envelope(ua)
	res := Result{Action: ua, RunID: env.RunID}
	if s.history != nil {
		s.history.Action(ua, env.RunID)
	}
	if !s.channel.HasTransport() {
		s.logger.Debug("action resolved offline", "action", ua.Name, "surface", ua.SurfaceID)
		return res, true, nil
	}

	body, err := s.channel.Deliver(ctx, env)
	if err != nil {
		return res, true, err
	}
	defer body.Close()
	res.Sent = true

	res.Reply, err = s.router.Consume(ctx, env.RunID, body)
	if err != nil {
		return res, true, fmt.Errorf("apply reply: %w", err)
	}
	return res, true, nil
}
