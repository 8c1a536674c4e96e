// Package outbound delivers resolved UserActions to the agent backend.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yolodolo42/a2ui/internal/protocol"
)

// ErrNoTransport is returned by Send when the channel has no transport.
var ErrNoTransport = errors.New("no outbound transport configured")

// Envelope wraps one UserAction with the conversation identifiers the
// backend expects.
type Envelope struct {
	ThreadID   string              `json:"threadId"`
	RunID      string              `json:"runId"`
	UserAction protocol.UserAction `json:"userAction"`
}

// Transport delivers an envelope. The returned stream carries the backend's
// reply as JSON lines and must be closed by the caller.
type Transport interface {
	Send(ctx context.Context, env Envelope) (io.ReadCloser, error)
}

// Status is the outcome of one delivery attempt.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Recorder persists delivery attempts.
type Recorder interface {
	Record(ctx context.Context, env Envelope, status Status, sendErr error) error
}

// Channel stamps actions with thread and run ids and hands them to a
// transport. Delivery is attempted once.
type Channel struct {
	threadID  string
	transport Transport
	recorder  Recorder
	logger    *slog.Logger
	newRunID  func() string
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithRecorder records every attempt.
func WithRecorder(r Recorder) ChannelOption {
	return func(c *Channel) { c.recorder = r }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(fn func() string) ChannelOption {
	return func(c *Channel) { c.newRunID = fn }
}

// NewChannel creates a channel for one conversation thread. An empty
// threadID gets a random one.
func NewChannel(threadID string, t Transport, logger *slog.Logger, opts ...ChannelOption) *Channel {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Channel{
		threadID:  threadID,
		transport: t,
		logger:    logger.With("component", "outbound"),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ThreadID returns the conversation thread this channel sends on.
func (c *Channel) ThreadID() string { return c.threadID }

// Envelope builds the envelope Send would deliver, with a fresh run id.
func (c *Channel) Envelope(ua protocol.UserAction) Envelope {
	return Envelope{ThreadID: c.threadID, RunID: c.newRunID(), UserAction: ua}
}

// Send delivers ua and returns the reply stream.
func (c *Channel) Send(ctx context.Context, ua protocol.UserAction) (io.ReadCloser, error) {
	return c.Deliver(ctx, c.Envelope(ua))
}

// HasTransport reports whether Deliver can reach a backend.
func (c *Channel) HasTransport() bool { return c.transport != nil }

// Deliver sends a prepared envelope once and records the outcome.
func (c *Channel) Deliver(ctx context.Context, env Envelope) (io.ReadCloser, error) {
	ua := env.UserAction
	if c.transport == nil {
		c.record(ctx, env, StatusFailed, ErrNoTransport)
		return nil, ErrNoTransport
	}

	body, err := c.transport.Send(ctx, env)
	if err != nil {
		c.logger.Warn("action delivery failed", "action", ua.Name, "run", env.RunID, "err", err)
		c.record(ctx, env, StatusFailed, err)
		return nil, fmt.Errorf("send %s: %w", ua.Name, err)
	}
	c.logger.Info("action sent", "action", ua.Name, "surface", ua.SurfaceID, "run", env.RunID)
	c.record(ctx, env, StatusSent, nil)
	return body, nil
}

func (c *Channel) record(ctx context.Context, env Envelope, status Status, sendErr error) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, env, status, sendErr); err != nil {
		c.logger.Warn("recording action failed", "run", env.RunID, "err", err)
	}
}
