// Package router dispatches decoded server-to-client messages to the surface
// registry and the data model store.
package router

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/surface"
)

// maxLine bounds a single JSONL message.
const maxLine = 4 << 20

// Router applies messages for one session. Messages for the same surface are
// applied strictly in the order Dispatch is called; different surfaces do
// not block each other.
type Router struct {
	registry  *surface.Registry
	validator *protocol.Validator
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	observers []Observer
}

// Observer is notified after a message has been applied.
type Observer interface {
	Applied(messageID string, env protocol.Envelope)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(messageID string, env protocol.Envelope)

func (f ObserverFunc) Applied(messageID string, env protocol.Envelope) { f(messageID, env) }

// Option configures a Router.
type Option func(*Router)

// WithValidator checks every raw line against the envelope schema before it
// is decoded.
func WithValidator(v *protocol.Validator) Option {
	return func(r *Router) { r.validator = v }
}

// WithObserver registers an observer for applied messages.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observers = append(r.observers, o) }
}

// New creates a router over registry. A nil logger uses slog.Default.
func New(registry *surface.Registry, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		registry: registry,
		logger:   logger.With("component", "router"),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) surfaceLock(surfaceID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[surfaceID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[surfaceID] = l
	}
	return l
}

// Dispatch applies one decoded message. messageID is the chat message the
// stream belongs to; an id carried on the envelope itself takes precedence.
// Operations on deleted surfaces return surface.ErrSurfaceNotFound and leave
// all state unchanged. Malformed messages are logged and dropped.
func (r *Router) Dispatch(ctx context.Context, messageID string, env protocol.Envelope) error {
	err := r.dispatch(ctx, messageID, env)
	r.logDropped(err)
	return err
}

func (r *Router) dispatch(ctx context.Context, messageID string, env protocol.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if env.MessageID != "" {
		messageID = env.MessageID
	}
	surfaceID := env.SurfaceID()
	if surfaceID == "" {
		return fmt.Errorf("%w: no surface id", protocol.ErrMalformedMessage)
	}

	l := r.surfaceLock(surfaceID)
	l.Lock()
	err := r.apply(messageID, surfaceID, env)
	l.Unlock()
	if r.registry.Deleted(surfaceID) {
		r.dropLock(surfaceID)
	}
	if err != nil {
		return err
	}

	r.logger.Debug("message applied", "type", env.Type, "surface", surfaceID, "message", messageID)
	for _, o := range r.observers {
		o.Applied(messageID, env)
	}
	return nil
}

// dropLock forgets a deleted surface's lock. Later messages for it are
// no-ops against the tombstone.
func (r *Router) dropLock(surfaceID string) {
	r.mu.Lock()
	delete(r.locks, surfaceID)
	r.mu.Unlock()
}

func (r *Router) logDropped(err error, args ...any) {
	if errors.Is(err, protocol.ErrMalformedMessage) {
		r.logger.Warn("malformed message dropped", append(args, "err", err)...)
	}
}

func (r *Router) apply(messageID, surfaceID string, env protocol.Envelope) error {
	switch env.Type {
	case protocol.TypeSurfaceUpdate:
		nodes := make([]surface.ComponentNode, 0, len(env.SurfaceUpdate.Components))
		for _, def := range env.SurfaceUpdate.Components {
			nodes = append(nodes, surface.ComponentNode{ID: def.ID, Component: def.Component})
		}
		return r.registry.CreateOrUpdate(surfaceID, nodes, messageID)

	case protocol.TypeDataModelUpdate:
		if err := r.registry.Touch(surfaceID, messageID); err != nil {
			return err
		}
		u := env.DataModelUpdate
		path := u.Path
		if path == "" {
			path = "/"
		}
		return r.registry.Store().Set(surfaceID, path, u.Entries())

	case protocol.TypeBeginRendering:
		return r.registry.BeginRendering(surfaceID, env.BeginRendering.RootID(), messageID)

	case protocol.TypeDeleteSurface:
		return r.registry.Delete(surfaceID)

	default:
		return fmt.Errorf("%w: unknown type %q", protocol.ErrMalformedMessage, env.Type)
	}
}

// Stats summarises one consumed stream.
type Stats struct {
	Applied   int
	Malformed int
	Rejected  int
}

// DispatchRaw validates, decodes and applies one raw message. Malformed
// messages are logged and dropped.
func (r *Router) DispatchRaw(ctx context.Context, messageID string, raw []byte) error {
	err := r.dispatchRaw(ctx, messageID, raw)
	r.logDropped(err)
	return err
}

func (r *Router) dispatchRaw(ctx context.Context, messageID string, raw []byte) error {
	if r.validator != nil {
		if err := r.validator.Validate(raw); err != nil {
			return err
		}
	}
	env, err := protocol.Decode(raw)
	if err != nil {
		return err
	}
	return r.dispatch(ctx, messageID, env)
}

// Consume reads one JSON message per line from rd and applies each in order.
// Malformed lines are logged and skipped; the stream continues. Consume
// returns when rd is exhausted, on a read error, or when ctx is done.
func (r *Router) Consume(ctx context.Context, messageID string, rd io.Reader) (Stats, error) {
	var st Stats
	br := bufio.NewReaderSize(rd, 64*1024)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		line, readErr := readLine(br)
		if len(line) > 0 {
			lineNo++
			r.consumeLine(ctx, messageID, lineNo, line, &st)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return st, nil
			}
			return st, fmt.Errorf("read stream: %w", readErr)
		}
	}
}

func (r *Router) consumeLine(ctx context.Context, messageID string, lineNo int, line []byte, st *Stats) {
	err := r.dispatchRaw(ctx, messageID, line)
	switch {
	case err == nil:
		st.Applied++
	case errors.Is(err, protocol.ErrMalformedMessage):
		st.Malformed++
		r.logDropped(err, "line", lineNo)
	case errors.Is(err, surface.ErrSurfaceNotFound):
		st.Rejected++
	default:
		st.Rejected++
		r.logger.Warn("message rejected", "line", lineNo, "err", err)
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLine is replaced by a single '!' so it fails to decode.
func readLine(br *bufio.Reader) ([]byte, error) {
	var (
		buf      []byte
		overflow bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if !overflow {
			if len(buf)+len(chunk) > maxLine {
				overflow = true
				buf = []byte{'!'}
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimSpace(buf), err
	}
}
