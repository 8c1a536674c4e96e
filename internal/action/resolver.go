// Package action turns a component's declarative action descriptor into a
// concrete UserAction, and writes two-way bound input back into the data
// model.
//
// Bound inputs must call Write synchronously on every change. Resolve reads
// the store at call time, so a Write that returned before a gesture is always
// visible to the action that gesture fires.
package action

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/surface"
)

// ErrNotBindable is returned by Write for components without a data binding.
var ErrNotBindable = errors.New("component is not bound to the data model")

// Trigger identifies the component a gesture happened on. Scope is the data
// context of template-expanded components ("" at the top level).
type Trigger struct {
	SurfaceID   string
	ComponentID string
	Scope       string
}

// Resolver resolves actions against one session's registry and store.
type Resolver struct {
	registry *surface.Registry
	store    *datamodel.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver creates a resolver. A nil logger uses slog.Default.
func NewResolver(registry *surface.Registry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		registry: registry,
		store:    registry.Store(),
		logger:   logger.With("component", "action"),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve builds the UserAction for the component's action descriptor. It
// returns false, and emits nothing, when the surface or component is gone or
// the component carries no action.
func (r *Resolver) Resolve(t Trigger) (protocol.UserAction, bool) {
	node, ok := r.registry.Component(t.SurfaceID, t.ComponentID)
	if !ok {
		r.logger.Debug("action source not available", "surface", t.SurfaceID, "component", t.ComponentID)
		return protocol.UserAction{}, false
	}
	ac, ok := node.Component.(protocol.Actionable)
	if !ok || ac.ActionDescriptor().IsZero() {
		r.logger.Debug("component has no action", "surface", t.SurfaceID, "component", t.ComponentID)
		return protocol.UserAction{}, false
	}
	return r.ResolveDescriptor(t, ac.ActionDescriptor())
}

// ResolveDescriptor resolves an explicit descriptor on behalf of the trigger
// component. Literals are copied; paths are read from the store. A path that
// resolves to nothing still produces its key, with a nil value.
func (r *Resolver) ResolveDescriptor(t Trigger, a protocol.Action) (protocol.UserAction, bool) {
	ts := r.now()
	if r.store.Deleted(t.SurfaceID) || r.registry.Deleted(t.SurfaceID) {
		r.logger.Debug("action on deleted surface dropped", "surface", t.SurfaceID, "action", a.Name)
		return protocol.UserAction{}, false
	}

	scope := r.store.Scope(t.SurfaceID, t.Scope)
	ctx := make(map[string]any, len(a.Context))
	for _, entry := range a.Context {
		v, ok := entry.Value.Resolve(scope)
		if !ok {
			ctx[entry.Key] = nil
			continue
		}
		ctx[entry.Key] = v.Interface()
	}

	// The surface may have been deleted while the context was being read.
	if r.registry.Deleted(t.SurfaceID) {
		return protocol.UserAction{}, false
	}

	return protocol.UserAction{
		Name:              a.Name,
		SurfaceID:         t.SurfaceID,
		SourceComponentID: t.ComponentID,
		Context:           ctx,
		Timestamp:         ts,
	}, true
}

// Write stores a changed input value at the component's bound path.
func (r *Resolver) Write(t Trigger, v datamodel.Value) error {
	node, ok := r.registry.Component(t.SurfaceID, t.ComponentID)
	if !ok {
		return fmt.Errorf("%w: %s/%s", surface.ErrSurfaceNotFound, t.SurfaceID, t.ComponentID)
	}
	b, ok := node.Component.(protocol.Bindable)
	if !ok || !b.Binding().IsBound() {
		return fmt.Errorf("%w: %s", ErrNotBindable, t.ComponentID)
	}
	path := datamodel.Join(t.Scope, b.Binding().Path)
	if err := r.store.Put(t.SurfaceID, path, v); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// BoundPath returns the absolute data model path a component writes to.
func (r *Resolver) BoundPath(t Trigger) (string, bool) {
	node, ok := r.registry.Component(t.SurfaceID, t.ComponentID)
	if !ok {
		return "", false
	}
	b, ok := node.Component.(protocol.Bindable)
	if !ok || !b.Binding().IsBound() {
		return "", false
	}
	return datamodel.Join(t.Scope, b.Binding().Path), true
}
