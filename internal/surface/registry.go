package surface

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/protocol"
)

// ErrSurfaceNotFound is returned for operations on unknown or deleted
// surfaces. Callers treat it as a logged no-op.
var ErrSurfaceNotFound = errors.New("surface not found")

// RenderingState is the lifecycle state of a surface.
type RenderingState int

const (
	StatePending RenderingState = iota
	StateRendering
)

func (s RenderingState) String() string {
	if s == StateRendering {
		return "rendering"
	}
	return "pending"
}

// ComponentNode is one entry of the flat component map.
type ComponentNode struct {
	ID        string
	Component protocol.Component
}

// Surface is a snapshot of one surface record. Registry methods return
// copies; mutating them does not affect the registry.
type Surface struct {
	ID              string
	Components      map[string]*ComponentNode
	RootID          string
	State           RenderingState
	OriginMessageID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Surface) clone() *Surface {
	out := *s
	out.Components = make(map[string]*ComponentNode, len(s.Components))
	for id, n := range s.Components {
		c := *n
		out.Components[id] = &c
	}
	return &out
}

// Registry owns the component graphs, root pointers and lifecycle state of
// every surface in one session.
type Registry struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
	order    []string
	deleted  map[string]struct{}
	store    *datamodel.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistry creates a registry backed by store. A nil logger uses
// slog.Default.
func NewRegistry(store *datamodel.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		surfaces: make(map[string]*Surface),
		deleted:  make(map[string]struct{}),
		store:    store,
		logger:   logger.With("component", "surface"),
		now:      time.Now,
	}
}

// Store returns the data model store shared with this registry.
func (r *Registry) Store() *datamodel.Store { return r.store }

// CreateOrUpdate upserts nodes by id, creating the surface on first
// reference. originMessageID is recorded only the first time it is
// non-empty.
func (r *Registry) CreateOrUpdate(surfaceID string, nodes []ComponentNode, originMessageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.touchLocked(surfaceID, originMessageID)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.ID == "" || n.Component == nil {
			continue
		}
		node := n
		s.Components[n.ID] = &node
		if _, unknown := n.Component.(protocol.Unknown); unknown {
			r.logger.Debug("unknown component kind stored", "surface", surfaceID, "id", n.ID)
		}
	}
	s.UpdatedAt = r.now()
	return nil
}

// BeginRendering sets the root and flips the surface to rendering. The
// subtree does not need to be complete.
func (r *Registry) BeginRendering(surfaceID, rootID, originMessageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.touchLocked(surfaceID, originMessageID)
	if err != nil {
		return err
	}
	s.RootID = rootID
	s.State = StateRendering
	s.UpdatedAt = r.now()
	return nil
}

// Touch creates the surface record if needed and records the origin message.
func (r *Registry) Touch(surfaceID, originMessageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.touchLocked(surfaceID, originMessageID)
	return err
}

func (r *Registry) touchLocked(surfaceID, originMessageID string) (*Surface, error) {
	if _, gone := r.deleted[surfaceID]; gone {
		r.logger.Warn("operation on deleted surface ignored", "surface", surfaceID)
		return nil, fmt.Errorf("%w: %s was deleted", ErrSurfaceNotFound, surfaceID)
	}
	s, ok := r.surfaces[surfaceID]
	if !ok {
		now := r.now()
		s = &Surface{
			ID:         surfaceID,
			Components: make(map[string]*ComponentNode),
			State:      StatePending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		r.surfaces[surfaceID] = s
		r.order = append(r.order, surfaceID)
	}
	if s.OriginMessageID == "" && originMessageID != "" {
		s.OriginMessageID = originMessageID
	}
	return s, nil
}

// Delete removes every trace of the surface, including its data model, and
// tombstones the id so it is never reused.
func (r *Registry) Delete(surfaceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.deleted[surfaceID]; gone {
		r.logger.Warn("surface already deleted", "surface", surfaceID)
		return fmt.Errorf("%w: %s", ErrSurfaceNotFound, surfaceID)
	}
	_, existed := r.surfaces[surfaceID]
	delete(r.surfaces, surfaceID)
	r.deleted[surfaceID] = struct{}{}
	for i, id := range r.order {
		if id == surfaceID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.store != nil {
		r.store.Delete(surfaceID)
	}
	if !existed {
		r.logger.Warn("deleted unknown surface", "surface", surfaceID)
		return fmt.Errorf("%w: %s", ErrSurfaceNotFound, surfaceID)
	}
	return nil
}

// Deleted reports whether surfaceID has been deleted.
func (r *Registry) Deleted(surfaceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, gone := r.deleted[surfaceID]
	return gone
}

// Get returns a copy of the surface record.
func (r *Registry) Get(surfaceID string) (*Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.surfaces[surfaceID]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// ByMessageID returns, in creation order, the surfaces first produced by the
// given chat message.
func (r *Registry) ByMessageID(messageID string) []*Surface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Surface
	if messageID == "" {
		return out
	}
	for _, id := range r.order {
		if s := r.surfaces[id]; s.OriginMessageID == messageID {
			out = append(out, s.clone())
		}
	}
	return out
}

// List returns the live surface ids in creation order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Component returns one node of a surface.
func (r *Registry) Component(surfaceID, componentID string) (ComponentNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.surfaces[surfaceID]
	if !ok {
		return ComponentNode{}, false
	}
	n, ok := s.Components[componentID]
	if !ok {
		return ComponentNode{}, false
	}
	return *n, true
}
