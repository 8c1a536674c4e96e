package surface

import (
	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/protocol"
)

const maxDepth = 64

// View is one node of a projected component tree. A Pending view stands for
// a child that is referenced but has not streamed in yet.
type View struct {
	ID        string
	Component protocol.Component
	Scope     string
	Pending   bool
	Children  []View
}

// Kind returns the component kind, or "" for pending views.
func (v View) Kind() protocol.Kind {
	if v.Component == nil {
		return ""
	}
	return v.Component.Kind()
}

// Project builds the tree reachable from the surface root. It is computed
// from the flat component map on every call, so nodes that arrived since the
// previous call appear without any explicit re-render. The boolean is false
// until the surface exists and has a root.
func (r *Registry) Project(surfaceID string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.surfaces[surfaceID]
	if !ok || s.State != StateRendering || s.RootID == "" {
		return View{}, false
	}
	p := projector{surface: s, store: r.store, ancestors: make(map[string]bool)}
	return p.build(s.RootID, "", 0), true
}

type projector struct {
	surface   *Surface
	store     *datamodel.Store
	ancestors map[string]bool
}

func (p *projector) build(id, scope string, depth int) View {
	n, ok := p.surface.Components[id]
	if !ok {
		return View{ID: id, Scope: scope, Pending: true}
	}
	v := View{ID: id, Component: n.Component, Scope: scope}

	key := id + "@" + scope
	if p.ancestors[key] || depth >= maxDepth {
		return v
	}
	p.ancestors[key] = true
	defer delete(p.ancestors, key)

	refs := n.Component.ChildRefs()
	for _, childID := range refs.Explicit {
		v.Children = append(v.Children, p.build(childID, scope, depth+1))
	}
	if t := refs.Template; t != nil && p.store != nil {
		base := datamodel.Join(scope, t.DataBinding)
		for _, k := range p.store.Keys(p.surface.ID, base) {
			v.Children = append(v.Children, p.build(t.ComponentID, datamodel.Join(base, k), depth+1))
		}
	}
	return v
}

// Walk visits v and its descendants depth-first. Returning false from fn
// skips the node's children.
func Walk(v View, fn func(View) bool) {
	if !fn(v) {
		return
	}
	for _, c := range v.Children {
		Walk(c, fn)
	}
}

// PendingIDs lists the ids referenced in the tree that have not arrived yet.
func PendingIDs(v View) []string {
	var out []string
	Walk(v, func(n View) bool {
		if n.Pending {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}
