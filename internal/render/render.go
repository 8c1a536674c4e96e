// Package render paints projected surfaces. Each component kind has a
// Renderer that receives resolved props and its already rendered children;
// renderers never read the data model or the registry themselves.
package render

import (
	"github.com/yolodolo42/a2ui/internal/action"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/surface"
)

// Element is what a renderer sees of one component.
type Element struct {
	ID      string
	Kind    protocol.Kind
	Scope   string
	Props   protocol.Props
	Focused bool
	Width   int
}

type Renderer interface {
	Render(el Element, children []string) string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(el Element, children []string) string

func (f RendererFunc) Render(el Element, children []string) string { return f(el, children) }

// Catalog maps component kinds to renderers. Kinds without a renderer fall
// back to stacking their children.
type Catalog struct {
	renderers map[protocol.Kind]Renderer
	pending   func(id string, width int) string
}

func NewCatalog() *Catalog {
	return &Catalog{renderers: make(map[protocol.Kind]Renderer)}
}

// Register installs or replaces the renderer for kind.
func (c *Catalog) Register(kind protocol.Kind, r Renderer) *Catalog {
	c.renderers[kind] = r
	return c
}

func (c *Catalog) Lookup(kind protocol.Kind) (Renderer, bool) {
	r, ok := c.renderers[kind]
	return r, ok
}

// Target is an interactive component, listed in paint order.
type Target struct {
	SurfaceID   string
	ComponentID string
	Scope       string
	Kind        protocol.Kind
	Actionable  bool
	Bindable    bool
}

// Key identifies a target across frames. Template rows share a component id
// and differ by scope.
func (t Target) Key() string { return t.ComponentID + "@" + t.Scope }

func (t Target) Trigger() action.Trigger {
	return action.Trigger{SurfaceID: t.SurfaceID, ComponentID: t.ComponentID, Scope: t.Scope}
}

// Frame is one painted surface.
type Frame struct {
	SurfaceID string
	Text      string
	Targets   []Target
	Pending   []string
}

// Find returns the target with the given key.
func (f Frame) Find(key string) (Target, bool) {
	for _, t := range f.Targets {
		if t.Key() == key {
			return t, true
		}
	}
	return Target{}, false
}

// Painter walks a projection and renders it bottom-up. Fire is the single
// way a painted surface talks back to the engine.
type Painter struct {
	Catalog *Catalog
	Width   int
	Fire    func(Target)
}

// Paint renders the surface. focus is a Target key; "" focuses nothing. The
// boolean is false while the surface has no root.
func (p *Painter) Paint(reg *surface.Registry, surfaceID, focus string) (Frame, bool) {
	v, ok := reg.Project(surfaceID)
	if !ok {
		return Frame{SurfaceID: surfaceID}, false
	}
	width := p.Width
	if width <= 0 {
		width = 80
	}
	w := walker{painter: p, reg: reg, surfaceID: surfaceID, focus: focus}
	w.frame.SurfaceID = surfaceID
	w.frame.Text = w.paint(v, width)
	return w.frame, true
}

// Activate hands t to the Fire callback.
func (p *Painter) Activate(t Target) {
	if p.Fire != nil && t.Actionable {
		p.Fire(t)
	}
}

type walker struct {
	painter   *Painter
	reg       *surface.Registry
	surfaceID string
	focus     string
	frame     Frame
}

func (w *walker) paint(v surface.View, width int) string {
	cat := w.painter.Catalog
	if v.Pending {
		w.frame.Pending = append(w.frame.Pending, v.ID)
		if cat != nil && cat.pending != nil {
			return cat.pending(v.ID, width)
		}
		return ""
	}

	el := Element{ID: v.ID, Kind: v.Kind(), Scope: v.Scope, Width: width}
	el.Props = v.Component.ResolveProps(w.reg.Store().Scope(w.surfaceID, v.Scope))

	_, actionable := v.Component.(protocol.Actionable)
	_, bindable := v.Component.(protocol.Bindable)
	if actionable || bindable {
		t := Target{
			SurfaceID:   w.surfaceID,
			ComponentID: v.ID,
			Scope:       v.Scope,
			Kind:        el.Kind,
			Actionable:  actionable,
			Bindable:    bindable,
		}
		el.Focused = w.focus != "" && t.Key() == w.focus
		w.frame.Targets = append(w.frame.Targets, t)
	}

	cw := childWidth(el.Kind, width, len(v.Children))
	children := make([]string, 0, len(v.Children))
	for _, c := range v.Children {
		children = append(children, w.paint(c, cw))
	}

	if cat != nil {
		if r, ok := cat.Lookup(el.Kind); ok {
			return r.Render(el, children)
		}
	}
	return stack(children)
}

func childWidth(kind protocol.Kind, width, n int) int {
	switch kind {
	case protocol.KindCard:
		width -= 4
	case protocol.KindRow:
		if n > 1 {
			width = (width - 2*(n-1)) / n
		}
	}
	if width < 8 {
		width = 8
	}
	return width
}
