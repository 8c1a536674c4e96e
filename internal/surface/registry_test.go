package surface

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/protocol"
)

func newTestRegistry() *Registry {
	return NewRegistry(datamodel.NewStore(nil), nil)
}

func text(s string) protocol.Component {
	return protocol.Text{Text: protocol.LiteralString(s)}
}

func column(ids ...string) protocol.Component {
	return protocol.NewLayout(protocol.KindColumn, protocol.Children{Explicit: ids})
}

// shape reduces a view to ids, with "?" marking pending nodes.
func shape(v View) any {
	id := v.ID
	if v.Pending {
		id += "?"
	}
	if len(v.Children) == 0 {
		return id
	}
	kids := make([]any, 0, len(v.Children))
	for _, c := range v.Children {
		kids = append(kids, shape(c))
	}
	return map[string]any{id: kids}
}

func TestRegistry_CreateOrUpdate(t *testing.T) {
	t.Run("creates on first reference and upserts", func(t *testing.T) {
		r := newTestRegistry()
		require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "t", Component: text("one")}}, ""))
		require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "t", Component: text("two")}}, ""))

		n, ok := r.Component("s1", "t")
		require.True(t, ok)
		assert.Equal(t, text("two"), n.Component)
		assert.Equal(t, []string{"s1"}, r.List())
	})

	t.Run("snapshots do not alias the registry", func(t *testing.T) {
		r := newTestRegistry()
		require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "t", Component: text("one")}}, ""))

		snap, ok := r.Get("s1")
		require.True(t, ok)
		snap.Components["t"].Component = text("changed")
		snap.Components["t"].ID = "x"

		n, ok := r.Component("s1", "t")
		require.True(t, ok)
		assert.Equal(t, "t", n.ID)
		assert.Equal(t, text("one"), n.Component)
	})

	t.Run("later nodes in a batch win", func(t *testing.T) {
		r := newTestRegistry()
		require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{
			{ID: "t", Component: text("first")},
			{ID: "t", Component: text("second")},
		}, ""))
		n, _ := r.Component("s1", "t")
		assert.Equal(t, text("second"), n.Component)
	})

	t.Run("origin message is first writer wins", func(t *testing.T) {
		r := newTestRegistry()
		require.NoError(t, r.CreateOrUpdate("s1", nil, ""))
		require.NoError(t, r.CreateOrUpdate("s1", nil, "m1"))
		require.NoError(t, r.CreateOrUpdate("s1", nil, "m2"))
		require.NoError(t, r.BeginRendering("s1", "root", "m3"))

		s, ok := r.Get("s1")
		require.True(t, ok)
		assert.Equal(t, "m1", s.OriginMessageID)
		assert.Len(t, r.ByMessageID("m1"), 1)
		assert.Empty(t, r.ByMessageID("m2"))
	})

	t.Run("one message spawns several surfaces", func(t *testing.T) {
		r := newTestRegistry()
		require.NoError(t, r.CreateOrUpdate("a", nil, "m1"))
		require.NoError(t, r.CreateOrUpdate("b", nil, "m1"))
		require.NoError(t, r.CreateOrUpdate("c", nil, "m2"))

		got := r.ByMessageID("m1")
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ID)
		assert.Equal(t, "b", got[1].ID)
	})

	t.Run("reapplying an update is idempotent", func(t *testing.T) {
		r := newTestRegistry()
		nodes := []ComponentNode{{ID: "col", Component: column("t")}, {ID: "t", Component: text("x")}}
		require.NoError(t, r.CreateOrUpdate("s1", nodes, "m1"))
		first, _ := r.Get("s1")
		require.NoError(t, r.CreateOrUpdate("s1", nodes, "m1"))
		second, _ := r.Get("s1")

		assert.Equal(t, first.Components, second.Components)
		assert.Equal(t, first.OriginMessageID, second.OriginMessageID)
	})
}

func TestRegistry_PartialRender(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "root", Component: column("title", "body")}}, ""))
	require.NoError(t, r.BeginRendering("s1", "root", ""))

	v, ok := r.Project("s1")
	require.True(t, ok)
	if diff := cmp.Diff(map[string]any{"root": []any{"title?", "body?"}}, shape(v)); diff != "" {
		t.Fatalf("projection mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"title", "body"}, PendingIDs(v))

	require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "title", Component: text("Hello")}}, ""))
	v, _ = r.Project("s1")
	if diff := cmp.Diff(map[string]any{"root": []any{"title", "body?"}}, shape(v)); diff != "" {
		t.Fatalf("projection mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "body", Component: text("World")}}, ""))
	v, _ = r.Project("s1")
	assert.Empty(t, PendingIDs(v))
}

func TestRegistry_ProjectBeforeRoot(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "t", Component: text("x")}}, ""))
	_, ok := r.Project("s1")
	assert.False(t, ok)

	require.NoError(t, r.BeginRendering("s1", "missing-root", ""))
	v, ok := r.Project("s1")
	require.True(t, ok)
	assert.True(t, v.Pending)
}

func TestRegistry_CyclesAreCut(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{
		{ID: "a", Component: column("b")},
		{ID: "b", Component: column("a")},
	}, ""))
	require.NoError(t, r.BeginRendering("s1", "a", ""))

	v, ok := r.Project("s1")
	require.True(t, ok)
	if diff := cmp.Diff(map[string]any{"a": []any{map[string]any{"b": []any{"a"}}}}, shape(v)); diff != "" {
		t.Fatalf("projection mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_TemplateChildren(t *testing.T) {
	r := newTestRegistry()
	store := r.Store()
	require.NoError(t, store.Set("s1", "/items", []datamodel.Entry{
		{Key: "0", Value: datamodel.Map(map[string]datamodel.Value{"title": datamodel.String("first")})},
		{Key: "1", Value: datamodel.Map(map[string]datamodel.Value{"title": datamodel.String("second")})},
	}))
	list := protocol.NewLayout(protocol.KindList, protocol.Children{
		Template: &protocol.Template{ComponentID: "item", DataBinding: "/items"},
	})
	require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{
		{ID: "list", Component: list},
		{ID: "item", Component: protocol.Text{Text: protocol.PathRef("title")}},
	}, ""))
	require.NoError(t, r.BeginRendering("s1", "list", ""))

	v, ok := r.Project("s1")
	require.True(t, ok)
	require.Len(t, v.Children, 2)
	assert.Equal(t, "/items/0", v.Children[0].Scope)
	assert.Equal(t, "/items/1", v.Children[1].Scope)

	props := v.Children[1].Component.ResolveProps(store.Scope("s1", v.Children[1].Scope))
	assert.Equal(t, protocol.TextProps{Text: "second"}, props)
}

func TestRegistry_Delete(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "t", Component: text("x")}}, "m1"))
	require.NoError(t, r.Store().Put("s1", "/a", datamodel.String("b")))
	require.NoError(t, r.BeginRendering("s1", "t", ""))

	require.NoError(t, r.Delete("s1"))

	_, ok := r.Get("s1")
	assert.False(t, ok)
	_, ok = r.Project("s1")
	assert.False(t, ok)
	_, ok = r.Store().Get("s1", "/a")
	assert.False(t, ok)
	assert.Empty(t, r.List())
	assert.Empty(t, r.ByMessageID("m1"))

	assert.ErrorIs(t, r.CreateOrUpdate("s1", []ComponentNode{{ID: "t", Component: text("y")}}, ""), ErrSurfaceNotFound)
	assert.ErrorIs(t, r.BeginRendering("s1", "t", ""), ErrSurfaceNotFound)
	assert.ErrorIs(t, r.Delete("s1"), ErrSurfaceNotFound)
	assert.Empty(t, r.List(), "deleted ids never reappear")

	assert.ErrorIs(t, r.Delete("never-existed"), ErrSurfaceNotFound)
	assert.True(t, r.Deleted("never-existed"))
}
