package router

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/surface"
)

func newTestRouter(opts ...Option) (*Router, *surface.Registry) {
	reg := surface.NewRegistry(datamodel.NewStore(nil), nil)
	return New(reg, nil, opts...), reg
}

const stream = `{"type":"surfaceUpdate","surfaceId":"s1","components":[{"id":"col","component":{"Column":{"children":{"explicitList":["title","email"]}}}}]}
{"type":"beginRendering","surfaceId":"s1","root":"col"}
this is not json
{"type":"surfaceUpdate","surfaceId":"s1","components":[{"id":"title","component":{"Text":{"text":{"path":"/form/title"}}}}]}

{"type":"dataModelUpdate","surfaceId":"s1","path":"/form","contents":[{"key":"title","valueString":"Sign up"}]}
{"type":"launchRockets","surfaceId":"s1"}
`

func TestRouter_Consume(t *testing.T) {
	r, reg := newTestRouter()
	st, err := r.Consume(context.Background(), "m1", strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, Stats{Applied: 4, Malformed: 2}, st)

	s, ok := reg.Get("s1")
	require.True(t, ok)
	assert.Equal(t, surface.StateRendering, s.State)
	assert.Equal(t, "m1", s.OriginMessageID)

	v, ok := reg.Project("s1")
	require.True(t, ok)
	assert.Equal(t, []string{"email"}, surface.PendingIDs(v))

	title := v.Children[0]
	props := title.Component.ResolveProps(reg.Store().Scope("s1", title.Scope))
	assert.Equal(t, protocol.TextProps{Text: "Sign up"}, props)
}

func TestRouter_ConsumeWithoutTrailingNewline(t *testing.T) {
	r, reg := newTestRouter()
	st, err := r.Consume(context.Background(), "", strings.NewReader(`{"type":"deleteSurface","surfaceId":"gone"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Rejected)
	assert.True(t, reg.Deleted("gone"))
}

func TestRouter_DataModelUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the surface and defaults to the root path", func(t *testing.T) {
		r, reg := newTestRouter()
		require.NoError(t, r.DispatchRaw(ctx, "m1", []byte(`{"type":"dataModelUpdate","surfaceId":"s1","contents":[{"key":"a","valueNumber":1}]}`)))

		s, ok := reg.Get("s1")
		require.True(t, ok)
		assert.Equal(t, surface.StatePending, s.State)
		v, ok := reg.Store().Get("s1", "/a")
		require.True(t, ok)
		assert.True(t, v.Equal(datamodel.Number(1)))
	})

	t.Run("envelope message id wins", func(t *testing.T) {
		r, reg := newTestRouter()
		require.NoError(t, r.DispatchRaw(ctx, "outer", []byte(`{"type":"dataModelUpdate","surfaceId":"s1","messageId":"inner","contents":[]}`)))
		assert.Len(t, reg.ByMessageID("inner"), 1)
		assert.Empty(t, reg.ByMessageID("outer"))
	})
}

func TestRouter_DeleteIsFinal(t *testing.T) {
	ctx := context.Background()
	r, reg := newTestRouter()
	require.NoError(t, r.DispatchRaw(ctx, "m1", []byte(`{"type":"surfaceUpdate","surfaceId":"s1","components":[{"id":"t","component":{"Text":{"text":"hi"}}}]}`)))
	require.NoError(t, r.DispatchRaw(ctx, "m1", []byte(`{"type":"deleteSurface","surfaceId":"s1"}`)))
	assert.NotContains(t, r.locks, "s1")

	late := []string{
		`{"type":"surfaceUpdate","surfaceId":"s1","components":[{"id":"t","component":{"Text":{"text":"back"}}}]}`,
		`{"type":"dataModelUpdate","surfaceId":"s1","contents":[{"key":"a","valueString":"b"}]}`,
		`{"type":"beginRendering","surfaceId":"s1","root":"t"}`,
		`{"type":"deleteSurface","surfaceId":"s1"}`,
	}
	for _, raw := range late {
		assert.ErrorIs(t, r.DispatchRaw(ctx, "m2", []byte(raw)), surface.ErrSurfaceNotFound)
	}
	_, ok := reg.Get("s1")
	assert.False(t, ok)
	_, ok = reg.Store().Snapshot("s1")
	assert.False(t, ok)
	assert.NotContains(t, r.locks, "s1")
}

func TestRouter_LogsMalformed(t *testing.T) {
	var buf bytes.Buffer
	reg := surface.NewRegistry(datamodel.NewStore(nil), nil)
	r := New(reg, slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	t.Run("raw", func(t *testing.T) {
		buf.Reset()
		err := r.DispatchRaw(ctx, "m1", []byte("not json"))
		require.ErrorIs(t, err, protocol.ErrMalformedMessage)
		assert.Contains(t, buf.String(), "malformed message dropped")
	})

	t.Run("decoded without surface", func(t *testing.T) {
		buf.Reset()
		err := r.Dispatch(ctx, "m1", protocol.Envelope{Type: protocol.TypeDeleteSurface})
		require.ErrorIs(t, err, protocol.ErrMalformedMessage)
		assert.Contains(t, buf.String(), "malformed message dropped")
	})

	t.Run("consume logs once per line", func(t *testing.T) {
		buf.Reset()
		_, err := r.Consume(ctx, "m1", strings.NewReader("nope\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(buf.String(), "malformed message dropped"))
		assert.Contains(t, buf.String(), "line=1")
	})
}

func TestRouter_Strict(t *testing.T) {
	v, err := protocol.NewValidator()
	require.NoError(t, err)
	r, reg := newTestRouter(WithValidator(v))

	err = r.DispatchRaw(context.Background(), "", []byte(`{"type":"surfaceUpdate","surfaceId":"s1","components":"nope"}`))
	require.ErrorIs(t, err, protocol.ErrMalformedMessage)
	assert.Empty(t, reg.List())
}

func TestRouter_Observer(t *testing.T) {
	var seen []protocol.MessageType
	r, _ := newTestRouter(WithObserver(ObserverFunc(func(_ string, env protocol.Envelope) {
		seen = append(seen, env.Type)
	})))
	_, err := r.Consume(context.Background(), "m1", strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, []protocol.MessageType{
		protocol.TypeSurfaceUpdate,
		protocol.TypeBeginRendering,
		protocol.TypeSurfaceUpdate,
		protocol.TypeDataModelUpdate,
	}, seen)
}

func TestRouter_Cancelled(t *testing.T) {
	r, _ := newTestRouter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Consume(ctx, "", strings.NewReader(stream))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouter_ConcurrentSurfaces(t *testing.T) {
	r, reg := newTestRouter()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				raw := `{"type":"dataModelUpdate","surfaceId":"` + id + `","path":"/n","contents":[{"key":"v","valueNumber":` + strconv.Itoa(i) + `}]}`
				assert.NoError(t, r.DispatchRaw(ctx, "m", []byte(raw)))
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		v, ok := reg.Store().Get(id, "/n/v")
		require.True(t, ok)
		assert.True(t, v.Equal(datamodel.Number(49)), id)
	}
}

func TestReadLine_Oversized(t *testing.T) {
	big := strings.Repeat("x", maxLine+10) + "\n" + `{"type":"deleteSurface","surfaceId":"s"}` + "\n"
	r, _ := newTestRouter()
	st, err := r.Consume(context.Background(), "", strings.NewReader(big))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Malformed)
	assert.Equal(t, 1, st.Rejected)
}
