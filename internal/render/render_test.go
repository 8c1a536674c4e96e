package render

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/router"
	"github.com/yolodolo42/a2ui/internal/surface"
)

const form = `{"type":"surfaceUpdate","surfaceId":"s1","components":[
{"id":"root","component":{"Card":{"child":"col"}}},
{"id":"col","component":{"Column":{"children":{"explicitList":["title","email","agree","btn1","later"]}}}},
{"id":"title","component":{"Heading":{"text":"Sign up"}}},
{"id":"email","component":{"TextField":{"label":"Email","text":{"path":"/form/email"}}}},
{"id":"agree","component":{"CheckBox":{"label":"I agree","value":{"path":"/form/agree"}}}},
{"id":"btn1","component":{"Button":{"label":"Submit","primary":true,"action":{"name":"submit_form"}}}},
{"id":"odd","component":{"Hologram":{}}}]}
{"type":"dataModelUpdate","surfaceId":"s1","path":"/form","contents":[{"key":"email","valueString":"a@b.com"},{"key":"agree","valueBoolean":true}]}
{"type":"beginRendering","surfaceId":"s1","root":"root"}
`

func load(t *testing.T, stream string) *surface.Registry {
	t.Helper()
	reg := surface.NewRegistry(datamodel.NewStore(nil), nil)
	_, err := router.New(reg, nil).Consume(context.Background(), "m1", strings.NewReader(stream))
	require.NoError(t, err)
	return reg
}

func TestPainter_Terminal(t *testing.T) {
	reg := load(t, form)
	p := &Painter{Catalog: Terminal(), Width: 60}

	f, ok := p.Paint(reg, "s1", "")
	require.True(t, ok)
	assert.Contains(t, f.Text, "Sign up")
	assert.Contains(t, f.Text, "Email:")
	assert.Contains(t, f.Text, "a@b.com")
	assert.Contains(t, f.Text, "[x] I agree")
	assert.Contains(t, f.Text, "[ Submit ]")
	assert.Contains(t, f.Text, "… later")
	assert.Equal(t, []string{"later"}, f.Pending)

	keys := make([]string, 0, len(f.Targets))
	for _, tg := range f.Targets {
		keys = append(keys, tg.Key())
	}
	assert.Equal(t, []string{"email@", "agree@", "btn1@"}, keys)
}

func TestPainter_ReflectsDataModel(t *testing.T) {
	reg := load(t, form)
	p := &Painter{Catalog: Terminal(), Width: 60}

	require.NoError(t, reg.Store().Put("s1", "/form/email", datamodel.String("new@x.io")))
	f, _ := p.Paint(reg, "s1", "email@")
	assert.Contains(t, f.Text, "new@x.io")
	assert.NotContains(t, f.Text, "a@b.com")
}

func TestPainter_NotRendering(t *testing.T) {
	reg := surface.NewRegistry(datamodel.NewStore(nil), nil)
	require.NoError(t, reg.CreateOrUpdate("s1", nil, ""))
	_, ok := (&Painter{Catalog: Terminal()}).Paint(reg, "s1", "")
	assert.False(t, ok)
}

func TestPainter_Fire(t *testing.T) {
	reg := load(t, form)
	var fired []string
	p := &Painter{Catalog: Terminal(), Fire: func(tg Target) { fired = append(fired, tg.ComponentID) }}

	f, _ := p.Paint(reg, "s1", "")
	for _, tg := range f.Targets {
		p.Activate(tg)
	}
	assert.Equal(t, []string{"btn1"}, fired)

	tg, ok := f.Find("btn1@")
	require.True(t, ok)
	assert.Equal(t, "s1", tg.Trigger().SurfaceID)
}

func TestCatalog_CustomRenderer(t *testing.T) {
	reg := load(t, form)
	cat := NewCatalog().Register(protocol.KindHeading, RendererFunc(func(el Element, _ []string) string {
		return "<h1>" + el.Props.(protocol.HeadingProps).Text + "</h1>"
	}))
	f, ok := (&Painter{Catalog: cat}).Paint(reg, "s1", "")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(f.Text, "<h1>Sign up</h1>"), f.Text)
}

func TestPainter_Template(t *testing.T) {
	stream := `{"type":"dataModelUpdate","surfaceId":"s1","path":"/todos","contents":[
{"key":"0","valueMap":[{"key":"title","valueString":"milk"},{"key":"done","valueBoolean":false}]},
{"key":"1","valueMap":[{"key":"title","valueString":"eggs"},{"key":"done","valueBoolean":true}]}]}
{"type":"surfaceUpdate","surfaceId":"s1","components":[
{"id":"list","component":{"List":{"children":{"template":{"componentId":"item","dataBinding":"/todos"}}}}},
{"id":"item","component":{"CheckBox":{"label":{"path":"title"},"value":{"path":"done"}}}}]}
{"type":"beginRendering","surfaceId":"s1","root":"list"}
`
	reg := load(t, stream)
	f, ok := (&Painter{Catalog: Terminal(), Width: 40}).Paint(reg, "s1", "")
	require.True(t, ok)
	assert.Contains(t, f.Text, "[ ] milk")
	assert.Contains(t, f.Text, "[x] eggs")
	require.Len(t, f.Targets, 2)
	assert.Equal(t, "item@/todos/0", f.Targets[0].Key())
	assert.Equal(t, "item@/todos/1", f.Targets[1].Key())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "he...", truncate("hello world", 5))
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "ab  ", padRight("ab", 4))
}
