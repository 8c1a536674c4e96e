package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formStream = `{"type":"surfaceUpdate","surfaceId":"s1","components":[{"id":"col","component":{"Column":{"children":{"explicitList":["email","agree","vol","btn1"]}}}},{"id":"email","component":{"TextField":{"label":"Email","text":{"path":"/form/email"}}}},{"id":"agree","component":{"CheckBox":{"label":"Agree","value":{"path":"/form/agree"}}}},{"id":"vol","component":{"Slider":{"value":{"path":"/form/vol"},"minValue":0,"maxValue":100}}},{"id":"btn1","component":{"Button":{"label":"Submit","action":{"name":"submit_form","context":{"email":{"path":"/form/email"},"agree":{"path":"/form/agree"}}}}}}]}
{"type":"dataModelUpdate","surfaceId":"s1","path":"/form","contents":[{"key":"email","valueString":""},{"key":"agree","valueBoolean":false},{"key":"vol","valueNumber":50}]}
{"type":"beginRendering","surfaceId":"s1","root":"col"}
{"type":"surfaceUpdate","surfaceId":"s2","components":[{"id":"t","component":{"Text":{"text":"Second surface"}}}]}
{"type":"beginRendering","surfaceId":"s2","root":"t"}
`

// ViewStep is one keystroke and what the viewer should show afterwards.
type ViewStep struct {
	Key        tea.KeyMsg
	ExpectSubs []string
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newTestViewer(t *testing.T) (*viewModel, *engine) {
	t.Helper()
	e, err := openEngine(Settings{}, false)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	_, err = e.Consume(context.Background(), "m1", strings.NewReader(formStream))
	require.NoError(t, err)

	m := newViewModel(e, time.Second)
	m.refresh()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return m, e
}

// drain runs cmd and feeds every fireMsg it produces back into the model.
func drain(m *viewModel, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(m, c)
		}
	case fireMsg:
		m.Update(msg)
	}
}

func TestViewer_FormScenario(t *testing.T) {
	m, e := newTestViewer(t)
	assert.Equal(t, "s1", m.surfaceID)
	assert.Equal(t, "email@", m.focus)

	steps := []ViewStep{
		{Key: tea.KeyMsg{Type: tea.KeyEnter}, ExpectSubs: []string{"Email:"}},
		{Key: runes("a@b.com"), ExpectSubs: []string{"a@b.com"}},
		{Key: tea.KeyMsg{Type: tea.KeyEnter}},
		{Key: tea.KeyMsg{Type: tea.KeyTab}},
		{Key: runes(" ")},
		{Key: tea.KeyMsg{Type: tea.KeyTab}},
		{Key: tea.KeyMsg{Type: tea.KeyRight}},
		{Key: tea.KeyMsg{Type: tea.KeyTab}},
		{Key: tea.KeyMsg{Type: tea.KeyEnter}, ExpectSubs: []string{"submit_form resolved"}},
	}
	for i, step := range steps {
		_, cmd := m.Update(step.Key)
		if step.Key.Type == tea.KeyEnter && m.focus == "btn1@" {
			drain(m, cmd)
		}
		view := m.View()
		for _, sub := range step.ExpectSubs {
			require.Contains(t, view, sub, "step %d", i)
		}
	}

	v, ok := e.Store().Get("s1", "/form/email")
	require.True(t, ok)
	str, _ := v.Str()
	assert.Equal(t, "a@b.com", str)

	v, ok = e.Store().Get("s1", "/form/agree")
	require.True(t, ok)
	b, _ := v.Boolean()
	assert.True(t, b)

	v, ok = e.Store().Get("s1", "/form/vol")
	require.True(t, ok)
	n, _ := v.Num()
	assert.Equal(t, 55.0, n)
	assert.False(t, m.busy)
}

// firedAction runs cmd and returns the fireMsg it produces.
func firedAction(t *testing.T, cmd tea.Cmd) fireMsg {
	t.Helper()
	require.NotNil(t, cmd)
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if f, ok := c().(fireMsg); ok {
				return f
			}
		}
	case fireMsg:
		return msg
	}
	t.Fatal("command produced no fireMsg")
	return fireMsg{}
}

func TestViewer_ResolvesAtGesture(t *testing.T) {
	m, _ := newTestViewer(t)
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, "btn1@", m.focus)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.busy)

	// Toggle the checkbox before the delivery runs.
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "agree@", m.focus)
	m.Update(runes(" "))

	msg := firedAction(t, cmd)
	require.NoError(t, msg.err)
	require.True(t, msg.ok)
	assert.Equal(t, "submit_form", msg.res.Action.Name)
	assert.Equal(t, false, msg.res.Action.Context["agree"])

	m.Update(msg)
	assert.False(t, m.busy)
	assert.Contains(t, m.View(), "submit_form resolved")
}

func TestViewer_FocusWraps(t *testing.T) {
	m, _ := newTestViewer(t)
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "btn1@", m.focus)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "email@", m.focus)
}

func TestViewer_SurfacePicker(t *testing.T) {
	m, _ := newTestViewer(t)
	m.Update(runes("s"))
	require.True(t, m.picker.Active())
	assert.Contains(t, m.View(), "Surfaces")

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.picker.Active())
	assert.Equal(t, "s2", m.surfaceID)
	assert.Contains(t, m.View(), "Second surface")
	assert.Empty(t, m.frame.Targets)
}

func TestViewer_DeletedSurface(t *testing.T) {
	m, e := newTestViewer(t)
	require.NoError(t, e.DispatchRaw(context.Background(), "m2", []byte(`{"type":"deleteSurface","surfaceId":"s1"}`)))
	m.refresh()
	assert.Contains(t, m.View(), "was deleted")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.busy)
	assert.Empty(t, m.frame.Targets)
}

func TestViewer_Quit(t *testing.T) {
	m, _ := newTestViewer(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}
