package setup

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/a2ui/internal/auth"
	"github.com/yolodolo42/a2ui/internal/testutil"
)

func send(t *testing.T, m WizardModel, msg tea.Msg) (WizardModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(WizardModel)
	require.True(t, ok)
	return wm, cmd
}

func typeText(t *testing.T, m WizardModel, s string) WizardModel {
	t.Helper()
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestNewWizard_InputPrompts(t *testing.T) {
	t.Run("all textinputs have empty prompt", func(t *testing.T) {
		m := NewWizard(testutil.TempDir(t))

		assert.Equal(t, "", m.urlInput.Prompt, "urlInput should have empty prompt")
		assert.Equal(t, "", m.tokenInput.Prompt, "tokenInput should have empty prompt")
	})
}

func TestNewWizard_Initialization(t *testing.T) {
	testutil.Isolate(t)

	t.Run("initializes with StepWelcome", func(t *testing.T) {
		m := NewWizard(testutil.TempDir(t))
		assert.Equal(t, StepWelcome, m.step)
	})

	t.Run("has transport list", func(t *testing.T) {
		m := NewWizard(testutil.TempDir(t))
		assert.Len(t, m.transports, 4)
	})
}

func TestWizard_OfflineFlow(t *testing.T) {
	dir := testutil.Isolate(t)
	m := *NewWizard(dir)

	m, _ = send(t, m, enter)
	require.Equal(t, StepTransportSelect, m.step)

	for i := 0; i < 3; i++ {
		m, _ = send(t, m, down)
	}
	m, _ = send(t, m, enter)
	require.Equal(t, StepComplete, m.step)
	assert.Empty(t, m.saveError)
	assert.Contains(t, m.View(), "You're all set!")

	m, cmd := send(t, m, enter)
	require.NotNil(t, cmd)
	require.NotNil(t, m.result)
	assert.Equal(t, "none", m.result.TransportKind)
	assert.False(t, m.result.Verified)

	status, err := DetectSetupStatus(ConfigPath(dir), dir)
	require.NoError(t, err)
	assert.Equal(t, "none", status.TransportKind)
	assert.True(t, status.IsComplete)
	assert.False(t, NeedsSetup(ConfigPath(dir), dir))
}

func TestWizard_HTTPFlow(t *testing.T) {
	dir := testutil.Isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	m := *NewWizard(dir)
	m, _ = send(t, m, enter)
	m, _ = send(t, m, down)
	m, _ = send(t, m, enter)
	require.Equal(t, StepEndpointURL, m.step)
	assert.Equal(t, "http", m.selectedKind)

	m = typeText(t, m, "ws://wrong")
	m, _ = send(t, m, enter)
	assert.Equal(t, StepEndpointURL, m.step)
	assert.Contains(t, m.View(), "http:// or https://")

	m.urlInput.SetValue(srv.URL + "/agent")
	m, _ = send(t, m, enter)
	require.Equal(t, StepToken, m.step)

	t.Run("rejected token stays on the token step", func(t *testing.T) {
		bad := typeText(t, m, "nope")
		bad, _ = send(t, bad, enter)
		require.Equal(t, StepProbing, bad.step)
		bad, _ = send(t, bad, bad.probeEndpoint()())
		assert.Equal(t, StepToken, bad.step)
		assert.Contains(t, bad.View(), "rejected the token")
	})

	m = typeText(t, m, "tok-1")
	m, _ = send(t, m, enter)
	require.Equal(t, StepProbing, m.step)
	m, _ = send(t, m, m.probeEndpoint()())
	require.Equal(t, StepComplete, m.step)
	assert.True(t, m.verified)
	assert.Empty(t, m.saveError)

	status, err := DetectSetupStatus(ConfigPath(dir), dir)
	require.NoError(t, err)
	assert.True(t, status.IsComplete)
	assert.True(t, status.HasCredential)
	assert.Equal(t, srv.URL+"/agent", status.TransportURL)

	store, err := auth.NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", store.Header(srv.URL+"/agent").Get("Authorization"))

	raw, err := os.ReadFile(ConfigPath(dir))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "kind: http"))
}

func TestWizard_CtrlCCancels(t *testing.T) {
	m := *NewWizard(testutil.TempDir(t))
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.NotNil(t, m.result)
	assert.True(t, m.result.Cancelled)
	assert.Contains(t, m.View(), "Setup cancelled.")
}

func TestCheckURL(t *testing.T) {
	assert.NotEmpty(t, checkURL("http", ""))
	assert.Empty(t, checkURL("websocket", "wss://a/b"))
	assert.NotEmpty(t, checkURL("websocket", "https://a/b"))
	assert.Empty(t, checkURL("http", "https://a/b"))
}
