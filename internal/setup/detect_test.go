package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/a2ui/internal/auth"
	"github.com/yolodolo42/a2ui/internal/testutil"
)

func TestDetectSetupStatus(t *testing.T) {
	testutil.Isolate(t)

	t.Run("returns empty status for fresh directory", func(t *testing.T) {
		dir := testutil.TempDir(t)

		status, err := DetectSetupStatus(ConfigPath(dir), dir)
		require.NoError(t, err)

		assert.False(t, status.HasTransport)
		assert.False(t, status.HasCredential)
		assert.False(t, status.IsComplete)
		assert.Empty(t, status.TransportURL)
		assert.True(t, NeedsSetup(ConfigPath(dir), dir))
	})

	t.Run("detects endpoint from config", func(t *testing.T) {
		dir := testutil.TempDir(t)
		cfg := "transport:\n  kind: websocket\n  url: wss://agent.example.com/a2ui\n"
		require.NoError(t, os.WriteFile(ConfigPath(dir), []byte(cfg), 0600))

		status, err := DetectSetupStatus(ConfigPath(dir), dir)
		require.NoError(t, err)

		assert.True(t, status.HasTransport)
		assert.True(t, status.IsComplete) // A credential is optional
		assert.False(t, status.HasCredential)
		assert.Equal(t, "websocket", status.TransportKind)
	})

	t.Run("url without kind is incomplete", func(t *testing.T) {
		dir := testutil.TempDir(t)
		require.NoError(t, os.WriteFile(ConfigPath(dir), []byte("transport:\n  url: https://x\n"), 0600))

		status, err := DetectSetupStatus(ConfigPath(dir), dir)
		require.NoError(t, err)
		assert.False(t, status.IsComplete)
	})

	t.Run("detects stored credential", func(t *testing.T) {
		dir := testutil.TempDir(t)
		cfg := "transport:\n  kind: http\n  url: https://agent.example.com/a2ui\n"
		require.NoError(t, os.WriteFile(ConfigPath(dir), []byte(cfg), 0600))

		store, err := auth.NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.SetCredential("https://agent.example.com/a2ui", auth.Credential{Token: "t"}))

		status, err := DetectSetupStatus(ConfigPath(dir), dir)
		require.NoError(t, err)
		assert.True(t, status.HasCredential)
	})
}

func TestDetectSetupStatus_Env(t *testing.T) {
	testutil.Isolate(t)
	testutil.SetEnv(t, "A2UI_TRANSPORT_URL", "https://env.example.com")
	testutil.SetEnv(t, "A2UI_TRANSPORT_KIND", "http")
	testutil.SetEnv(t, "A2UI_TRANSPORT_TOKEN", "secret")

	dir := testutil.TempDir(t)
	status, err := DetectSetupStatus(ConfigPath(dir), dir)
	require.NoError(t, err)

	assert.True(t, status.FromEnv)
	assert.True(t, status.IsComplete)
	assert.True(t, status.HasCredential)
	assert.Equal(t, "https://env.example.com", status.TransportURL)

	m := *NewWizard(dir)
	m, _ = send(t, m, enter)
	assert.Equal(t, StepComplete, m.step)
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join("x", "config.yaml"), ConfigPath("x"))
}

func TestGetDataDir(t *testing.T) {
	home := testutil.TempDir(t)
	testutil.SetEnv(t, "HOME", home)

	dir, err := GetDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".a2ui"), dir)
}
