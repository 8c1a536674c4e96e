package auth

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/a2ui/internal/testutil"
)

const agentURL = "https://agent.example.com/a2ui"

func TestNewStore(t *testing.T) {
	t.Run("creates data directory", func(t *testing.T) {
		dir := testutil.TempDir(t)
		subDir := filepath.Join(dir, "newdir")

		store, err := NewStore(subDir)
		require.NoError(t, err)
		require.NotNil(t, store)

		_, err = os.Stat(subDir)
		require.NoError(t, err)
	})

	t.Run("loads existing auth.json", func(t *testing.T) {
		dir := testutil.TempDir(t)

		authJSON := `{
			"version": 1,
			"endpoints": {
				"https://agent.example.com/a2ui": {"type": "bearer", "token": "tok-123"}
			}
		}`
		err := os.WriteFile(filepath.Join(dir, "auth.json"), []byte(authJSON), 0600)
		require.NoError(t, err)

		store, err := NewStore(dir)
		require.NoError(t, err)

		cred, err := store.GetCredential(agentURL)
		require.NoError(t, err)
		assert.Equal(t, "tok-123", cred.Token)
	})

	t.Run("tolerates missing endpoints field", func(t *testing.T) {
		dir := testutil.TempDir(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.json"), []byte(`{"version":1}`), 0600))

		store, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.SetCredential(agentURL, Credential{Token: "t"}))
	})

	t.Run("returns error for corrupt auth.json", func(t *testing.T) {
		dir := testutil.TempDir(t)
		err := os.WriteFile(filepath.Join(dir, "auth.json"), []byte("not valid json"), 0600)
		require.NoError(t, err)

		_, err = NewStore(dir)
		require.Error(t, err)
	})
}

func TestStore_SetCredential_GetCredential(t *testing.T) {
	t.Run("defaults to bearer", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)

		require.NoError(t, store.SetCredential(agentURL, Credential{Token: "tok"}))

		cred, err := store.GetCredential(agentURL)
		require.NoError(t, err)
		assert.Equal(t, CredentialTypeBearer, cred.Type)
	})

	t.Run("normalizes the endpoint url", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)

		require.NoError(t, store.SetCredential("HTTPS://agent.example.com/a2ui/", Credential{Token: "tok"}))
		_, err = store.GetCredential(agentURL)
		require.NoError(t, err)
		assert.Equal(t, []string{agentURL}, store.ListEndpoints())
	})

	t.Run("persists to disk", func(t *testing.T) {
		dir := testutil.TempDir(t)
		store1, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, store1.SetCredential(agentURL, Credential{Type: CredentialTypeHeader, Header: "X-Agent-Key", Token: "k"}))

		store2, err := NewStore(dir)
		require.NoError(t, err)
		cred, err := store2.GetCredential(agentURL)
		require.NoError(t, err)
		assert.Equal(t, "X-Agent-Key", cred.Header)
	})

	t.Run("rejects incomplete credentials", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)

		assert.Error(t, store.SetCredential("", Credential{Token: "t"}))
		assert.Error(t, store.SetCredential(agentURL, Credential{}))
		assert.Error(t, store.SetCredential(agentURL, Credential{Type: CredentialTypeHeader, Token: "t"}))
	})

	t.Run("returns error for unknown endpoint", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)

		_, err = store.GetCredential(agentURL)
		require.Error(t, err)
	})
}

func TestStore_Header(t *testing.T) {
	store, err := NewStore(testutil.TempDir(t))
	require.NoError(t, err)

	assert.Empty(t, store.Header(agentURL))

	require.NoError(t, store.SetCredential(agentURL, Credential{Token: "tok"}))
	assert.Equal(t, "Bearer tok", store.Header(agentURL).Get("Authorization"))

	require.NoError(t, store.SetCredential("wss://agent.example.com/ws", Credential{Type: CredentialTypeHeader, Header: "X-Agent-Key", Token: "k"}))
	h := store.Header("wss://agent.example.com/ws")
	assert.Equal(t, "k", h.Get("X-Agent-Key"))
	assert.Empty(t, h.Get("Authorization"))
}

func TestStore_RemoveCredential(t *testing.T) {
	t.Run("removes existing credential", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)
		require.NoError(t, store.SetCredential(agentURL, Credential{Token: "tok"}))

		require.NoError(t, store.RemoveCredential(agentURL))

		_, err = store.GetCredential(agentURL)
		require.Error(t, err)
	})

	t.Run("is idempotent", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)

		require.NoError(t, store.RemoveCredential(agentURL))
		require.NoError(t, store.RemoveCredential(agentURL))
	})
}

func TestMask(t *testing.T) {
	assert.Equal(t, "••••", Mask("abcd"))
	assert.Equal(t, "abcd…6789", Mask("abcdef0123456789"))
}

func TestStore_FilePermissions(t *testing.T) {
	dir := testutil.TempDir(t)
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetCredential(agentURL, Credential{Token: "test"}))

	info, err := os.Stat(filepath.Join(dir, "auth.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_Concurrency(t *testing.T) {
	store, err := NewStore(testutil.TempDir(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.SetCredential(agentURL, Credential{Token: "key-" + string(rune('0'+i))})
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.GetCredential(agentURL)
			store.ListEndpoints()
			store.Header(agentURL)
		}()
	}
	wg.Wait()
}
