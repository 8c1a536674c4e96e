package setup

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/yolodolo42/a2ui/internal/auth"
)

// SetupStatus represents the current setup state
type SetupStatus struct {
	HasTransport  bool
	HasCredential bool
	IsComplete    bool
	TransportKind string
	TransportURL  string
	FromEnv       bool
}

// DetectSetupStatus reads the config file at configPath, the A2UI_ environment
// and the credential store under dataDir.
func DetectSetupStatus(configPath, dataDir string) (*SetupStatus, error) {
	status := &SetupStatus{}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	_ = v.ReadInConfig() // Missing config is the common case

	status.TransportKind = v.GetString("transport.kind")
	status.TransportURL = v.GetString("transport.url")

	if url := os.Getenv("A2UI_TRANSPORT_URL"); url != "" {
		status.TransportURL = url
		status.FromEnv = true
		if kind := os.Getenv("A2UI_TRANSPORT_KIND"); kind != "" {
			status.TransportKind = kind
		}
	}

	switch status.TransportKind {
	case "http", "websocket", "ws":
		status.HasTransport = status.TransportURL != ""
	case "stdout", "none":
		status.HasTransport = true
	}

	if os.Getenv("A2UI_TRANSPORT_TOKEN") != "" {
		status.HasCredential = true
	} else if status.TransportURL != "" {
		if store, err := auth.NewStore(dataDir); err == nil {
			_, err := store.GetCredential(status.TransportURL)
			status.HasCredential = err == nil
		}
	}

	// A credential is optional; some agents are open.
	status.IsComplete = status.HasTransport

	return status, nil
}

// NeedsSetup returns true if interactive setup should run
func NeedsSetup(configPath, dataDir string) bool {
	status, _ := DetectSetupStatus(configPath, dataDir)
	return !status.IsComplete
}

// GetDataDir returns the a2ui data directory path
func GetDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".a2ui"), nil
}

// ConfigPath is the config file the wizard writes.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}
