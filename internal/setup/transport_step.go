package setup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"
	"github.com/yolodolo42/a2ui/internal/auth"
	"github.com/yolodolo42/a2ui/internal/outbound"
)

// probeEndpoint checks the entered endpoint with the entered token.
func (m WizardModel) probeEndpoint() tea.Cmd {
	kind := m.selectedKind
	url := m.urlInput.Value()
	token := m.tokenInput.Value()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		p, err := prober(kind, url, token)
		if err != nil {
			return probedMsg{err: err}
		}
		return probedMsg{err: p.Probe(ctx)}
	}
}

func prober(kind, url, token string) (outbound.Prober, error) {
	var header http.Header
	if token != "" {
		header = http.Header{"Authorization": {"Bearer " + token}}
	}
	switch kind {
	case "http":
		h := outbound.NewHTTP(url, 10*time.Second)
		h.Header = header
		return h, nil
	case "websocket":
		ws := outbound.NewWebSocket(url, 10*time.Second)
		ws.Header = header
		return ws, nil
	default:
		return nil, fmt.Errorf("transport %q has no endpoint to test", kind)
	}
}

// saveConfig merges the chosen transport into the config file.
func (m WizardModel) saveConfig() error {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")
	_ = v.ReadInConfig()

	v.Set("transport.kind", m.selectedKind)
	if m.selectedKind == "http" || m.selectedKind == "websocket" {
		v.Set("transport.url", m.urlInput.Value())
	}
	if err := v.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// saveToken stores the entered token for the endpoint. An empty token
// leaves the store untouched.
func (m WizardModel) saveToken() error {
	token := m.tokenInput.Value()
	if token == "" {
		return nil
	}
	store, err := auth.NewStore(m.dataDir)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	return store.SetCredential(m.urlInput.Value(), auth.Credential{Type: auth.CredentialTypeBearer, Token: token})
}

// formatProbeError returns a user-friendly error message
func formatProbeError(err error) string {
	if err == nil {
		return "Endpoint check failed. Please try again."
	}
	if errors.Is(err, outbound.ErrUnauthorized) {
		return "The agent rejected the token. Check it and try again."
	}
	msg := err.Error()
	if len(msg) > 60 {
		return msg[:57] + "..."
	}
	return msg
}
