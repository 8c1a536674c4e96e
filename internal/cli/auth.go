package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/a2ui/internal/auth"
	"github.com/yolodolo42/a2ui/internal/outbound"
	"github.com/yolodolo42/a2ui/internal/ui"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage agent endpoint credentials",
	Long:  `Store, remove and test the tokens used to reach agent endpoints.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Store a token for an endpoint",
	Long: `Store a token for an agent endpoint. It is sent as a bearer token unless
--header names a custom header.

The token is prompted for when --token is not given. A token in
A2UI_TRANSPORT_TOKEN overrides the stored one.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthSet,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List endpoints with stored credentials",
	RunE:  runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove the credential for an endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemove,
}

var authTestCmd = &cobra.Command{
	Use:   "test [url]",
	Short: "Check that an endpoint accepts the stored credential",
	Long: `Test connects to the endpoint (default: the configured transport.url)
with its stored credential without sending an action.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthTest,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
	authCmd.AddCommand(authTestCmd)

	authSetCmd.Flags().String("token", "", "Token (will prompt if not provided)")
	authSetCmd.Flags().String("header", "", "Send the token in this header instead of Authorization")
}

func getAuthStore() (*auth.Store, error) {
	return auth.NewStore(loadSettings().DataDir)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	url := args[0]
	token, _ := cmd.Flags().GetString("token")
	header, _ := cmd.Flags().GetString("header")

	if token == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("token is required (use --token)")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Enter token for %s: ", url)
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = string(b)
	}

	cred := auth.Credential{Type: auth.CredentialTypeBearer, Token: token}
	if header != "" {
		cred.Type = auth.CredentialTypeHeader
		cred.Header = header
	}

	store, err := getAuthStore()
	if err != nil {
		return err
	}
	if err := store.SetCredential(url, cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Stored credential for %s\n", ui.SymbolCheck, url)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	store, err := getAuthStore()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	urls := store.ListEndpoints()
	if len(urls) == 0 {
		fmt.Fprintln(out, "No endpoint credentials stored.")
		fmt.Fprintln(out, "\nUse 'a2ui auth set <url>' to add one, or set A2UI_TRANSPORT_TOKEN.")
		return nil
	}

	current := strings.TrimRight(loadSettings().TransportURL, "/")
	t := table{Title: "Endpoints", Headers: []string{"", "Endpoint", "Type", "Token"}}
	for _, url := range urls {
		cred, err := store.GetCredential(url)
		if err != nil {
			continue
		}
		marker := ""
		if url == current {
			marker = "*"
		}
		kind := string(cred.Type)
		if cred.Type == auth.CredentialTypeHeader {
			kind += " " + cred.Header
		}
		t.Rows = append(t.Rows, []string{marker, url, kind, auth.Mask(cred.Token)})
	}
	fmt.Fprintln(out, renderTable(100, t))
	fmt.Fprintln(out, "\n* = configured transport.url")
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	store, err := getAuthStore()
	if err != nil {
		return err
	}
	if err := store.RemoveCredential(args[0]); err != nil {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed credential for %s\n", args[0])
	return nil
}

func runAuthTest(cmd *cobra.Command, args []string) error {
	s := loadSettings()
	if len(args) == 1 {
		s.TransportURL = args[0]
		if s.TransportKind == "" || s.TransportKind == "none" || s.TransportKind == "stdout" {
			s.TransportKind = kindForURL(args[0])
		}
	}
	if s.TransportURL == "" {
		return fmt.Errorf("no endpoint given and transport.url is not configured")
	}

	tr, err := buildTransport(s)
	if err != nil {
		return err
	}
	p, ok := tr.(outbound.Prober)
	if !ok {
		return fmt.Errorf("transport %q cannot be tested", s.TransportKind)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Testing connection to %s...\n", s.TransportURL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Probe(ctx); err != nil {
		if errors.Is(err, outbound.ErrUnauthorized) {
			return fmt.Errorf("%w; update it with 'a2ui auth set %s'", err, s.TransportURL)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s is reachable\n", ui.SuccessStyle.Render(ui.SymbolCheck), s.TransportURL)
	return nil
}

// kindForURL picks the transport for a bare endpoint URL.
func kindForURL(url string) string {
	if strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://") {
		return "websocket"
	}
	return "http"
}
