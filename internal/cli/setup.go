package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/a2ui/internal/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the setup wizard",
	Long: `Run the interactive setup wizard to connect a2ui to an agent.

This command guides you through:
  - Choosing a transport (WebSocket, HTTP, stdout or offline)
  - Entering the agent endpoint and an optional access token
  - Checking that the endpoint answers

The choices are written to config.yaml in the data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !setup.IsInteractive() {
			setup.PrintEnvInstructions()
			return fmt.Errorf("setup requires an interactive terminal")
		}

		result, err := setup.RunWizard(loadSettings().DataDir)
		if err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}

		if result == nil || result.Cancelled {
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), "\nSetup complete! Run 'a2ui view <stream>' to start.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
