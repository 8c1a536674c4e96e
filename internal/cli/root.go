package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/a2ui/internal/setup"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "a2ui",
		Short: "Terminal client for agent-driven user interfaces",
		Long: `a2ui interprets streams of A2UI messages from an agent backend.

It builds surfaces from surfaceUpdate, dataModelUpdate, beginRendering and
deleteSurface messages, renders them in the terminal, and sends the
resulting user actions back to the agent.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			configPath := viper.ConfigFileUsed()
			if configPath == "" {
				configPath = setup.ConfigPath(s.DataDir)
			}
			if setup.NeedsSetup(configPath, s.DataDir) {
				fmt.Fprintln(cmd.OutOrStdout(), "No agent transport configured. Run 'a2ui setup' to connect one.")
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(loadSettings(), os.Stderr)
			return nil
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.a2ui/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for session logs and the action journal (default is $HOME/.a2ui)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("strict", false, "Validate every message against the envelope schema")
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("router.strict", rootCmd.PersistentFlags().Lookup("strict"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".a2ui")
		if err := os.MkdirAll(configDir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetDefault("log.format", "text")
	viper.SetDefault("transport.kind", "none")
	viper.SetDefault("transport.timeout", 30*time.Second)
	viper.SetDefault("journal.enabled", true)
	viper.SetDefault("history.enabled", true)

	viper.SetEnvPrefix("A2UI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Silently ignore missing config file - it's optional
	_ = viper.ReadInConfig()
}

// Settings is the resolved configuration for one command run.
type Settings struct {
	DataDir   string
	LogLevel  string
	LogFormat string
	Strict    bool

	TransportKind    string
	TransportURL     string
	TransportToken   string
	ThreadID         string
	TransportTimeout time.Duration

	Journal bool
	History bool
}

func loadSettings() Settings {
	s := Settings{
		DataDir:          viper.GetString("data_dir"),
		LogLevel:         viper.GetString("log.level"),
		LogFormat:        viper.GetString("log.format"),
		Strict:           viper.GetBool("router.strict"),
		TransportKind:    strings.ToLower(viper.GetString("transport.kind")),
		TransportURL:     viper.GetString("transport.url"),
		TransportToken:   viper.GetString("transport.token"),
		ThreadID:         viper.GetString("transport.thread_id"),
		TransportTimeout: viper.GetDuration("transport.timeout"),
		Journal:          viper.GetBool("journal.enabled"),
		History:          viper.GetBool("history.enabled"),
	}
	if s.DataDir == "" {
		s.DataDir = defaultDataDir()
	}
	return s
}

func defaultDataDir() string {
	dir, err := setup.GetDataDir()
	if err != nil {
		return ".a2ui"
	}
	return dir
}
