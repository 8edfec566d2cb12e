package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clearview/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ClearView configuration",
	Long: `Manage ClearView configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CLEARVIEW_*)
3. Config file (~/.clearview/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, config file, env vars and flags are merged. API keys are never printed.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprint(stdout, string(yamlData))

		if cfg.LLM.APIKey != "" {
			fmt.Fprintln(stderr, "\nllm.api_key: set (from environment or config)")
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.clearview/config.yaml with all available options.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".clearview")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'clearview config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0o700); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.OpenFile(configPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		yamlData, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		// Helper for writing with error checking
		var werr error
		printf := func(format string, a ...any) {
			if werr != nil {
				return
			}
			_, werr = fmt.Fprintf(f, format, a...)
		}

		printf("# ClearView Configuration File\n")
		printf("#\n")
		printf("# Configuration hierarchy (highest to lowest priority):\n")
		printf("#   1. CLI flags\n")
		printf("#   2. Environment variables (CLEARVIEW_*, e.g. CLEARVIEW_API_BASE_URL)\n")
		printf("#   3. This config file\n")
		printf("#   4. Built-in defaults\n\n")
		printf("%s", yamlData)
		printf("\n# LLM API key (keep it out of this file):\n")
		printf("#   export CLEARVIEW_LLM_API_KEY=sk-...   (or OPENAI_API_KEY)\n")
		if werr != nil {
			return fmt.Errorf("error writing config: %w", werr)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  clearview config show\n")
		fmt.Fprintf(out, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(out, "  $EDITOR %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
