package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clearview/internal/model"
)

// version is set at build time with -ldflags "-X github.com/ppiankov/clearview/internal/cli.version=..."
var version = "0.1.0"

var (
	cfgFile string
	verbose bool
	noColor bool
	apiURL  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clearview",
	Short: "Clear View - fact-checking client",
	Long: `Clear View is a command-line client for the Clear View fact-checking service.

Submit a claim and get a verdict with a confidence score, the reasoning behind
it, and the policy and external sources it rests on. Results are kept in a
local history you can search and revisit. Policy documents can be uploaded for
ingestion.

Sign in first with 'clearview login'.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Cancelling ctx aborts in-flight requests.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clearview v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.clearview/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides api.base_url)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.clearview")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps CLEARVIEW_* variables onto config keys
// (CLEARVIEW_API_BASE_URL -> api.base_url). Only keys registered by
// setDefaults are reachable.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("CLEARVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", "CLEARVIEW_LLM_API_KEY", "OPENAI_API_KEY")
}

// setDefaults registers every key of cfg with v so that env variables and
// Unmarshal see the full key set
func setDefaults(v *viper.Viper, cfg *model.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	for key, value := range flatten("", tree) {
		v.SetDefault(key, value)
	}
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// loadConfig returns the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if noColor || os.Getenv("NO_COLOR") != "" {
		cfg.Output.Color = false
	}
	return cfg, nil
}

// newLogger returns the diagnostic logger: debug level when verbose, warnings otherwise
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
