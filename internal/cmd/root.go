package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/evalrun/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for evalrun
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evalrun",
		Short: "Run and review model evaluations",
		Long: `evalrun runs evaluation tasks against language models.

Tasks are YAML or Markdown files listing samples, a solver chain and a
scorer. Samples run concurrently while a live display shows progress;
human-in-the-loop solvers and scorers pause the display to ask for input.
Results are stored in a local sqlite database and can be listed, replayed
and re-scored later.`,
		Version: Version,
		// main prints errors
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .evalrun/config.yaml)")

	cmd.AddCommand(NewEvalCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewTranscriptCommand())
	cmd.AddCommand(NewScoreCommand())

	return cmd
}

// loadConfig reads the file named by --config, or .evalrun/config.yaml.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storePath returns the --store flag when set, otherwise the configured path.
func storePath(cmd *cobra.Command, cfg *config.Config) string {
	if cmd.Flags().Changed("store") {
		path, _ := cmd.Flags().GetString("store")
		return path
	}
	return cfg.StorePath
}
