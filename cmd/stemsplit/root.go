package main

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-stems/config"
	"github.com/cwbudde/algo-stems/internal/logging"
	"github.com/cwbudde/algo-stems/stem"
)

const skipConfigLoad = "skipConfigLoad"

type commandContext struct {
	configFlag    string
	logLevelFlag  string
	logFormatFlag string

	config *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "stemsplit",
		Short:         "Split recordings into vocals, bass, drums and other stems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfigLoad] == "true" {
				return nil
			}
			return ctx.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&ctx.logFormatFlag, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(newSeparateCommand(ctx))
	rootCmd.AddCommand(newMergeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	return rootCmd
}

// load reads the configuration file, applies the global logging flags and
// builds the logger.
func (c *commandContext) load(cmd *cobra.Command) error {
	cfg, _, err := config.Load(strings.TrimSpace(c.configFlag))
	if err != nil {
		return stem.NewError(stem.KindInvalidConfig, "load config", c.configFlag, err)
	}
	if c.logLevelFlag != "" {
		cfg.Logging.Level = strings.ToLower(c.logLevelFlag)
	}
	if c.logFormatFlag != "" {
		cfg.Logging.Format = strings.ToLower(c.logFormatFlag)
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return stem.NewError(stem.KindInvalidConfig, "configure logging", "", err)
	}
	c.config = cfg
	c.logger = logger
	return nil
}

// validated re-checks the configuration after command flags changed it.
func (c *commandContext) validated() (config.Config, error) {
	if err := c.config.Validate(); err != nil {
		return config.Config{}, stem.NewError(stem.KindInvalidConfig, "flags", "", err)
	}
	return *c.config, nil
}

func formatDB(db float64) string {
	if db <= -120 {
		return "-inf"
	}
	return fmt.Sprintf("%.1f dBFS", db)
}

func linToDB(x float64) float64 {
	if x <= 1e-12 {
		return -240
	}
	return 20 * math.Log10(x)
}
