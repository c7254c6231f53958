package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/taskpilot/internal/config"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "taskpilot",
	Short:         "Taskpilot - chat-driven task management",
	Long:          `Taskpilot turns chat messages into task actions and weekly reports.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TASKPILOT_CONFIG"), "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, chatCmd)
}

// loadConfig reads the config and initialises logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	observability.Init(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	return cfg, nil
}
