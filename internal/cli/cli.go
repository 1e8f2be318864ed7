// Package cli holds the nexpr subcommands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/serikovn/nexpr-update/core/cmd"
	coreconfig "github.com/serikovn/nexpr-update/core/config"
	"github.com/serikovn/nexpr-update/internal/app"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

// configPath resolves --config, then CONFIG_PATH, then the default.
func configPath(c *cobra.Command) string {
	if p, _ := c.Flags().GetString("config"); p != "" {
		return p
	}
	if p := os.Getenv(configEnvVar); p != "" {
		return p
	}
	return defaultConfigPath
}

// RunCmd starts the bot and blocks until SIGINT or SIGTERM.
func RunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Run(cmd.Options{
				ConfigPath: configPath(c),
				Context:    c.Context(),
				LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
					return coreconfig.Load(path)
				},
				Bootstrap: app.Bootstrap,
			})
		},
	}
	return c
}
