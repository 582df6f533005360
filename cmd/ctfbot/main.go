package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/k17ctf/ctfbot/internal/app"
	"github.com/k17ctf/ctfbot/internal/config"
	"github.com/k17ctf/ctfbot/internal/version"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "ctfbot",
		Short:   "K17 CTF Discord bot and control panel",
		Version: version.String(),
		Long: `ctfbot keeps counter and CTFd leaderboard messages up to date in Discord.
The bot process owns the live messages; the web panel drives it over a local socket.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file (env vars win)")

	rootCmd.AddCommand(botCmd())
	rootCmd.AddCommand(webCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Discord bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			bot, err := app.NewBot(context.Background(), cfg)
			if err != nil {
				return err
			}
			return bot.Run()
		},
	}
}

func webCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Run the web control panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			web, err := app.NewWeb(context.Background(), cfg)
			if err != nil {
				return err
			}
			return web.Run()
		},
	}
}
