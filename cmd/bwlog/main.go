// Command bwlog follows Minecraft client logs and tracks the players of
// interest in Hypixel Bedwars games.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bwlog/bwlog-go/internal/config"
)

var (
	// global flags
	verbose    bool
	configPath string

	// loaded in PersistentPreRunE
	cfg    config.Config
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "bwlog",
	Short: "Follow Minecraft Bedwars logs and track players",
	Long: `bwlog tails the log of a Minecraft client (vanilla, Lunar, Badlion,
Forge/LabyMod, PvPLounge), reads Hypixel Bedwars chat lines and keeps a
live roster of players: /who listings, party members, guild members,
invites, chat triggers and manually tracked names.

Configuration is read from a YAML or TOML file (--config, or
config.yaml/config.toml in the user config directory), then from a
.env file and BWLOG_* environment variables. Flags win over both.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (.yaml, .yml or .toml)")
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
