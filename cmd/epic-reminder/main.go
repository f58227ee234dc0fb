package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/park285/epic-reminder-bot/internal/obslog"
)

var rootCmd = &cobra.Command{
	Use:   "epic-reminder",
	Short: "Cooldown reminders for EPIC RPG players",
	Long: `epic-reminder watches game commands and the game bot's replies, keeps
every player's cooldowns and pings them when an action is ready again.

Without a subcommand it runs the bot (same as "serve").`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return obslog.InitFromEnv()
	},
	RunE: runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, joinCodeCmd, checkCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	obslog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
