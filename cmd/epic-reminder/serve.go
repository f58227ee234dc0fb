package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/bot"
	"github.com/park285/epic-reminder-bot/internal/config"
	"github.com/park285/epic-reminder-bot/internal/obslog"
	"github.com/park285/epic-reminder-bot/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := obslog.Named("main")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := store.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb, err := bot.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	gw, err := bot.OpenGateway(cfg)
	if err != nil {
		return err
	}

	b, err := bot.New(cfg, gw, db, rdb)
	if err != nil {
		return err
	}
	log.Info("serve_start", zap.String("gateway", gw.Name()), zap.String("database", cfg.DatabaseDriver))
	if err := b.Run(ctx); err != nil {
		return err
	}
	log.Info("serve_stop")
	return nil
}
