package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/park285/epic-reminder-bot/internal/config"
	"github.com/park285/epic-reminder-bot/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, closeDB, err := openStorage()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := store.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var joinCodeCmd = &cobra.Command{
	Use:   "joincode [count]",
	Short: "Mint single use join codes for new servers",
	Long: `Mint join codes. A server administrator registers a server with
"rcd register <code>"; each code works once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 1
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 || v > 100 {
				return fmt.Errorf("count must be between 1 and 100, got %q", args[0])
			}
			n = v
		}
		db, closeDB, err := openStorage()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := store.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		codes, err := store.New(db).NewJoinCodes(cmd.Context(), n)
		if err != nil {
			return err
		}
		for _, c := range codes {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

func openStorage() (*gorm.DB, func(), error) {
	driver, dsn, err := config.LoadStorage()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeDB, nil
}
