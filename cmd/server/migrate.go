package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogopython/Nuvemhost/internal/config"
	"github.com/diogopython/Nuvemhost/internal/database"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cfg := config.Load()
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
