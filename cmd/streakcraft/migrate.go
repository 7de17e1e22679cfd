package main

import (
	"log"

	"github.com/joestump/streakcraft/internal/config"
	"github.com/joestump/streakcraft/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the session table for an SQL session store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Session.Store == "memory" {
				log.Println("session store is memory; nothing to migrate")
				return nil
			}

			database, err := db.Open(cfg.Session.Store, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.Session.Store); err != nil {
				return err
			}

			log.Println("migrations complete")
			return nil
		},
	}
}
