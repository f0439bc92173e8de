package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the coordinated schema migration without starting the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		gw, _, coord := wire(cfg)
		defer gw.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		if err := coord.RequestMigration(ctx, cfg.Cassandra.AuthKeyspace); err != nil {
			return err
		}
		log.Printf("authservicesapid: schema on %q is current", cfg.Cassandra.AuthKeyspace)
		return nil
	},
}
