package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cassauth/authservicesapi/internal/authdb"
	"github.com/cassauth/authservicesapi/internal/bootstrap"
	"github.com/cassauth/authservicesapi/internal/config"
	"github.com/cassauth/authservicesapi/internal/migrate"
	"github.com/cassauth/authservicesapi/internal/schema"
	"github.com/cassauth/authservicesapi/internal/store"
)

// Version, BuildTime and GitCommit are overridden at link time via
// -ldflags, e.g. -X main.Version=1.2.3.
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var schemaRoot string

var rootCmd = &cobra.Command{
	Use:          "authservicesapid",
	Short:        "Multi-tenant authentication service backed by Cassandra",
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemaRoot, "schema-root", "schema", "directory holding per-keyspace baseline/ and schema_migrations/ CQL files")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createOrgCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads .env (if present) then the on-disk/environment
// configuration, exactly as every subcommand needs it.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("authservicesapid: no .env file loaded: %v", err)
	}
	return config.Load()
}

// wire builds the Store Gateway, Auth Data Layer, and Migration
// Coordinator shared by every subcommand that talks to Cassandra.
func wire(cfg *config.Config) (*store.Gateway, *authdb.AuthDB, *migrate.Coordinator) {
	gw := store.NewGateway(cfg.Cassandra)
	authDB := authdb.New(gw, cfg.Cassandra.AuthKeyspace)
	catalog := schema.Catalog{Root: schemaRoot, Keyspace: cfg.Cassandra.AuthKeyspace}
	coord := migrate.New(gw, catalog)
	return gw, authDB, coord
}

func bootstrapOptions(cfg *config.Config) bootstrap.Options {
	return bootstrap.Options{
		Keyspace:          cfg.Cassandra.AuthKeyspace,
		ReplicationClass:  "SimpleStrategy",
		ReplicationFactor: 1,
		DefaultOrgName:    cfg.DefaultOrg.Name,
		DefaultAdminUser:  cfg.DefaultOrg.DefaultAdminUser,
		DefaultAdminPass:  cfg.DefaultOrg.DefaultAdminPass,
		DefaultAdminEmail: cfg.DefaultOrg.DefaultAdminEmail,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("authservicesapid %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		return nil
	},
}
