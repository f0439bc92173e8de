package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cassauth/authservicesapi/internal/api"
	"github.com/cassauth/authservicesapi/internal/bootstrap"
)

var skipBootstrap bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bootstrap the schema if needed and start the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		gw, authDB, coord := wire(cfg)
		defer gw.Close()

		if !skipBootstrap {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			if err := bootstrap.Setup(ctx, gw, coord, authDB, bootstrapOptions(cfg)); err != nil {
				return err
			}
		}

		server := api.NewServer(cfg, authDB)

		go func() {
			log.Printf("authservicesapid: listening on %s", cfg.Server.Port)
			if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("authservicesapid: server error: %v", err)
			}
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		log.Print("authservicesapid: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipBootstrap, "skip-bootstrap", false, "skip keyspace/schema bootstrap on startup")
}
