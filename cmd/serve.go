package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logiclamp/leadscout/internal/pipeline"
	"github.com/logiclamp/leadscout/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lead API over HTTP",
	Long:  "Exposes stored leads, stats, and batch search over a JSON API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		adapters, err := env.Registry.Select(cfg.Sources.Enabled)
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			Adapters: adapters,
			Scorer:   env.Scorer,
			Store:    env.Store,
		}
		if env.Enricher != nil {
			opts.Enricher = env.Enricher
		}

		srv := server.New(server.Options{
			Store:       env.Store,
			Runner:      pipeline.New(opts),
			CORSOrigins: cfg.Server.CORSOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		return srv.Serve(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
