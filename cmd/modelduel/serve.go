package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rushteam/modelduel/server"
	"github.com/rushteam/modelduel/telemetry"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the comparison HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		if a.cfg.Engine.Preload {
			ready := a.registry.LoadAll(ctx)
			a.logger.Info("adapters preloaded", "ready", ready, "configured", len(a.cfg.Adapters))
		}

		srv, err := server.New(a.engine,
			server.WithLogger(a.logger),
			server.WithMaxUpload(int64(a.cfg.Server.MaxUploadMB)<<20),
			server.WithVersion(telemetry.Version),
		)
		if err != nil {
			return err
		}
		addr := a.cfg.Server.Addr
		if flagAddr != "" {
			addr = flagAddr
		}
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
