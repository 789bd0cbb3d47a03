package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/logger"
	"canopy/explorer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph API and interactive sessions over HTTP and websockets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, d, err := OpenCatalog()
		if err != nil {
			return err
		}
		if d != nil {
			defer d.Close()
		}

		sc := cfg.Server
		if serveAddr != "" {
			sc.Addr = serveAddr
		}
		opts := cfg.ExplorerOptions()
		factory := func(view explorer.Viewport) *explorer.Session {
			adapter := layout.NewAdapter(layout.Sugiyama{}, cfg.Layout.Options, cfg.Layout.Timeout, logger.Logger)
			return explorer.New(cat, adapter, view, opts, logger.Logger)
		}
		srv := server.New(cat, factory, sc, logger.Logger)

		pterm.Info.Printf("canopy listening on %s (catalog: %s)\n", sc.Addr, cfg.Catalog.Source)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Run(ctx); err != nil {
			return err
		}
		pterm.Success.Println("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
