package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/handlers"
	"github.com/lidar-tools/tilecat/internal/multitemp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var cell float64
	var tolerance float64
	var partial bool

	cmd := &cobra.Command{
		Use:   "serve [inputs...]",
		Short: "Serve a resolved catalog as a read-only JSON API",
		Long: `Serve resolves the inputs once at startup and exposes the catalog over
HTTP.

Endpoints:
  /api/catalog   the catalog as a virtual point cloud document
  /api/tiles     grid classification with per-tile observation rows
  /api/entries   entries narrowed by bbox, epsg, start, and end parameters
  /healthcheck   liveness probe`,
		Example: `  # Serve a directory of tiles on the default port
  tilecat serve ./tiles

  # Serve a catalog document on port 3000
  tilecat serve survey.vpc --port 3000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := resolveCatalog(cmd.Context(), args)
			if err != nil {
				return err
			}
			classification, err := multitemp.Classify(catalog, classifyOptions(cell, tolerance, partial))
			if err != nil {
				return err
			}
			handler := handlers.New(catalog, classification)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/catalog", handler.HandleCatalog)
			mux.HandleFunc("/api/tiles", handler.HandleTiles)
			mux.HandleFunc("/api/entries", handler.HandleEntries)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Catalog API available", "addr", addr, "entries", catalog.Len())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().Float64Var(&cell, "cell", grid.DefaultCellSize, "Grid cell size in CRS units")
	cmd.Flags().Float64Var(&tolerance, "tolerance", grid.DefaultTolerance, "Snap tolerance for tile corners in CRS units")
	cmd.Flags().BoolVar(&partial, "partial", false, "Keep entries that do not cover exactly one grid cell")

	return cmd
}
