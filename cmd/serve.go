package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eratosthenes/geoguess-server/internal/config"
	"github.com/eratosthenes/geoguess-server/internal/engine"
	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/httpapi"
	"github.com/eratosthenes/geoguess-server/internal/identity"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
	"github.com/eratosthenes/geoguess-server/internal/telemetry"
	"github.com/eratosthenes/geoguess-server/internal/uploads"
	"github.com/eratosthenes/geoguess-server/internal/wsapi"
)

var (
	flagQuickwitURL    string
	flagListenAddress  string
	flagJWTSigningKey  string
	flagLocationsPath  string
	flagAllowedOrigins []string
	flagUploadsDir     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Eratosthenes server",
	Long: `Start the Eratosthenes server: load candidate locations, wire the
room engine, and begin accepting HTTP and WebSocket connections.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			fmt.Println("Warning: .env file not found. Relying on flags and the process environment.")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New(os.Stdout, "[Eratosthenes] ", log.LstdFlags|log.Lshortfile)

		cfg, err := config.Load(config.Flags{
			QuickwitURL:    flagQuickwitURL,
			ListenAddress:  flagListenAddress,
			JWTSigningKey:  flagJWTSigningKey,
			LocationsPath:  flagLocationsPath,
			AllowedOrigins: flagAllowedOrigins,
		})
		if err != nil {
			return err
		}

		signer, err := identity.NewSigner([]byte(cfg.JWTSigningKey))
		if err != nil {
			return fmt.Errorf("failed to create signer: %w", err)
		}

		locations, err := geo.LoadLocations(cfg.LocationsPath)
		if err != nil {
			return fmt.Errorf("failed to load locations: %w", err)
		}

		store := rooms.NewStore()
		registry := sockets.NewRegistry()
		eng := engine.New(store, registry, locations)

		var uploadStore *uploads.Store
		if cfg.ObjectStorageConfigured() {
			uploadStore = uploads.NewStore(flagUploadsDir)
		}

		shipper := telemetry.New(cfg.QuickwitURL)
		stopTelemetry := make(chan struct{})
		go shipper.Run(stopTelemetry, registry)
		defer close(stopTelemetry)

		ws := wsapi.NewServer(eng, registry, shipper)
		httpServer := httpapi.NewServer(eng, signer, ws, uploadStore, shipper, httpapi.Config{
			AllowedOrigins: cfg.AllowedOrigins,
		})

		srv := &http.Server{
			Addr:    cfg.ListenAddress,
			Handler: httpServer.Handler(),
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			logger.Printf("Starting HTTP server on %s...", cfg.ListenAddress)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("server error: %w", err)
			}
		}()

		select {
		case err := <-errChan:
			return err
		case sig := <-sigChan:
			logger.Printf("Received signal %v, initiating shutdown...", sig)
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Printf("Shutdown deadline exceeded, forcing exit: %v", err)
				return err
			}
			logger.Printf("Shutdown completed gracefully")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagQuickwitURL, "quickwit-url", "", "Quickwit base URL for telemetry ingest (optional)")
	serveCmd.Flags().StringVar(&flagListenAddress, "listen-address", ":8080", "address to listen on")
	serveCmd.Flags().StringVar(&flagJWTSigningKey, "jwt-signing-key", "", "symmetric key used to sign passcodes")
	serveCmd.Flags().StringVar(&flagLocationsPath, "locations", "", "path to a newline-delimited JSON file of {lat,lng} candidate locations")
	serveCmd.Flags().StringSliceVar(&flagAllowedOrigins, "allowed-origin", []string{"*"}, "allowed CORS origin (repeatable)")
	serveCmd.Flags().StringVar(&flagUploadsDir, "uploads-dir", "data/uploads", "local directory backing the uploads adapter")
}
