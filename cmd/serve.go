package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reloquent/parity/internal/api"
	"github.com/reloquent/parity/internal/ws"
)

var servePort int
var serveDevMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation API server",
	Long: `Start the REST API on localhost. Validations posted to /api/validations
stream each rule outcome to WebSocket clients connected on /api/ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Graceful shutdown on signals
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := openEngine(ctx, true)
		if err != nil {
			return err
		}
		defer eng.Close()

		hub := ws.NewHub(eng.Logger)
		hub.SetSnapshot(func() (any, error) {
			return eng.LastResult(), nil
		})
		go hub.Run(ctx)

		srv := api.New(eng, eng.Logger, servePort,
			api.WithHub(hub),
			api.WithDevMode(serveDevMode),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "Parity API: http://localhost:%d/api\n", servePort)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			eng.Logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8231, "port for the API server")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS for development mode")
	rootCmd.AddCommand(serveCmd)
}
