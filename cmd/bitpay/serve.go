package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	bitpay "github.com/bitpay/bitpay-go"
	"github.com/bitpay/bitpay-go/extensions/idempotency"
	bpgin "github.com/bitpay/bitpay-go/pkg/gin"
)

var (
	serveAddr string
	servePath string
	serveTTL  time.Duration
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive invoice notifications over HTTP",
		Long: `Start an HTTP server for the notificationURL.

Verified notifications are logged; repeated deliveries of the same
invoice status are acknowledged without being logged again.

Examples:
  bitpay serve --addr :8080 --path /bitpay/notify`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&servePath, "path", "/bitpay/notify", "notification route")
	cmd.Flags().DurationVar(&serveTTL, "dedup-ttl", idempotency.DefaultTTL, "how long handled deliveries are remembered")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST(servePath, bpgin.NotificationHandler(a.client,
		func(ctx context.Context, n *bitpay.Notification) error {
			a.logger.Info().
				Str("invoice_id", string(n.ID)).
				Str("status", string(n.Status)).
				RawJSON("pos_data", n.PosData).
				Msg("notification received")
			return nil
		},
		bpgin.WithStore(idempotency.NewInMemoryStore(serveTTL)),
	))

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", serveAddr).Str("path", servePath).Msg("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
