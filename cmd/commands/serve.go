package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"storefront/events"
	"storefront/logging"
	"storefront/metrics"
	"storefront/routes"
	"storefront/services"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New("storefront", cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	secret, err := jwtSecret(cfg, log)
	if err != nil {
		return err
	}
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	srvMetrics := metrics.NewServerMetrics("api", prometheus.DefaultRegisterer)

	orders := services.NewOrderService(st.orders, st.catalog, srvMetrics, log)
	deps := routes.Deps{
		Carts:          services.NewCartService(st.carts, st.catalog, log),
		Orders:         orders,
		Checkout:       services.NewCheckoutService(orders, log),
		Products:       st.catalog,
		Users:          st.users,
		JWTSecret:      secret,
		TokenTTL:       cfg.TokenTTL,
		RequestTimeout: cfg.RequestTimeout,
		AllowOrigins:   cfg.CORSAllowOrigins,
		Metrics:        srvMetrics,
		Health:         st.health,
		Log:            log,
	}

	if client := events.NewClient(cfg.KafkaBrokers); client.Enabled() && st.outbox != nil {
		writer := client.NewWriter()
		defer writer.Close()
		relay := events.NewRelay(st.outbox, writer, cfg.OutboxPoll, srvMetrics, log)
		go relay.Run(ctx)
		log.WithField("brokers", cfg.KafkaBrokers).Info("outbox relay started")
	}

	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("storefront listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
