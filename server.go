package odatacore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theoremus-urban-solutions/odata-core/config"
	"github.com/theoremus-urban-solutions/odata-core/internal/logging"
)

var (
	server *http.Server
)

// StartServer serves handler on the configured port in the background.
func StartServer(handler http.Handler) {
	addr := fmt.Sprintf(":%d", config.Config.Server.Port)
	server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Global().Error().Err(err).Str("addr", addr).Msg("server error")
			os.Exit(1)
		}
	}()
	logging.Global().Info().Str("addr", addr).Msg("server listening")
}

// HandleGracefulShutdown blocks until SIGINT or SIGTERM and then shuts the
// server down, waiting for in-flight requests up to the configured timeout.
func HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logging.Global().Info().Msg("shutdown signal received")

	timeout := time.Duration(config.Config.Server.ShutdownTimeoutMS) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if server != nil {
		logging.Global().LogServerShutdown(server.Shutdown(ctx))
	}
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
