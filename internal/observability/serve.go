package observability

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeMetrics exposes the collector's registry over HTTP. The server
// runs in a background goroutine; the caller shuts it down via the
// returned *http.Server.
func ServeMetrics(addr, path string, m *MetricsCollector, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics endpoint listening",
			slog.String("addr", addr),
			slog.String("path", path),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", slog.String("error", err.Error()))
		}
	}()

	return srv
}
