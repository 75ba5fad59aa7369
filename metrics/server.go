package metrics

import (
	"net/http"
	"time"

	"github.com/gdownersigma/c21-commodities/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartServer exposes /metrics and /health while a run is in flight. The
// caller owns the returned server and shuts it down when the run ends.
func StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Monitoring server error: %s", err)
		}
	}()

	return server
}
