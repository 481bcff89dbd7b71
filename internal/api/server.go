package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"tourguide/pkg/version"
)

// Options configures the HTTP server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(opts Options, tours *TourHandler, live *LiveHandler, stats *StatsHandler, tripH *TripHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Diagnostics
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/trip/events", tripH.HandleEvents)

	// 3. Controller operations
	mux.HandleFunc("GET /api/output", tours.HandleOutput)
	mux.HandleFunc("GET /api/tours", tours.HandleList)
	mux.HandleFunc("POST /api/tours", tours.HandleStart)
	mux.HandleFunc("POST /api/tours/draft/legs", tours.HandleAddLeg)
	mux.HandleFunc("POST /api/tours/draft/waypoints", tours.HandleAddWaypoint)
	mux.HandleFunc("POST /api/tours/draft/end", tours.HandleEnd)
	mux.HandleFunc("GET /api/tours/{id}", tours.HandleSummary)
	mux.HandleFunc("POST /api/browse", tours.HandleOverview)
	mux.HandleFunc("POST /api/tours/{id}/details", tours.HandleDetails)
	mux.HandleFunc("POST /api/tours/{id}/follow", tours.HandleFollow)
	mux.HandleFunc("POST /api/follow/end", tours.HandleEndFollow)
	mux.HandleFunc("PUT /api/location", tours.HandleLocation)

	// 4. Live feed
	if live != nil {
		mux.Handle("GET /api/live", live)
	}

	// 5. Shutdown Endpoint
	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Call shutdown in a goroutine to allow response to flush
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return &http.Server{
		Addr:         opts.Addr,
		Handler:      corsHandler(opts.AllowedOrigins, mux),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

func corsHandler(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(next)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": %q}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
