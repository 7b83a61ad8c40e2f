package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"audiocast/internal/platform/config"
	"audiocast/internal/platform/logger"
	"audiocast/internal/platform/metrics"
	"audiocast/internal/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8000")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	rtmpHost := config.GetEnv("RTMP_HOST", "localhost")
	rtmpPort := config.GetEnvInt("RTMP_PORT", 1935)
	publicBaseURL := config.GetEnv("PUBLIC_BASE_URL", "http://localhost:8088")
	hlsBasePath := config.GetEnv("HLS_BASE_PATH", "/hls")

	corsOrigins := config.GetEnv("CORS_ALLOWED_ORIGINS", "*")
	storeDSN := config.GetEnv("STORE_DSN", "")
	staleTTL := config.GetEnvDuration("STALE_SESSION_TTL", 0)
	sweepInterval := config.GetEnvDuration("SWEEP_INTERVAL", time.Minute)

	log := logger.New(logLevel, logFormat)

	var store registry.Store = registry.NewInMemoryStore()
	if storeDSN != "" {
		sqliteStore, err := registry.OpenSQLiteStore(storeDSN)
		if err != nil {
			log.Error("opening store failed", "dsn", storeDSN, "error", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		log.Info("using sqlite store", "dsn", storeDSN)
	}

	repo := registry.NewRoomRepository(store)
	tracker := registry.NewTracker(repo)
	svc := registry.NewService(repo, tracker)
	links := &registry.LinkBuilder{
		RTMPHost:      rtmpHost,
		RTMPPort:      rtmpPort,
		PublicBaseURL: publicBaseURL,
		HLSBasePath:   hlsBasePath,
	}
	met := metrics.New()
	h := registry.NewHandler(svc, links, log, met)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(corsOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         86400,
	}))
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			met.SetActiveRooms(repo.ActiveRoomCount())
			met.SetActiveSessions(tracker.ActiveSessionCount())
		}).ServeHTTP(w, req)
	})
	h.Register(r)

	stopSweep := make(chan struct{})
	if staleTTL > 0 {
		go func() {
			t := time.NewTicker(sweepInterval)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					if n := tracker.SweepStale(staleTTL); n > 0 {
						log.Info("expired stale sessions", "count", n)
					}
				case <-stopSweep:
					return
				}
			}
		}()
	}

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"rtmp_host", rtmpHost,
		"rtmp_port", rtmpPort,
		"stale_session_ttl", staleTTL.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")
	close(stopSweep)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
