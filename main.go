package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/EmpoweredVote/wahlkreis/internal/archive"
	"github.com/EmpoweredVote/wahlkreis/internal/config"
	"github.com/EmpoweredVote/wahlkreis/internal/dashboard"
	"github.com/EmpoweredVote/wahlkreis/internal/db"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/geo"
	"github.com/EmpoweredVote/wahlkreis/internal/logging"
	"github.com/EmpoweredVote/wahlkreis/internal/metrics"
	"github.com/EmpoweredVote/wahlkreis/internal/middleware"
)

func HealthHandler(store *election.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		snap := store.Current()
		if snap == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "no snapshot loaded")
			return
		}
		fmt.Fprintf(w, "ok %s %s\n", snap.ShortDigest(), snap.FetchedAt.Format(time.RFC3339))
	}
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	if err := logging.Setup(cfg.LogLevel); err != nil {
		log.Fatal("Failed to set up logging: ", err)
	}
	defer logging.Sync()
	lg := logging.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var recorder *archive.Recorder
	if cfg.DatabaseURL != "" {
		d, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			lg.Fatalf("[main] %v", err)
		}
		recorder = archive.New(d)
		if err := recorder.Migrate(); err != nil {
			lg.Fatalf("[main] %v", err)
		}
	} else {
		lg.Info("[main] DATABASE_URL not set, snapshot archive disabled")
	}

	var districtMap *geo.Map
	if cfg.ShapefilePath != "" {
		districtMap, err = geo.LoadShapefile(cfg.ShapefilePath, cfg.Map)
		if err != nil {
			if cfg.MapRequired {
				lg.Fatalf("[main] load district map: %v", err)
			}
			lg.Warnf("[main] district map disabled: %v", err)
			districtMap = nil
		}
	}

	opts := []election.StoreOption{
		election.WithReloadLimit(cfg.ReloadEveryDur, 1),
		election.WithLoadTimeout(2*cfg.FetchTimeoutDur),
		election.WithObserver(m),
	}
	if recorder != nil {
		opts = append(opts, election.WithObserver(recorder))
	}
	store := election.NewStore(cfg.Source(), cfg.Settings(), opts...)
	// Without the initial snapshot there is nothing to serve.
	if _, err := store.Load(ctx); err != nil {
		lg.Fatalf("[main] initial load from %s: %v", cfg.Source().Name(), err)
	}
	go store.Run(ctx, cfg.ReloadIntervalDur)

	dash := dashboard.New(dashboard.Deps{
		Store:           store,
		Map:             districtMap,
		Archive:         recorder,
		Metrics:         m,
		Palette:         cfg.ChartPalette(),
		SourceText:      cfg.SourceText,
		MapSourceText:   cfg.MapSourceText,
		Summary:         cfg.Summary,
		ReloadTokenHash: cfg.ReloadTokenHash,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(m.Instrument)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Get("/healthz", HealthHandler(store))
	r.Handle("/metrics", metrics.Handler(reg))
	r.Mount("/", dash.SetupRoutes())

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lg.Infof("[main] server listening on port :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatalf("[main] %v", err)
	}
}
