package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citygrid/core-go/internal/config"
	"citygrid/core-go/internal/device"
	"citygrid/core-go/internal/httpapi"
	"citygrid/core-go/internal/ingestworker"
	"citygrid/core-go/internal/inventory"
	"citygrid/core-go/internal/mapview"
	"citygrid/core-go/internal/metrics"
	"citygrid/core-go/internal/reporting"
	"citygrid/core-go/internal/sheets"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := httpapi.NewLogger("info")
		fallback.Fatal().Err(err).Msg("failed to load config")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	store := inventory.NewStore()

	view := mapview.New(mapview.Config{
		Center:          mapview.Coordinate{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng},
		Zoom:            cfg.Map.Zoom,
		FocusZoom:       cfg.Map.FocusZoom,
		TileURL:         cfg.Map.TileURL,
		TileAttribution: cfg.Map.TileAttribution,
		TileMaxZoom:     cfg.Map.TileMaxZoom,
		ShowCoverage:    cfg.Map.ShowCoverage,
	}, m)

	// Every inventory change flows into the map and the device gauges.
	store.Subscribe(func() {
		devices := store.Devices()
		view.SetDevices(devices)

		counts := make(map[device.Category]int)
		for _, d := range devices {
			counts[d.Category]++
		}
		for _, cat := range device.AllCategories() {
			m.SetInventoryDevices(string(cat), counts[cat])
		}
	})

	client := sheets.NewClient(cfg.Ingest.FetchTimeout.Std())
	worker := ingestworker.New(logger, client, store, ingestworker.Options{
		Sources:      cfg.Ingest.Sources,
		Interval:     cfg.Ingest.RefreshInterval.Std(),
		FetchTimeout: cfg.Ingest.FetchTimeout.Std(),
	}, m)
	go worker.Run(ctx)

	reporter := reporting.NewLog(logger)

	h := httpapi.NewHandler(logger, store, view, worker, reporter, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Int("sources", len(cfg.Ingest.Sources)).Msg("core-go listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	view.Teardown()
	logger.Info().Msg("shutdown complete")
}
