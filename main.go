package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericonr/ADCore/internal/api"
	"github.com/ericonr/ADCore/internal/config"
	"github.com/ericonr/ADCore/internal/driver"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	layoutPath = flag.String("config", "", "Path to track layout JSON file")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	d := driver.NewDispatcher()
	d.Observe(func(p driver.Param, values []int32) {
		log.Printf("derived %s updated: %v", d.ParamName(p), values)
	})

	if *layoutPath != "" {
		layout, err := config.Load(*layoutPath)
		if err != nil {
			log.Fatalf("failed to load track layout: %v", err)
		}
		if err := layout.Apply(d); err != nil {
			log.Fatalf("failed to apply track layout: %v", err)
		}
		snap := d.Snapshot()
		log.Printf("loaded %d tracks, total data height %d",
			snap.TrackCount, snap.TotalDataHeight)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(api.NewServer(d).ServeMux()),
	}

	go func() {
		log.Printf("multi-track configuration server listening on %s", *listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}
