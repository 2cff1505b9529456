package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridpoint.org/internal/httpapi"
	"gridpoint.org/internal/obs"
	"gridpoint.org/internal/peer"
	"gridpoint.org/internal/records"
	"gridpoint.org/internal/store/pg"
)

var version = "0.3.1"

// One binary serves any of the record resources; GRIDPOINT_SERVICE picks
// which. A deployment runs one process per resource so the peers stay
// independently restartable.
func main() {
	service := os.Getenv("GRIDPOINT_SERVICE")
	desc, ok := records.DescriptorByName(service)
	if !ok {
		log.Fatalf("GRIDPOINT_SERVICE must name a record resource, got %q", service)
	}

	obs.Init()
	obs.InitBuildInfo("gridpoint-"+desc.Plural, version)

	identityURL := os.Getenv("GRIDPOINT_IDENTITY_URL")
	if identityURL == "" {
		log.Fatal("GRIDPOINT_IDENTITY_URL is required")
	}
	peerTimeout := 5 * time.Second
	if raw := os.Getenv("GRIDPOINT_PEER_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("GRIDPOINT_PEER_TIMEOUT: %v", err)
		}
		peerTimeout = d
	}

	var (
		db    *sql.DB
		store records.Store
	)
	if dsn := os.Getenv("GRIDPOINT_PG_DSN"); dsn != "" {
		var err error
		db, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pg.NewRecordStore(db, desc)
	} else {
		log.Println("GRIDPOINT_PG_DSN not set, using in-memory record store")
		store = records.NewInMemory()
	}

	var deps records.DependencyBuilder
	switch desc.Singular {
	case records.PlaceItemDescriptor.Singular:
		deps = records.PlaceItemDependencies(
			peerClient("GRIDPOINT_PLACES_URL", peerTimeout),
			peerClient("GRIDPOINT_ITEMS_URL", peerTimeout),
		)
	case records.MeasurementPlaceItemDescriptor.Singular:
		deps = records.MeasurementPlaceItemDependencies(
			peerClient("GRIDPOINT_MEASUREMENTS_URL", peerTimeout),
			peerClient("GRIDPOINT_PLACE_ITEMS_URL", peerTimeout),
		)
	}

	gate := peer.NewIdentityGate(identityURL, peerTimeout)
	svc := records.NewService(desc, gate, store, deps)
	api := httpapi.NewRecords(httpapi.ReadyProbe{DB: db}, version, svc)

	addr := os.Getenv("GRIDPOINT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gridpoint-%s %s on %s", desc.Plural, version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func peerClient(envVar string, timeout time.Duration) *peer.Client {
	url := os.Getenv(envVar)
	if url == "" {
		log.Fatalf("%s is required for this service", envVar)
	}
	return peer.NewClient(url, timeout)
}
