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

	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/httpapi"
	"gridpoint.org/internal/identity"
	"gridpoint.org/internal/obs"
	"gridpoint.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo("gridpoint-identity", version)

	var (
		db    *sql.DB
		store identity.Store
	)
	if dsn := os.Getenv("GRIDPOINT_PG_DSN"); dsn != "" {
		var err error
		db, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pg.NewUserStore(db)
	} else {
		log.Println("GRIDPOINT_PG_DSN not set, using in-memory user store")
		store = identity.NewInMemory()
	}

	svc, err := identity.NewService(store, auth.LocalGate{})
	if err != nil {
		log.Fatalf("identity service: %v", err)
	}

	api := httpapi.NewIdentity(httpapi.ReadyProbe{DB: db}, version, svc)

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

	log.Printf("Starting gridpoint-identity %s on %s", version, srv.Addr)

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
