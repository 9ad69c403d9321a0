package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
	"fleetcore.org/internal/httpapi"
	"fleetcore.org/internal/obs"
	"fleetcore.org/internal/store/pg"
)

// Overridden at build time via -ldflags.
var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// Local development reads FLEET_* settings from .env; in deployment the
	// environment is injected and the file is absent.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("FLEET_PG_DSN")
	if dsn == "" {
		log.Fatal("FLEET_PG_DSN is required")
	}
	sessionSecret := os.Getenv("FLEET_SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("FLEET_SESSION_SECRET is required")
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	authOpts := []auth.ServiceOption{}
	if role := os.Getenv("FLEET_SUPER_ROLE"); role != "" {
		authOpts = append(authOpts, auth.WithSuperRole(role))
	}
	if secret := os.Getenv("FLEET_TOKEN_SECRET"); secret != "" {
		authOpts = append(authOpts, auth.WithTokenSecret(secret))
	}
	authSvc := auth.NewService(store, authOpts...)
	fleetSvc := fleet.NewService(store.FleetStores())

	api := httpapi.New(httpapi.Config{
		Auth:          authSvc,
		Fleet:         fleetSvc,
		Ready:         httpapi.ReadyProbe{DB: store.DB()},
		Version:       version,
		SessionSecret: sessionSecret,
	})

	addr := os.Getenv("FLEET_HTTP_ADDR")
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

	log.Printf("Starting fleet-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}
