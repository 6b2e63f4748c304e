/*
main.go - Server entry point

PURPOSE:
  Loads configuration from the environment (FINANCE_ prefix) with flag
  overrides, opens the store, and runs the HTTP server until SIGINT or
  SIGTERM, then drains in-flight requests.

CONFIGURATION:
  FINANCE_PORT      Listen port (default 8080), override with -port
  FINANCE_DB_PATH   SQLite file (default finance.db), override with -db
  FINANCE_PASSWORD  Shared bearer password; empty disables the gate
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/woodbahia/finance-engine/api"
	"github.com/woodbahia/finance-engine/store/sqlite"
)

type config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	DBPath   string `envconfig:"DB_PATH" default:"finance.db"`
	Password string `envconfig:"PASSWORD"`
}

func main() {
	var cfg config
	if err := envconfig.Process("FINANCE", &cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	port := flag.Int("port", cfg.Port, "listen port")
	dbPath := flag.String("db", cfg.DBPath, "path to the SQLite database file")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	srv := api.NewServer(fmt.Sprintf(":%d", *port), store, cfg.Password)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (db %s)", srv.Addr, *dbPath)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
