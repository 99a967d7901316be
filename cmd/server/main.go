/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the weekly points ledger server: configuration,
  dependency wiring, graceful shutdown.

CONFIGURATION:
  Environment variables (a .env file is loaded when present), with
  command-line flags taking precedence:

    PORT                HTTP server port           (default 8080)
    LEDGER_DB           SQLite database path       (default ledger.db)
    LEDGER_JSON         JSON document path         (default ledger.json)
    LEDGER_JSON_MIRROR  optional JSON mirror path
    LEDGER_TZ           business timezone          (default Europe/Berlin)
    LEDGER_WINDOW       commit window: "always" or "HH:MM-HH:MM"
    LEDGER_ROSTER       comma-separated default roster

STARTUP SEQUENCE:
  1. Load env + flags
  2. Open SQLite store and JSON document store
  3. Compose the dual store, sync both sides
  4. Seed the default roster
  5. Start HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the database.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/points-ledger/api"
	"github.com/warp/points-ledger/ledger"
	"github.com/warp/points-ledger/store/dual"
	"github.com/warp/points-ledger/store/jsondoc"
	"github.com/warp/points-ledger/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envString("LEDGER_DB", "ledger.db"), "SQLite database path")
	jsonPath := flag.String("json", envString("LEDGER_JSON", "ledger.json"), "JSON document path")
	mirrorPath := flag.String("json-mirror", envString("LEDGER_JSON_MIRROR", ""), "JSON mirror path (optional)")
	tzName := flag.String("tz", envString("LEDGER_TZ", "Europe/Berlin"), "business timezone")
	window := flag.String("window", envString("LEDGER_WINDOW", "always"), `commit window: "always" or "HH:MM-HH:MM"`)
	roster := flag.String("roster", envString("LEDGER_ROSTER", ""), "comma-separated default roster")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	loc, err := time.LoadLocation(*tzName)
	if err != nil {
		log.Fatal("invalid timezone", zap.String("tz", *tzName), zap.Error(err))
	}
	policy, err := ledger.ParseWindowPolicy(*window, loc)
	if err != nil {
		log.Fatal("invalid commit window", zap.String("window", *window), zap.Error(err))
	}

	relational, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal("failed to open database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer relational.Close()

	var jsonOpts []jsondoc.Option
	if *mirrorPath != "" {
		jsonOpts = append(jsonOpts, jsondoc.WithMirror(*mirrorPath))
	}
	jsonOpts = append(jsonOpts, jsondoc.WithLogger(log))
	document := jsondoc.New(*jsonPath, jsonOpts...)

	store := dual.New(relational, document, log)

	ctx := context.Background()
	if err := store.Sync(ctx); err != nil {
		log.Warn("store sync failed, continuing with primary state", zap.Error(err))
	}
	if names := splitRoster(*roster); len(names) > 0 {
		if err := ledger.EnsureRoster(ctx, store, names); err != nil {
			log.Fatal("failed to seed roster", zap.Error(err))
		}
	}

	svc := ledger.New(store,
		ledger.WithWindowPolicy(policy),
		ledger.WithLogger(log),
		ledger.WithArchiveSink(document),
	)

	router := api.NewRouter(api.NewHandler(svc))
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.Int("port", *port),
			zap.String("window", policy.String()),
			zap.String("week", svc.CurrentWeek()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func splitRoster(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var names []string
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}
