package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/audit"
	"github.com/nexpos/engine/internal/config"
	"github.com/nexpos/engine/internal/router"
	"github.com/nexpos/engine/internal/service"
	"github.com/nexpos/engine/internal/store"
	"github.com/nexpos/engine/internal/store/memory"
	"github.com/nexpos/engine/internal/store/rtdb"
	"github.com/nexpos/engine/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	st, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Store.Backend, err)
	}
	log.Printf("Using %s store", cfg.Store.Backend)

	engine := service.NewEngine(st, audit.NewLogger(st), decimal.NewFromFloat(cfg.Tax.Percent))

	hub := ws.NewHub()
	go hub.Run()
	if err := ws.Bridge(ctx, hub, st); err != nil {
		log.Fatalf("Failed to start store watchers: %v", err)
	}

	r := router.New(cfg, engine, hub)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	log.Printf("Starting server on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "rtdb":
		return rtdb.New(ctx, rtdb.Config{
			DatabaseURL:     cfg.Store.DatabaseURL,
			CredentialsPath: cfg.Store.CredentialsPath,
			PollInterval:    cfg.Store.PollInterval,
		})
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
