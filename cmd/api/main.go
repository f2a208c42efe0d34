package main

import (
	"context"
	"log"
	"net/http"

	"github.com/punchamoorthee/marketledger/internal/api"
	"github.com/punchamoorthee/marketledger/internal/config"
	"github.com/punchamoorthee/marketledger/internal/domain"
	"github.com/punchamoorthee/marketledger/internal/market"
	"github.com/punchamoorthee/marketledger/internal/registry"
	"github.com/punchamoorthee/marketledger/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		st = store.NewMemory()
	default:
		pg, err := store.NewPostgres(ctx, cfg.DBSource)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		if err := pg.ApplySchema(ctx); err != nil {
			log.Fatalf("Unable to apply schema: %v", err)
		}
		st = pg
	}
	defer st.Close()

	marketAccount := domain.Address(cfg.MarketAccount)
	reg := registry.New(marketAccount)

	ledger := market.NewLedger(st, reg, marketAccount)
	if err := ledger.Bootstrap(ctx, cfg.ListingFee, domain.Address(cfg.Operator)); err != nil {
		log.Fatalf("Unable to bootstrap ledger: %v", err)
	}

	handler := api.NewHandler(ledger, registry.NewService(st, reg))
	router := api.NewRouter(handler)

	log.Printf("Marketplace ledger starting on :%s (store=%s, operator=%s)", cfg.Port, cfg.StoreDriver, cfg.Operator)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
