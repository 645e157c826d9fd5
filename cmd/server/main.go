package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"captable/internal/config"
	"captable/internal/db"
	"captable/internal/handlers"
	"captable/internal/services"
	"captable/internal/store"
	"captable/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	operators := store.NewOperatorStore(database)
	entities := store.NewEntityStore(database)
	stocks := store.NewStockStore(database)
	shareholders := store.NewShareholderStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	taxonomy := services.NewTaxonomyService(stocks)
	ledger := services.NewLedgerService(txRunner, shareholders, transactions, taxonomy, audit, hub)
	reports := services.NewReportService(stocks, shareholders, transactions)

	handler := handlers.New(txRunner, cfg, users, operators, entities, stocks, shareholders, transactions, audit, taxonomy, ledger, reports, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("cap-table API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
