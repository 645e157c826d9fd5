package handlers

import (
	"net/http"

	"captable/internal/config"
	"captable/internal/db"
	"captable/internal/middleware"
	"captable/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	users        UserStore
	operators    OperatorStore
	entities     EntityStore
	stocks       StockStore
	shareholders ShareholderStore
	transactions TransactionStore
	audit        AuditStore
	taxonomy     TaxonomyService
	ledger       LedgerService
	reports      ReportService
	hub          *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, operators OperatorStore, entities EntityStore, stocks StockStore, shareholders ShareholderStore, transactions TransactionStore, audit AuditStore, taxonomy TaxonomyService, ledger LedgerService, reports ReportService, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:     txRunner,
		cfg:          cfg,
		users:        users,
		operators:    operators,
		entities:     entities,
		stocks:       stocks,
		shareholders: shareholders,
		transactions: transactions,
		audit:        audit,
		taxonomy:     taxonomy,
		ledger:       ledger,
		reports:      reports,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMW := middleware.Auth(h.cfg.JWTSecret)
	anyScope := middleware.RequireScope(h.operators)
	writeScope := middleware.RequireScope(h.operators, middleware.RoleAdmin, middleware.RoleIssuer)
	adminScope := middleware.RequireScope(h.operators, middleware.RoleAdmin)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authMW).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(authMW)
		r.With(anyScope).Get("/stock-types", h.ListStockTypes)
		r.With(adminScope).Post("/stock-types", h.CreateStockType)
		r.With(anyScope).Get("/stock-types/{id}/series", h.ListStockSeries)
		r.With(adminScope).Post("/stock-types/{id}/series", h.CreateStockSeries)

		r.With(anyScope).Get("/shareholders", h.ListShareholders)
		r.With(writeScope).Post("/shareholders", h.CreateShareholder)
		r.With(anyScope).Get("/shareholders/{id}", h.GetShareholder)
		r.With(writeScope).Delete("/shareholders/{id}", h.DeleteShareholder)

		r.With(writeScope).Post("/ledger/issue", h.IssueShares)
		r.With(writeScope).Post("/ledger/transfer", h.TransferShares)
		r.With(writeScope).Post("/ledger/cancel", h.CancelShares)
		r.With(anyScope).Get("/ledger/transactions", h.ListTransactions)
		r.With(anyScope).Get("/ledger/verify", h.VerifyLedger)

		r.With(anyScope).Get("/reports/ownership", h.OwnershipReport)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authMW)
		r.Use(middleware.RequirePlatformAdmin(h.operators))
		r.Post("/entities", h.CreateEntity)
		r.Get("/entities", h.ListEntities)
		r.Delete("/entities/{id}", h.DeactivateEntity)
		r.Post("/operators", h.AssignOperator)
		r.Get("/audit", h.ListAuditLogs)
	})

	router.Get("/ws/positions", h.WSPositions)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
