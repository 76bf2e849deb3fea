package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/payee-ledger/docs"
	adminhandlers "github.com/GlebRadaev/payee-ledger/internal/handlers/admin"
	balancehandlers "github.com/GlebRadaev/payee-ledger/internal/handlers/balance"
	callbackhandlers "github.com/GlebRadaev/payee-ledger/internal/handlers/callbacks"
	ordershandlers "github.com/GlebRadaev/payee-ledger/internal/handlers/orders"
	withdrawalhandlers "github.com/GlebRadaev/payee-ledger/internal/handlers/withdrawals"
	"github.com/GlebRadaev/payee-ledger/internal/service"
	"github.com/GlebRadaev/payee-ledger/pkg/auth"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

type BalanceHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
}

type WithdrawalHandler interface {
	Request(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	ListCommissions(w http.ResponseWriter, r *http.Request)
	GetCommission(w http.ResponseWriter, r *http.Request)
	ApproveCommission(w http.ResponseWriter, r *http.Request)
	CancelCommission(w http.ResponseWriter, r *http.Request)
	Reconcile(w http.ResponseWriter, r *http.Request)
	LastReconcile(w http.ResponseWriter, r *http.Request)
	Conflicts(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	AddEvent(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
}

type CallbackHandler interface {
	PayoutStatus(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	BalanceHandler    BalanceHandler
	WithdrawalHandler WithdrawalHandler
	AdminHandler      AdminHandler
	OrderHandler      OrderHandler
	CallbackHandler   CallbackHandler
	JWTService        auth.JWTServiceInterface
}

func New(s *service.Services, jwtService auth.JWTServiceInterface, callbackSecret string) *Handlers {
	return &Handlers{
		BalanceHandler:    balancehandlers.New(s.BalanceService, s.LedgerService),
		WithdrawalHandler: withdrawalhandlers.New(s.WithdrawalService),
		AdminHandler:      adminhandlers.New(s.BalanceService, s.CommissionService, s.ReconcileService, s.LedgerService),
		OrderHandler:      ordershandlers.New(s.OrderService),
		CallbackHandler:   callbackhandlers.New(s.WithdrawalService, callbackSecret),
		JWTService:        jwtService,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/gateway/callbacks", h.CallbackHandler.PayoutStatus)

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(h.JWTService))

			r.Route("/balance", func(r chi.Router) {
				r.Get("/", h.BalanceHandler.GetBalance)
				r.Get("/transactions", h.BalanceHandler.GetTransactions)
			})
			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", h.WithdrawalHandler.Request)
				r.Get("/", h.WithdrawalHandler.List)
				r.Get("/{id}", h.WithdrawalHandler.Get)
				r.Post("/{id}/cancel", h.WithdrawalHandler.Cancel)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))
				r.Get("/balances/{payeeID}", h.AdminHandler.GetBalance)
				r.Route("/commissions", func(r chi.Router) {
					r.Get("/", h.AdminHandler.ListCommissions)
					r.Get("/{id}", h.AdminHandler.GetCommission)
					r.Post("/{id}/approve", h.AdminHandler.ApproveCommission)
					r.Post("/{id}/cancel", h.AdminHandler.CancelCommission)
				})
				r.Post("/reconcile", h.AdminHandler.Reconcile)
				r.Get("/reconcile", h.AdminHandler.LastReconcile)
				r.Get("/conflicts", h.AdminHandler.Conflicts)
			})

			r.Route("/internal/orders", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleService))
				r.Post("/events", h.OrderHandler.AddEvent)
				r.Get("/{orderID}", h.OrderHandler.GetOrder)
			})
		})
	})

	return r
}
