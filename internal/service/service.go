package service

import (
	"github.com/GlebRadaev/payee-ledger/internal/config"
	"github.com/GlebRadaev/payee-ledger/internal/repo"
	"github.com/GlebRadaev/payee-ledger/internal/service/balanceservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/commissionservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/ledgerservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/orderservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/reconcileservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/withdrawalservice"
)

type Services struct {
	LedgerService     *ledgerservice.Service
	BalanceService    *balanceservice.Service
	CommissionService *commissionservice.Service
	OrderService      *orderservice.Service
	WithdrawalService *withdrawalservice.Service
	ReconcileService  *reconcileservice.Service
}

func New(cfg *config.Config, repo *repo.Repositories, gateway withdrawalservice.Gateway) *Services {
	ledgerService := ledgerservice.New(repo.Ledger, repo.Conflicts)
	balanceService := balanceservice.New(repo.BalanceRepo, ledgerService, repo.TxManager, cfg.BalanceMaxRetries)
	commissionService := commissionservice.New(repo.Commissions, repo.Managers, balanceService, cfg.DefaultCommissionPercent)
	orderService := orderservice.New(repo.OrderRepo, balanceService, ledgerService, commissionService)
	withdrawalService := withdrawalservice.New(repo.Withdrawal, balanceService, gateway, commissionService, cfg.PayoutStaleAfter)
	reconcileService := reconcileservice.New(balanceService, orderService, ledgerService, cfg.ReconcileWorkers)

	return &Services{
		LedgerService:     ledgerService,
		BalanceService:    balanceService,
		CommissionService: commissionService,
		OrderService:      orderService,
		WithdrawalService: withdrawalService,
		ReconcileService:  reconcileService,
	}
}
