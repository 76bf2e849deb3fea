package repo

import (
	"github.com/GlebRadaev/payee-ledger/internal/pg"
	balancerepo "github.com/GlebRadaev/payee-ledger/internal/repo/balance-repo"
	commissionrepo "github.com/GlebRadaev/payee-ledger/internal/repo/commission-repo"
	ledgerrepo "github.com/GlebRadaev/payee-ledger/internal/repo/ledger-repo"
	memrepo "github.com/GlebRadaev/payee-ledger/internal/repo/mem-repo"
	orderrepo "github.com/GlebRadaev/payee-ledger/internal/repo/order-repo"
	withdrawalrepo "github.com/GlebRadaev/payee-ledger/internal/repo/withdrawal-repo"
	"github.com/GlebRadaev/payee-ledger/internal/service/balanceservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/commissionservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/ledgerservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/orderservice"
	"github.com/GlebRadaev/payee-ledger/internal/service/withdrawalservice"
)

type Repositories struct {
	TxManager   pg.TXManager
	Ledger      ledgerservice.Repo
	Conflicts   ledgerservice.ConflictRepo
	BalanceRepo balanceservice.BalanceRepo
	Commissions commissionservice.Repo
	Managers    commissionservice.ManagerRepo
	OrderRepo   orderservice.Repo
	Withdrawal  withdrawalservice.Repo
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		TxManager:   txManager,
		Ledger:      ledgerrepo.New(conn),
		Conflicts:   ledgerrepo.NewConflicts(conn),
		BalanceRepo: balancerepo.New(conn),
		Commissions: commissionrepo.New(conn),
		Managers:    commissionrepo.NewManagers(conn),
		OrderRepo:   orderrepo.New(conn),
		Withdrawal:  withdrawalrepo.New(conn),
	}
}

// NewInMemory serves every repository from one process-local store.
func NewInMemory(store *memrepo.Store) *Repositories {
	return &Repositories{
		TxManager:   store,
		Ledger:      store.Ledger(),
		Conflicts:   store.Conflicts(),
		BalanceRepo: store.Balances(),
		Commissions: store.Commissions(),
		Managers:    store.Managers(),
		OrderRepo:   store.Orders(),
		Withdrawal:  store.Withdrawals(),
	}
}
