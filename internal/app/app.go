package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/config"
	"github.com/GlebRadaev/payee-ledger/internal/events"
	"github.com/GlebRadaev/payee-ledger/internal/gateway"
	"github.com/GlebRadaev/payee-ledger/internal/handlers"
	"github.com/GlebRadaev/payee-ledger/internal/payouts"
	"github.com/GlebRadaev/payee-ledger/internal/pg"
	"github.com/GlebRadaev/payee-ledger/internal/repo"
	memrepo "github.com/GlebRadaev/payee-ledger/internal/repo/mem-repo"
	"github.com/GlebRadaev/payee-ledger/internal/service"
	"github.com/GlebRadaev/payee-ledger/pkg/auth"
	"github.com/GlebRadaev/payee-ledger/pkg/clients"
	"github.com/GlebRadaev/payee-ledger/pkg/logger"
)

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg     *config.Config
	api     *handlers.Handlers
	srv     *service.Services
	repo    *repo.Repositories
	payouts *payouts.Service

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}
	a.cfg = cfg

	a.repo, err = buildRepositories(ctx, cfg)
	if err != nil {
		return err
	}

	gw := gateway.New(cfg, clients.NewHTTPClient(cfg.GatewayTimeout))
	a.srv = service.New(cfg, a.repo, gw)
	a.api = handlers.New(a.srv, auth.NewJWTService(cfg.JWTSecret), cfg.GatewayCallbackSecret)
	a.payouts = payouts.New(cfg, a.srv.WithdrawalService)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}
	a.startWorkers(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

func buildRepositories(ctx context.Context, cfg *config.Config) (*repo.Repositories, error) {
	if cfg.InMemory() {
		zap.L().Warn("DATABASE_URI is empty, using in-memory storage")
		return repo.NewInMemory(memrepo.New()), nil
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return nil, fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return nil, fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)

	return repo.New(pg.New(pool), txManager), nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(sCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

// startWorkers runs the payout worker, the reconciliation scheduler and, when
// brokers are configured, the order event consumer.
func (a *Application) startWorkers(ctx context.Context) {
	a.payouts.Start(ctx)
	a.srv.ReconcileService.Start(ctx, a.cfg.ReconcileInterval)

	if len(a.cfg.KafkaBrokers) == 0 {
		zap.L().Info("KAFKA_BROKERS is empty, order events are accepted over http only")
		return
	}
	events.New(events.NewReader(a.cfg), a.srv.OrderService).Start(ctx)
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	return appErr
}
