// Package api exposes the trigger and credit-management HTTP surface of the
// bump worker.
package api

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apphttp "github.com/bumpworks/bump-engine/pkg/app/http"
	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/ledger"
	"github.com/bumpworks/bump-engine/pkg/session"
	"github.com/bumpworks/bump-engine/pkg/wallet"
)

const defaultRequestTimeout = 60 * time.Second

// SessionService defines the session operations the API needs.
type SessionService interface {
	Start(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*session.Session, error)
	Stop(ctx context.Context, user common.Address) error
	GetRunning(ctx context.Context, user common.Address) (*session.Session, error)
}

// CreditService defines the ledger operations the API needs.
type CreditService interface {
	Credit(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error)
	DistributeToWallets(ctx context.Context, user common.Address, wallets []common.Address, total *big.Int) error
	ScopeBalance(ctx context.Context, user common.Address, scope ledger.Scope) (*big.Int, error)
	TotalCredit(ctx context.Context, user common.Address) (*big.Int, error)
	WalletCredits(ctx context.Context, user common.Address) ([]ledger.WalletCredit, error)
}

// WalletService provisions and lists a user's rotation wallets.
type WalletService interface {
	GetOrCreateWallets(ctx context.Context, user common.Address) ([]wallet.BotWallet, error)
}

// LogService lists audit log entries for display.
type LogService interface {
	ListByUser(ctx context.Context, user common.Address, limit int) ([]*botlog.Entry, error)
}

// Waker nudges the scheduler to poll immediately.
type Waker interface {
	Wake()
}

// Handler carries the dependencies of the HTTP surface.
type Handler struct {
	sessions SessionService
	credit   CreditService
	wallets  WalletService
	logs     LogService
	waker    Waker
	logger   *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	sessions SessionService,
	credit CreditService,
	wallets WalletService,
	logs LogService,
	waker Waker,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions: sessions,
		credit:   credit,
		wallets:  wallets,
		logs:     logs,
		waker:    waker,
		logger:   logger,
	}
}

// Router builds the chi router with the standard middleware stack. authMW
// must resolve the authenticated user address into the request context.
func (h *Handler) Router(authMW func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Post("/sessions", apphttp.HandleError(h.startSession))
		r.Delete("/sessions", apphttp.HandleError(h.stopSession))
		r.Get("/sessions", apphttp.HandleError(h.getSession))

		r.Post("/credit/deposit", apphttp.HandleError(h.deposit))
		r.Post("/credit/distribute", apphttp.HandleError(h.distribute))
		r.Get("/credit", apphttp.HandleError(h.getCredit))

		r.Get("/logs", apphttp.HandleError(h.listLogs))
		r.Post("/wake", apphttp.HandleError(h.wake))
	})

	return r
}
