// Package worker implements app.Runner for the bump worker process.
package worker

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bumpworks/bump-engine/pkg/api"
	apphttp "github.com/bumpworks/bump-engine/pkg/app/http"
	"github.com/bumpworks/bump-engine/pkg/auth"
	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/config"
	"github.com/bumpworks/bump-engine/pkg/executor"
	"github.com/bumpworks/bump-engine/pkg/keys"
	"github.com/bumpworks/bump-engine/pkg/ledger"
	"github.com/bumpworks/bump-engine/pkg/oracle"
	"github.com/bumpworks/bump-engine/pkg/pgutil"
	"github.com/bumpworks/bump-engine/pkg/quote"
	"github.com/bumpworks/bump-engine/pkg/relay"
	"github.com/bumpworks/bump-engine/pkg/scheduler"
	"github.com/bumpworks/bump-engine/pkg/session"
	"github.com/bumpworks/bump-engine/pkg/wallet"
)

// Server holds cfg to init the bump worker.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new worker Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run starts the scheduler engine and the trigger HTTP server.
// It blocks until an OS shutdown signal is received or a fatal server error occurs.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bump worker",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	seed, err := keys.SeedFromMnemonic(cfg.Wallet.Mnemonic)
	if err != nil {
		return fmt.Errorf("derive wallet seed: %w", err)
	}
	masterKey, err := hex.DecodeString(cfg.Wallet.MasterKeyHex)
	if err != nil {
		return fmt.Errorf("decode master key: %w", err)
	}

	pool := wallet.NewPool(db, wallet.NewAccountDeriver(), seed, masterKey, logger)
	ledgerStore := ledger.NewStore(db)
	sessionStore := session.NewStore(db)
	logStore := botlog.NewStore(db)

	priceCache := oracle.NewCache(
		oracle.NewClient(cfg.Oracle.URL, cfg.Oracle.RequestTimeout),
		cfg.Oracle.CacheTTL,
	)
	quoteClient := quote.NewClient(cfg.Quote.BaseURL, cfg.Quote.APIKey, cfg.Quote.RequestTimeout)
	relayClient := relay.NewClient(cfg.Relay.URL, cfg.Relay.SponsorshipID, cfg.Relay.ReceiptInterval, logger)

	exec := executor.New(executor.Config{
		NativeToken:    common.HexToAddress(cfg.Chain.NativeToken),
		SlippageBps:    cfg.Quote.SlippageBps,
		ReceiptTimeout: cfg.Relay.ReceiptTimeout,
	}, pool, priceCache, quoteClient, relayClient, ledgerStore, logStore, sessionStore, logger)

	engine := scheduler.NewEngine(scheduler.Config{
		PollInterval:  cfg.Scheduler.PollInterval,
		LeaseDuration: cfg.Scheduler.LeaseDuration,
	}, sessionStore, ledgerStore, exec, logStore, logger)

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler engine: %w", err)
	}
	defer engine.Stop()

	router := s.newRouter(db, pool, ledgerStore, sessionStore, logStore, engine, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func (s *Server) newRouter(
	db pinger,
	pool *wallet.Pool,
	ledgerStore *ledger.Store,
	sessionStore *session.Store,
	logStore *botlog.Store,
	engine *scheduler.Engine,
	logger *zap.Logger,
) http.Handler {
	cfg := s.cfg

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	validator := auth.NewJWTValidator(cfg.Auth.JWKSURL, cfg.Auth.Issuer)
	handler := api.NewHandler(sessionStore, ledgerStore, pool, logStore, engine, logger)
	r.Mount("/", handler.Router(api.AuthMiddleware(validator, logger)))

	return r
}
