package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bumpworks/bump-engine/pkg/auth"
	"github.com/bumpworks/bump-engine/pkg/botlog"
	"github.com/bumpworks/bump-engine/pkg/ledger"
	"github.com/bumpworks/bump-engine/pkg/session"
	"github.com/bumpworks/bump-engine/pkg/wallet"
)

var (
	testUser  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testToken = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

// identityAuth injects the test user directly, bypassing JWT validation.
func identityAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithUserAddress(r.Context(), testUser)))
	})
}

type testDeps struct {
	sessions *mockSessionService
	credit   *mockCreditService
	wallets  *mockWalletService
	logs     *mockLogService
	waker    *mockWaker
}

func newTestServer(t *testing.T) (*httptest.Server, *testDeps) {
	t.Helper()

	deps := &testDeps{
		sessions: &mockSessionService{
			startFunc: func(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*session.Session, error) {
				return &session.Session{
					ID:              1,
					User:            user,
					TokenAddress:    token,
					AmountFiat:      amountFiat,
					IntervalSeconds: int64(interval.Seconds()),
					Status:          session.StatusRunning,
					StartedAt:       time.Now(),
				}, nil
			},
			stopFunc:       func(ctx context.Context, user common.Address) error { return nil },
			getRunningFunc: func(ctx context.Context, user common.Address) (*session.Session, error) { return nil, session.ErrNoRunningSession },
		},
		credit: &mockCreditService{
			creditFunc: func(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error) {
				return amount, nil
			},
			distributeFunc: func(ctx context.Context, user common.Address, wallets []common.Address, total *big.Int) error {
				return nil
			},
			scopeBalanceFunc: func(ctx context.Context, user common.Address, scope ledger.Scope) (*big.Int, error) {
				return big.NewInt(100), nil
			},
			totalCreditFunc: func(ctx context.Context, user common.Address) (*big.Int, error) {
				return big.NewInt(100), nil
			},
			walletCreditsFunc: func(ctx context.Context, user common.Address) ([]ledger.WalletCredit, error) {
				return nil, nil
			},
		},
		wallets: &mockWalletService{
			getOrCreateFunc: func(ctx context.Context, user common.Address) ([]wallet.BotWallet, error) {
				wallets := make([]wallet.BotWallet, wallet.PoolSize)
				for i := range wallets {
					wallets[i] = wallet.BotWallet{
						User:           user,
						Index:          uint8(i),
						AccountAddress: common.BigToAddress(big.NewInt(int64(i + 100))),
					}
				}
				return wallets, nil
			},
		},
		logs: &mockLogService{
			listByUserFunc: func(ctx context.Context, user common.Address, limit int) ([]*botlog.Entry, error) {
				return nil, nil
			},
		},
		waker: &mockWaker{},
	}

	handler := NewHandler(deps.sessions, deps.credit, deps.wallets, deps.logs, deps.waker, zap.NewNop())
	server := httptest.NewServer(handler.Router(identityAuth))
	t.Cleanup(server.Close)

	return server, deps
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestStartSession(t *testing.T) {
	server, deps := newTestServer(t)

	var gotToken common.Address
	var gotInterval time.Duration
	inner := deps.sessions.startFunc
	deps.sessions.startFunc = func(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*session.Session, error) {
		gotToken = token
		gotInterval = interval
		return inner(ctx, user, token, amountFiat, interval)
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions",
		fmt.Sprintf(`{"token_address": "%s", "amount_fiat": "10", "interval_seconds": 300}`, testToken.Hex()))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, testToken, gotToken)
	assert.Equal(t, 300*time.Second, gotInterval)
	assert.Equal(t, 1, deps.waker.wakes)
}

func TestStartSession_ValidationBeforeSideEffects(t *testing.T) {
	server, deps := newTestServer(t)

	deps.sessions.startFunc = func(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*session.Session, error) {
		t.Error("session must not start for an invalid request")
		return nil, nil
	}

	cases := []string{
		`{"token_address": "not-an-address", "amount_fiat": "10", "interval_seconds": 300}`,
		fmt.Sprintf(`{"token_address": "%s", "amount_fiat": "-5", "interval_seconds": 300}`, testToken.Hex()),
		fmt.Sprintf(`{"token_address": "%s", "amount_fiat": "10", "interval_seconds": 0}`, testToken.Hex()),
		`{not json`,
	}
	for _, body := range cases {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, 0, deps.waker.wakes)
}

func TestStartSession_RequiresCredit(t *testing.T) {
	server, deps := newTestServer(t)
	deps.credit.totalCreditFunc = func(ctx context.Context, user common.Address) (*big.Int, error) {
		return big.NewInt(0), nil
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions",
		fmt.Sprintf(`{"token_address": "%s", "amount_fiat": "10", "interval_seconds": 300}`, testToken.Hex()))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartSession_AlreadyRunning(t *testing.T) {
	server, deps := newTestServer(t)
	deps.sessions.startFunc = func(ctx context.Context, user, token common.Address, amountFiat decimal.Decimal, interval time.Duration) (*session.Session, error) {
		return nil, session.ErrSessionAlreadyRunning
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions",
		fmt.Sprintf(`{"token_address": "%s", "amount_fiat": "10", "interval_seconds": 300}`, testToken.Hex()))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStopSession_NoneRunning(t *testing.T) {
	server, deps := newTestServer(t)
	deps.sessions.stopFunc = func(ctx context.Context, user common.Address) error {
		return session.ErrNoRunningSession
	}

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/v1/sessions", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeposit(t *testing.T) {
	server, deps := newTestServer(t)

	var credited *big.Int
	var creditedScope ledger.Scope
	deps.credit.creditFunc = func(ctx context.Context, user common.Address, scope ledger.Scope, amount *big.Int) (*big.Int, error) {
		credited = amount
		creditedScope = scope
		return amount, nil
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/credit/deposit",
		`{"amount_wei": "1000000000000000000"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, credited)
	assert.Equal(t, "1000000000000000000", credited.String())
	assert.True(t, creditedScope.IsMain())
}

func TestDeposit_RejectsBadAmounts(t *testing.T) {
	server, _ := newTestServer(t)

	for _, body := range []string{
		`{"amount_wei": "0"}`,
		`{"amount_wei": "-5"}`,
		`{"amount_wei": "1.5"}`,
		`{"amount_wei": ""}`,
	} {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/credit/deposit", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
		resp.Body.Close()
	}
}

func TestDistribute(t *testing.T) {
	server, deps := newTestServer(t)

	var gotWallets []common.Address
	var gotTotal *big.Int
	deps.credit.distributeFunc = func(ctx context.Context, user common.Address, wallets []common.Address, total *big.Int) error {
		gotWallets = wallets
		gotTotal = total
		return nil
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/credit/distribute",
		`{"amount_wei": "103"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, gotWallets, wallet.PoolSize)
	assert.Equal(t, "103", gotTotal.String())
}

func TestDistribute_InsufficientCredit(t *testing.T) {
	server, deps := newTestServer(t)
	deps.credit.distributeFunc = func(ctx context.Context, user common.Address, wallets []common.Address, total *big.Int) error {
		return ledger.ErrInsufficientCredit
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/credit/distribute",
		`{"amount_wei": "103"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetCredit(t *testing.T) {
	server, deps := newTestServer(t)
	deps.credit.scopeBalanceFunc = func(ctx context.Context, user common.Address, scope ledger.Scope) (*big.Int, error) {
		return big.NewInt(40), nil
	}
	deps.credit.totalCreditFunc = func(ctx context.Context, user common.Address) (*big.Int, error) {
		return big.NewInt(100), nil
	}
	walletA := common.BigToAddress(big.NewInt(100))
	walletB := common.BigToAddress(big.NewInt(200))
	deps.credit.walletCreditsFunc = func(ctx context.Context, user common.Address) ([]ledger.WalletCredit, error) {
		return []ledger.WalletCredit{
			{User: user, WalletAddress: walletA, Balance: big.NewInt(60)},
			{User: user, WalletAddress: walletB, Balance: big.NewInt(0)},
		}, nil
	}

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/credit", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body balanceResponse
	require.NoError(t, jsonDecode(resp, &body))
	assert.Equal(t, "40", body.Main)
	assert.Equal(t, "100", body.Total)
	require.Len(t, body.Wallets, 2)
	assert.Equal(t, "60", body.Wallets[walletA.Hex()])
	assert.Equal(t, "0", body.Wallets[walletB.Hex()])
}

func TestWake(t *testing.T) {
	server, deps := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/wake", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, deps.waker.wakes)
}

func TestAuthMiddleware(t *testing.T) {
	validator := &mockValidator{claims: jwt.MapClaims{"address": testUser.Hex()}}

	var seen common.Address
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserAddressFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := AuthMiddleware(validator, zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUser, seen)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for an unauthenticated request")
	})

	cases := []struct {
		name      string
		validator *mockValidator
		header    string
	}{
		{"missing header", &mockValidator{}, ""},
		{"invalid token", &mockValidator{err: fmt.Errorf("expired")}, "Bearer bad"},
		{"no address claim", &mockValidator{claims: jwt.MapClaims{"sub": "alice"}}, "Bearer token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthMiddleware(tc.validator, zap.NewNop())(next)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func jsonDecode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
