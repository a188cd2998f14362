package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/bumpworks/bump-engine/pkg/app/errors"
	apphttp "github.com/bumpworks/bump-engine/pkg/app/http"
	"github.com/bumpworks/bump-engine/pkg/auth"
	"github.com/bumpworks/bump-engine/pkg/ledger"
	"github.com/bumpworks/bump-engine/pkg/session"
)

type startSessionRequest struct {
	TokenAddress    string `json:"token_address"`
	AmountFiat      string `json:"amount_fiat"`
	IntervalSeconds int64  `json:"interval_seconds"`
}

type sessionResponse struct {
	ID                  int64  `json:"id"`
	TokenAddress        string `json:"token_address"`
	AmountFiat          string `json:"amount_fiat"`
	IntervalSeconds     int64  `json:"interval_seconds"`
	WalletRotationIndex int    `json:"wallet_rotation_index"`
	Status              string `json:"status"`
	StartedAt           string `json:"started_at"`
}

type amountRequest struct {
	AmountWei string `json:"amount_wei"`
}

type balanceResponse struct {
	Main    string            `json:"main"`
	Total   string            `json:"total"`
	Wallets map[string]string `json:"wallets"`
}

type logEntryResponse struct {
	ID            int64  `json:"id"`
	WalletAddress string `json:"wallet_address"`
	TokenAddress  string `json:"token_address"`
	AmountWei     string `json:"amount_wei"`
	Status        string `json:"status"`
	TxHash        string `json:"tx_hash,omitempty"`
	Message       string `json:"message,omitempty"`
	ErrorDetails  string `json:"error_details,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func userFromRequest(r *http.Request) (common.Address, error) {
	addr, ok := auth.UserAddressFromContext(r.Context())
	if !ok {
		return common.Address{}, apperrors.UnAuthorizedError(nil, "no authenticated user")
	}
	return addr, nil
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) error {
	user, err := userFromRequest(r)
	if err != nil {
		return err
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}
	if !auth.ValidateEVMAddress(req.TokenAddress) {
		return apperrors.BadRequestError(nil, "token_address must be a valid EVM address")
	}
	amountFiat, err := decimal.NewFromString(req.AmountFiat)
	if err != nil || !amountFiat.IsPositive() {
		return apperrors.BadRequestError(err, "amount_fiat must be a positive decimal")
	}
	if req.IntervalSeconds <= 0 {
		return apperrors.BadRequestError(nil, "interval_seconds must be positive")
	}

	total, err := h.credit.TotalCredit(r.Context(), user)
	if err != nil {
		return apperrors.GeneralError(err)
	}
	if total.Sign() <= 0 {
		return apperrors.BadRequestError(nil, "no credit available; deposit before starting a session")
	}

	// Provision the rotation pool up front so the first attempt has wallets.
	if _, err := h.wallets.GetOrCreateWallets(r.Context(), user); err != nil {
		return apperrors.GeneralError(fmt.Errorf("failed to provision wallets: %w", err))
	}

	sess, err := h.sessions.Start(r.Context(), user, common.HexToAddress(req.TokenAddress),
		amountFiat, time.Duration(req.IntervalSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, session.ErrSessionAlreadyRunning) {
			return apperrors.ConflictError(err, "a session is already running")
		}
		return apperrors.BadRequestError(err, err.Error())
	}

	h.waker.Wake()

	h.logger.Info("Session started",
		zap.Int64("session_id", sess.ID),
		zap.String("user", user.Hex()),
		zap.String("token", req.TokenAddress))

	return apphttp.WriteJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *Handler) stopSession(w http.ResponseWriter, r *http.Request) error {
	user, err := userFromRequest(r)
	if err != nil {
		return err
	}

	if err := h.sessions.Stop(r.Context(), user); err != nil {
		if errors.Is(err, session.ErrNoRunningSession) {
			return apperrors.ResourceNotFoundError(err, "no running session")
		}
		return apperrors.GeneralError(err)
	}

	h.logger.Info("Session stopped", zap.String("user", user.Hex()))
	return apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) error {
	user, err := userFromRequest(r)
	if err != nil {
		return err
	}

	sess, err := h.sessions.GetRunning(r.Context(), user)
	if err != nil {
		if errors.Is(err, session.ErrNoRunningSession) {
			return apperrors.ResourceNotFoundError(err, "no running session")
		}
		return apperrors.GeneralError(err)
	}

	return apphttp.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) error {
	user, err := userFromRequest(r)
	if err != nil {
		return err
	}

	amount, err := parseAmount(r)
	if err != nil {
		return err
	}

	balance, err := h.credit.Credit(r.Context(), user, ledger.MainScope(), amount)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	h.logger.Info("Credit deposited",
		zap.String("user", user.Hex()),
		zap.String("amount_wei", amount.String()))

	return apphttp.WriteJSON(w, http.StatusOK, map[string]string{"main": balance.String()})
}

func (h *Handler) distribute(w http.ResponseWriter, r *http.Request) error {
	user, err := userFromRequest(r)
	if err != nil {
		return err
	}

	amount, err := parseAmount(r)
	if err != nil {
		return err
	}

	wallets, err := h.wallets.GetOrCreateWallets(r.Context(), user)
	if err != nil {
		return apperrors.GeneralError(fmt.Errorf("failed to provision wallets: %w", err))
	}
	addrs := make([]common.Address, len(wallets))
	for i, w := range wallets {
		addrs[i] = w.AccountAddress
	}

	if err := h.credit.DistributeToWallets(r.Context(), user, addrs, amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredit) {
			return apperrors.BadRequestError(err, "insufficient main credit to distribute")
		}
		return apperrors.GeneralError(err)
	}

	h.logger.Info("Credit distributed",
		zap.String("user", user.Hex()),
		zap.String("amount_wei", amount.String()),
		zap.Int("wallets", len(addrs)))

	return apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "distributed"})
}

func (h *Handler) getCredit(w http.ResponseWriter, r *http.Request) error {
	user, err := userFromRequest(r)
	if err != nil {
		return err
	}

	main, err := h.credit.ScopeBalance(r.Context(), user, ledger.MainScope())
	if err != nil {
		return apperrors.GeneralError(err)
	}
	total, err := h.credit.TotalCredit(r.Context(), user)
	if err != nil {
		return apperrors.GeneralError(err)
	}
	credits, err := h.credit.WalletCredits(r.Context(), user)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	resp := balanceResponse{
		Main:    main.String(),
		Total:   total.String(),
		Wallets: make(map[string]string, len(credits)),
	}
	for _, c := range credits {
		resp.Wallets[c.WalletAddress.Hex()] = c.Balance.String()
	}

	return apphttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) error {
	user, err := userFromRequest(r)
	if err != nil {
		return err
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return apperrors.BadRequestError(err, "limit must be a non-negative integer")
		}
	}

	entries, err := h.logs.ListByUser(r.Context(), user, limit)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	resp := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, logEntryResponse{
			ID:            e.ID,
			WalletAddress: e.WalletAddress.Hex(),
			TokenAddress:  e.TokenAddress.Hex(),
			AmountWei:     e.AmountWei.String(),
			Status:        string(e.Status),
			TxHash:        e.TxHash,
			Message:       e.Message,
			ErrorDetails:  e.ErrorDetails,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		})
	}

	return apphttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) wake(w http.ResponseWriter, r *http.Request) error {
	if _, err := userFromRequest(r); err != nil {
		return err
	}

	h.waker.Wake()
	return apphttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func parseAmount(r *http.Request) (*big.Int, error) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid request body")
	}
	amount, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, apperrors.BadRequestError(nil, "amount_wei must be a positive integer string")
	}
	return amount, nil
}

func toSessionResponse(sess *session.Session) sessionResponse {
	return sessionResponse{
		ID:                  sess.ID,
		TokenAddress:        sess.TokenAddress.Hex(),
		AmountFiat:          sess.AmountFiat.String(),
		IntervalSeconds:     sess.IntervalSeconds,
		WalletRotationIndex: sess.WalletRotationIndex,
		Status:              string(sess.Status),
		StartedAt:           sess.StartedAt.Format(time.RFC3339),
	}
}
