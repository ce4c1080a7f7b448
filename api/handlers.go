package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pay-chain/paychain"
	"github.com/pay-chain/paychain/fee"
	"github.com/pay-chain/paychain/types"
)

// CallerHeader names the header carrying the authenticated caller
// identity (base58). The authenticating proxy is trusted to set it.
const CallerHeader = "X-Paychain-Caller"

// Handlers bridges HTTP to the engine.
type Handlers struct {
	pc *paychain.PayChain
}

// NewHandlers builds the handler set around a PayChain instance.
func NewHandlers(pc *paychain.PayChain) *Handlers {
	return &Handlers{pc: pc}
}

func (h *Handlers) Initialize(w http.ResponseWriter, r *http.Request) {
	var params types.InitializeParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.pc.Initialize(r.Context(), params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "initialized"})
}

func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.pc.GetConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) GetVault(w http.ResponseWriter, r *http.Request) {
	balance, err := h.pc.VaultBalance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": h.pc.VaultAddress().String(),
		"balance": balance,
	})
}

// GetQuote previews the fee for an amount without creating anything.
// Query: amount (smallest units, required), decimals (default 6).
func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	decimals := int64(6)
	if d := r.URL.Query().Get("decimals"); d != "" {
		decimals, err = strconv.ParseInt(d, 10, 32)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
	}
	cfg, err := h.pc.GetConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	computed, err := fee.Compute(amount, cfg.FeeRateBps, cfg.FeeMin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fee.NewQuote(amount, computed, int32(decimals)))
}

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var params types.CreatePaymentParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := h.pc.CreatePayment(r.Context(), caller, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := types.PaymentIDFromHex(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := h.pc.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, err := types.PaymentIDFromHex(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := h.pc.ProcessRefund(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type confirmationRequest struct {
	PaymentID types.PaymentID `json:"paymentId"`
	Outcome   types.Outcome   `json:"outcome"`
}

func (h *Handlers) ReceiveConfirmation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req confirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := h.pc.ReceiveCrossChain(r.Context(), caller, req.PaymentID, req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) CreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var params types.CreateRequestParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeBadRequest(w, err)
		return
	}
	req, err := h.pc.CreatePaymentRequest(r.Context(), caller, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetPaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := types.PaymentIDFromHex(chi.URLParam(r, "requestID"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	req, err := h.pc.GetPaymentRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handlers) PayRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, err := types.PaymentIDFromHex(chi.URLParam(r, "requestID"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	req, err := h.pc.PayRequest(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type authorityRequest struct {
	NewAuthority types.Address `json:"newAuthority"`
}

func (h *Handlers) UpdateAuthority(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req authorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.pc.UpdateAuthority(r.Context(), caller, req.NewAuthority); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type feeRecipientRequest struct {
	FeeRecipient types.Address `json:"feeRecipient"`
}

func (h *Handlers) SetFeeRecipient(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req feeRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.pc.SetFeeRecipient(r.Context(), caller, req.FeeRecipient); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func callerOf(w http.ResponseWriter, r *http.Request) (types.Address, bool) {
	raw := r.Header.Get(CallerHeader)
	if raw == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody(types.ErrUnauthorized, "missing caller header"))
		return types.Address{}, false
	}
	caller, err := types.AddressFromBase58(raw)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody(types.ErrUnauthorized, err.Error()))
		return types.Address{}, false
	}
	return caller, true
}
