package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pay-chain/paychain/types"
)

// statusFor maps engine error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case types.ErrNotFound, types.ErrNotInitialized:
		return http.StatusNotFound
	case types.ErrAlreadyInitialized, types.ErrDuplicatePayment,
		types.ErrInvalidPaymentState, types.ErrPaymentNotFailed,
		types.ErrAlreadyPaid:
		return http.StatusConflict
	case types.ErrInvalidAmount, types.ErrInvalidMessageData,
		types.ErrArithmeticOverflow:
		return http.StatusBadRequest
	case types.ErrUnauthorized, types.ErrUnauthorizedRelay:
		return http.StatusForbidden
	case types.ErrInsufficientBalance:
		return http.StatusPaymentRequired
	case types.ErrRequestExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	var engineErr *types.Error
	if errors.As(err, &engineErr) {
		writeJSON(w, statusFor(engineErr.Code), engineErr)
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL", err.Error()))
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", err.Error()))
}

func errorBody(code, message string) *types.Error {
	return &types.Error{Code: code, Message: message}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
