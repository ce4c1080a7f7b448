package settlement

import (
	"context"

	"github.com/pay-chain/paychain/events"
	"github.com/pay-chain/paychain/types"
	"github.com/pay-chain/paychain/utils"
)

// CreatePaymentRequest records a merchant invoice payable on this
// chain. Requests expire after types.RequestExpiry.
func (e *Engine) CreatePaymentRequest(ctx context.Context, merchant types.Address, params types.CreateRequestParams) (r types.PaymentRequest, err error) {
	defer e.record("create_payment_request", e.now(), &err)

	if params.Amount == 0 {
		return r, types.NewError(types.ErrInvalidAmount, "amount must be greater than zero")
	}
	if verr := utils.ValidateStruct(params); verr != nil {
		return r, types.NewError(types.ErrInvalidAmount, verr.Error())
	}

	now := e.now()
	r = types.PaymentRequest{
		RequestID:   params.RequestID,
		Merchant:    merchant,
		Receiver:    params.Receiver,
		Token:       params.Token,
		Amount:      params.Amount,
		Description: params.Description,
		ExpiresAt:   now.Add(types.RequestExpiry),
		CreatedAt:   now,
	}

	unlock := e.locks.lock(params.RequestID)
	defer unlock()

	if err = e.ledger.CreateRequest(r); err != nil {
		return types.PaymentRequest{}, err
	}

	e.log.Info("payment request created", map[string]any{
		"request_id": r.RequestID.String(),
		"merchant":   r.Merchant.String(),
		"amount":     r.Amount,
	})
	e.events.Publish(events.RequestCreated{
		Meta:        events.NewMeta(now),
		RequestID:   r.RequestID,
		Merchant:    r.Merchant,
		Amount:      r.Amount,
		Description: r.Description,
	})
	return r, nil
}

// PayRequest settles a merchant invoice: the payer's balance moves
// straight to the merchant's receiving account, no escrow involved. A
// request pays out at most once and only before its expiry.
func (e *Engine) PayRequest(ctx context.Context, payer types.Address, requestID types.PaymentID) (r types.PaymentRequest, err error) {
	defer e.record("pay_request", e.now(), &err)

	unlock := e.locks.lock(requestID)
	defer unlock()

	current, err := e.ledger.Request(requestID)
	if err != nil {
		return r, err
	}
	if current.IsPaid {
		return r, types.NewError(types.ErrAlreadyPaid, "payment request already paid")
	}
	now := e.now()
	if now.After(current.ExpiresAt) {
		return r, types.NewError(types.ErrRequestExpired, "payment request expired")
	}

	if err = e.bank.Transfer(ctx, payer, current.Receiver, current.Amount); err != nil {
		return r, err
	}

	r, err = e.ledger.MarkRequestPaid(requestID, payer, now)
	if err != nil {
		if rbErr := e.bank.Transfer(ctx, current.Receiver, payer, current.Amount); rbErr != nil {
			e.log.Error("request payment rollback failed", map[string]any{
				"request_id": requestID.String(),
				"error":      rbErr.Error(),
			})
		}
		return types.PaymentRequest{}, err
	}

	e.log.Info("payment request paid", map[string]any{
		"request_id": r.RequestID.String(),
		"payer":      payer.String(),
	})
	e.events.Publish(events.RequestPaymentReceived{
		Meta:      events.NewMeta(now),
		RequestID: r.RequestID,
		Payer:     payer,
	})
	return r, nil
}

// GetPaymentRequest returns the request for requestID.
func (e *Engine) GetPaymentRequest(_ context.Context, requestID types.PaymentID) (types.PaymentRequest, error) {
	return e.ledger.Request(requestID)
}
