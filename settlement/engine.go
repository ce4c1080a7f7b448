// Package settlement implements the payment lifecycle state machine:
// escrow creation, relay-confirmed completion or failure, and refunds.
// All authorization and state checks run before any funds move, and
// operations on one payment id are serialized so racing transitions
// produce exactly one winner.
package settlement

import (
	"context"
	"time"

	"github.com/pay-chain/paychain/bank"
	"github.com/pay-chain/paychain/events"
	"github.com/pay-chain/paychain/fee"
	"github.com/pay-chain/paychain/ledger"
	"github.com/pay-chain/paychain/logger"
	"github.com/pay-chain/paychain/metrics"
	"github.com/pay-chain/paychain/types"
	"github.com/pay-chain/paychain/utils"
)

// Deps are the collaborators an Engine operates on. Ledger and Bank are
// required; the rest default to silent implementations.
type Deps struct {
	Ledger  *ledger.Ledger
	Bank    bank.Transferer
	Logger  logger.Logger
	Metrics metrics.Recorder
	Events  events.Publisher
	Now     func() time.Time
}

// Engine is the settlement state machine.
type Engine struct {
	ledger  *ledger.Ledger
	bank    bank.Transferer
	log     logger.Logger
	metrics metrics.Recorder
	events  events.Publisher
	now     func() time.Time

	// vault is the custody account. It has no spending key: only the
	// engine moves funds out of it.
	vault types.Address

	locks keyLocks
}

// BurnAddress receives the principal of a completed payment. Delivery
// already happened on the destination chain through the relay's own
// settlement, so the local principal is retired rather than paid out.
var BurnAddress = types.ZeroAddress

// New builds an Engine.
func New(deps Deps) *Engine {
	e := &Engine{
		ledger:  deps.Ledger,
		bank:    deps.Bank,
		log:     deps.Logger,
		metrics: deps.Metrics,
		events:  deps.Events,
		now:     deps.Now,
		vault:   ledger.VaultAddress(),
	}
	if e.log == nil {
		e.log = logger.NoopLogger{}
	}
	if e.metrics == nil {
		e.metrics = metrics.NoopRecorder{}
	}
	if e.events == nil {
		e.events = events.NoopPublisher{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// VaultAddress returns the custody account the engine escrows into.
func (e *Engine) VaultAddress() types.Address { return e.vault }

// Initialize creates the singleton deployment config with the protocol
// fee defaults. Fails with AlreadyInitialized on a second call.
func (e *Engine) Initialize(ctx context.Context, params types.InitializeParams) (err error) {
	defer e.record("initialize", e.now(), &err)

	if verr := utils.ValidateStruct(params); verr != nil {
		return types.NewError(types.ErrInvalidAmount, verr.Error())
	}
	if verr := utils.ValidateChainID(params.ChainID); verr != nil {
		return types.NewError(types.ErrInvalidAmount, verr.Error())
	}

	cfg := types.Config{
		Authority:    params.Authority,
		FeeRecipient: params.FeeRecipient,
		Router:       params.Router,
		ChainID:      params.ChainID,
		FeeRateBps:   types.DefaultFeeRateBps,
		FeeMin:       types.DefaultFeeMin,
		CreatedAt:    e.now(),
	}
	if err = e.ledger.InitConfig(cfg); err != nil {
		return err
	}

	e.log.Info("config initialized", map[string]any{
		"chain_id":  cfg.ChainID,
		"authority": cfg.Authority.String(),
		"router":    cfg.Router.String(),
	})
	return nil
}

// CreatePayment escrows amount+fee from sender into the vault and
// records a Pending payment. The fee is computed and locked here; it is
// never recomputed later in the lifecycle.
func (e *Engine) CreatePayment(ctx context.Context, sender types.Address, params types.CreatePaymentParams) (p types.Payment, err error) {
	defer e.record("create_payment", e.now(), &err)

	if params.Amount == 0 {
		return p, types.NewError(types.ErrInvalidAmount, "amount must be greater than zero")
	}
	if verr := utils.ValidateStruct(params); verr != nil {
		return p, types.NewError(types.ErrInvalidAmount, verr.Error())
	}

	cfg, err := e.ledger.Config()
	if err != nil {
		return p, err
	}

	computed, err := fee.Compute(params.Amount, cfg.FeeRateBps, cfg.FeeMin)
	if err != nil {
		return p, err
	}
	total, err := fee.Total(params.Amount, computed)
	if err != nil {
		return p, err
	}

	unlock := e.locks.lock(params.PaymentID)
	defer unlock()

	// Reject duplicates before touching balances.
	exists, err := e.ledger.HasPayment(params.PaymentID)
	if err != nil {
		return p, err
	}
	if exists {
		return p, types.NewError(types.ErrDuplicatePayment, "payment id already used")
	}

	if err = e.bank.Transfer(ctx, sender, e.vault, total); err != nil {
		return p, err
	}

	p = types.Payment{
		PaymentID:     params.PaymentID,
		Sender:        sender,
		Receiver:      params.Receiver,
		SourceChainID: cfg.ChainID,
		DestChainID:   params.DestChainID,
		DestToken:     params.DestToken,
		Amount:        params.Amount,
		Fee:           computed,
		Status:        types.StatusPending,
		CreatedAt:     e.now(),
	}
	if err = e.ledger.CreatePayment(p); err != nil {
		// Undo the escrow funding; the record was not created.
		if rbErr := e.bank.Transfer(ctx, e.vault, sender, total); rbErr != nil {
			e.log.Error("escrow rollback failed", map[string]any{
				"payment_id": params.PaymentID.String(),
				"error":      rbErr.Error(),
			})
		}
		return types.Payment{}, err
	}

	e.log.Info("payment created", map[string]any{
		"payment_id":    p.PaymentID.String(),
		"sender":        p.Sender.String(),
		"amount":        p.Amount,
		"fee":           p.Fee,
		"dest_chain_id": p.DestChainID,
	})
	e.events.Publish(events.PaymentCreated{
		Meta:      events.NewMeta(e.now()),
		PaymentID: p.PaymentID,
		Sender:    p.Sender,
		Amount:    p.Amount,
		Fee:       p.Fee,
	})
	e.publishVaultGauge()
	return p, nil
}

// ReceiveCrossChain applies a delivery confirmation from the trusted
// relay. caller is the authenticated identity the confirmation arrived
// from; anyone but the configured router is rejected before any state
// is read or written. The operation is deliberately not idempotent: a
// second confirmation for the same payment fails with
// InvalidPaymentState instead of re-applying.
func (e *Engine) ReceiveCrossChain(ctx context.Context, caller types.Address, paymentID types.PaymentID, outcome types.Outcome) (p types.Payment, err error) {
	defer e.record("receive_cross_chain", e.now(), &err)

	cfg, err := e.ledger.Config()
	if err != nil {
		return p, err
	}
	if caller != cfg.Router {
		return p, types.NewError(types.ErrUnauthorizedRelay, "caller is not the configured router")
	}
	if !outcome.Valid() {
		return p, types.NewError(types.ErrInvalidMessageData, "unrecognized outcome")
	}

	unlock := e.locks.lock(paymentID)
	defer unlock()

	current, err := e.ledger.Payment(paymentID)
	if err != nil {
		return p, err
	}
	if current.Status != types.StatusPending {
		return p, types.NewError(types.ErrInvalidPaymentState, "payment is not pending")
	}

	if outcome == types.OutcomeDelivered {
		// Fee out to the recipient, principal retired. Both legs must
		// land before the record flips to Completed.
		if err = e.bank.Transfer(ctx, e.vault, cfg.FeeRecipient, current.Fee); err != nil {
			return p, err
		}
		if err = e.bank.Transfer(ctx, e.vault, BurnAddress, current.Amount); err != nil {
			if rbErr := e.bank.Transfer(ctx, cfg.FeeRecipient, e.vault, current.Fee); rbErr != nil {
				e.log.Error("fee rollback failed", map[string]any{
					"payment_id": paymentID.String(),
					"error":      rbErr.Error(),
				})
			}
			return p, err
		}
	}

	p, err = e.ledger.RecordOutcome(paymentID, outcome)
	if err != nil {
		if outcome == types.OutcomeDelivered {
			e.log.Error("outcome record failed after payout", map[string]any{
				"payment_id": paymentID.String(),
				"error":      err.Error(),
			})
		}
		return types.Payment{}, err
	}

	switch outcome {
	case types.OutcomeDelivered:
		e.log.Info("payment completed", map[string]any{
			"payment_id": p.PaymentID.String(),
			"fee":        p.Fee,
		})
		e.events.Publish(events.PaymentCompleted{
			Meta:      events.NewMeta(e.now()),
			PaymentID: p.PaymentID,
			Fee:       p.Fee,
		})
	case types.OutcomeDeliveryFailed:
		e.log.Warn("payment failed", map[string]any{
			"payment_id": p.PaymentID.String(),
		})
		e.events.Publish(events.PaymentFailed{
			Meta:      events.NewMeta(e.now()),
			PaymentID: p.PaymentID,
		})
	}
	e.publishVaultGauge()
	return p, nil
}

// ProcessRefund returns amount+fee of a Failed payment to its sender.
// Only the original sender or the config authority may invoke it, and
// only from the Failed status: Pending payments might still complete,
// and terminal payments are immutable.
func (e *Engine) ProcessRefund(ctx context.Context, caller types.Address, paymentID types.PaymentID) (p types.Payment, err error) {
	defer e.record("process_refund", e.now(), &err)

	cfg, err := e.ledger.Config()
	if err != nil {
		return p, err
	}

	unlock := e.locks.lock(paymentID)
	defer unlock()

	current, err := e.ledger.Payment(paymentID)
	if err != nil {
		return p, err
	}
	if caller != current.Sender && caller != cfg.Authority {
		return p, types.NewError(types.ErrUnauthorized, "caller may not refund this payment")
	}
	if current.Status != types.StatusFailed {
		return p, types.NewError(types.ErrPaymentNotFailed, "payment is not in failed status")
	}

	refund := current.Escrowed()
	if err = e.bank.Transfer(ctx, e.vault, current.Sender, refund); err != nil {
		return p, err
	}

	p, err = e.ledger.Refund(paymentID)
	if err != nil {
		if rbErr := e.bank.Transfer(ctx, current.Sender, e.vault, refund); rbErr != nil {
			e.log.Error("refund rollback failed", map[string]any{
				"payment_id": paymentID.String(),
				"error":      rbErr.Error(),
			})
		}
		return types.Payment{}, err
	}

	e.log.Info("payment refunded", map[string]any{
		"payment_id":    p.PaymentID.String(),
		"refund_amount": refund,
	})
	e.events.Publish(events.PaymentRefunded{
		Meta:         events.NewMeta(e.now()),
		PaymentID:    p.PaymentID,
		RefundAmount: refund,
	})
	e.publishVaultGauge()
	return p, nil
}

// GetPayment returns the record for paymentID.
func (e *Engine) GetPayment(_ context.Context, paymentID types.PaymentID) (types.Payment, error) {
	return e.ledger.Payment(paymentID)
}

// GetConfig returns the deployment config.
func (e *Engine) GetConfig(_ context.Context) (types.Config, error) {
	return e.ledger.Config()
}

// VaultBalance returns the aggregate escrowed balance.
func (e *Engine) VaultBalance(_ context.Context) (uint64, error) {
	return e.ledger.VaultBalance()
}

func (e *Engine) publishVaultGauge() {
	balance, err := e.ledger.VaultBalance()
	if err != nil {
		return
	}
	e.metrics.SetGauge("vault_balance", float64(balance), nil)
}

func (e *Engine) record(op string, start time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = types.CodeOf(*err)
		if result == "" {
			result = "error"
		}
	}
	e.metrics.IncCounter(op, map[string]string{"result": result})
	e.metrics.ObserveLatency(op, e.now().Sub(start), nil)
}
