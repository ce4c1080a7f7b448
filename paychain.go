// Package paychain is a cross-chain payment escrow engine: tokens are
// escrowed in a custody vault on the source chain, a protocol fee is
// computed and locked at creation, and each payment tracks its
// lifecycle until a trusted relay confirms delivery on the destination
// chain or the escrow is refunded.
package paychain

import (
	"context"
	"time"

	"github.com/pay-chain/paychain/bank"
	"github.com/pay-chain/paychain/events"
	"github.com/pay-chain/paychain/ledger"
	"github.com/pay-chain/paychain/logger"
	"github.com/pay-chain/paychain/metrics"
	"github.com/pay-chain/paychain/relay"
	"github.com/pay-chain/paychain/settlement"
	"github.com/pay-chain/paychain/store"
	"github.com/pay-chain/paychain/types"
)

// PayChain wires the settlement engine to its storage, token-transfer
// and observability collaborators.
type PayChain struct {
	engine *settlement.Engine
	ledger *ledger.Ledger

	log     logger.Logger
	metrics metrics.Recorder
	events  events.Publisher
	db      store.Store
	bank    bank.Transferer
	now     func() time.Time
}

// New creates a PayChain instance. Without options it runs fully
// in-process: in-memory store, in-memory token bank, silent logger.
func New(opts ...Option) *PayChain {
	p := &PayChain{
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		events:  events.NoopPublisher{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.db == nil {
		p.db = store.NewMemory()
	}
	if p.bank == nil {
		p.bank = bank.NewMemory()
	}

	p.ledger = ledger.New(p.db)
	p.engine = settlement.New(settlement.Deps{
		Ledger:  p.ledger,
		Bank:    p.bank,
		Logger:  p.log,
		Metrics: p.metrics,
		Events:  p.events,
		Now:     p.now,
	})
	return p
}

// Initialize creates the deployment config.
func (p *PayChain) Initialize(ctx context.Context, params types.InitializeParams) error {
	return p.engine.Initialize(ctx, params)
}

// CreatePayment escrows a new cross-chain payment for sender.
func (p *PayChain) CreatePayment(ctx context.Context, sender types.Address, params types.CreatePaymentParams) (types.Payment, error) {
	return p.engine.CreatePayment(ctx, sender, params)
}

// ReceiveCrossChain applies a delivery confirmation from caller, which
// must be the configured router.
func (p *PayChain) ReceiveCrossChain(ctx context.Context, caller types.Address, paymentID types.PaymentID, outcome types.Outcome) (types.Payment, error) {
	return p.engine.ReceiveCrossChain(ctx, caller, paymentID, outcome)
}

// ReceiveMessage decodes a raw relay envelope and applies it. Malformed
// bodies and unknown outcome tags fail closed before any state is read.
func (p *PayChain) ReceiveMessage(ctx context.Context, caller types.Address, msg relay.Message) (types.Payment, error) {
	conf, err := relay.Decode(msg.Data)
	if err != nil {
		return types.Payment{}, err
	}
	return p.engine.ReceiveCrossChain(ctx, caller, conf.PaymentID, conf.Outcome)
}

// ProcessRefund returns a Failed payment's escrow to its sender.
func (p *PayChain) ProcessRefund(ctx context.Context, caller types.Address, paymentID types.PaymentID) (types.Payment, error) {
	return p.engine.ProcessRefund(ctx, caller, paymentID)
}

// GetPayment fetches a payment record.
func (p *PayChain) GetPayment(ctx context.Context, paymentID types.PaymentID) (types.Payment, error) {
	return p.engine.GetPayment(ctx, paymentID)
}

// GetConfig fetches the deployment config.
func (p *PayChain) GetConfig(ctx context.Context) (types.Config, error) {
	return p.engine.GetConfig(ctx)
}

// VaultBalance returns the aggregate escrowed balance.
func (p *PayChain) VaultBalance(ctx context.Context) (uint64, error) {
	return p.engine.VaultBalance(ctx)
}

// VaultAddress returns the custody account address.
func (p *PayChain) VaultAddress() types.Address {
	return p.engine.VaultAddress()
}

// UpdateAuthority rotates the admin authority.
func (p *PayChain) UpdateAuthority(ctx context.Context, caller, newAuthority types.Address) error {
	return p.engine.UpdateAuthority(ctx, caller, newAuthority)
}

// SetFeeRecipient changes the fee payout account.
func (p *PayChain) SetFeeRecipient(ctx context.Context, caller, recipient types.Address) error {
	return p.engine.SetFeeRecipient(ctx, caller, recipient)
}

// CreatePaymentRequest records a merchant invoice.
func (p *PayChain) CreatePaymentRequest(ctx context.Context, merchant types.Address, params types.CreateRequestParams) (types.PaymentRequest, error) {
	return p.engine.CreatePaymentRequest(ctx, merchant, params)
}

// PayRequest pays a merchant invoice from payer's balance.
func (p *PayChain) PayRequest(ctx context.Context, payer types.Address, requestID types.PaymentID) (types.PaymentRequest, error) {
	return p.engine.PayRequest(ctx, payer, requestID)
}

// GetPaymentRequest fetches a payment request.
func (p *PayChain) GetPaymentRequest(ctx context.Context, requestID types.PaymentID) (types.PaymentRequest, error) {
	return p.engine.GetPaymentRequest(ctx, requestID)
}

// Close releases the underlying store.
func (p *PayChain) Close() error {
	return p.db.Close()
}

// Version information.
const (
	Version         = "1.0.0"
	ProtocolVersion = 1
)
