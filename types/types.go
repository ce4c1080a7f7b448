// Package types defines the domain model of the PayChain escrow engine:
// payment records, the deployment config, status and outcome enumerations,
// and the error taxonomy shared by every component.
package types

import "time"

// PaymentStatus represents the lifecycle state of a payment record.
type PaymentStatus string

const (
	// StatusPending is the state of a payment awaiting the relay's
	// destination-chain delivery confirmation.
	StatusPending PaymentStatus = "pending"

	// StatusCompleted is reached when the relay confirms delivery.
	// Terminal.
	StatusCompleted PaymentStatus = "completed"

	// StatusFailed is reached when the relay reports delivery failure.
	// The escrowed funds stay in the vault until a refund is processed.
	StatusFailed PaymentStatus = "failed"

	// StatusRefunded is reached from StatusFailed once principal and fee
	// have been returned to the sender. Terminal.
	StatusRefunded PaymentStatus = "refunded"
)

// IsTerminal reports whether no further transition is permitted.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRefunded
}

// Outcome is the delivery result reported by the cross-chain relay.
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
)

// Valid reports whether the outcome is one of the recognized tags.
// Anything else must fail closed.
func (o Outcome) Valid() bool {
	return o == OutcomeDelivered || o == OutcomeDeliveryFailed
}

// Config is the singleton deployment configuration. ChainID is immutable
// after initialization; Authority and FeeRecipient rotate only through
// authority-gated updates.
type Config struct {
	// Authority may rotate itself, set the fee recipient and process
	// refunds on behalf of senders.
	Authority Address `json:"authority"`

	// FeeRecipient is credited with the locked fee when a payment
	// completes.
	FeeRecipient Address `json:"feeRecipient"`

	// Router is the only identity whose cross-chain confirmations are
	// accepted.
	Router Address `json:"router"`

	// ChainID identifies this chain in destination routing.
	ChainID string `json:"chainId"`

	// FeeRateBps is the proportional fee in basis points.
	FeeRateBps uint64 `json:"feeRateBps"`

	// FeeMin is the fee floor in the token's smallest unit.
	FeeMin uint64 `json:"feeMin"`

	CreatedAt time.Time `json:"createdAt"`
}

// Protocol fee defaults. Fixed at this version; not caller-supplied.
const (
	DefaultFeeRateBps uint64 = 30      // 0.30%
	DefaultFeeMin     uint64 = 500_000 // $0.50 at 6 decimals
)

// Payment is one cross-chain transfer request tracked through its
// lifecycle. Amount and Fee are locked at creation and never recomputed.
type Payment struct {
	PaymentID     PaymentID     `json:"paymentId"`
	Sender        Address       `json:"sender"`
	Receiver      Bytes32       `json:"receiver"`
	SourceChainID string        `json:"sourceChainId"`
	DestChainID   string        `json:"destChainId"`
	DestToken     Bytes32       `json:"destToken"`
	Amount        uint64        `json:"amount"`
	Fee           uint64        `json:"fee"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Escrowed returns the total value the vault holds for this payment.
func (p *Payment) Escrowed() uint64 { return p.Amount + p.Fee }

// PaymentRequest is a merchant-issued invoice payable on this chain.
// Requests expire; a paid request records its payer and cannot be paid
// again.
type PaymentRequest struct {
	RequestID   PaymentID `json:"requestId"`
	Merchant    Address   `json:"merchant"`
	Receiver    Address   `json:"receiver"`
	Token       Address   `json:"token"`
	Amount      uint64    `json:"amount"`
	Description string    `json:"description"`
	IsPaid      bool      `json:"isPaid"`
	Payer       *Address  `json:"payer,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RequestExpiry is how long a payment request stays payable.
const RequestExpiry = 15 * time.Minute

// InitializeParams are the inputs to deployment initialization.
type InitializeParams struct {
	Authority    Address `json:"authority" validate:"required"`
	FeeRecipient Address `json:"feeRecipient" validate:"required"`
	Router       Address `json:"router" validate:"required"`
	ChainID      string  `json:"chainId" validate:"required,max=64"`
}

// CreatePaymentParams are the caller-supplied inputs to CreatePayment.
// The sender is the authenticated caller, passed separately.
type CreatePaymentParams struct {
	PaymentID   PaymentID `json:"paymentId" validate:"required"`
	DestChainID string    `json:"destChainId" validate:"required,max=64"`
	DestToken   Bytes32   `json:"destToken" validate:"required"`
	Amount      uint64    `json:"amount"`
	Receiver    Bytes32   `json:"receiver" validate:"required"`
}

// CreateRequestParams are the merchant-supplied inputs to
// CreatePaymentRequest.
type CreateRequestParams struct {
	RequestID   PaymentID `json:"requestId" validate:"required"`
	Receiver    Address   `json:"receiver" validate:"required"`
	Token       Address   `json:"token" validate:"required"`
	Amount      uint64    `json:"amount" validate:"gt=0"`
	Description string    `json:"description" validate:"max=128"`
}
