// Package events publishes lifecycle notifications emitted by the
// settlement engine. Delivery is in-process over an event bus; the
// default publisher drops everything.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/pay-chain/paychain/types"
)

// Topics.
const (
	TopicPaymentCreated         = "payment.created"
	TopicPaymentCompleted       = "payment.completed"
	TopicPaymentFailed          = "payment.failed"
	TopicPaymentRefunded        = "payment.refunded"
	TopicRequestCreated         = "payment_request.created"
	TopicRequestPaymentReceived = "payment_request.paid"
)

// Meta is common to every event.
type Meta struct {
	EventID   string    `json:"eventId"`
	EmittedAt time.Time `json:"emittedAt"`
}

// NewMeta stamps a fresh event identity.
func NewMeta(now time.Time) Meta {
	return Meta{EventID: uuid.NewString(), EmittedAt: now}
}

// PaymentCreated is emitted when an escrow is funded.
type PaymentCreated struct {
	Meta
	PaymentID types.PaymentID `json:"paymentId"`
	Sender    types.Address   `json:"sender"`
	Amount    uint64          `json:"amount"`
	Fee       uint64          `json:"fee"`
}

func (PaymentCreated) Topic() string { return TopicPaymentCreated }

// PaymentCompleted is emitted when the relay confirms delivery.
type PaymentCompleted struct {
	Meta
	PaymentID types.PaymentID `json:"paymentId"`
	Fee       uint64          `json:"fee"`
}

func (PaymentCompleted) Topic() string { return TopicPaymentCompleted }

// PaymentFailed is emitted when the relay reports delivery failure.
type PaymentFailed struct {
	Meta
	PaymentID types.PaymentID `json:"paymentId"`
}

func (PaymentFailed) Topic() string { return TopicPaymentFailed }

// PaymentRefunded is emitted when escrow returns to the sender.
type PaymentRefunded struct {
	Meta
	PaymentID    types.PaymentID `json:"paymentId"`
	RefundAmount uint64          `json:"refundAmount"`
}

func (PaymentRefunded) Topic() string { return TopicPaymentRefunded }

// RequestCreated is emitted when a merchant issues a payment request.
type RequestCreated struct {
	Meta
	RequestID   types.PaymentID `json:"requestId"`
	Merchant    types.Address   `json:"merchant"`
	Amount      uint64          `json:"amount"`
	Description string          `json:"description"`
}

func (RequestCreated) Topic() string { return TopicRequestCreated }

// RequestPaymentReceived is emitted when a customer pays a request.
type RequestPaymentReceived struct {
	Meta
	RequestID types.PaymentID `json:"requestId"`
	Payer     types.Address   `json:"payer"`
}

func (RequestPaymentReceived) Topic() string { return TopicRequestPaymentReceived }

// Event is anything publishable on the bus.
type Event interface {
	Topic() string
}

// Publisher delivers events to whoever subscribed.
type Publisher interface {
	Publish(ev Event)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}
