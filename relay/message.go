// Package relay decodes cross-chain confirmation messages delivered by
// the trusted routing layer. Transport and sender authentication are
// outside this module: by the time a Message reaches the engine, its
// origin has already been verified, and the engine only re-checks that
// the reporting identity matches the configured router.
package relay

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pay-chain/paychain/types"
)

// Wire layout of the confirmation body: three 32-byte words in the
// destination chain's ABI style.
//
//	word 0: payment id
//	word 1: outcome tag, big-endian uint64 in the last 8 bytes
//	word 2: reserved (receiver echo on current deployments)
const (
	wordSize = 32
	bodySize = 3 * wordSize
)

// Outcome tags on the wire.
const (
	tagDelivered      uint64 = 1
	tagDeliveryFailed uint64 = 2
)

// Message is a confirmation envelope from the routing layer.
type Message struct {
	MessageID           common.Hash `json:"messageId"`
	SourceChainSelector uint64      `json:"sourceChainSelector"`
	Sender              common.Hash `json:"sender"`
	Data                []byte      `json:"data"`
}

// Confirmation is the decoded settlement report for one payment.
type Confirmation struct {
	PaymentID types.PaymentID `json:"paymentId"`
	Outcome   types.Outcome   `json:"outcome"`
}

// Decode parses the message body into a Confirmation. Short bodies and
// unrecognized outcome tags fail closed with InvalidMessageData.
func Decode(data []byte) (Confirmation, error) {
	var c Confirmation
	if len(data) < bodySize {
		return c, types.NewError(types.ErrInvalidMessageData,
			fmt.Sprintf("confirmation body is %d bytes, want %d", len(data), bodySize))
	}

	copy(c.PaymentID[:], data[:wordSize])

	tag := binary.BigEndian.Uint64(data[2*wordSize-8 : 2*wordSize])
	switch tag {
	case tagDelivered:
		c.Outcome = types.OutcomeDelivered
	case tagDeliveryFailed:
		c.Outcome = types.OutcomeDeliveryFailed
	default:
		return c, types.NewError(types.ErrInvalidMessageData,
			fmt.Sprintf("unrecognized outcome tag %d", tag))
	}
	return c, nil
}

// Encode builds a wire body for a confirmation. Used by tests and by
// relay simulators.
func Encode(c Confirmation) ([]byte, error) {
	var tag uint64
	switch c.Outcome {
	case types.OutcomeDelivered:
		tag = tagDelivered
	case types.OutcomeDeliveryFailed:
		tag = tagDeliveryFailed
	default:
		return nil, types.NewError(types.ErrInvalidMessageData,
			fmt.Sprintf("unrecognized outcome %q", c.Outcome))
	}

	body := make([]byte, bodySize)
	copy(body[:wordSize], c.PaymentID[:])
	binary.BigEndian.PutUint64(body[2*wordSize-8:2*wordSize], tag)
	return body, nil
}
