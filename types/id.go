package types

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

// IDSize is the length in bytes of payment identifiers, addresses and
// destination-chain words. Everything on the wire is a 32-byte value.
const IDSize = 32

// PaymentID is the client-chosen unique identifier of a payment. It is
// opaque to the engine and rendered as 0x-prefixed hex.
type PaymentID [IDSize]byte

// Address identifies an account on the source chain. Rendered base58,
// matching the chain's native encoding.
type Address [IDSize]byte

// Bytes32 is an opaque 32-byte word carrying destination-chain metadata
// (a token address or a receiver address on the destination chain).
type Bytes32 [IDSize]byte

// ZeroAddress is the all-zero address. It is never a valid participant.
var ZeroAddress Address

func (id PaymentID) String() string { return hexutil.Encode(id[:]) }

func (id PaymentID) Bytes() []byte { return id[:] }

// IsZero reports whether the identifier is all zeroes.
func (id PaymentID) IsZero() bool { return id == PaymentID{} }

// PaymentIDFromHex parses a 0x-prefixed hex string into a PaymentID.
func PaymentIDFromHex(s string) (PaymentID, error) {
	var id PaymentID
	b, err := hexutil.Decode(s)
	if err != nil {
		return id, fmt.Errorf("invalid payment id %q: %w", s, err)
	}
	if len(b) != IDSize {
		return id, fmt.Errorf("invalid payment id %q: want %d bytes, got %d", s, IDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id PaymentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *PaymentID) UnmarshalText(text []byte) error {
	parsed, err := PaymentIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (a Address) String() string { return base58.Encode(a[:]) }

func (a Address) Bytes() []byte { return a[:] }

// IsZero reports whether the address is all zeroes.
func (a Address) IsZero() bool { return a == ZeroAddress }

// AddressFromBase58 parses a base58 string into an Address.
func AddressFromBase58(s string) (Address, error) {
	var a Address
	b, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != IDSize {
		return a, fmt.Errorf("invalid address %q: want %d bytes, got %d", s, IDSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromBase58(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (b Bytes32) String() string { return hexutil.Encode(b[:]) }

func (b Bytes32) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Bytes32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid bytes32 %q: %w", s, err)
	}
	if len(raw) != IDSize {
		return fmt.Errorf("invalid bytes32 %q: want %d bytes, got %d", s, IDSize, len(raw))
	}
	copy(b[:], raw)
	return nil
}
