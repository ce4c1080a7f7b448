package relay

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-chain/paychain/types"
)

func testPaymentID(b byte) types.PaymentID {
	var id types.PaymentID
	id[0] = b
	return id
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, outcome := range []types.Outcome{types.OutcomeDelivered, types.OutcomeDeliveryFailed} {
		in := Confirmation{PaymentID: testPaymentID(7), Outcome: outcome}
		body, err := Encode(in)
		require.NoError(t, err)
		require.Len(t, body, bodySize)

		out, err := Decode(body)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestDecodeShortBody(t *testing.T) {
	_, err := Decode(make([]byte, bodySize-1))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidMessageData))
}

func TestDecodeUnknownTagFailsClosed(t *testing.T) {
	body, err := Encode(Confirmation{PaymentID: testPaymentID(1), Outcome: types.OutcomeDelivered})
	require.NoError(t, err)
	binary.BigEndian.PutUint64(body[2*wordSize-8:2*wordSize], 99)

	_, err = Decode(body)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidMessageData))
}

func TestDecodeZeroTagFailsClosed(t *testing.T) {
	_, err := Decode(make([]byte, bodySize))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidMessageData))
}

func TestEncodeRejectsUnknownOutcome(t *testing.T) {
	_, err := Encode(Confirmation{PaymentID: testPaymentID(1), Outcome: types.Outcome("bogus")})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidMessageData))
}
