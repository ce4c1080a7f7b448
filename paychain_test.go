package paychain

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-chain/paychain/bank"
	"github.com/pay-chain/paychain/relay"
	"github.com/pay-chain/paychain/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func pid(b byte) types.PaymentID {
	var id types.PaymentID
	id[0] = b
	return id
}

func word(b byte) types.Bytes32 {
	var w types.Bytes32
	w[0] = b
	return w
}

func TestFullPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	b := bank.NewMemory()
	pc := New(
		WithBank(b),
		WithClock(func() time.Time { return time.Unix(1700000000, 0).UTC() }),
	)
	defer pc.Close()

	authority := addr(1)
	feeRecipient := addr(2)
	router := addr(3)
	sender := addr(4)
	b.Mint(sender, 10_000_000)

	require.NoError(t, pc.Initialize(ctx, types.InitializeParams{
		Authority:    authority,
		FeeRecipient: feeRecipient,
		Router:       router,
		ChainID:      "solana-devnet",
	}))

	p, err := pc.CreatePayment(ctx, sender, types.CreatePaymentParams{
		PaymentID:   pid(1),
		DestChainID: "base-sepolia",
		DestToken:   word(8),
		Amount:      1_000_000,
		Receiver:    word(9),
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, p.Status)
	assert.Equal(t, uint64(500_000), p.Fee)

	vault, err := pc.VaultBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), vault)

	// confirmation arrives as a raw relay envelope
	body, err := relay.Encode(relay.Confirmation{
		PaymentID: pid(1),
		Outcome:   types.OutcomeDelivered,
	})
	require.NoError(t, err)

	p, err = pc.ReceiveMessage(ctx, router, relay.Message{
		MessageID:           common.HexToHash("0x01"),
		SourceChainSelector: 10344971235874465080,
		Data:                body,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, p.Status)

	feeBal, _ := b.Balance(ctx, feeRecipient)
	assert.Equal(t, uint64(500_000), feeBal)

	vault, err = pc.VaultBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), vault)
}

func TestReceiveMessageMalformedBody(t *testing.T) {
	ctx := context.Background()
	pc := New()
	defer pc.Close()

	require.NoError(t, pc.Initialize(ctx, types.InitializeParams{
		Authority:    addr(1),
		FeeRecipient: addr(2),
		Router:       addr(3),
		ChainID:      "solana-devnet",
	}))

	_, err := pc.ReceiveMessage(ctx, addr(3), relay.Message{Data: []byte("junk")})
	assert.True(t, types.IsCode(err, types.ErrInvalidMessageData))
}

func TestFailedDeliveryThenRefund(t *testing.T) {
	ctx := context.Background()
	b := bank.NewMemory()
	pc := New(WithBank(b))
	defer pc.Close()

	sender := addr(4)
	b.Mint(sender, 10_000_000)

	require.NoError(t, pc.Initialize(ctx, types.InitializeParams{
		Authority:    addr(1),
		FeeRecipient: addr(2),
		Router:       addr(3),
		ChainID:      "solana-devnet",
	}))
	_, err := pc.CreatePayment(ctx, sender, types.CreatePaymentParams{
		PaymentID:   pid(1),
		DestChainID: "base-sepolia",
		DestToken:   word(8),
		Amount:      1_000_000,
		Receiver:    word(9),
	})
	require.NoError(t, err)

	body, err := relay.Encode(relay.Confirmation{
		PaymentID: pid(1),
		Outcome:   types.OutcomeDeliveryFailed,
	})
	require.NoError(t, err)
	p, err := pc.ReceiveMessage(ctx, addr(3), relay.Message{Data: body})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, p.Status)

	p, err = pc.ProcessRefund(ctx, sender, pid(1))
	require.NoError(t, err)
	assert.Equal(t, types.StatusRefunded, p.Status)

	senderBal, _ := b.Balance(ctx, sender)
	assert.Equal(t, uint64(10_000_000), senderBal)
}
