package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-chain/paychain/bank"
	"github.com/pay-chain/paychain/ledger"
	"github.com/pay-chain/paychain/store"
	"github.com/pay-chain/paychain/types"
)

var (
	authority    = addr(1)
	feeRecipient = addr(2)
	router       = addr(3)
	sender       = addr(4)
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

type fixture struct {
	engine *Engine
	ledger *ledger.Ledger
	bank   *bank.Memory
	clock  *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := ledger.New(store.NewMemory())
	b := bank.NewMemory()
	clock := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	e := New(Deps{Ledger: l, Bank: b, Now: clock.Now})
	return &fixture{engine: e, ledger: l, bank: b, clock: clock}
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	err := f.engine.Initialize(context.Background(), types.InitializeParams{
		Authority:    authority,
		FeeRecipient: feeRecipient,
		Router:       router,
		ChainID:      "solana-devnet",
	})
	require.NoError(t, err)
}

func (f *fixture) createPayment(t *testing.T, id types.PaymentID, amount uint64) types.Payment {
	t.Helper()
	p, err := f.engine.CreatePayment(context.Background(), sender, types.CreatePaymentParams{
		PaymentID:   id,
		DestChainID: "base-sepolia",
		DestToken:   word(8),
		Amount:      amount,
		Receiver:    word(9),
	})
	require.NoError(t, err)
	return p
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	cfg, err := f.engine.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, authority, cfg.Authority)
	assert.Equal(t, types.DefaultFeeRateBps, cfg.FeeRateBps)
	assert.Equal(t, types.DefaultFeeMin, cfg.FeeMin)
	assert.Equal(t, "solana-devnet", cfg.ChainID)

	err = f.engine.Initialize(context.Background(), types.InitializeParams{
		Authority:    authority,
		FeeRecipient: feeRecipient,
		Router:       router,
		ChainID:      "solana-devnet",
	})
	assert.True(t, types.IsCode(err, types.ErrAlreadyInitialized))
}

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)

	p := f.createPayment(t, pid(1), 1_000_000)

	// 30 bps of 1,000,000 is 3,000; the 500,000 floor wins
	assert.Equal(t, uint64(500_000), p.Fee)
	assert.Equal(t, types.StatusPending, p.Status)
	assert.Equal(t, "solana-devnet", p.SourceChainID)

	vault, err := f.engine.VaultBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), vault)

	senderBal, _ := f.bank.Balance(context.Background(), sender)
	assert.Equal(t, uint64(8_500_000), senderBal)

	vaultBal, _ := f.bank.Balance(context.Background(), f.engine.VaultAddress())
	assert.Equal(t, uint64(1_500_000), vaultBal)
}

func TestCreatePaymentZeroAmount(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)

	_, err := f.engine.CreatePayment(context.Background(), sender, types.CreatePaymentParams{
		PaymentID:   pid(1),
		DestChainID: "base-sepolia",
		DestToken:   word(8),
		Amount:      0,
		Receiver:    word(9),
	})
	assert.True(t, types.IsCode(err, types.ErrInvalidAmount))

	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(0), vault)
}

func TestCreatePaymentNotInitialized(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint(sender, 10_000_000)

	_, err := f.engine.CreatePayment(context.Background(), sender, types.CreatePaymentParams{
		PaymentID:   pid(1),
		DestChainID: "base-sepolia",
		DestToken:   word(8),
		Amount:      1_000_000,
		Receiver:    word(9),
	})
	assert.True(t, types.IsCode(err, types.ErrNotInitialized))
}

func TestCreatePaymentInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 1_000_000) // covers amount but not amount+fee

	_, err := f.engine.CreatePayment(context.Background(), sender, types.CreatePaymentParams{
		PaymentID:   pid(1),
		DestChainID: "base-sepolia",
		DestToken:   word(8),
		Amount:      1_000_000,
		Receiver:    word(9),
	})
	assert.True(t, types.IsCode(err, types.ErrInsufficientBalance))

	// nothing recorded, nothing moved
	_, err = f.engine.GetPayment(context.Background(), pid(1))
	assert.True(t, types.IsCode(err, types.ErrNotFound))
	senderBal, _ := f.bank.Balance(context.Background(), sender)
	assert.Equal(t, uint64(1_000_000), senderBal)
}

func TestCreatePaymentDuplicate(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.CreatePayment(context.Background(), sender, types.CreatePaymentParams{
		PaymentID:   pid(1),
		DestChainID: "base-sepolia",
		DestToken:   word(8),
		Amount:      2_000_000,
		Receiver:    word(9),
	})
	assert.True(t, types.IsCode(err, types.ErrDuplicatePayment))

	// the duplicate attempt must not have debited the sender
	senderBal, _ := f.bank.Balance(context.Background(), sender)
	assert.Equal(t, uint64(8_500_000), senderBal)
}

func TestReceiveCrossChainDelivered(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	p, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDelivered)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, p.Status)

	// fee released to the recipient, principal retired, vault empty
	feeBal, _ := f.bank.Balance(context.Background(), feeRecipient)
	assert.Equal(t, uint64(500_000), feeBal)
	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(0), vault)
	vaultBal, _ := f.bank.Balance(context.Background(), f.engine.VaultAddress())
	assert.Equal(t, uint64(0), vaultBal)
	burned, _ := f.bank.Balance(context.Background(), BurnAddress)
	assert.Equal(t, uint64(1_000_000), burned)
}

func TestReceiveCrossChainDeliveryFailed(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	p, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDeliveryFailed)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, p.Status)

	// funds stay escrowed pending a refund decision
	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(1_500_000), vault)
	feeBal, _ := f.bank.Balance(context.Background(), feeRecipient)
	assert.Equal(t, uint64(0), feeBal)
}

func TestReceiveCrossChainUnauthorizedRelay(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.ReceiveCrossChain(context.Background(), addr(77), pid(1), types.OutcomeDelivered)
	assert.True(t, types.IsCode(err, types.ErrUnauthorizedRelay))

	// no state changed
	p, _ := f.engine.GetPayment(context.Background(), pid(1))
	assert.Equal(t, types.StatusPending, p.Status)
	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(1_500_000), vault)
}

func TestReceiveCrossChainSecondConfirmationRejected(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDelivered)
	require.NoError(t, err)

	_, err = f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDelivered)
	assert.True(t, types.IsCode(err, types.ErrInvalidPaymentState))

	// no double fee release
	feeBal, _ := f.bank.Balance(context.Background(), feeRecipient)
	assert.Equal(t, uint64(500_000), feeBal)
}

func TestReceiveCrossChainUnknownOutcome(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.Outcome("bogus"))
	assert.True(t, types.IsCode(err, types.ErrInvalidMessageData))

	p, _ := f.engine.GetPayment(context.Background(), pid(1))
	assert.Equal(t, types.StatusPending, p.Status)
}

func TestProcessRefund(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDeliveryFailed)
	require.NoError(t, err)

	p, err := f.engine.ProcessRefund(context.Background(), sender, pid(1))
	require.NoError(t, err)
	assert.Equal(t, types.StatusRefunded, p.Status)

	// principal and fee both return to the sender
	senderBal, _ := f.bank.Balance(context.Background(), sender)
	assert.Equal(t, uint64(10_000_000), senderBal)
	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(0), vault)
}

func TestProcessRefundByAuthority(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDeliveryFailed)
	require.NoError(t, err)

	_, err = f.engine.ProcessRefund(context.Background(), authority, pid(1))
	require.NoError(t, err)

	senderBal, _ := f.bank.Balance(context.Background(), sender)
	assert.Equal(t, uint64(10_000_000), senderBal)
}

func TestProcessRefundUnauthorizedCaller(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDeliveryFailed)
	require.NoError(t, err)

	_, err = f.engine.ProcessRefund(context.Background(), addr(88), pid(1))
	assert.True(t, types.IsCode(err, types.ErrUnauthorized))

	p, _ := f.engine.GetPayment(context.Background(), pid(1))
	assert.Equal(t, types.StatusFailed, p.Status)
}

func TestProcessRefundRequiresFailedStatus(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	// pending: might still complete
	_, err := f.engine.ProcessRefund(context.Background(), sender, pid(1))
	assert.True(t, types.IsCode(err, types.ErrPaymentNotFailed))
	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(1_500_000), vault)

	// completed: terminal
	_, err = f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDelivered)
	require.NoError(t, err)
	_, err = f.engine.ProcessRefund(context.Background(), sender, pid(1))
	assert.True(t, types.IsCode(err, types.ErrPaymentNotFailed))
}

func TestProcessRefundExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 10_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	_, err := f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDeliveryFailed)
	require.NoError(t, err)

	_, err = f.engine.ProcessRefund(context.Background(), sender, pid(1))
	require.NoError(t, err)

	_, err = f.engine.ProcessRefund(context.Background(), sender, pid(1))
	assert.True(t, types.IsCode(err, types.ErrPaymentNotFailed))

	senderBal, _ := f.bank.Balance(context.Background(), sender)
	assert.Equal(t, uint64(10_000_000), senderBal)
}

// A confirmation racing a refund attempt on the same payment must
// produce exactly one winner; the loser fails on the status gate.
func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 100_000_000)
	f.createPayment(t, pid(1), 1_000_000)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.ReceiveCrossChain(context.Background(), router, pid(1), types.OutcomeDelivered)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, types.IsCode(err, types.ErrInvalidPaymentState))
		}
	}
	assert.Equal(t, 1, succeeded)

	// fee released exactly once
	feeBal, _ := f.bank.Balance(context.Background(), feeRecipient)
	assert.Equal(t, uint64(500_000), feeBal)
	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(0), vault)
}

func TestConcurrentDuplicateCreates(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.bank.Mint(sender, 100_000_000)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.CreatePayment(context.Background(), sender, types.CreatePaymentParams{
				PaymentID:   pid(1),
				DestChainID: "base-sepolia",
				DestToken:   word(8),
				Amount:      1_000_000,
				Receiver:    word(9),
			})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, types.IsCode(err, types.ErrDuplicatePayment))
		}
	}
	assert.Equal(t, 1, succeeded)

	// exactly one escrow was funded
	vault, _ := f.engine.VaultBalance(context.Background())
	assert.Equal(t, uint64(1_500_000), vault)
	senderBal, _ := f.bank.Balance(context.Background(), sender)
	assert.Equal(t, uint64(98_500_000), senderBal)
}

func TestUpdateAuthority(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	err := f.engine.UpdateAuthority(context.Background(), addr(55), addr(56))
	assert.True(t, types.IsCode(err, types.ErrUnauthorized))

	require.NoError(t, f.engine.UpdateAuthority(context.Background(), authority, addr(56)))

	cfg, _ := f.engine.GetConfig(context.Background())
	assert.Equal(t, addr(56), cfg.Authority)

	// old authority lost its powers
	err = f.engine.UpdateAuthority(context.Background(), authority, addr(57))
	assert.True(t, types.IsCode(err, types.ErrUnauthorized))
}

func TestSetFeeRecipient(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	err := f.engine.SetFeeRecipient(context.Background(), addr(55), addr(60))
	assert.True(t, types.IsCode(err, types.ErrUnauthorized))

	require.NoError(t, f.engine.SetFeeRecipient(context.Background(), authority, addr(60)))

	cfg, _ := f.engine.GetConfig(context.Background())
	assert.Equal(t, addr(60), cfg.FeeRecipient)
}
