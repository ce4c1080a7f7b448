// Package ledger persists the deployment config, the vault balance and
// the payment records, and enforces the lifecycle transitions and the
// escrow invariant on every mutation. Each mutating method runs inside
// one store transaction: a status change and its vault adjustment are
// never observable apart.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pay-chain/paychain/store"
	"github.com/pay-chain/paychain/types"
	"github.com/pay-chain/paychain/utils"
)

// Storage key seeds. Mirrors the account seeding of the deployed
// protocol so keys stay stable across backends.
var (
	seedConfig  = []byte("config")
	seedVault   = []byte("vault")
	seedPayment = []byte("payment")
	seedRequest = []byte("payment_request")
)

// VaultAddress derives the custody account address from the same seeds
// that key the vault record. The account exists only as a destination
// for escrowed funds; no spending key corresponds to it.
func VaultAddress() types.Address {
	c := utils.Derive(seedConfig)
	return utils.DeriveAddress(seedVault, c[:])
}

// Ledger is the persistence layer of the settlement engine.
type Ledger struct {
	db store.Store
}

// New wraps a key-value store in a Ledger.
func New(db store.Store) *Ledger {
	return &Ledger{db: db}
}

func configKey() []byte {
	k := utils.Derive(seedConfig)
	return k[:]
}

func vaultKey() []byte {
	c := utils.Derive(seedConfig)
	k := utils.Derive(seedVault, c[:])
	return k[:]
}

func paymentKey(id types.PaymentID) []byte {
	k := utils.Derive(seedPayment, id[:])
	return k[:]
}

func requestKey(id types.PaymentID) []byte {
	k := utils.Derive(seedRequest, id[:])
	return k[:]
}

// InitConfig stores the singleton config. Exactly one config may exist
// per deployment.
func (l *Ledger) InitConfig(cfg types.Config) error {
	return l.db.Update(func(tx store.Tx) error {
		ok, err := tx.Has(configKey())
		if err != nil {
			return err
		}
		if ok {
			return types.NewError(types.ErrAlreadyInitialized, "config already initialized")
		}
		if err := putJSON(tx, configKey(), cfg); err != nil {
			return err
		}
		return putVault(tx, 0)
	})
}

// Config returns the deployment config.
func (l *Ledger) Config() (types.Config, error) {
	var cfg types.Config
	raw, err := l.db.Get(configKey())
	if errors.Is(err, store.ErrKeyNotFound) {
		return cfg, types.NewError(types.ErrNotInitialized, "config not initialized")
	}
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(raw, &cfg)
	return cfg, err
}

// UpdateConfig applies fn to the stored config atomically. ChainID is
// pinned: fn cannot change it.
func (l *Ledger) UpdateConfig(fn func(cfg *types.Config) error) error {
	return l.db.Update(func(tx store.Tx) error {
		raw, err := tx.Get(configKey())
		if errors.Is(err, store.ErrKeyNotFound) {
			return types.NewError(types.ErrNotInitialized, "config not initialized")
		}
		if err != nil {
			return err
		}
		var cfg types.Config
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return err
		}
		chainID := cfg.ChainID
		if err := fn(&cfg); err != nil {
			return err
		}
		cfg.ChainID = chainID
		return putJSON(tx, configKey(), cfg)
	})
}

// VaultBalance returns the aggregate escrowed balance.
func (l *Ledger) VaultBalance() (uint64, error) {
	raw, err := l.db.Get(vaultKey())
	if errors.Is(err, store.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("ledger: corrupt vault record (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Payment returns the record for id.
func (l *Ledger) Payment(id types.PaymentID) (types.Payment, error) {
	var p types.Payment
	raw, err := l.db.Get(paymentKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return p, types.NewError(types.ErrNotFound, fmt.Sprintf("payment %s not found", id))
	}
	if err != nil {
		return p, err
	}
	err = json.Unmarshal(raw, &p)
	return p, err
}

// HasPayment reports whether a record exists for id, in any status.
func (l *Ledger) HasPayment(id types.PaymentID) (bool, error) {
	return l.db.Has(paymentKey(id))
}

// CreatePayment stores a new Pending record and credits the vault by
// the payment's escrow total. Identifiers are never reused: a record in
// any status, terminal included, blocks re-creation.
func (l *Ledger) CreatePayment(p types.Payment) error {
	return l.db.Update(func(tx store.Tx) error {
		ok, err := tx.Has(paymentKey(p.PaymentID))
		if err != nil {
			return err
		}
		if ok {
			return types.NewError(types.ErrDuplicatePayment,
				fmt.Sprintf("payment %s already exists", p.PaymentID))
		}
		if err := putJSON(tx, paymentKey(p.PaymentID), p); err != nil {
			return err
		}
		return creditVault(tx, p.Escrowed())
	})
}

// RecordOutcome applies a relay confirmation to a Pending payment.
// Delivered moves the record to Completed and releases the full escrow
// from the vault (fee paid out, principal settled on the destination
// chain). DeliveryFailed moves it to Failed and keeps the escrow in the
// vault, earmarked for refund. Any status other than Pending fails with
// InvalidPaymentState, so a second confirmation cannot double-apply.
func (l *Ledger) RecordOutcome(id types.PaymentID, outcome types.Outcome) (types.Payment, error) {
	var p types.Payment
	err := l.db.Update(func(tx store.Tx) error {
		var err error
		p, err = getPayment(tx, id)
		if err != nil {
			return err
		}
		if p.Status != types.StatusPending {
			return types.NewError(types.ErrInvalidPaymentState,
				fmt.Sprintf("payment %s is %s, expected pending", id, p.Status))
		}
		switch outcome {
		case types.OutcomeDelivered:
			p.Status = types.StatusCompleted
			if err := debitVault(tx, p.Escrowed()); err != nil {
				return err
			}
		case types.OutcomeDeliveryFailed:
			p.Status = types.StatusFailed
		default:
			return types.NewError(types.ErrInvalidMessageData,
				fmt.Sprintf("unrecognized outcome %q", outcome))
		}
		return putJSON(tx, paymentKey(id), p)
	})
	return p, err
}

// Refund moves a Failed payment to Refunded and releases its escrow
// from the vault. Every other status, Pending and Completed included,
// fails with PaymentNotFailed.
func (l *Ledger) Refund(id types.PaymentID) (types.Payment, error) {
	var p types.Payment
	err := l.db.Update(func(tx store.Tx) error {
		var err error
		p, err = getPayment(tx, id)
		if err != nil {
			return err
		}
		if p.Status != types.StatusFailed {
			return types.NewError(types.ErrPaymentNotFailed,
				fmt.Sprintf("payment %s is %s, expected failed", id, p.Status))
		}
		p.Status = types.StatusRefunded
		if err := debitVault(tx, p.Escrowed()); err != nil {
			return err
		}
		return putJSON(tx, paymentKey(id), p)
	})
	return p, err
}

// CreateRequest stores a new merchant payment request.
func (l *Ledger) CreateRequest(r types.PaymentRequest) error {
	return l.db.Update(func(tx store.Tx) error {
		ok, err := tx.Has(requestKey(r.RequestID))
		if err != nil {
			return err
		}
		if ok {
			return types.NewError(types.ErrDuplicatePayment,
				fmt.Sprintf("payment request %s already exists", r.RequestID))
		}
		return putJSON(tx, requestKey(r.RequestID), r)
	})
}

// Request returns the payment request for id.
func (l *Ledger) Request(id types.PaymentID) (types.PaymentRequest, error) {
	var r types.PaymentRequest
	raw, err := l.db.Get(requestKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return r, types.NewError(types.ErrNotFound, fmt.Sprintf("payment request %s not found", id))
	}
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(raw, &r)
	return r, err
}

// MarkRequestPaid records payer against an unpaid, unexpired request.
func (l *Ledger) MarkRequestPaid(id types.PaymentID, payer types.Address, now time.Time) (types.PaymentRequest, error) {
	var r types.PaymentRequest
	err := l.db.Update(func(tx store.Tx) error {
		raw, err := tx.Get(requestKey(id))
		if errors.Is(err, store.ErrKeyNotFound) {
			return types.NewError(types.ErrNotFound, fmt.Sprintf("payment request %s not found", id))
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		if r.IsPaid {
			return types.NewError(types.ErrAlreadyPaid,
				fmt.Sprintf("payment request %s already paid", id))
		}
		if now.After(r.ExpiresAt) {
			return types.NewError(types.ErrRequestExpired,
				fmt.Sprintf("payment request %s expired at %s", id, r.ExpiresAt))
		}
		r.IsPaid = true
		r.Payer = &payer
		return putJSON(tx, requestKey(id), r)
	})
	return r, err
}

// Close releases the underlying store.
func (l *Ledger) Close() error { return l.db.Close() }

func getPayment(tx store.Tx, id types.PaymentID) (types.Payment, error) {
	var p types.Payment
	raw, err := tx.Get(paymentKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return p, types.NewError(types.ErrNotFound, fmt.Sprintf("payment %s not found", id))
	}
	if err != nil {
		return p, err
	}
	err = json.Unmarshal(raw, &p)
	return p, err
}

func putJSON(tx store.Tx, key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Set(key, raw)
}

func putVault(tx store.Tx, balance uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], balance)
	return tx.Set(vaultKey(), buf[:])
}

func vaultBalance(tx store.Tx) (uint64, error) {
	raw, err := tx.Get(vaultKey())
	if errors.Is(err, store.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("ledger: corrupt vault record (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func creditVault(tx store.Tx, amount uint64) error {
	balance, err := vaultBalance(tx)
	if err != nil {
		return err
	}
	return putVault(tx, balance+amount)
}

func debitVault(tx store.Tx, amount uint64) error {
	balance, err := vaultBalance(tx)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("ledger: vault balance %d cannot release %d", balance, amount)
	}
	return putVault(tx, balance-amount)
}
