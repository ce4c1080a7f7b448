// Package store provides the key-value persistence layer backing the
// payment ledger. Two backends exist: an in-memory map for tests and
// embedded use, and a Badger-backed store for durable deployments.
package store

import "errors"

// ErrKeyNotFound is returned by Get for absent keys.
var ErrKeyNotFound = errors.New("store: key not found")

// Tx is the mutation surface available inside an atomic update. Reads
// observe writes made earlier in the same transaction.
type Tx interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Has(key []byte) (bool, error)
}

// Store is an atomic key-value store. Update applies fn as one unit:
// either every write in fn is visible afterwards or none is.
type Store interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Update(fn func(tx Tx) error) error
	Close() error
}
