package settlement

import (
	"sync"

	"github.com/pay-chain/paychain/types"
)

// keyLocks serializes operations per payment id. Operations on
// different ids never contend. Mutexes are kept for the life of the
// process; identifiers are never reused, so the set is bounded by the
// number of distinct records touched.
type keyLocks struct {
	locks sync.Map // types.PaymentID -> *sync.Mutex
}

func (k *keyLocks) lock(id types.PaymentID) (unlock func()) {
	v, _ := k.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
