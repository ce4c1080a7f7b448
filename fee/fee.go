// Package fee computes protocol fees. The fee is the greater of a
// proportional basis-point charge and a fixed floor, so micro-payments
// cannot evade the minimum while large transfers pay proportionally.
package fee

import (
	"math"
	"math/bits"

	"github.com/pay-chain/paychain/types"
)

// bpsDenominator converts basis points to a fraction: 1 bps = 1/10000.
const bpsDenominator = 10_000

// Compute returns max(floor(amount*rateBps/10000), feeMin). The product
// is carried in 128 bits; a result that does not fit uint64 is rejected
// with ArithmeticOverflow rather than truncated.
func Compute(amount, rateBps, feeMin uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, rateBps)
	if hi >= bpsDenominator {
		// quotient would exceed 64 bits
		return 0, types.NewError(types.ErrArithmeticOverflow, "fee computation overflows uint64")
	}
	pct, _ := bits.Div64(hi, lo, bpsDenominator)
	if pct < feeMin {
		return feeMin, nil
	}
	return pct, nil
}

// Calculator binds the deployment's fee parameters.
type Calculator struct {
	RateBps uint64
	Min     uint64
}

// NewCalculator builds a Calculator from the deployment config.
func NewCalculator(cfg types.Config) Calculator {
	return Calculator{RateBps: cfg.FeeRateBps, Min: cfg.FeeMin}
}

// Compute returns the fee for amount under the bound parameters.
func (c Calculator) Compute(amount uint64) (uint64, error) {
	return Compute(amount, c.RateBps, c.Min)
}

// Total returns amount+fee, rejecting uint64 wraparound.
func Total(amount, fee uint64) (uint64, error) {
	if amount > math.MaxUint64-fee {
		return 0, types.NewError(types.ErrArithmeticOverflow, "escrow total overflows uint64")
	}
	return amount + fee, nil
}
