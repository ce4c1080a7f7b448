package fee

import "github.com/shopspring/decimal"

// Quote is a human-unit breakdown of a payment's cost, produced for API
// responses and client display. Values are decimal strings scaled by the
// token's decimals; the engine itself only ever works in smallest units.
type Quote struct {
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Total  decimal.Decimal `json:"total"`
}

// NewQuote converts smallest-unit amount and fee into a Quote at the
// given token decimals.
func NewQuote(amount, fee uint64, decimals int32) Quote {
	a := decimal.NewFromUint64(amount).Shift(-decimals)
	f := decimal.NewFromUint64(fee).Shift(-decimals)
	return Quote{
		Amount: a,
		Fee:    f,
		Total:  a.Add(f),
	}
}
