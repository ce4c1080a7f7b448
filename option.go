package paychain

import (
	"time"

	"github.com/pay-chain/paychain/bank"
	"github.com/pay-chain/paychain/events"
	"github.com/pay-chain/paychain/logger"
	"github.com/pay-chain/paychain/metrics"
	"github.com/pay-chain/paychain/store"
)

type Option func(*PayChain)

func WithLogger(l logger.Logger) Option {
	return func(p *PayChain) {
		p.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *PayChain) {
		p.metrics = r
	}
}

func WithEvents(pub events.Publisher) Option {
	return func(p *PayChain) {
		p.events = pub
	}
}

func WithStore(s store.Store) Option {
	return func(p *PayChain) {
		p.db = s
	}
}

func WithBank(b bank.Transferer) Option {
	return func(p *PayChain) {
		p.bank = b
	}
}

// WithClock overrides the time source. Tests use it to drive request
// expiry.
func WithClock(now func() time.Time) Option {
	return func(p *PayChain) {
		p.now = now
	}
}
