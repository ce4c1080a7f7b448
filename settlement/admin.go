package settlement

import (
	"context"

	"github.com/pay-chain/paychain/types"
)

// UpdateAuthority rotates the admin authority. Only the current
// authority may call it. ChainID and the fee parameters stay fixed;
// they are protocol constants at this version.
func (e *Engine) UpdateAuthority(ctx context.Context, caller, newAuthority types.Address) (err error) {
	defer e.record("update_authority", e.now(), &err)

	if newAuthority.IsZero() {
		return types.NewError(types.ErrUnauthorized, "authority cannot be the zero address")
	}
	err = e.ledger.UpdateConfig(func(cfg *types.Config) error {
		if caller != cfg.Authority {
			return types.NewError(types.ErrUnauthorized, "caller is not the authority")
		}
		cfg.Authority = newAuthority
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("authority rotated", map[string]any{
		"authority": newAuthority.String(),
	})
	return nil
}

// SetFeeRecipient changes where completed-payment fees are paid.
// Authority-gated. Fees locked on in-flight payments are unaffected;
// the recipient is read at completion time.
func (e *Engine) SetFeeRecipient(ctx context.Context, caller, recipient types.Address) (err error) {
	defer e.record("set_fee_recipient", e.now(), &err)

	if recipient.IsZero() {
		return types.NewError(types.ErrUnauthorized, "fee recipient cannot be the zero address")
	}
	err = e.ledger.UpdateConfig(func(cfg *types.Config) error {
		if caller != cfg.Authority {
			return types.NewError(types.ErrUnauthorized, "caller is not the authority")
		}
		cfg.FeeRecipient = recipient
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("fee recipient updated", map[string]any{
		"fee_recipient": recipient.String(),
	})
	return nil
}
