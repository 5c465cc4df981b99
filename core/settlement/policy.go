package settlement

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/funnelseye/backoffice/core"
)

// FinancialPolicy is the snapshot of the fee/commission configuration one
// settlement run computes against. It is taken once at run start and passed by
// parameter through the pipeline; an administrative config change only takes
// effect on the next run.
type FinancialPolicy struct {
	Currency            string           `json:"currency" validate:"required,len=3"`
	PlatformFeeBps      int64            `json:"platform_fee_bps" validate:"bps"`
	MinimumFee          int64            `json:"minimum_fee" validate:"min=0"`
	TaxRateBps          int64            `json:"tax_rate_bps" validate:"bps"`
	CommissionTableBps  map[string]int64 `json:"commission_table_bps" validate:"required,dive,bps"`
	MaxCommissionLevels int              `json:"max_commission_levels" validate:"min=1"`
	CommissionCap       int64            `json:"commission_cap" validate:"min=0"`
	MinimumPayoutAmount int64            `json:"minimum_payout_amount" validate:"min=0"`
	PayoutFrequency     string           `json:"payout_frequency" validate:"oneof=weekly monthly"`
	PayoutFanOut        int              `json:"payout_fan_out" validate:"min=1"`
	MaxSubmitAttempts   int              `json:"max_submit_attempts" validate:"min=1"`
	RetryBackoffBase    time.Duration    `json:"retry_backoff_base" validate:"min=0"`
}

// PolicyFromConfig copies the configured policy into an immutable snapshot.
// The commission table is deep-copied so a concurrent admin edit cannot leak
// into a run already in progress.
func PolicyFromConfig(conf *core.Config) FinancialPolicy {
	s := conf.Settlement
	table := make(map[string]int64, len(s.CommissionTableBps))
	for rank, bps := range s.CommissionTableBps {
		table[strings.ToLower(rank)] = bps
	}
	return FinancialPolicy{
		Currency:            strings.ToUpper(s.Currency),
		PlatformFeeBps:      s.PlatformFeeBps,
		MinimumFee:          s.MinimumFee,
		TaxRateBps:          s.TaxRateBps,
		CommissionTableBps:  table,
		MaxCommissionLevels: s.MaxCommissionLevels,
		CommissionCap:       s.CommissionCap,
		MinimumPayoutAmount: s.MinimumPayoutAmount,
		PayoutFrequency:     s.PayoutFrequency,
		PayoutFanOut:        s.PayoutFanOut,
		MaxSubmitAttempts:   s.MaxSubmitAttempts,
		RetryBackoffBase:    s.RetryBackoffBase,
	}
}

// Validate runs before any computation or gateway call; a bad policy fails the
// whole run as a core.ValidationError.
func (p FinancialPolicy) Validate(validate *validator.Validate) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return nil
}

// CommissionBpsFor looks up the commission rate for a rank (case-insensitive).
func (p FinancialPolicy) CommissionBpsFor(rank string) (int64, bool) {
	bps, ok := p.CommissionTableBps[strings.ToLower(rank)]
	return bps, ok
}
