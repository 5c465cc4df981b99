package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
)

var nowFunc = time.Now // mockable

// ErrComputationAnomaly marks a per-coach computation that cannot produce a
// sane earnings record (overflow, negative intermediates). The caller zeroes
// that coach's record and carries on; it never aborts the run.
var ErrComputationAnomaly = errors.New("computation anomaly")

// EarningsInput is the raw revenue figure the calculator works from.
type EarningsInput struct {
	CoachID      int
	Period       Period
	GrossRevenue int64
	Currency     string
}

// Calculator turns raw revenue + policy into an earnings record and the
// commission ledger entries across the sponsor chain. Pure apart from logging
// skipped levels: same inputs always produce the same amounts.
type Calculator struct {
	log core.Logger
}

func NewCalculator(log core.Logger) *Calculator {
	return &Calculator{log: log}
}

// Compute derives the per-coach earnings breakdown:
//
//	fee = max(minimumFee, gross*feeBps), never above gross
//	tax = (gross - fee) * taxBps
//	commissions walk the chain level 1..maxCommissionLevels on the
//	net-of-fee-and-tax amount, per-beneficiary total capped at commissionCap
//	netPayable = gross - fee - tax - commissions, always >= 0
//
// Deductions round down (see money.go) so the parts sum exactly to the gross.
// A non-positive gross yields an all-zero record and no commissions.
func (calc *Calculator) Compute(in EarningsInput, chain []coach.ChainMember, policy FinancialPolicy) (EarningsRecord, []CommissionLedgerEntry, error) {
	now := nowFunc().UTC()
	rec := EarningsRecord{
		ID:        uuid.New().String(),
		CoachID:   in.CoachID,
		Period:    in.Period,
		Currency:  policy.Currency,
		CreatedAt: now,
	}

	if in.GrossRevenue <= 0 {
		return rec, nil, nil
	}
	if bpsOverflows(in.GrossRevenue) {
		return rec, nil, errors.Wrapf(ErrComputationAnomaly, "gross revenue %d too large for coach %d", in.GrossRevenue, in.CoachID)
	}

	gross := in.GrossRevenue
	fee := maxInt64(policy.MinimumFee, applyBps(gross, policy.PlatformFeeBps))
	// excess fees are capped, never produce a negative payable
	fee = minInt64(fee, gross)
	tax := applyBps(gross-fee, policy.TaxRateBps)
	remaining := gross - fee - tax

	entries, commissions := calc.distributeCommissions(rec, chain, policy, remaining)

	rec.GrossRevenue = gross
	rec.PlatformFeeAmount = fee
	rec.TaxAmount = tax
	rec.CommissionsOwed = commissions
	rec.NetPayable = remaining - commissions
	if rec.NetPayable < 0 {
		return EarningsRecord{ID: rec.ID, CoachID: rec.CoachID, Period: rec.Period, Currency: rec.Currency, CreatedAt: now},
			nil, errors.Wrapf(ErrComputationAnomaly, "negative net payable %d for coach %d", rec.NetPayable, in.CoachID)
	}
	return rec, entries, nil
}

// distributeCommissions walks the chain from the direct sponsor upward,
// generating ledger entries in ascending level order. The commission base is
// the net-of-fee-and-tax amount; each beneficiary's running total is capped at
// commissionCap, and the grand total can never exceed the base.
func (calc *Calculator) distributeCommissions(rec EarningsRecord, chain []coach.ChainMember, policy FinancialPolicy, base int64) ([]CommissionLedgerEntry, int64) {
	var (
		entries   []CommissionLedgerEntry
		total     int64
		perPayee  = make(map[int]int64, len(chain))
		maxLevels = policy.MaxCommissionLevels
	)
	for i, member := range chain {
		level := i + 1
		if level > maxLevels {
			break
		}

		bps, ok := policy.CommissionBpsFor(member.Rank)
		if !ok {
			calc.log.Warn(fmt.Sprintf(
				"settlement: no commission rate for rank %q (coach %d, level %d); level skipped",
				member.Rank, member.CoachID, level,
			))
			continue
		}

		amount := applyBps(base, bps)
		// per-beneficiary cap across levels of this earnings record
		if headroom := policy.CommissionCap - perPayee[member.CoachID]; amount > headroom {
			amount = maxInt64(headroom, 0)
		}
		// total commissions never exceed the distributable base
		if left := base - total; amount > left {
			amount = maxInt64(left, 0)
		}
		if amount == 0 {
			continue
		}

		entries = append(entries, CommissionLedgerEntry{
			ID:                 uuid.New().String(),
			SourceEarningsID:   rec.ID,
			PayerCoachID:       rec.CoachID,
			BeneficiaryCoachID: member.CoachID,
			Level:              level,
			Rank:               member.Rank,
			Amount:             amount,
			CreatedAt:          rec.CreatedAt,
		})
		perPayee[member.CoachID] += amount
		total += amount
	}
	return entries, total
}
