package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/funnelseye/backoffice/core"
)

type (
	// Payment is one confirmed transaction from the external payments store,
	// amount in minor units.
	Payment struct {
		ID        string    `json:"id"`
		CoachID   int       `json:"coach_id"`
		Amount    int64     `json:"amount"`
		Currency  string    `json:"currency"`
		Timestamp time.Time `json:"timestamp"` // UTC
	}

	// Repository reads confirmed payment records; the payments store itself is
	// owned elsewhere and treated as read-only here.
	Repository interface {
		GetConfirmedPayments(ctx context.Context, coachID int, periodStart, periodEnd time.Time) ([]Payment, error)
		// QueryCoachIDsWithPayments lists the coaches with at least one
		// confirmed payment in the window, ascending.
		QueryCoachIDsWithPayments(ctx context.Context, periodStart, periodEnd time.Time) ([]int, error)
	}

	// Reader aggregates raw per-coach revenue for a period. Leaf of the
	// settlement pipeline; emits nothing else.
	Reader struct {
		repo Repository
		log  core.Logger
	}

	// CoachRevenue is the aggregate gross revenue of one coach for the window.
	CoachRevenue struct {
		CoachID      int   `json:"coach_id"`
		GrossRevenue int64 `json:"gross_revenue"`
	}
)

func NewReader(repo Repository, log core.Logger) *Reader {
	return &Reader{repo: repo, log: log}
}

// GrossRevenue sums a coach's confirmed payments for the window. Payments in a
// currency other than the settlement currency are skipped and logged; currency
// conversion is out of scope.
func (r *Reader) GrossRevenue(ctx context.Context, coachID int, periodStart, periodEnd time.Time, currency string) (int64, error) {
	payments, err := r.repo.GetConfirmedPayments(ctx, coachID, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}

	var gross int64
	for _, p := range payments {
		if p.Currency != currency {
			r.log.Warn(fmt.Sprintf("ledger: skipping payment %s for coach %d: currency %s != %s", p.ID, coachID, p.Currency, currency))
			continue
		}
		gross += p.Amount
	}
	return gross, nil
}

// GrossRevenueByCoach aggregates the window for every coach with confirmed
// payments, ordered by coach ID ascending so downstream batches stay stable.
func (r *Reader) GrossRevenueByCoach(ctx context.Context, periodStart, periodEnd time.Time, currency string) ([]CoachRevenue, error) {
	ids, err := r.repo.QueryCoachIDsWithPayments(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	sort.Ints(ids)

	revenues := make([]CoachRevenue, 0, len(ids))
	for _, id := range ids {
		gross, err := r.GrossRevenue(ctx, id, periodStart, periodEnd, currency)
		if err != nil {
			return nil, err
		}
		revenues = append(revenues, CoachRevenue{CoachID: id, GrossRevenue: gross})
	}
	return revenues, nil
}
