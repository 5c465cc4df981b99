package settlement

import (
	"sort"

	"github.com/google/uuid"
)

// BuildPlan selects the coaches whose net payable meets the minimum payout
// threshold. Pure and deterministic: same records and policy always yield the
// same items in the same order (coach ID ascending), so a preview is an exact,
// diffable picture of what an execution would submit.
func BuildPlan(records []EarningsRecord, policy FinancialPolicy) BatchPlan {
	var period Period
	items := make([]PlanItem, 0, len(records))
	for _, rec := range records {
		if period == "" {
			period = rec.Period
		}
		if rec.NetPayable < policy.MinimumPayoutAmount {
			continue
		}
		items = append(items, PlanItem{
			CoachID:  rec.CoachID,
			Amount:   rec.NetPayable,
			Currency: rec.Currency,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CoachID < items[j].CoachID })
	return BatchPlan{Period: period, Items: items}
}

// MaterializeBatch turns a plan into executable payout items for a live run,
// attaching the deterministic idempotency keys. Only the execute path calls
// this; a dry-run preview stops at the plan.
func MaterializeBatch(plan BatchPlan, runID string) []PayoutBatchItem {
	now := nowFunc().UTC()
	items := make([]PayoutBatchItem, 0, len(plan.Items))
	for _, pi := range plan.Items {
		items = append(items, PayoutBatchItem{
			ID:             uuid.New().String(),
			RunID:          runID,
			CoachID:        pi.CoachID,
			Period:         plan.Period,
			Amount:         pi.Amount,
			Currency:       pi.Currency,
			IdempotencyKey: IdempotencyKeyFor(pi.CoachID, plan.Period),
			State:          StatePending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return items
}
