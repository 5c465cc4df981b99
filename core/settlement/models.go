package settlement

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Period is a revenue-aggregation window in "YYYY-MM" form. Earnings,
// commission entries and payout items are all keyed by it.
type Period string

func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", errors.Wrapf(err, "invalid settlement period %q", s)
	}
	return Period(t.Format("2006-01")), nil
}

func (p Period) String() string { return string(p) }

// Start is the first instant of the period (UTC).
func (p Period) Start() time.Time {
	t, _ := time.Parse("2006-01", string(p))
	return t
}

// End is the first instant of the next period; the window is [Start, End).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// EarningsRecord is the derived per-(coach, period) revenue breakdown.
// Recomputed each settlement cycle; superseded by a newer run, never mutated.
type EarningsRecord struct {
	ID                string    `json:"id"`
	RunID             string    `json:"run_id"`
	CoachID           int       `json:"coach_id"`
	Period            Period    `json:"period"`
	Currency          string    `json:"currency"`
	GrossRevenue      int64     `json:"gross_revenue"`
	PlatformFeeAmount int64     `json:"platform_fee_amount"`
	TaxAmount         int64     `json:"tax_amount"`
	CommissionsOwed   int64     `json:"commissions_owed"`
	NetPayable        int64     `json:"net_payable"`
	CreatedAt         time.Time `json:"created_at"` // UTC
}

// CommissionLedgerEntry is one commission owed to an ancestor in the sponsor
// chain for a single earnings record. Immutable once created.
type CommissionLedgerEntry struct {
	ID                 string    `json:"id"`
	SourceEarningsID   string    `json:"source_earnings_id"`
	PayerCoachID       int       `json:"payer_coach_id"`
	BeneficiaryCoachID int       `json:"beneficiary_coach_id"`
	Level              int       `json:"level"` // 1 = direct sponsor
	Rank               string    `json:"rank"`  // beneficiary rank at settlement time
	Amount             int64     `json:"amount"`
	CreatedAt          time.Time `json:"created_at"` // UTC
}

// Payout item states.
type ItemState string

const (
	StatePending     ItemState = "pending"
	StateSubmitted   ItemState = "submitted"
	StateCompleted   ItemState = "completed"
	StateFailed      ItemState = "failed"
	StateFailedFinal ItemState = "failed-final"
)

// Terminal reports whether no further transition may be applied to the state.
func (s ItemState) Terminal() bool {
	return s == StateCompleted || s == StateFailedFinal
}

// PayoutBatchItem is one coach selected for payout in a run. Owned by the
// executor from `submitted` onward; the reconciliation syncer is the only
// writer of its terminal state after that.
type PayoutBatchItem struct {
	ID             string      `json:"id"`
	RunID          string      `json:"run_id"`
	CoachID        int         `json:"coach_id"`
	Period         Period      `json:"period"`
	Amount         int64       `json:"amount"`
	Currency       string      `json:"currency"`
	IdempotencyKey string      `json:"idempotency_key"`
	State          ItemState   `json:"state"`
	Attempts       int         `json:"attempts"`
	GatewayRef     null.String `json:"gateway_ref,omitempty"`
	FailureReason  null.String `json:"failure_reason,omitempty"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
	UpdatedAt      time.Time   `json:"updated_at"` // UTC
}

// IdempotencyKeyFor is deterministic for a (coach, period) pair so a re-run
// can never produce a second money-moving request for the same logical payout.
func IdempotencyKeyFor(coachID int, period Period) string {
	return fmt.Sprintf("payout-%d-%s", coachID, period)
}

// PlanItem is one row of a (side-effect free) batch plan.
type PlanItem struct {
	CoachID  int    `json:"coach_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// BatchPlan is the dry-run view of a payout batch: same selection, same
// ordering, same amounts as an execution, with nothing persisted and no live
// idempotency keys attached.
type BatchPlan struct {
	Period Period     `json:"period"`
	Items  []PlanItem `json:"items"`
}

func (p BatchPlan) TotalAmount() int64 {
	var total int64
	for _, it := range p.Items {
		total += it.Amount
	}
	return total
}

// BatchResult partitions an executed batch. Succeeded items are accepted by
// the gateway (completed, or submitted and still clearing); failed items have
// exhausted their retry budget or hit a permanent error.
type BatchResult struct {
	Succeeded []PayoutBatchItem `json:"succeeded"`
	Failed    []PayoutBatchItem `json:"failed"`
}

// Run statuses as reported in a RunSummary.
const (
	RunNotAttempted = "not-attempted"
	RunCompleted    = "completed"
	RunPartial      = "partially-completed"
)

// ItemFailure is the per-failure detail carried in a RunSummary.
type ItemFailure struct {
	CoachID int    `json:"coach_id"`
	Reason  string `json:"reason"`
}

// RunSummary is what an execute run reports back to the caller. Per-item
// errors land in Failures; the run itself always completes.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	Period     Period        `json:"period"`
	Status     string        `json:"status"`
	TotalPaid  int64         `json:"total_paid"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Failures   []ItemFailure `json:"failures,omitempty"`
	StartedAt  time.Time     `json:"started_at"`  // UTC
	FinishedAt time.Time     `json:"finished_at"` // UTC
}

// Run is the persisted record of a settlement run.
type Run struct {
	ID         string    `json:"id"`
	Period     Period    `json:"period"`
	Status     string    `json:"status"`
	TotalPaid  int64     `json:"total_paid"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt null.Time `json:"finished_at,omitempty"`
}

// SyncSummary reports one reconciliation pass over in-flight payouts.
type SyncSummary struct {
	Checked         int `json:"checked"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
	StillProcessing int `json:"still_processing"`
	Errors          int `json:"errors"`
}

// AuditEntry records one payout state transition; required for reconciliation
// and dispute resolution.
type AuditEntry struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	CoachID    int       `json:"coach_id"`
	OldState   ItemState `json:"old_state"`
	NewState   ItemState `json:"new_state"`
	GatewayRef string    `json:"gateway_ref,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"` // UTC
}
