package settlement

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/ledger"
)

var (
	// errors
	ErrItemNotFound = errors.New("payout batch item not found")
	ErrRunNotFound  = errors.New("settlement run not found")
)

type (
	// Repository persists the settlement state: append-mostly collections
	// keyed by (coach, period) or idempotency key.
	Repository interface {
		SaveEarnings(ctx context.Context, records []EarningsRecord) error
		SaveCommissionEntries(ctx context.Context, entries []CommissionLedgerEntry) error
		QueryEarningsByRun(ctx context.Context, runID string) ([]EarningsRecord, error)

		CreateBatchItem(ctx context.Context, item PayoutBatchItem) (PayoutBatchItem, error)
		GetBatchItemByKey(ctx context.Context, idempotencyKey string) (PayoutBatchItem, error)
		UpdateBatchItem(ctx context.Context, item PayoutBatchItem) error
		QuerySubmittedItems(ctx context.Context) ([]PayoutBatchItem, error)

		AppendAudit(ctx context.Context, entry AuditEntry) error
		QueryAuditByItem(ctx context.Context, itemID string, ordering ...core.DBOrdering) ([]AuditEntry, error)

		CreateRun(ctx context.Context, run Run) error
		FinishRun(ctx context.Context, run Run) error
		QueryRuns(ctx context.Context, ordering ...core.DBOrdering) ([]Run, error)
	}

	// Service is the settlement orchestrator: the whole boundary the CLI/API
	// layer needs. Preview is the dry-run twin of Execute.
	Service struct {
		repo      Repository
		coachRepo coach.Repository
		reader    *ledger.Reader
		gw        Gateway
		calc      *Calculator
		mailSvc   core.EmailService
		log       core.Logger
		validate  *validator.Validate
		conf      *core.Config
	}
)

func NewService(
	repo Repository,
	coachRepo coach.Repository,
	reader *ledger.Reader,
	gw Gateway,
	mailSvc core.EmailService,
	log core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:      repo,
		coachRepo: coachRepo,
		reader:    reader,
		gw:        gw,
		calc:      NewCalculator(log),
		mailSvc:   mailSvc,
		log:       log,
		validate:  validate,
		conf:      conf,
	}
}

// RunRequest is the period selector for preview/execute, as bound from the
// API or CLI layer.
type RunRequest struct {
	Period string `json:"period" validate:"required,period"`
}

func (rr *RunRequest) Validate(validate *validator.Validate) error {
	rr.Period = core.CleanString(rr.Period)
	return validate.Struct(rr)
}

// snapshotPolicy validates and freezes the configured policy for one run.
func (svc *Service) snapshotPolicy() (FinancialPolicy, error) {
	policy := PolicyFromConfig(svc.conf)
	if err := policy.Validate(svc.validate); err != nil {
		return FinancialPolicy{}, err
	}
	return policy, nil
}

// computePeriod runs the read + calculate stages: ledger revenue per coach,
// sponsor chains at current rank, earnings records and commission entries in
// ascending chain-level order. A computation anomaly zeroes that one coach; a
// ledger or chain read failure aborts, since nothing was submitted yet.
func (svc *Service) computePeriod(ctx context.Context, period Period, policy FinancialPolicy) ([]EarningsRecord, []CommissionLedgerEntry, error) {
	revenues, err := svc.reader.GrossRevenueByCoach(ctx, period.Start(), period.End(), policy.Currency)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading confirmed payments")
	}

	var (
		records []EarningsRecord
		entries []CommissionLedgerEntry
	)
	for _, rev := range revenues {
		chain, err := svc.coachRepo.GetSponsorChain(ctx, rev.CoachID, policy.MaxCommissionLevels)
		if err != nil {
			return nil, nil, core.NewValidationError(errors.Wrapf(err, "sponsor chain for coach %d", rev.CoachID))
		}

		rec, recEntries, err := svc.calc.Compute(EarningsInput{
			CoachID:      rev.CoachID,
			Period:       period,
			GrossRevenue: rev.GrossRevenue,
			Currency:     policy.Currency,
		}, chain, policy)
		if err != nil {
			// anomaly: this coach settles to zero, the run carries on
			svc.log.Error(fmt.Sprintf("settlement: computation anomaly for coach %d in %s: %v", rev.CoachID, period, err), err)
		}
		records = append(records, rec)
		entries = append(entries, recEntries...)
	}
	return records, entries, nil
}

// PreviewRun computes the batch plan for a period without persisting
// anything. Deterministic: unchanged inputs return an identical plan.
func (svc *Service) PreviewRun(ctx context.Context, period Period) (BatchPlan, error) {
	policy, err := svc.snapshotPolicy()
	if err != nil {
		return BatchPlan{}, err
	}

	records, _, err := svc.computePeriod(ctx, period, policy)
	if err != nil {
		return BatchPlan{}, err
	}

	plan := BuildPlan(records, policy)
	if plan.Period == "" {
		plan.Period = period
	}
	return plan, nil
}

// ExecuteRun runs the full pipeline for a period: compute, persist, submit,
// summarize. Per-item failures are reported in the summary, never raised; a
// validation or pipeline-level failure returns an error and a not-attempted
// summary before any gateway call.
func (svc *Service) ExecuteRun(ctx context.Context, period Period) (RunSummary, error) {
	startedAt := nowFunc().UTC()
	notAttempted := RunSummary{Period: period, Status: RunNotAttempted, StartedAt: startedAt, FinishedAt: startedAt}

	policy, err := svc.snapshotPolicy()
	if err != nil {
		return notAttempted, err
	}

	records, entries, err := svc.computePeriod(ctx, period, policy)
	if err != nil {
		return notAttempted, err
	}

	runID := uuid.New().String()
	for i := range records {
		records[i].RunID = runID
	}

	run := Run{ID: runID, Period: period, Status: RunPartial, StartedAt: startedAt}
	if err := svc.repo.CreateRun(ctx, run); err != nil {
		return notAttempted, errors.Wrap(err, "creating run")
	}
	if err := svc.repo.SaveEarnings(ctx, records); err != nil {
		return notAttempted, errors.Wrap(err, "saving earnings")
	}
	if err := svc.repo.SaveCommissionEntries(ctx, entries); err != nil {
		return notAttempted, errors.Wrap(err, "saving commission entries")
	}

	plan := BuildPlan(records, policy)
	items, err := svc.materializeOrReuse(ctx, plan, runID)
	if err != nil {
		return notAttempted, err
	}

	executor := NewExecutor(svc.gw, svc.repo, svc.log, policy)
	result, err := executor.Execute(ctx, items)
	if err != nil {
		return notAttempted, errors.Wrap(err, "executing batch")
	}

	summary := svc.summarize(runID, period, startedAt, result)

	run.Status = summary.Status
	run.TotalPaid = summary.TotalPaid
	run.Succeeded = summary.Succeeded
	run.Failed = summary.Failed
	run.FinishedAt = null.TimeFrom(summary.FinishedAt)
	if err := svc.repo.FinishRun(ctx, run); err != nil {
		svc.log.Error(fmt.Sprintf("settlement: persisting run summary %s: %v", runID, err), err)
	}

	svc.log.Info(fmt.Sprintf("settlement: run %s for %s: %d/%d succeeded, %s paid out",
		runID, period, summary.Succeeded, summary.Succeeded+summary.Failed, formatAmount(summary.TotalPaid, policy.Currency)))
	svc.sendSummaryMail(summary, policy)

	return summary, nil
}

// materializeOrReuse maps the plan onto persisted batch items. An item already
// known under its idempotency key is reused as-is — re-running a period must
// not create a second money-moving request for it.
func (svc *Service) materializeOrReuse(ctx context.Context, plan BatchPlan, runID string) ([]PayoutBatchItem, error) {
	items := make([]PayoutBatchItem, 0, len(plan.Items))
	for _, candidate := range MaterializeBatch(plan, runID) {
		existing, err := svc.repo.GetBatchItemByKey(ctx, candidate.IdempotencyKey)
		switch errors.Cause(err) {
		case nil:
			items = append(items, existing)
		case ErrItemNotFound:
			created, err := svc.repo.CreateBatchItem(ctx, candidate)
			if err != nil {
				return nil, errors.Wrapf(err, "creating batch item %s", candidate.IdempotencyKey)
			}
			items = append(items, created)
		default:
			return nil, errors.Wrapf(err, "reading batch item %s", candidate.IdempotencyKey)
		}
	}
	return items, nil
}

func (svc *Service) summarize(runID string, period Period, startedAt time.Time, result BatchResult) RunSummary {
	summary := RunSummary{
		RunID:      runID,
		Period:     period,
		Status:     RunCompleted,
		Succeeded:  len(result.Succeeded),
		Failed:     len(result.Failed),
		StartedAt:  startedAt,
		FinishedAt: nowFunc().UTC(),
	}
	for _, item := range result.Succeeded {
		summary.TotalPaid += item.Amount
	}
	for _, item := range result.Failed {
		summary.Failures = append(summary.Failures, ItemFailure{
			CoachID: item.CoachID,
			Reason:  item.FailureReason.String,
		})
	}
	if summary.Failed > 0 {
		summary.Status = RunPartial
	}
	return summary
}

// SyncPending reconciles in-flight payouts against the gateway; see Syncer.
func (svc *Service) SyncPending(ctx context.Context) (SyncSummary, error) {
	return NewSyncer(svc.gw, svc.repo, svc.log).Sync(ctx)
}

// QueryRuns lists past settlement runs, most recent first by default.
func (svc *Service) QueryRuns(ctx context.Context, ordering ...core.DBOrdering) ([]Run, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "started_at", Ascending: false}}
	}
	return svc.repo.QueryRuns(ctx, ordering...)
}

// AuditTrail lists the recorded transitions of one payout item.
func (svc *Service) AuditTrail(ctx context.Context, itemID string) ([]AuditEntry, error) {
	return svc.repo.QueryAuditByItem(ctx, itemID, core.DBOrdering{Field: "timestamp", Ascending: true})
}

func (svc *Service) sendSummaryMail(summary RunSummary, policy FinancialPolicy) {
	if svc.mailSvc == nil || svc.conf.AdminEmail == "" {
		return
	}
	body := fmt.Sprintf(
		"Settlement run %s for period %s finished: %s.\n%d payout(s) succeeded, %d failed. Total paid: %s.\n",
		summary.RunID, summary.Period, summary.Status,
		summary.Succeeded, summary.Failed, formatAmount(summary.TotalPaid, policy.Currency),
	)
	for _, f := range summary.Failures {
		body += fmt.Sprintf("- coach %d: %s\n", f.CoachID, f.Reason)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: svc.conf.AdminName, Address: svc.conf.AdminEmail}},
		Subject: fmt.Sprintf("[%s] Settlement run %s: %s", svc.conf.AppName, summary.Period, summary.Status),
		BodyStr: body,
	})
}

// formatAmount renders minor units for logs and mail, e.g. 123456 -> "1234.56 USD".
func formatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
