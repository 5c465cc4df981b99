package settlement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/ledger"
)

func testPolicy() FinancialPolicy {
	return FinancialPolicy{
		Currency:       "USD",
		PlatformFeeBps: 1000,
		TaxRateBps:     500,
		CommissionTableBps: map[string]int64{
			coach.RankBronze:   200,
			coach.RankSilver:   500,
			coach.RankGold:     1000,
			coach.RankPlatinum: 1200,
			coach.RankDiamond:  1500,
		},
		MaxCommissionLevels: 3,
		CommissionCap:       5000000,
		MinimumPayoutAmount: 10000,
		PayoutFrequency:     "monthly",
		PayoutFanOut:        2,
		MaxSubmitAttempts:   3,
		RetryBackoffBase:    time.Millisecond,
	}
}

// memRepo is a scriptable in-memory Repository for executor/syncer tests.
type memRepo struct {
	mu       sync.Mutex
	earnings []EarningsRecord
	comms    []CommissionLedgerEntry
	items    map[string]*PayoutBatchItem
	audit    []AuditEntry
	runs     map[string]*Run

	updateErr error // injected UpdateBatchItem failure
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		items: make(map[string]*PayoutBatchItem),
		runs:  make(map[string]*Run),
	}
}

func (r *memRepo) SaveEarnings(_ context.Context, records []EarningsRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.earnings = append(r.earnings, records...)
	return nil
}

func (r *memRepo) SaveCommissionEntries(_ context.Context, entries []CommissionLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comms = append(r.comms, entries...)
	return nil
}

func (r *memRepo) QueryEarningsByRun(_ context.Context, runID string) ([]EarningsRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var records []EarningsRecord
	for _, rec := range r.earnings {
		if rec.RunID == runID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *memRepo) CreateBatchItem(_ context.Context, item PayoutBatchItem) (PayoutBatchItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.IdempotencyKey] = &item
	return item, nil
}

func (r *memRepo) GetBatchItemByKey(_ context.Context, key string) (PayoutBatchItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[key]; ok {
		return *item, nil
	}
	return PayoutBatchItem{}, ErrItemNotFound
}

func (r *memRepo) UpdateBatchItem(_ context.Context, item PayoutBatchItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.items[item.IdempotencyKey]; !ok {
		return ErrItemNotFound
	}
	r.items[item.IdempotencyKey] = &item
	return nil
}

func (r *memRepo) QuerySubmittedItems(_ context.Context) ([]PayoutBatchItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []PayoutBatchItem
	for _, item := range r.items {
		if item.State == StateSubmitted {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CoachID < items[j].CoachID })
	return items, nil
}

func (r *memRepo) AppendAudit(_ context.Context, entry AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, entry)
	return nil
}

func (r *memRepo) QueryAuditByItem(_ context.Context, itemID string, _ ...core.DBOrdering) ([]AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []AuditEntry
	for _, e := range r.audit {
		if e.ItemID == itemID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *memRepo) CreateRun(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = &run
	return nil
}

func (r *memRepo) FinishRun(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	r.runs[run.ID] = &run
	return nil
}

func (r *memRepo) QueryRuns(_ context.Context, _ ...core.DBOrdering) ([]Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, *run)
	}
	return runs, nil
}

func (r *memRepo) item(key string) PayoutBatchItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.items[key]
}

func (r *memRepo) auditFor(itemID string) []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []AuditEntry
	for _, e := range r.audit {
		if e.ItemID == itemID {
			entries = append(entries, e)
		}
	}
	return entries
}

// fakeGateway scripts per-key submit outcomes and keyed status answers.
type fakeGateway struct {
	mu          sync.Mutex
	submitCalls map[string]int
	// submit answers the n-th SubmitPayout for a key (n starts at 1);
	// nil means every submit completes.
	submit    func(key string, call int) (SubmitResult, error)
	statuses  map[string]GatewayStatus
	statusErr error
}

var _ Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		submitCalls: make(map[string]int),
		statuses:    make(map[string]GatewayStatus),
	}
}

func (g *fakeGateway) SubmitPayout(_ context.Context, key string, _ int, _ int64, _ string) (SubmitResult, error) {
	g.mu.Lock()
	g.submitCalls[key]++
	call := g.submitCalls[key]
	g.mu.Unlock()

	if g.submit == nil {
		return SubmitResult{GatewayRef: "ref-" + key, Status: GatewayCompleted}, nil
	}
	return g.submit(key, call)
}

func (g *fakeGateway) QueryStatus(_ context.Context, ref string) (GatewayStatus, error) {
	if g.statusErr != nil {
		return "", g.statusErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if status, ok := g.statuses[ref]; ok {
		return status, nil
	}
	return GatewayProcessing, nil
}

func (g *fakeGateway) calls(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitCalls[key]
}

// fakeMailer collects outgoing messages.
type fakeMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeCoachRepo serves canned sponsor chains; the unused Repository methods
// panic if reached.
type fakeCoachRepo struct {
	coach.Repository
	chains   map[int][]coach.ChainMember
	chainErr error
}

func (r *fakeCoachRepo) GetSponsorChain(_ context.Context, coachID, maxLevels int) ([]coach.ChainMember, error) {
	if r.chainErr != nil {
		return nil, r.chainErr
	}
	chain := r.chains[coachID]
	if len(chain) > maxLevels {
		chain = chain[:maxLevels]
	}
	return chain, nil
}

// fakeLedgerRepo serves canned confirmed payments.
type fakeLedgerRepo struct {
	payments []ledger.Payment
	err      error
}

var _ ledger.Repository = (*fakeLedgerRepo)(nil)

func (r *fakeLedgerRepo) GetConfirmedPayments(_ context.Context, coachID int, start, end time.Time) ([]ledger.Payment, error) {
	if r.err != nil {
		return nil, r.err
	}
	var payments []ledger.Payment
	for _, p := range r.payments {
		if p.CoachID == coachID && !p.Timestamp.Before(start) && p.Timestamp.Before(end) {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (r *fakeLedgerRepo) QueryCoachIDsWithPayments(_ context.Context, start, end time.Time) ([]int, error) {
	if r.err != nil {
		return nil, r.err
	}
	seen := make(map[int]bool)
	var ids []int
	for _, p := range r.payments {
		if !p.Timestamp.Before(start) && p.Timestamp.Before(end) && !seen[p.CoachID] {
			seen[p.CoachID] = true
			ids = append(ids, p.CoachID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
