package dummydb

import (
	"context"
	"sort"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/settlement"
)

type settlementRepository struct {
	db *settlementTables
}

var _ settlement.Repository = (*settlementRepository)(nil) // interface compliance check

func NewSettlementRepository(db *DB) settlement.Repository {
	return &settlementRepository{db: db.settlement}
}

func (repo *settlementRepository) SaveEarnings(_ context.Context, records []settlement.EarningsRecord) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i := range records {
		rec := records[i]
		repo.db.earnings[rec.ID] = &rec
	}
	return nil
}

func (repo *settlementRepository) SaveCommissionEntries(_ context.Context, entries []settlement.CommissionLedgerEntry) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i := range entries {
		entry := entries[i]
		repo.db.commissions[entry.ID] = &entry
	}
	return nil
}

func (repo *settlementRepository) QueryEarningsByRun(_ context.Context, runID string) ([]settlement.EarningsRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var records []settlement.EarningsRecord
	for _, rec := range repo.db.earnings {
		if rec.RunID == runID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CoachID < records[j].CoachID })
	return records, nil
}

func (repo *settlementRepository) CreateBatchItem(_ context.Context, item settlement.PayoutBatchItem) (settlement.PayoutBatchItem, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.items[item.IdempotencyKey] = &item
	return item, nil
}

func (repo *settlementRepository) GetBatchItemByKey(_ context.Context, idempotencyKey string) (settlement.PayoutBatchItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if item, ok := repo.db.items[idempotencyKey]; ok {
		return *item, nil
	}
	return settlement.PayoutBatchItem{}, settlement.ErrItemNotFound
}

func (repo *settlementRepository) UpdateBatchItem(_ context.Context, item settlement.PayoutBatchItem) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.items[item.IdempotencyKey]; !ok {
		return settlement.ErrItemNotFound
	}
	repo.db.items[item.IdempotencyKey] = &item
	return nil
}

func (repo *settlementRepository) QuerySubmittedItems(_ context.Context) ([]settlement.PayoutBatchItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var items []settlement.PayoutBatchItem
	for _, item := range repo.db.items {
		if item.State == settlement.StateSubmitted {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CoachID < items[j].CoachID })
	return items, nil
}

func (repo *settlementRepository) AppendAudit(_ context.Context, entry settlement.AuditEntry) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.audit = append(repo.db.audit, entry)
	return nil
}

func (repo *settlementRepository) QueryAuditByItem(_ context.Context, itemID string, ordering ...core.DBOrdering) ([]settlement.AuditEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []settlement.AuditEntry
	for _, e := range repo.db.audit {
		if e.ItemID == itemID {
			entries = append(entries, e)
		}
	}

	asc := true
	if len(ordering) > 0 {
		asc = ordering[0].Ascending
	}
	sort.Slice(entries, func(i, j int) bool {
		if asc {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[j].Timestamp.Before(entries[i].Timestamp)
	})
	return entries, nil
}

func (repo *settlementRepository) CreateRun(_ context.Context, run settlement.Run) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.runs[run.ID] = &run
	return nil
}

func (repo *settlementRepository) FinishRun(_ context.Context, run settlement.Run) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.runs[run.ID]; !ok {
		return settlement.ErrRunNotFound
	}
	repo.db.runs[run.ID] = &run
	return nil
}

func (repo *settlementRepository) QueryRuns(_ context.Context, ordering ...core.DBOrdering) ([]settlement.Run, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	runs := make([]settlement.Run, 0, len(repo.db.runs))
	for _, run := range repo.db.runs {
		runs = append(runs, *run)
	}

	asc := false
	if len(ordering) > 0 {
		asc = ordering[0].Ascending
	}
	sort.Slice(runs, func(i, j int) bool {
		if asc {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[j].StartedAt.Before(runs[i].StartedAt)
	})
	return runs, nil
}
