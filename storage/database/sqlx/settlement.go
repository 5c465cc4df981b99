package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/settlement"
)

type (
	earningsRow struct {
		ID                string    `db:"id"`
		RunID             string    `db:"run_id"`
		CoachID           int       `db:"coach_id"`
		Period            string    `db:"period"`
		Currency          string    `db:"currency"`
		GrossRevenue      int64     `db:"gross_revenue"`
		PlatformFeeAmount int64     `db:"platform_fee_amount"`
		TaxAmount         int64     `db:"tax_amount"`
		CommissionsOwed   int64     `db:"commissions_owed"`
		NetPayable        int64     `db:"net_payable"`
		CreatedAt         time.Time `db:"created_at"`
	}

	batchItemRow struct {
		ID             string      `db:"id"`
		RunID          string      `db:"run_id"`
		CoachID        int         `db:"coach_id"`
		Period         string      `db:"period"`
		Amount         int64       `db:"amount"`
		Currency       string      `db:"currency"`
		IdempotencyKey string      `db:"idempotency_key"`
		State          string      `db:"state"`
		Attempts       int         `db:"attempts"`
		GatewayRef     null.String `db:"gateway_ref"`
		FailureReason  null.String `db:"failure_reason"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`
	}

	auditRow struct {
		ID         string    `db:"id"`
		ItemID     string    `db:"item_id"`
		CoachID    int       `db:"coach_id"`
		OldState   string    `db:"old_state"`
		NewState   string    `db:"new_state"`
		GatewayRef string    `db:"gateway_ref"`
		Detail     string    `db:"detail"`
		RecordedAt time.Time `db:"recorded_at"`
	}

	runRow struct {
		ID         string    `db:"id"`
		Period     string    `db:"period"`
		Status     string    `db:"status"`
		TotalPaid  int64     `db:"total_paid"`
		Succeeded  int       `db:"succeeded"`
		Failed     int       `db:"failed"`
		StartedAt  time.Time `db:"started_at"`
		FinishedAt null.Time `db:"finished_at"`
	}
)

const batchItemColumns = "id, run_id, coach_id, period, amount, currency, idempotency_key, state, attempts, gateway_ref, failure_reason, created_at, updated_at"

// orderColumns maps service-level ordering fields to their columns; anything
// unmapped is used as-is.
var orderColumns = map[string]string{
	"timestamp": "recorded_at",
}

func orderClause(defaultOrd core.DBOrdering, ordering []core.DBOrdering) string {
	ord := defaultOrd
	if len(ordering) > 0 {
		ord = ordering[0]
	}
	if col, ok := orderColumns[ord.Field]; ok {
		ord.Field = col
	}
	return " ORDER BY " + ord.String()
}

type settlementRepository struct {
	exec core.DBExecutor
}

var _ settlement.Repository = (*settlementRepository)(nil) // interface compliance check

func NewSettlementRepository(exec core.DBExecutor) *settlementRepository {
	return &settlementRepository{exec: exec}
}

func (repo settlementRepository) fromItemRow(row batchItemRow) settlement.PayoutBatchItem {
	return settlement.PayoutBatchItem{
		ID:             row.ID,
		RunID:          row.RunID,
		CoachID:        row.CoachID,
		Period:         settlement.Period(row.Period),
		Amount:         row.Amount,
		Currency:       row.Currency,
		IdempotencyKey: row.IdempotencyKey,
		State:          settlement.ItemState(row.State),
		Attempts:       row.Attempts,
		GatewayRef:     row.GatewayRef,
		FailureReason:  row.FailureReason,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func (repo settlementRepository) SaveEarnings(ctx context.Context, records []settlement.EarningsRecord) error {
	query := `
		INSERT INTO earnings_record
			(id, run_id, coach_id, period, currency, gross_revenue, platform_fee_amount, tax_amount, commissions_owed, net_payable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, rec := range records {
		_, err := repo.exec.ExecContext(ctx, query,
			rec.ID, rec.RunID, rec.CoachID, string(rec.Period), rec.Currency,
			rec.GrossRevenue, rec.PlatformFeeAmount, rec.TaxAmount, rec.CommissionsOwed, rec.NetPayable,
			rec.CreatedAt.UTC())
		if err != nil {
			return errors.Wrapf(err, "inserting earnings record for coach %d", rec.CoachID)
		}
	}
	return nil
}

func (repo settlementRepository) SaveCommissionEntries(ctx context.Context, entries []settlement.CommissionLedgerEntry) error {
	query := `
		INSERT INTO commission_ledger_entry
			(id, source_earnings_id, payer_coach_id, beneficiary_coach_id, level, rank, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, entry := range entries {
		_, err := repo.exec.ExecContext(ctx, query,
			entry.ID, entry.SourceEarningsID, entry.PayerCoachID, entry.BeneficiaryCoachID,
			entry.Level, entry.Rank, entry.Amount, entry.CreatedAt.UTC())
		if err != nil {
			return errors.Wrapf(err, "inserting commission entry for coach %d", entry.BeneficiaryCoachID)
		}
	}
	return nil
}

func (repo settlementRepository) QueryEarningsByRun(ctx context.Context, runID string) ([]settlement.EarningsRecord, error) {
	query := `
		SELECT id, run_id, coach_id, period, currency, gross_revenue, platform_fee_amount, tax_amount, commissions_owed, net_payable, created_at
		FROM earnings_record
		WHERE run_id = $1
		ORDER BY coach_id`

	var rows []earningsRow
	if err := repo.exec.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, errors.Wrap(err, "querying earnings records")
	}

	records := make([]settlement.EarningsRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, settlement.EarningsRecord{
			ID:                row.ID,
			RunID:             row.RunID,
			CoachID:           row.CoachID,
			Period:            settlement.Period(row.Period),
			Currency:          row.Currency,
			GrossRevenue:      row.GrossRevenue,
			PlatformFeeAmount: row.PlatformFeeAmount,
			TaxAmount:         row.TaxAmount,
			CommissionsOwed:   row.CommissionsOwed,
			NetPayable:        row.NetPayable,
			CreatedAt:         row.CreatedAt.UTC(),
		})
	}
	return records, nil
}

func (repo settlementRepository) CreateBatchItem(ctx context.Context, item settlement.PayoutBatchItem) (settlement.PayoutBatchItem, error) {
	query := `
		INSERT INTO payout_batch_item (` + batchItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := repo.exec.ExecContext(ctx, query,
		item.ID, item.RunID, item.CoachID, string(item.Period), item.Amount, item.Currency,
		item.IdempotencyKey, string(item.State), item.Attempts, item.GatewayRef, item.FailureReason,
		item.CreatedAt.UTC(), item.UpdatedAt.UTC())
	if err != nil {
		return settlement.PayoutBatchItem{}, errors.Wrapf(err, "inserting batch item %s", item.IdempotencyKey)
	}
	return item, nil
}

func (repo settlementRepository) GetBatchItemByKey(ctx context.Context, idempotencyKey string) (settlement.PayoutBatchItem, error) {
	query := `SELECT ` + batchItemColumns + ` FROM payout_batch_item WHERE idempotency_key = $1`

	var row batchItemRow
	if err := repo.exec.GetContext(ctx, &row, query, idempotencyKey); err != nil {
		if err == sql.ErrNoRows {
			return settlement.PayoutBatchItem{}, settlement.ErrItemNotFound
		}
		return settlement.PayoutBatchItem{}, errors.Wrap(err, "getting batch item")
	}
	return repo.fromItemRow(row), nil
}

func (repo settlementRepository) UpdateBatchItem(ctx context.Context, item settlement.PayoutBatchItem) error {
	query := `
		UPDATE payout_batch_item
		SET state = $2, attempts = $3, gateway_ref = $4, failure_reason = $5, updated_at = $6
		WHERE idempotency_key = $1`

	res, err := repo.exec.ExecContext(ctx, query,
		item.IdempotencyKey, string(item.State), item.Attempts, item.GatewayRef, item.FailureReason, item.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrapf(err, "updating batch item %s", item.IdempotencyKey)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return settlement.ErrItemNotFound
	}
	return nil
}

func (repo settlementRepository) QuerySubmittedItems(ctx context.Context) ([]settlement.PayoutBatchItem, error) {
	query := `SELECT ` + batchItemColumns + ` FROM payout_batch_item WHERE state = $1 ORDER BY coach_id`

	var rows []batchItemRow
	if err := repo.exec.SelectContext(ctx, &rows, query, string(settlement.StateSubmitted)); err != nil {
		return nil, errors.Wrap(err, "querying submitted items")
	}

	items := make([]settlement.PayoutBatchItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, repo.fromItemRow(row))
	}
	return items, nil
}

func (repo settlementRepository) AppendAudit(ctx context.Context, entry settlement.AuditEntry) error {
	query := `
		INSERT INTO payout_audit_entry (id, item_id, coach_id, old_state, new_state, gateway_ref, detail, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := repo.exec.ExecContext(ctx, query,
		entry.ID, entry.ItemID, entry.CoachID, string(entry.OldState), string(entry.NewState),
		entry.GatewayRef, entry.Detail, entry.Timestamp.UTC())
	if err != nil {
		return errors.Wrapf(err, "inserting audit entry for item %s", entry.ItemID)
	}
	return nil
}

func (repo settlementRepository) QueryAuditByItem(ctx context.Context, itemID string, ordering ...core.DBOrdering) ([]settlement.AuditEntry, error) {
	query := `
		SELECT id, item_id, coach_id, old_state, new_state, gateway_ref, detail, recorded_at
		FROM payout_audit_entry
		WHERE item_id = $1` +
		orderClause(core.DBOrdering{Field: "recorded_at", Ascending: true}, ordering)

	var rows []auditRow
	if err := repo.exec.SelectContext(ctx, &rows, query, itemID); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}

	entries := make([]settlement.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, settlement.AuditEntry{
			ID:         row.ID,
			ItemID:     row.ItemID,
			CoachID:    row.CoachID,
			OldState:   settlement.ItemState(row.OldState),
			NewState:   settlement.ItemState(row.NewState),
			GatewayRef: row.GatewayRef,
			Detail:     row.Detail,
			Timestamp:  row.RecordedAt.UTC(),
		})
	}
	return entries, nil
}

func (repo settlementRepository) CreateRun(ctx context.Context, run settlement.Run) error {
	query := `
		INSERT INTO settlement_run (id, period, status, total_paid, succeeded, failed, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := repo.exec.ExecContext(ctx, query,
		run.ID, string(run.Period), run.Status, run.TotalPaid, run.Succeeded, run.Failed,
		run.StartedAt.UTC(), run.FinishedAt)
	if err != nil {
		return errors.Wrapf(err, "inserting run %s", run.ID)
	}
	return nil
}

func (repo settlementRepository) FinishRun(ctx context.Context, run settlement.Run) error {
	query := `
		UPDATE settlement_run
		SET status = $2, total_paid = $3, succeeded = $4, failed = $5, finished_at = $6
		WHERE id = $1`

	res, err := repo.exec.ExecContext(ctx, query,
		run.ID, run.Status, run.TotalPaid, run.Succeeded, run.Failed, run.FinishedAt)
	if err != nil {
		return errors.Wrapf(err, "finishing run %s", run.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return settlement.ErrRunNotFound
	}
	return nil
}

func (repo settlementRepository) QueryRuns(ctx context.Context, ordering ...core.DBOrdering) ([]settlement.Run, error) {
	query := `SELECT id, period, status, total_paid, succeeded, failed, started_at, finished_at FROM settlement_run` +
		orderClause(core.DBOrdering{Field: "started_at"}, ordering)

	var rows []runRow
	if err := repo.exec.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}

	runs := make([]settlement.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, settlement.Run{
			ID:         row.ID,
			Period:     settlement.Period(row.Period),
			Status:     row.Status,
			TotalPaid:  row.TotalPaid,
			Succeeded:  row.Succeeded,
			Failed:     row.Failed,
			StartedAt:  row.StartedAt.UTC(),
			FinishedAt: row.FinishedAt,
		})
	}
	return runs, nil
}
