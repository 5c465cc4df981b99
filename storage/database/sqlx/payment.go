package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/ledger"
)

type paymentRow struct {
	ID          string    `db:"id"`
	CoachID     int       `db:"coach_id"`
	Amount      int64     `db:"amount"`
	Currency    string    `db:"currency"`
	ConfirmedAt time.Time `db:"confirmed_at"`
}

type paymentRepository struct {
	exec core.DBExecutor
}

var _ ledger.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) *paymentRepository {
	return &paymentRepository{exec: exec}
}

func (repo paymentRepository) fromRow(row paymentRow) ledger.Payment {
	return ledger.Payment{
		ID:        row.ID,
		CoachID:   row.CoachID,
		Amount:    row.Amount,
		Currency:  row.Currency,
		Timestamp: row.ConfirmedAt.UTC(),
	}
}

func (repo paymentRepository) GetConfirmedPayments(ctx context.Context, coachID int, periodStart, periodEnd time.Time) ([]ledger.Payment, error) {
	query := `
		SELECT id, coach_id, amount, currency, confirmed_at
		FROM payment
		WHERE coach_id = $1 AND confirmed_at >= $2 AND confirmed_at < $3
		ORDER BY confirmed_at`

	var rows []paymentRow
	if err := repo.exec.SelectContext(ctx, &rows, query, coachID, periodStart.UTC(), periodEnd.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying confirmed payments")
	}

	payments := make([]ledger.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, repo.fromRow(row))
	}
	return payments, nil
}

func (repo paymentRepository) QueryCoachIDsWithPayments(ctx context.Context, periodStart, periodEnd time.Time) ([]int, error) {
	query := `
		SELECT DISTINCT coach_id
		FROM payment
		WHERE confirmed_at >= $1 AND confirmed_at < $2
		ORDER BY coach_id`

	var ids []int
	if err := repo.exec.SelectContext(ctx, &ids, query, periodStart.UTC(), periodEnd.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying coaches with payments")
	}
	return ids, nil
}

// AddPayment records a confirmed payment as synced from the payments
// platform. The back office only ever reads these afterwards.
func (repo paymentRepository) AddPayment(ctx context.Context, p ledger.Payment) error {
	query := `
		INSERT INTO payment (id, coach_id, amount, currency, confirmed_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := repo.exec.ExecContext(ctx, query, p.ID, p.CoachID, p.Amount, p.Currency, p.Timestamp.UTC()); err != nil {
		return errors.Wrap(err, "inserting payment")
	}
	return nil
}
