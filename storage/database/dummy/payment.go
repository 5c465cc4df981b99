package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/funnelseye/backoffice/core/ledger"
)

type paymentRepository struct {
	db *paymentTable
}

var _ ledger.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.payment}
}

// AddPayment seeds a confirmed payment; the real payments store is external
// and read-only, this stand-in needs a writer for tests.
func (repo *paymentRepository) AddPayment(p ledger.Payment) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table = append(repo.db.table, p)
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func (repo *paymentRepository) GetConfirmedPayments(_ context.Context, coachID int, periodStart, periodEnd time.Time) ([]ledger.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var payments []ledger.Payment
	for _, p := range repo.db.table {
		if p.CoachID == coachID && inWindow(p.Timestamp, periodStart, periodEnd) {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (repo *paymentRepository) QueryCoachIDsWithPayments(_ context.Context, periodStart, periodEnd time.Time) ([]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[int]bool)
	var ids []int
	for _, p := range repo.db.table {
		if inWindow(p.Timestamp, periodStart, periodEnd) && !seen[p.CoachID] {
			seen[p.CoachID] = true
			ids = append(ids, p.CoachID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
