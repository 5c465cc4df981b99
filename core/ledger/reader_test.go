package ledger_test

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/funnelseye/backoffice/core/ledger"
	testutil "github.com/funnelseye/backoffice/tests"
)

type fakeRepo struct {
	payments []ledger.Payment
}

func (r *fakeRepo) GetConfirmedPayments(_ context.Context, coachID int, start, end time.Time) ([]ledger.Payment, error) {
	var payments []ledger.Payment
	for _, p := range r.payments {
		if p.CoachID == coachID && !p.Timestamp.Before(start) && p.Timestamp.Before(end) {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (r *fakeRepo) QueryCoachIDsWithPayments(_ context.Context, start, end time.Time) ([]int, error) {
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

func TestReader_GrossRevenue(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	mid := start.Add(14 * 24 * time.Hour)

	repo := &fakeRepo{payments: []ledger.Payment{
		{ID: "p1", CoachID: 1, Amount: 6000, Currency: "USD", Timestamp: mid},
		{ID: "p2", CoachID: 1, Amount: 4000, Currency: "USD", Timestamp: start},
		{ID: "p3", CoachID: 1, Amount: 9999, Currency: "EUR", Timestamp: mid},   // skipped currency
		{ID: "p4", CoachID: 1, Amount: 1234, Currency: "USD", Timestamp: end},   // next period
		{ID: "p5", CoachID: 2, Amount: 500, Currency: "USD", Timestamp: mid},    // other coach
		{ID: "p6", CoachID: 1, Amount: 777, Currency: "USD", Timestamp: start.Add(-time.Second)},
	}}
	reader := ledger.NewReader(repo, testutil.NewLogger())

	gross, err := reader.GrossRevenue(context.Background(), 1, start, end, "USD")
	if err != nil {
		t.Fatalf("GrossRevenue() failed: %v", err)
	}
	if gross != 10000 {
		t.Errorf("GrossRevenue() = %d; want 10000", gross)
	}
}

func TestReader_GrossRevenueByCoach(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	mid := start.Add(14 * 24 * time.Hour)

	repo := &fakeRepo{payments: []ledger.Payment{
		{ID: "p1", CoachID: 3, Amount: 100, Currency: "USD", Timestamp: mid},
		{ID: "p2", CoachID: 1, Amount: 200, Currency: "USD", Timestamp: mid},
		{ID: "p3", CoachID: 1, Amount: 300, Currency: "USD", Timestamp: mid},
	}}
	reader := ledger.NewReader(repo, testutil.NewLogger())

	revenues, err := reader.GrossRevenueByCoach(context.Background(), start, end, "USD")
	if err != nil {
		t.Fatalf("GrossRevenueByCoach() failed: %v", err)
	}

	want := []ledger.CoachRevenue{{CoachID: 1, GrossRevenue: 500}, {CoachID: 3, GrossRevenue: 100}}
	if !reflect.DeepEqual(revenues, want) {
		t.Errorf("GrossRevenueByCoach() = %+v; want %+v", revenues, want)
	}
}
