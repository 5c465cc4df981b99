package settlement

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/funnelseye/backoffice/tests"
)

func seedSubmitted(t *testing.T, repo *memRepo, coachID int, ref string) PayoutBatchItem {
	t.Helper()
	item := PayoutBatchItem{
		ID:             IdempotencyKeyFor(coachID, "2026-07") + "-id",
		RunID:          "run-1",
		CoachID:        coachID,
		Period:         "2026-07",
		Amount:         1000,
		Currency:       "USD",
		IdempotencyKey: IdempotencyKeyFor(coachID, "2026-07"),
		State:          StateSubmitted,
		Attempts:       1,
	}
	if ref != "" {
		item.GatewayRef = null.StringFrom(ref)
	}
	item, err := repo.CreateBatchItem(context.Background(), item)
	if err != nil {
		t.Fatalf("CreateBatchItem() failed: %v", err)
	}
	return item
}

func TestSyncer_Sync(t *testing.T) {
	repo := newMemRepo()
	gw := newFakeGateway()

	completed := seedSubmitted(t, repo, 1, "ref-1")
	failed := seedSubmitted(t, repo, 2, "ref-2")
	processing := seedSubmitted(t, repo, 3, "ref-3")
	noRef := seedSubmitted(t, repo, 4, "")

	gw.statuses["ref-1"] = GatewayCompleted
	gw.statuses["ref-2"] = GatewayFailed
	gw.statuses["ref-3"] = GatewayProcessing

	syncer := NewSyncer(gw, repo, testutil.NewLogger())
	summary, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	want := SyncSummary{Checked: 4, Completed: 1, Failed: 1, StillProcessing: 2}
	if summary != want {
		t.Errorf("Sync() = %+v; want %+v", summary, want)
	}

	if got := repo.item(completed.IdempotencyKey); got.State != StateCompleted {
		t.Errorf("completed item State = %q; want %q", got.State, StateCompleted)
	}
	got := repo.item(failed.IdempotencyKey)
	if got.State != StateFailedFinal {
		t.Errorf("failed item State = %q; want %q", got.State, StateFailedFinal)
	}
	if got.FailureReason.String == "" {
		t.Error("failed item: missing failure reason")
	}
	if got := repo.item(processing.IdempotencyKey); got.State != StateSubmitted {
		t.Errorf("processing item State = %q; want %q", got.State, StateSubmitted)
	}
	if got := repo.item(noRef.IdempotencyKey); got.State != StateSubmitted {
		t.Errorf("no-ref item State = %q; want %q", got.State, StateSubmitted)
	}

	// transitions recorded for the two settled items only
	if trail := repo.auditFor(completed.ID); len(trail) != 1 || trail[0].NewState != StateCompleted {
		t.Errorf("completed item audit = %+v; want one completed transition", trail)
	}
	if trail := repo.auditFor(processing.ID); len(trail) != 0 {
		t.Errorf("processing item audit = %+v; want none", trail)
	}
}

func TestSyncer_Sync_idempotent(t *testing.T) {
	repo := newMemRepo()
	gw := newFakeGateway()

	seedSubmitted(t, repo, 1, "ref-1")
	seedSubmitted(t, repo, 2, "ref-2")
	gw.statuses["ref-1"] = GatewayCompleted
	gw.statuses["ref-2"] = GatewayProcessing

	syncer := NewSyncer(gw, repo, testutil.NewLogger())
	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	// settled items are out of scope on the next pass
	summary, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}
	want := SyncSummary{Checked: 1, StillProcessing: 1}
	if summary != want {
		t.Errorf("second Sync() = %+v; want %+v", summary, want)
	}
}

func TestSyncer_Sync_gatewayErrorCounted(t *testing.T) {
	repo := newMemRepo()
	gw := newFakeGateway()

	item := seedSubmitted(t, repo, 1, "ref-1")
	gw.statusErr = errors.New("gateway unreachable")

	syncer := NewSyncer(gw, repo, testutil.NewLogger())
	summary, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	want := SyncSummary{Checked: 1, Errors: 1}
	if summary != want {
		t.Errorf("Sync() = %+v; want %+v", summary, want)
	}
	if got := repo.item(item.IdempotencyKey); got.State != StateSubmitted {
		t.Errorf("item State = %q; want unchanged %q", got.State, StateSubmitted)
	}
}
