package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/funnelseye/backoffice/core"
)

// auditor persists payout state transitions and keeps the batch item row in
// step with them. Shared by the executor and the reconciliation syncer — the
// only two writers of item state.
type auditor struct {
	repo Repository
	log  core.Logger
}

// transition applies and persists a state change, appending the audit entry.
// The item row is written first; a failed audit append is logged but does not
// undo the transition (money movement must never depend on the trail).
func (a *auditor) transition(ctx context.Context, item *PayoutBatchItem, to ItemState, gatewayRef, detail string) error {
	from := item.State
	item.State = to
	item.UpdatedAt = nowFunc().UTC()
	if gatewayRef != "" {
		item.GatewayRef = null.StringFrom(gatewayRef)
	}
	if detail != "" {
		item.FailureReason = null.StringFrom(detail)
	}

	if err := a.repo.UpdateBatchItem(ctx, *item); err != nil {
		item.State = from
		return err
	}

	entry := AuditEntry{
		ID:         uuid.New().String(),
		ItemID:     item.ID,
		CoachID:    item.CoachID,
		OldState:   from,
		NewState:   to,
		GatewayRef: item.GatewayRef.String,
		Detail:     detail,
		Timestamp:  item.UpdatedAt,
	}
	if err := a.repo.AppendAudit(ctx, entry); err != nil {
		a.log.Error(fmt.Sprintf("settlement: audit append failed for item %s (%s -> %s): %v", item.ID, from, to, err), err)
	}
	return nil
}
