package settlement

import (
	"context"
	"fmt"

	"github.com/funnelseye/backoffice/core"
)

// Syncer reconciles gateway-side asynchronous settlement: a payout that
// clears hours after submission is eventually reflected without re-invoking
// submission. It runs on its own schedule, independent of the executor.
type Syncer struct {
	gw    Gateway
	repo  Repository
	audit *auditor
	log   core.Logger
}

func NewSyncer(gw Gateway, repo Repository, log core.Logger) *Syncer {
	return &Syncer{
		gw:    gw,
		repo:  repo,
		audit: &auditor{repo: repo, log: log},
		log:   log,
	}
}

// Sync queries the gateway for each submitted item and applies the mapped
// transition. Idempotent: terminal items are never fetched, and a repeat pass
// over still-processing items is a no-op. Per-item errors are counted and
// logged, never fatal to the pass.
func (s *Syncer) Sync(ctx context.Context) (SyncSummary, error) {
	items, err := s.repo.QuerySubmittedItems(ctx)
	if err != nil {
		return SyncSummary{}, err
	}

	var summary SyncSummary
	for _, item := range items {
		summary.Checked++

		if !item.GatewayRef.Valid {
			// submitted persisted but the process died before the call went
			// out; there is nothing to query, the executor resubmits it on
			// the next run
			summary.StillProcessing++
			continue
		}

		status, err := s.gw.QueryStatus(ctx, item.GatewayRef.String)
		if err != nil {
			summary.Errors++
			s.log.Warn(fmt.Sprintf("settlement: status query for item %s (%s): %v", item.ID, item.GatewayRef.String, err))
			continue
		}

		switch status {
		case GatewayCompleted:
			if err := s.audit.transition(ctx, &item, StateCompleted, item.GatewayRef.String, ""); err != nil {
				summary.Errors++
				s.log.Error(fmt.Sprintf("settlement: persisting completion of item %s: %v", item.ID, err), err)
				continue
			}
			summary.Completed++
		case GatewayFailed:
			if err := s.audit.transition(ctx, &item, StateFailedFinal, item.GatewayRef.String, "gateway reported failure"); err != nil {
				summary.Errors++
				s.log.Error(fmt.Sprintf("settlement: persisting failure of item %s: %v", item.ID, err), err)
				continue
			}
			summary.Failed++
		default:
			summary.StillProcessing++
		}
	}

	s.log.Info(fmt.Sprintf("settlement: sync checked=%d completed=%d failed=%d processing=%d errors=%d",
		summary.Checked, summary.Completed, summary.Failed, summary.StillProcessing, summary.Errors))
	return summary, nil
}
