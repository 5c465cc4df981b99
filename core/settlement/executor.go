package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/funnelseye/backoffice/core"
)

var sleepFunc = time.Sleep // mockable

// keyLocks hands out one mutex per idempotency key so no two submission
// attempts for the same logical payout are ever in flight at once.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (kl *keyLocks) get(key string) *sync.Mutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	l, ok := kl.locks[key]
	if !ok {
		l = &sync.Mutex{}
		kl.locks[key] = l
	}
	return l
}

// Executor drives one gateway submission per batch item, isolating failures:
// there is no all-or-nothing transaction across a batch.
type Executor struct {
	gw     Gateway
	repo   Repository
	audit  *auditor
	log    core.Logger
	policy FinancialPolicy
	locks  *keyLocks
}

func NewExecutor(gw Gateway, repo Repository, log core.Logger, policy FinancialPolicy) *Executor {
	return &Executor{
		gw:     gw,
		repo:   repo,
		audit:  &auditor{repo: repo, log: log},
		log:    log,
		policy: policy,
		locks:  newKeyLocks(),
	}
}

// Execute submits the batch through a bounded worker pool; each worker owns
// one item end-to-end. Cancelling the context stops new submissions, but
// in-flight gateway calls always finish and persist their outcome — a call
// whose money movement may have happened is never abandoned.
func (ex *Executor) Execute(ctx context.Context, batch []PayoutBatchItem) (BatchResult, error) {
	fanOut := ex.policy.PayoutFanOut
	if fanOut < 1 {
		fanOut = 1
	}

	var (
		result BatchResult
		resMu  sync.Mutex
		wg     sync.WaitGroup
		jobs   = make(chan PayoutBatchItem)
	)

	wg.Add(fanOut)
	for w := 0; w < fanOut; w++ {
		go func() {
			defer wg.Done()
			for item := range jobs {
				done, ok := ex.submitItem(ctx, item)
				resMu.Lock()
				if ok {
					result.Succeeded = append(result.Succeeded, done)
				} else {
					result.Failed = append(result.Failed, done)
				}
				resMu.Unlock()
			}
		}()
	}

	var fed int
feed:
	for _, item := range batch {
		select {
		case <-ctx.Done():
			// stop accepting new submissions; already-queued ones finish
			ex.log.Warn(fmt.Sprintf("settlement: execute cancelled, %d item(s) not submitted", len(batch)-fed))
			break feed
		case jobs <- item:
			fed++
		}
	}
	close(jobs)
	wg.Wait()

	return result, nil
}

// submitItem runs the per-item state machine. Returns the item in its final
// state for this pass and whether it counts as succeeded (completed, or
// submitted and still clearing gateway-side).
func (ex *Executor) submitItem(ctx context.Context, item PayoutBatchItem) (PayoutBatchItem, bool) {
	lock := ex.locks.get(item.IdempotencyKey)

	for {
		lock.Lock()

		// Re-read under the lock: local state is only a hint, the persisted
		// item (keyed by the idempotency key) decides whether money may move.
		fresh, err := ex.repo.GetBatchItemByKey(ctx, item.IdempotencyKey)
		if err != nil {
			lock.Unlock()
			ex.log.Error(fmt.Sprintf("settlement: reading item %s: %v", item.IdempotencyKey, err), err)
			item.FailureReason.SetValid(err.Error())
			return item, false
		}
		item = fresh

		switch item.State {
		case StateCompleted:
			lock.Unlock()
			return item, true
		case StateSubmitted:
			if item.GatewayRef.Valid {
				// in flight gateway-side; reconciliation owns the outcome
				lock.Unlock()
				return item, true
			}
			// submitted was persisted but the process died before the call
			// went out; the idempotency key makes resubmitting safe
		case StateFailedFinal:
			lock.Unlock()
			return item, false
		}

		if item.Attempts >= ex.policy.MaxSubmitAttempts {
			_ = ex.audit.transition(ctx, &item, StateFailedFinal, "", "retry budget exhausted")
			lock.Unlock()
			return item, false
		}

		// Persist `submitted` before the outbound call: after a crash the key,
		// not local state, is the safety net against duplicate money movement.
		item.Attempts++
		if err := ex.audit.transition(ctx, &item, StateSubmitted, "", ""); err != nil {
			lock.Unlock()
			ex.log.Error(fmt.Sprintf("settlement: persisting submit of %s: %v", item.IdempotencyKey, err), err)
			item.FailureReason.SetValid(err.Error())
			return item, false
		}

		// The gateway call is detached from the run context: cancellation must
		// not abort a request whose side effect may already have happened.
		res, err := ex.gw.SubmitPayout(context.Background(), item.IdempotencyKey, item.CoachID, item.Amount, item.Currency)

		if err == nil {
			switch res.Status {
			case GatewayCompleted:
				_ = ex.audit.transition(ctx, &item, StateCompleted, res.GatewayRef, "")
				lock.Unlock()
				return item, true
			case GatewayFailed:
				_ = ex.audit.transition(ctx, &item, StateFailedFinal, res.GatewayRef, "rejected by gateway")
				lock.Unlock()
				return item, false
			default: // processing: stays submitted, syncer picks it up later
				_ = ex.audit.transition(ctx, &item, StateSubmitted, res.GatewayRef, "")
				lock.Unlock()
				return item, true
			}
		}

		detail := gatewayErrorDetail(err)
		if !IsTransientGatewayError(err) {
			_ = ex.audit.transition(ctx, &item, StateFailedFinal, "", detail)
			lock.Unlock()
			return item, false
		}

		_ = ex.audit.transition(ctx, &item, StateFailed, "", detail)
		if item.Attempts >= ex.policy.MaxSubmitAttempts {
			_ = ex.audit.transition(ctx, &item, StateFailedFinal, "", detail)
			lock.Unlock()
			return item, false
		}

		// Release before sleeping so unrelated work on this key never starves.
		lock.Unlock()

		if ctx.Err() != nil {
			// cancelled mid-retry: leave the item `failed`, re-runnable later
			return item, false
		}
		sleepFunc(ex.backoff(item.Attempts))
	}
}

// backoff is exponential in the attempt count: base, 2*base, 4*base, ...
func (ex *Executor) backoff(attempt int) time.Duration {
	d := ex.policy.RetryBackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
