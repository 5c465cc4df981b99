package gatewaysvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/settlement"
)

// consoleGateway moves no money: it logs each submission and reports it
// completed. Local runs and the admin CLI use it when no provider key is
// configured.
type consoleGateway struct {
	mu   sync.Mutex
	seen map[string]string // idempotency key -> ref
	log  core.Logger
}

var _ settlement.Gateway = (*consoleGateway)(nil)

func NewConsoleGateway(log core.Logger) *consoleGateway {
	return &consoleGateway{
		seen: make(map[string]string),
		log:  log,
	}
}

func (gw *consoleGateway) SubmitPayout(_ context.Context, idempotencyKey string, coachID int, amount int64, currency string) (settlement.SubmitResult, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	ref, ok := gw.seen[idempotencyKey]
	if !ok {
		ref = "console-" + idempotencyKey
		gw.seen[idempotencyKey] = ref
		gw.log.Info(fmt.Sprintf("gateway(console): payout %s: %d %s to coach %d", idempotencyKey, amount, currency, coachID))
	}
	return settlement.SubmitResult{GatewayRef: ref, Status: settlement.GatewayCompleted}, nil
}

func (gw *consoleGateway) QueryStatus(_ context.Context, _ string) (settlement.GatewayStatus, error) {
	return settlement.GatewayCompleted, nil
}
