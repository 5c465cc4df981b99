package settlement

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Gateway status vocabulary.
type GatewayStatus string

const (
	GatewayProcessing GatewayStatus = "processing"
	GatewayCompleted  GatewayStatus = "completed"
	GatewayFailed     GatewayStatus = "failed"
)

// SubmitResult is the gateway's answer to one payout submission.
type SubmitResult struct {
	GatewayRef string
	Status     GatewayStatus
}

// Gateway is the external money-movement collaborator. Both calls are
// blocking I/O boundaries; implementations must honor the context deadline.
type Gateway interface {
	SubmitPayout(ctx context.Context, idempotencyKey string, coachID int, amount int64, currency string) (SubmitResult, error)
	QueryStatus(ctx context.Context, gatewayRef string) (GatewayStatus, error)
}

// GatewayError carries the provider's error classification. Transient errors
// (timeout, rate-limit) are retried with backoff; permanent ones (invalid
// destination, compliance block, insufficient platform balance) go straight
// to failed-final.
type GatewayError struct {
	Code      string
	Detail    string
	Transient bool
}

func (e *GatewayError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("gateway error (%s, %s): %s", e.Code, kind, e.Detail)
}

func NewTransientGatewayError(code, detail string) error {
	return &GatewayError{Code: code, Detail: detail, Transient: true}
}

func NewPermanentGatewayError(code, detail string) error {
	return &GatewayError{Code: code, Detail: detail, Transient: false}
}

// IsTransientGatewayError classifies an error from a gateway call. Context
// deadlines and generic timeouts count as transient; anything unclassified is
// treated as transient too, so an unknown blip gets its bounded retries before
// the item is parked as failed-final.
func IsTransientGatewayError(err error) bool {
	if err == nil {
		return false
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeouter interface{ Timeout() bool }
	var tErr timeouter
	if errors.As(err, &tErr) {
		return tErr.Timeout()
	}
	return true
}

// gatewayErrorDetail extracts the provider detail for the audit trail.
func gatewayErrorDetail(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return fmt.Sprintf("%s: %s", gwErr.Code, gwErr.Detail)
	}
	return err.Error()
}
