package gatewaysvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/settlement"
)

type (
	submitRequest struct {
		IdempotencyKey string `json:"idempotency_key"`
		CoachID        int    `json:"coach_id"`
		Amount         int64  `json:"amount"`
		Currency       string `json:"currency"`
	}

	payoutResponse struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	errorResponse struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

// httpGateway talks to the payout provider's REST API. The provider
// deduplicates on the Idempotency-Key header, so a retried request can never
// move money twice.
type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     core.Logger
}

var _ settlement.Gateway = (*httpGateway)(nil)

func NewHTTPGateway(log core.Logger) *httpGateway {
	return &httpGateway{
		baseURL: strings.TrimRight(core.Conf.Gateway.BaseURL, "/"),
		apiKey:  core.Conf.Gateway.ApiKey,
		client:  &http.Client{Timeout: core.Conf.Gateway.Timeout},
		log:     log,
	}
}

func (gw *httpGateway) SubmitPayout(ctx context.Context, idempotencyKey string, coachID int, amount int64, currency string) (settlement.SubmitResult, error) {
	payload, err := json.Marshal(submitRequest{
		IdempotencyKey: idempotencyKey,
		CoachID:        coachID,
		Amount:         amount,
		Currency:       currency,
	})
	if err != nil {
		return settlement.SubmitResult{}, errors.Wrap(err, "encoding payout request")
	}

	req, err := gw.newRequest(ctx, http.MethodPost, "/v1/payouts", bytes.NewReader(payload))
	if err != nil {
		return settlement.SubmitResult{}, err
	}
	req.Header.Set("Idempotency-Key", idempotencyKey)

	var res payoutResponse
	if err := gw.do(req, &res); err != nil {
		return settlement.SubmitResult{}, err
	}
	return settlement.SubmitResult{GatewayRef: res.ID, Status: mapStatus(res.Status)}, nil
}

func (gw *httpGateway) QueryStatus(ctx context.Context, gatewayRef string) (settlement.GatewayStatus, error) {
	req, err := gw.newRequest(ctx, http.MethodGet, "/v1/payouts/"+gatewayRef, nil)
	if err != nil {
		return "", err
	}

	var res payoutResponse
	if err := gw.do(req, &res); err != nil {
		return "", err
	}
	return mapStatus(res.Status), nil
}

func (gw *httpGateway) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, gw.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+gw.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (gw *httpGateway) do(req *http.Request, dest *payoutResponse) error {
	res, err := gw.client.Do(req)
	if err != nil {
		// network-level failures are retryable; the Idempotency-Key header
		// protects an eventual retry
		return settlement.NewTransientGatewayError("network_error", err.Error())
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return settlement.NewTransientGatewayError("read_error", err.Error())
	}

	if res.StatusCode >= http.StatusBadRequest {
		return gw.apiError(res.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Wrap(err, "decoding gateway response")
	}
	return nil
}

// apiError classifies provider errors: rate limits and server-side failures
// are transient, any other 4xx is a permanent rejection of this request.
func (gw *httpGateway) apiError(statusCode int, raw []byte) error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)
	code := body.Error.Code
	if code == "" {
		code = fmt.Sprintf("http_%d", statusCode)
	}
	detail := body.Error.Message
	if detail == "" {
		detail = http.StatusText(statusCode)
	}

	if statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError {
		return settlement.NewTransientGatewayError(code, detail)
	}
	return settlement.NewPermanentGatewayError(code, detail)
}

func mapStatus(status string) settlement.GatewayStatus {
	switch status {
	case "completed", "paid", "succeeded":
		return settlement.GatewayCompleted
	case "failed", "rejected", "cancelled":
		return settlement.GatewayFailed
	default:
		return settlement.GatewayProcessing
	}
}
