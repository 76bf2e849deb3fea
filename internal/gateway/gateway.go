package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GlebRadaev/payee-ledger/internal/config"
	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
	"github.com/GlebRadaev/payee-ledger/pkg/clients"
)

const (
	retryInterval = time.Second * 1
	maxRetryAfter = time.Second * 30
)

type payoutRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	DestinationAccount string          `json:"destinationAccount"`
	IdempotencyRef     string          `json:"idempotencyRef"`
}

type payoutResponse struct {
	ExternalRef string `json:"externalRef"`
	Status      string `json:"status,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// call is an in-flight InitiatePayout shared by concurrent callers with the
// same idempotency ref.
type call struct {
	done   chan struct{}
	payout *domain.Payout
	err    error
}

type Client struct {
	baseURL       string
	client        clients.HTTPClientI
	tokens        *tokenSource
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration

	inflight sync.Map
	known    *recentPayouts
}

func New(cfg *config.Config, client *clients.HTTPClient) *Client {
	rps := rate.Inf
	if cfg.GatewayRPS > 0 {
		rps = rate.Limit(cfg.GatewayRPS)
	}
	maxRetries := cfg.GatewayMaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Client{
		baseURL:       cfg.GatewayAddress,
		client:        client,
		tokens:        newTokenSource(cfg.GatewayAddress+"/oauth/token", cfg.GatewayClientID, cfg.GatewayClientSecret, client.Standard()),
		limiter:       rate.NewLimiter(rps, burst(rps)),
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
		known:         newRecentPayouts(recentTTL),
	}
}

// InitiatePayout submits the payout once per idempotency ref. The ref is sent
// as the Idempotency-Key header on every attempt, so retries after an unknown
// outcome are deduplicated by the gateway; concurrent calls with the same ref
// share one request and a ref that recently succeeded is answered from memory.
func (c *Client) InitiatePayout(ctx context.Context, req domain.PayoutRequest) (*domain.Payout, error) {
	if payout, ok := c.known.Load(req.IdempotencyRef); ok {
		return payout, nil
	}

	cl := &call{done: make(chan struct{})}
	if v, loaded := c.inflight.LoadOrStore(req.IdempotencyRef, cl); loaded {
		other := v.(*call)
		select {
		case <-other.done:
			return other.payout, other.err
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrPayoutOutcomeUnknown, ctx.Err())
		}
	}

	if payout, ok := c.known.Load(req.IdempotencyRef); ok {
		cl.payout = payout
	} else {
		cl.payout, cl.err = c.initiate(ctx, req)
	}
	if cl.err == nil {
		c.known.Store(req.IdempotencyRef, *cl.payout)
	}
	c.inflight.Delete(req.IdempotencyRef)
	close(cl.done)
	return cl.payout, cl.err
}

func (c *Client) initiate(ctx context.Context, req domain.PayoutRequest) (*domain.Payout, error) {
	body, err := json.Marshal(payoutRequest{
		Amount:             req.Amount,
		DestinationAccount: req.DestinationAccount,
		IdempotencyRef:     req.IdempotencyRef,
	})
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Idempotency-Key", req.IdempotencyRef)

	sent := false
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		statusCode, respBody, respHeaders, err := c.do(ctx, "initiate", http.MethodPost, c.baseURL+"/payouts", headers, body)
		if err != nil {
			if ctx.Err() != nil {
				lastErr = err
				break
			}
			if !errors.Is(err, errNotSent) {
				sent = true
			}
			lastErr = err
			zap.L().Warn("payout request failed, retrying", zap.String("idempotency_ref", req.IdempotencyRef), zap.Int("attempt", attempt), zap.Error(err))
			c.sleep(ctx, c.retryInterval*time.Duration(attempt))
			continue
		}
		sent = true

		switch {
		case statusCode == http.StatusOK || statusCode == http.StatusCreated || statusCode == http.StatusAccepted || statusCode == http.StatusConflict:
			// 409: the gateway already holds a payout for this key and returns it
			payout, err := decodePayout(respBody)
			if err != nil {
				lastErr = err
				continue
			}
			return payout, nil
		case statusCode == http.StatusUnauthorized:
			c.tokens.Reset()
			lastErr = fmt.Errorf("gateway rejected token")
		case statusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("gateway rate limited")
			c.sleep(ctx, retryAfter(respHeaders, c.retryInterval*time.Duration(attempt)))
		case statusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("gateway status %d", statusCode)
			c.sleep(ctx, c.retryInterval*time.Duration(attempt))
		default:
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrPayoutRejected, statusCode, errorMessage(respBody))
		}
	}

	if !sent {
		return nil, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, lastErr)
	}
	return nil, fmt.Errorf("%w: after %d attempts: %w", domain.ErrPayoutOutcomeUnknown, c.maxRetries, lastErr)
}

// PollStatus returns the gateway's view of a payout; safe to call any number of times.
func (c *Client) PollStatus(ctx context.Context, externalRef string) (*domain.Payout, error) {
	payout, err := c.get(ctx, "poll", c.baseURL+"/payouts/"+url.PathEscape(externalRef)+"/status")
	if err != nil {
		return nil, err
	}
	if payout.ExternalRef == "" {
		payout.ExternalRef = externalRef
	}
	return payout, nil
}

// LookupPayout finds a payout by the idempotency ref it was submitted with.
func (c *Client) LookupPayout(ctx context.Context, idempotencyRef string) (*domain.Payout, error) {
	return c.get(ctx, "lookup", c.baseURL+"/payouts?idempotencyRef="+url.QueryEscape(idempotencyRef))
}

func (c *Client) get(ctx context.Context, operation, target string) (*domain.Payout, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		statusCode, respBody, respHeaders, err := c.do(ctx, operation, http.MethodGet, target, nil, nil)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			c.sleep(ctx, c.retryInterval*time.Duration(attempt))
			continue
		}

		switch {
		case statusCode == http.StatusOK:
			return decodePayout(respBody)
		case statusCode == http.StatusNotFound:
			return nil, domain.ErrPayoutNotFound
		case statusCode == http.StatusUnauthorized:
			c.tokens.Reset()
			lastErr = fmt.Errorf("gateway rejected token")
		case statusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("gateway rate limited")
			c.sleep(ctx, retryAfter(respHeaders, c.retryInterval*time.Duration(attempt)))
		default:
			lastErr = fmt.Errorf("gateway status %d: %s", statusCode, errorMessage(respBody))
			c.sleep(ctx, c.retryInterval*time.Duration(attempt))
		}
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, lastErr)
}

var errNotSent = errors.New("request not sent")

func (c *Client) do(ctx context.Context, operation, method, target string, headers http.Header, body []byte) (int, []byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %w", errNotSent, err)
	}

	h := http.Header{}
	for k, v := range headers {
		h[k] = v
	}
	token, err := c.tokens.Token()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: token: %w", errNotSent, err)
	}
	if token != nil {
		token.SetAuthHeader(&http.Request{Header: h})
	}

	start := time.Now()
	var (
		statusCode  int
		respBody    []byte
		respHeaders http.Header
	)
	if method == http.MethodPost {
		statusCode, respBody, respHeaders, err = c.client.Post(ctx, target, h, body)
	} else {
		statusCode, respBody, respHeaders, err = c.client.Get(ctx, target, h)
	}

	outcome := strconv.Itoa(statusCode)
	if err != nil {
		outcome = "error"
	}
	metrics.GatewayRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	return statusCode, respBody, respHeaders, err
}

func burst(limit rate.Limit) int {
	if limit == rate.Inf || limit < 1 {
		return 1
	}
	return int(limit)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func decodePayout(body []byte) (*domain.Payout, error) {
	var resp payoutResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}
	status := domain.PayoutPending
	switch domain.PayoutStatus(resp.Status) {
	case "", domain.PayoutPending:
	case domain.PayoutCompleted, domain.PayoutFailed:
		status = domain.PayoutStatus(resp.Status)
	default:
		return nil, fmt.Errorf("unknown payout status %q", resp.Status)
	}
	return &domain.Payout{ExternalRef: resp.ExternalRef, Status: status, Reason: resp.Reason}, nil
}

func errorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	return string(body)
}

func retryAfter(headers http.Header, fallback time.Duration) time.Duration {
	if v := headers.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			d := time.Duration(seconds) * time.Second
			if d > maxRetryAfter {
				return maxRetryAfter
			}
			return d
		}
	}
	return fallback
}
