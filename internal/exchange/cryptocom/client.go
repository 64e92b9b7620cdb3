// Package cryptocom implements the signed Crypto.com exchange protocol
// client: request signing, base URL routing, rate limiting and retries.
package cryptocom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/signal-trader/internal/config"
)

const (
	defaultRetryBase     = 1 * time.Second
	defaultRateLimitWait = 60 * time.Second
)

// Client talks to the exchange. All methods honor the shared rate
// limiter; transport failures are retried with exponential backoff,
// application rejections are returned as *APIError without retry.
type Client struct {
	apiKey     string
	apiSecret  string
	tradingURL string
	accountURL string

	httpClient *http.Client
	limiter    *rateLimiter
	maxRetries int

	retryBase     time.Duration
	rateLimitWait time.Duration

	log *zap.Logger
}

// NewClient creates an exchange client from the static config.
func NewClient(cfg config.ExchangeConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		tradingURL:    strings.TrimRight(cfg.TradingURL, "/") + "/",
		accountURL:    strings.TrimRight(cfg.AccountURL, "/") + "/",
		httpClient:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter:       newRateLimiter(cfg.RateLimitPerMinute),
		maxRetries:    cfg.MaxRetries,
		retryBase:     defaultRetryBase,
		rateLimitWait: defaultRateLimitWait,
		log:           log.Named("cryptocom"),
	}
}

// accountMethods are private methods served from the account base URL
// instead of the trading one.
var accountMethods = map[string]bool{
	"private/get-account-summary": true,
}

func isPublicMethod(method string) bool {
	return strings.HasPrefix(method, "public/")
}

func (c *Client) baseURL(method string) string {
	if isPublicMethod(method) || accountMethods[method] {
		return c.accountURL
	}
	return c.tradingURL
}

// call performs one logical exchange request with rate limiting and the
// retry policy, returning the raw result payload.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBase << (attempt - 1)
			c.log.Warn("retrying request",
				zap.String("method", method),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.wait(ctx); err != nil {
			return nil, err
		}

		result, retryable, err := c.doOnce(ctx, method, params)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w (last: %v)", method, c.maxRetries+1, ErrUnavailable, lastErr)
}

// doOnce performs a single HTTP exchange. retryable marks transport-level
// failures; application errors are final.
func (c *Client) doOnce(ctx context.Context, method string, params map[string]interface{}) (result json.RawMessage, retryable bool, err error) {
	endpoint := c.baseURL(method) + method

	var httpReq *http.Request
	if isPublicMethod(method) {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, fmt.Sprintf("%v", stringifyNumbers(v)))
		}
		target := endpoint
		if len(q) > 0 {
			target += "?" + q.Encode()
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, false, fmt.Errorf("build request for %s: %w", method, err)
		}
	} else {
		now := time.Now().UnixMilli()
		converted, _ := stringifyNumbers(params).(map[string]interface{})
		req := request{
			ID:     now,
			Method: method,
			APIKey: c.apiKey,
			Params: converted,
			Nonce:  now,
		}
		req.Sig = sign(c.apiSecret, method, req.ID, c.apiKey, req.Params, req.Nonce)

		body, err := json.Marshal(req)
		if err != nil {
			return nil, false, fmt.Errorf("marshal request for %s: %w", method, err)
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, false, fmt.Errorf("build request for %s: %w", method, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
		}
		return nil, true, fmt.Errorf("execute %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.Warn("rate limited by exchange, backing off",
			zap.String("method", method),
			zap.Duration("wait", c.rateLimitWait))
		if err := sleepCtx(ctx, c.rateLimitWait); err != nil {
			return nil, false, err
		}
		return nil, true, fmt.Errorf("%s: http 429", method)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response for %s (status %d): %w", method, resp.StatusCode, err)
	}

	var envelope response
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return nil, false, &MalformedResponseError{Method: method, Status: resp.StatusCode, Body: bodyBytes, Err: err}
	}
	if envelope.Code != 0 {
		return nil, false, &APIError{Method: method, Code: envelope.Code, Message: envelope.Message}
	}
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%s: http %d", method, resp.StatusCode)
	}
	return envelope.Result, false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
