package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/user/cinefam/internal/errs"
)

// BoundedClient wraps an external HTTP API with a request-rate ceiling and
// bounded retries. One instance per provider, constructed at process start
// and shared by handle. The limiter state is scoped to that provider, so a
// wait for metadata headroom never blocks an embedding call.
type BoundedClient struct {
	name       string
	limiter    *rate.Limiter
	httpClient *http.Client
	attempts   uint
	baseDelay  time.Duration
}

// NewBoundedClient creates a client for one provider. perSecond is the
// sustained request ceiling; burst is the number of requests that may be
// issued back to back before waiting.
func NewBoundedClient(name string, perSecond float64, burst int) *BoundedClient {
	return &BoundedClient{
		name:       name,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		attempts:   3,
		baseDelay:  time.Second,
	}
}

// Do runs fn under the provider's rate ceiling. Transient failures retry up
// to the attempt budget with exponential backoff (base delay doubling per
// attempt); authentication and bad-request failures propagate immediately.
// The wait for rate-limit headroom is cooperative and bounded by ctx.
func (c *BoundedClient) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(errs.Timeout(c.name+" rate-limit wait", err))
			}
			err := fn(ctx)
			if err != nil && !errs.IsRetryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Uint("attempt", n+1).Err(err).Msgf("[%s] request failed, retrying", c.name)
		}),
	)
}

// GetJSON issues a rate-limited GET and decodes the JSON body into target.
func (c *BoundedClient) GetJSON(ctx context.Context, url string, headers map[string]string, target interface{}) error {
	return c.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Unrecoverable(errs.Upstream(c.name, 0, err))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.roundTrip(ctx, req, target)
	})
}

// PostJSON issues a rate-limited POST with a JSON body and decodes the
// response into target.
func (c *BoundedClient) PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Upstream(c.name, 0, fmt.Errorf("marshal request: %w", err))
	}
	return c.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return retry.Unrecoverable(errs.Upstream(c.name, 0, err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.roundTrip(ctx, req, target)
	})
}

func (c *BoundedClient) roundTrip(ctx context.Context, req *http.Request, target interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errs.Timeout(c.name+" request", ctx.Err())
		}
		return errs.Upstream(c.name, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.Upstream(c.name, resp.StatusCode, fmt.Errorf("%s", string(snippet)))
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errs.Upstream(c.name, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
