package brandsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"mantaga/internal/config"
)

const maxAttempts = 5

// Client posts projections to the brand performance endpoint.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		url:        strings.TrimSpace(cfg.BrandSyncURL),
		token:      cfg.BrandSyncToken,
		httpClient: &http.Client{Timeout: time.Duration(cfg.BrandSyncTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.BrandSyncRateLimitRPS),
	}
}

func (c *Client) Name() string { return "http" }

func (c *Client) Project(ctx context.Context, p Projection) error {
	if c.url == "" {
		return errors.New("missing BRAND_SYNC_URL")
	}
	blob, err := json.Marshal(p)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(blob))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Idempotency-Key", p.Key())
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		// 409 means the receiver already holds this idempotency key.
		if resp.StatusCode == http.StatusConflict {
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				if err := sleepCtx(ctx, backoff); err != nil {
					return err
				}
				lastErr = fmt.Errorf("brand sync status %d", resp.StatusCode)
				continue
			}
			return fmt.Errorf("brand sync api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return fmt.Errorf("brand sync response: %w", err)
		}
		if !apiResp.Success {
			return fmt.Errorf("brand sync unsuccessful: %s %s", apiResp.Message, string(apiResp.Errors))
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("brand sync request failed")
	}
	return lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
