// internal/adapters/feeds/client.go
package feeds

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

const maxBodyBytes = 2 << 20 // platform calendars are small; 2 MiB is generous

// Client fetches iCal documents from booking platforms. One shared
// rate limiter covers all feeds so a burst of syncs cannot hammer a
// platform that hosts several of our calendars.
type Client struct {
	hc *http.Client
	rl *rate.Limiter
}

func New(timeoutSec, rps int) *Client {
	if timeoutSec <= 0 {
		timeoutSec = 20
	}
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		hc: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Fetch performs a GET with client-side rate limiting and retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrFeedFetch, err)
		}
		req.Header.Set("Accept", "text/calendar, text/plain;q=0.8")
		req.Header.Set("User-Agent", "lapa-casa-sync/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			// network error or context canceled
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %v", domain.ErrFeedFetch, lastErr)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
			resp.Body.Close()
			if err != nil {
				return "", fmt.Errorf("%w: read body: %v", domain.ErrFeedFetch, err)
			}
			if len(b) > maxBodyBytes {
				return "", fmt.Errorf("%w: document exceeds %d bytes", domain.ErrFeedFetch, maxBodyBytes)
			}
			return string(b), nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %v", domain.ErrFeedFetch, lastErr)

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return "", fmt.Errorf("%w: status %d: %s", domain.ErrFeedFetch, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return "", fmt.Errorf("%w: %v", domain.ErrFeedFetch, lastErr)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
