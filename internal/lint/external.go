package lint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"
)

// ExternalChecker probes external URLs over HTTP.
type ExternalChecker struct {
	Client  *http.Client
	Retries int
	Delay   time.Duration
	Workers int
}

// NewExternalChecker creates a checker with a per-request timeout.
func NewExternalChecker(timeout time.Duration, retries int) *ExternalChecker {
	if retries < 0 {
		retries = 0
	}
	return &ExternalChecker{
		Client:  &http.Client{Timeout: timeout},
		Retries: retries,
		Delay:   500 * time.Millisecond,
		Workers: 8,
	}
}

// Check probes each URL once and returns the failures keyed by URL.
// Non-HTTP schemes such as mailto are not probed.
func (c *ExternalChecker) Check(ctx context.Context, urls []string) map[string]error {
	failures := make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Workers, 1))
	for _, raw := range urls {
		raw := raw
		u, err := url.Parse(raw)
		if err != nil {
			mu.Lock()
			failures[raw] = fmt.Errorf("invalid url: %w", err)
			mu.Unlock()
			continue
		}
		if u.Scheme == "" && len(raw) > 1 && raw[:2] == "//" {
			u.Scheme = "https"
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		target := u.String()
		g.Go(func() error {
			if err := c.probe(gctx, target); err != nil {
				mu.Lock()
				failures[raw] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

func (c *ExternalChecker) probe(ctx context.Context, target string) error {
	return retry.Do(
		func() error {
			status, err := c.request(ctx, http.MethodHead, target)
			if err != nil {
				return err
			}
			if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
				status, err = c.request(ctx, http.MethodGet, target)
				if err != nil {
					return err
				}
			}
			switch {
			case status == http.StatusTooManyRequests || status >= 500:
				return fmt.Errorf("status %d", status)
			case status >= 400:
				return retry.Unrecoverable(fmt.Errorf("status %d", status))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.Retries+1)),
		retry.Delay(c.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func (c *ExternalChecker) request(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, retry.Unrecoverable(err)
	}
	req.Header.Set("User-Agent", "docgraph-linkcheck")
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
