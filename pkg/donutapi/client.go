package donutapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/masahide/donutsmp-bot/pkg/config"
)

// Category is an API endpoint family.
type Category string

const (
	CategoryStats  Category = "stats"
	CategoryLookup Category = "lookup"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxAttempts = 3
	defaultBackoffStep = time.Second
)

// Client fetches one category for one player at a time.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	MaxAttempts int
	// BackoffStep is multiplied by the attempt number to get the wait before the next attempt.
	BackoffStep time.Duration
	Debug       bool

	sleep func(ctx context.Context, d time.Duration) error
}

func New(e config.Env) *Client {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:     e.BaseURL,
		HTTPClient:  &http.Client{Timeout: timeout},
		MaxAttempts: e.MaxAttempts,
		BackoffStep: e.BackoffStep,
		Debug:       e.Debug,
	}
}

func reqDump(req *http.Request) string {
	b, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		log.Printf("Error dumping request.  err:%s", err)
		return ""
	}
	return strings.ReplaceAll(string(b), req.Header.Get("Authorization"), "***")
}

func respDump(resp *http.Response) string {
	b, err := httputil.DumpResponse(resp, true)
	if err != nil {
		log.Printf("Error dumping response.  err:%s", err)
		return ""
	}
	return string(b)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) endpoint(category Category, name string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + string(category) + "/" + url.PathEscape(name)
}

func (c *Client) attempts() int {
	if c.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Client) backoff(attempt int) time.Duration {
	step := c.BackoffStep
	if step <= 0 {
		step = defaultBackoffStep
	}
	return step * time.Duration(attempt)
}

// Fetch queries category for name, retrying transport and HTTP failures with linear backoff.
// Application level statuses are never retried.
func (c *Client) Fetch(ctx context.Context, category Category, name, key string) Result {
	if name == "" || key == "" {
		log.Printf("Invalid player configuration for %s (name:%q): %s", category, name, ErrMissingConfig)
		res := Result{Kind: KindConfigError, Err: ErrMissingConfig}
		observe(category, res)
		return res
	}
	u := c.endpoint(category, name)
	sleep := c.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	maxAttempts := c.attempts()
	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		env, err := c.get(ctx, u, key)
		if err == nil {
			res := env.result()
			res.Attempts = attempt
			switch res.Kind {
			case KindKnownOffline:
				log.Printf("Player %s identified as offline via %s API.", name, category)
			case KindApplicationError:
				log.Printf("API returned status %d for %s at %s: %s", res.Status, name, u, res.Reason)
			}
			observe(category, res)
			return res
		}
		lastErr = err
		log.Printf("Attempt %d/%d failed for %s at %s: %v", attempt, maxAttempts, name, u, err)
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, c.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	log.Printf("Failed after %d attempts for %s at %s: %v", attempt, name, u, lastErr)
	res := Result{
		Kind:     KindTransientExhausted,
		Attempts: attempt,
		Err:      fmt.Errorf("%w after %d attempts: %v", ErrExhausted, attempt, lastErr),
	}
	observe(category, res)
	return res
}

func (c *Client) get(ctx context.Context, u, key string) (envelope, error) {
	var env envelope
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return env, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", key)
	if c.Debug {
		log.Printf("REQUEST:\n%s", reqDump(req))
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()
	if c.Debug {
		log.Printf("RESPONSE:\n%s", respDump(resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return env, fmt.Errorf("%w: status=%d body=%s", ErrHTTPStatus, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env, fmt.Errorf("decoding response: %w", err)
	}
	return env, nil
}
