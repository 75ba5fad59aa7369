package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gdownersigma/c21-commodities/config"
	"github.com/gdownersigma/c21-commodities/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=fmp_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryPolicy is the injectable retry strategy applied per symbol. Zero
// values fall back to sane bounds in newBackOff.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxAttempts     uint64 // total attempts, including the first
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.MaxElapsedTime = config.BackoffMaxElapsedTime

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx)
}

// Client fetches commodity quotes from the FMP quote API, one request per
// symbol, under a shared rate limiter and a bounded worker pool.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	limiter    *TokenBucket
	retry      RetryPolicy
	workers    int
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func NewClient(cfg *config.APIConfig, workers int, options ...ClientOption) *Client {
	if workers <= 0 {
		workers = 1
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.Key,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMillis) * time.Millisecond,
		},
		limiter: NewTokenBucket(cfg.MaxRequestsPerMinute, cfg.Burst),
		retry: RetryPolicy{
			InitialInterval: time.Duration(cfg.BackoffInitialMillis) * time.Millisecond,
			MaxInterval:     time.Duration(cfg.BackoffMaxMillis) * time.Millisecond,
			MaxAttempts:     cfg.MaxAttempts,
		},
		workers: workers,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// FetchQuotes fetches the current quote for every requested symbol. The
// returned map always has exactly one entry per requested symbol; a failure
// on one symbol never aborts the others.
func (c *Client) FetchQuotes(ctx context.Context, symbols []string) map[string]QuoteResult {
	results := make(map[string]QuoteResult, len(symbols))

	uniq := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, seen := results[symbol]; seen {
			continue
		}
		results[symbol] = QuoteResult{}
		uniq = append(uniq, symbol)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.workers)
	)
	for _, symbol := range uniq {
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				results[symbol] = QuoteResult{Err: &TransientError{Symbol: symbol, Err: ctx.Err()}}
				mu.Unlock()
				return
			}

			quote, err := c.fetchQuote(ctx, symbol)
			mu.Lock()
			results[symbol] = QuoteResult{Quote: quote, Err: err}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results
}

// fetchQuote runs the retry loop for a single symbol. Retry sequencing is
// local to the calling worker; only the token bucket is shared.
func (c *Client) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	var quote *Quote

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		q, err := c.getQuote(ctx, symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	}

	err := backoff.RetryNotify(operation, c.retry.newBackOff(ctx),
		func(err error, d time.Duration) {
			logger.Warn("Fetch %s failed: %s. Will retry after %s", symbol, err, d)
		})
	if err != nil {
		var permErr *PermanentError
		if errors.As(err, &permErr) {
			return nil, permErr
		}
		return nil, &TransientError{Symbol: symbol, Err: err}
	}

	return quote, nil
}

func (c *Client) getQuote(ctx context.Context, symbol string) (*Quote, error) {
	body, err := c.get(ctx, symbol, "/quote?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var quotes []Quote
	if err := json.NewDecoder(body).Decode(&quotes); err != nil {
		return nil, backoff.Permanent(&PermanentError{Symbol: symbol, Reason: "malformed response: " + err.Error()})
	}
	// The API answers an unknown symbol with an empty array, not a 404.
	if len(quotes) == 0 {
		return nil, backoff.Permanent(&PermanentError{Symbol: symbol, Reason: "unknown symbol"})
	}

	q := quotes[0]
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	return &q, nil
}

// FetchHistorical fetches end-of-day bars for one symbol, newest first, under
// the same rate limiter and retry policy as the quote path.
func (c *Client) FetchHistorical(ctx context.Context, symbol string) ([]Bar, error) {
	var bars []Bar

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		body, err := c.get(ctx, symbol, "/historical-price-eod/full?symbol="+url.QueryEscape(symbol))
		if err != nil {
			return err
		}
		defer body.Close()

		if err := json.NewDecoder(body).Decode(&bars); err != nil {
			return backoff.Permanent(&PermanentError{Symbol: symbol, Reason: "malformed response: " + err.Error()})
		}
		return nil
	}

	err := backoff.RetryNotify(operation, c.retry.newBackOff(ctx),
		func(err error, d time.Duration) {
			logger.Warn("Historical fetch %s failed: %s. Will retry after %s", symbol, err, d)
		})
	if err != nil {
		var permErr *PermanentError
		if errors.As(err, &permErr) {
			return nil, permErr
		}
		return nil, &TransientError{Symbol: symbol, Err: err}
	}

	return bars, nil
}

// get issues one request and maps the status code onto the error taxonomy:
// 5xx and 429 are retryable, every other non-2xx is permanent.
func (c *Client) get(ctx context.Context, symbol, pathAndQuery string) (io.ReadCloser, error) {
	u := c.baseURL + pathAndQuery + "&apikey=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, "build request"))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s -> %d", symbol, resp.StatusCode)
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		resp.Body.Close()
		return nil, backoff.Permanent(&PermanentError{
			Symbol:     symbol,
			StatusCode: resp.StatusCode,
			Reason:     string(detail),
		})
	}

	return resp.Body, nil
}
