package nse

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"migitrader/internal/adapters/config"
	"migitrader/internal/domain/insights"
	"migitrader/internal/metrics"
	"migitrader/pkg/errors"
	"migitrader/pkg/logger"
)

const (
	stocksPath    = "/market-data/stocks"
	dividendsPath = "/dividends/recent?days=30"

	endpointStocks    = "stocks"
	endpointDividends = "dividends"
)

// Client talks to the NSE market-data API.
// Market-data fetches retry with exponential backoff; dividend fetches are
// single-shot and degrade to an empty result on any failure.
type Client struct {
	cfg        config.NSEConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates a new NSE API client
func NewClient(cfg config.NSEConfig) *Client {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		cfg: cfg,
		// Per-attempt deadlines come from the request context
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        logger.Get().With("component", "nse_client"),
	}
}

type stocksEnvelope struct {
	Stocks []insights.Instrument `json:"stocks"`
}

type dividendsEnvelope struct {
	Dividends []insights.DividendAnnouncement `json:"dividends"`
}

// stocksAttempt is the outcome of a single fetch attempt: either a complete
// instrument list or a failure. Partial results are never carried over.
type stocksAttempt struct {
	stocks []insights.Instrument
	err    error
}

// FetchStocks retrieves the full instrument list.
// Attempts are strictly sequential: each is bounded by the configured
// timeout, and failures back off 1s, 2s, 4s, ... before the next try.
// When all attempts fail the terminal error names the attempt count.
func (c *Client) FetchStocks(ctx context.Context) ([]insights.Instrument, error) {
	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.log.Debugw("Fetching market data", "attempt", attempt, "max_attempts", attempts)

		result := c.attemptStocks(ctx)
		if result.err == nil {
			c.log.Infow("Fetched market data", "instruments", len(result.stocks), "attempt", attempt)
			return result.stocks, nil
		}

		c.log.Warnw("Market data fetch attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", result.err,
		)

		if attempt == attempts {
			break
		}

		backoff := time.Duration(1<<(attempt-1)) * time.Second
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, errors.Wrapf(errors.ErrFetchExhausted, "failed to fetch market data after %d attempts", attempts)
}

func (c *Client) attemptStocks(ctx context.Context) stocksAttempt {
	var envelope stocksEnvelope
	if err := c.getJSON(ctx, endpointStocks, c.cfg.BaseURL+stocksPath, &envelope); err != nil {
		return stocksAttempt{err: err}
	}
	return stocksAttempt{stocks: envelope.Stocks}
}

// FetchRecentDividends retrieves dividend announcements from the last 30
// days. Single attempt: dividends are an enrichment signal, so transport
// errors, non-2xx responses and parse failures all yield an empty slice.
func (c *Client) FetchRecentDividends(ctx context.Context) []insights.DividendAnnouncement {
	dividends, err := c.fetchDividends(ctx)
	if err != nil {
		c.log.Warnw("Proceeding without dividend data", "error", err)
		return []insights.DividendAnnouncement{}
	}

	c.log.Debugw("Fetched dividend announcements", "count", len(dividends))
	return dividends
}

func (c *Client) fetchDividends(ctx context.Context) ([]insights.DividendAnnouncement, error) {
	var envelope dividendsEnvelope
	if err := c.getJSON(ctx, endpointDividends, c.cfg.BaseURL+dividendsPath, &envelope); err != nil {
		return nil, errors.Wrapf(errors.ErrDividendUnavailable, "%v", err)
	}
	return envelope.Dividends, nil
}

// getJSON performs one bounded, rate-limited GET and decodes the body.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, dest interface{}) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	if err := c.limiter.Wait(attemptCtx); err != nil {
		return errors.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamAPICalls.WithLabelValues(endpoint, "error").Inc()
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamAPICalls.WithLabelValues(endpoint, "error").Inc()
		return errors.Wrapf(errors.ErrUpstreamStatus, "%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := decodedBody(resp)
	if err != nil {
		metrics.UpstreamAPICalls.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dest); err != nil {
		metrics.UpstreamAPICalls.WithLabelValues(endpoint, "error").Inc()
		return errors.Wrap(err, "failed to decode response")
	}

	metrics.UpstreamAPICalls.WithLabelValues(endpoint, "success").Inc()
	return nil
}

// decodedBody unwraps the response body. Since the request sets
// Accept-Encoding explicitly, the transport does not decompress for us.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read gzip body")
		}
		return r, nil
	case "deflate":
		return flate.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func (c *Client) timeout() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return 10 * time.Second
}
