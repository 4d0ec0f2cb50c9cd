package nse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migitrader/internal/adapters/config"
	"migitrader/pkg/errors"
)

const stocksBody = `{"stocks":[
	{"ticker":"SCOM","name":"Safaricom PLC","currentPrice":25.5,"previousClose":22,
	 "volume":1200000,"averageVolume":1000000,"marketCap":200000000000,
	 "dividendYield":5.8,"high52Week":30,"low52Week":18,"movingAverage20Day":25},
	{"ticker":"EABL","name":"East African Breweries","currentPrice":150,"previousClose":149,
	 "volume":300000,"averageVolume":280000,"marketCap":120000000000,
	 "dividendYield":null,"high52Week":180,"low52Week":120,"movingAverage20Day":148}
]}`

func testClient(baseURL string, attempts int) *Client {
	return NewClient(config.NSEConfig{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		Timeout:       2 * time.Second,
		RetryAttempts: attempts,
		RateLimitRPS:  1000,
	})
}

func TestFetchStocks_SucceedsFirstAttempt(t *testing.T) {
	var gotAuth, gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotEncoding = r.Header.Get("Accept-Encoding")
		fmt.Fprint(w, stocksBody)
	}))
	defer srv.Close()

	stocks, err := testClient(srv.URL, 3).FetchStocks(context.Background())

	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "SCOM", stocks[0].Ticker)
	assert.True(t, stocks[0].DividendYield.Known)
	assert.InDelta(t, 5.8, stocks[0].DividendYield.Percent, 0.001)
	assert.False(t, stocks[1].DividendYield.Known)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gzip, deflate", gotEncoding)
}

func TestFetchStocks_RetriesWithBackoffThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			// Failed attempts return a body that must never surface
			http.Error(w, `{"stocks":[{"ticker":"BOGUS"}]}`, http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, stocksBody)
	}))
	defer srv.Close()

	start := time.Now()
	stocks, err := testClient(srv.URL, 3).FetchStocks(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, stocks, 2)
	assert.Equal(t, "SCOM", stocks[0].Ticker)

	// 1s after the first failure, 2s after the second
	assert.GreaterOrEqual(t, elapsed, 3*time.Second)
}

func TestFetchStocks_ExhaustionNamesAttemptCount(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	stocks, err := testClient(srv.URL, 2).FetchStocks(context.Background())

	require.Error(t, err)
	assert.Nil(t, stocks)
	assert.True(t, errors.Is(err, errors.ErrFetchExhausted))
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchStocks_ContextCancelStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testClient(srv.URL, 3).FetchStocks(ctx)

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchRecentDividends_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dividends/recent", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		fmt.Fprint(w, `{"dividends":[
			{"ticker":"SCOM","announcementDate":"2026-08-20","exDividendDate":"2026-09-10",
			 "dividendPerShare":1.2,"yield":5.8}
		]}`)
	}))
	defer srv.Close()

	dividends := testClient(srv.URL, 3).FetchRecentDividends(context.Background())

	require.Len(t, dividends, 1)
	assert.Equal(t, "SCOM", dividends[0].Ticker)
	assert.InDelta(t, 5.8, dividends[0].Yield, 0.001)
}

func TestFetchRecentDividends_DegradesToEmptyOnFailure(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		dividends := testClient(srv.URL, 3).FetchRecentDividends(context.Background())
		assert.Empty(t, dividends)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"dividends": not-json`)
		}))
		defer srv.Close()

		dividends := testClient(srv.URL, 3).FetchRecentDividends(context.Background())
		assert.Empty(t, dividends)
	})

	t.Run("unreachable host", func(t *testing.T) {
		dividends := testClient("http://127.0.0.1:1", 3).FetchRecentDividends(context.Background())
		assert.Empty(t, dividends)
	})
}

func TestFetchDividends_WrapsUnavailableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).fetchDividends(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDividendUnavailable))
}
