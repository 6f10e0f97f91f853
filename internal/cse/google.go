package cse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/FranksOps/auger/internal/fingerprint"
	"github.com/FranksOps/auger/internal/metrics"
	"github.com/FranksOps/auger/pkg/httpclient"
	"github.com/FranksOps/auger/pkg/proxy"
	"github.com/FranksOps/auger/pkg/ratelimit"
	"github.com/FranksOps/auger/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// DefaultAPIURL is the production endpoint of the Custom Search JSON API.
const DefaultAPIURL = "https://www.googleapis.com/customsearch/v1"

// Config configures a GoogleClient.
type Config struct {
	APIKey          string
	CSEID           string
	APIURL          string
	PageSize        int
	Timeout         time.Duration
	ThrottleBackoff time.Duration
	ProxyPool       *proxy.Pool
	UAPool          *useragent.Pool
	Fingerprint     fingerprint.Profile
	Limiter         *ratelimit.Limiter
	Logger          *slog.Logger
}

// GoogleClient queries the Custom Search JSON API over a fingerprinted
// transport with optional proxy and user agent rotation. All requests issued
// through the client are counted, including ones that fail in transit, so the
// total matches what the API provider bills against the quota.
type GoogleClient struct {
	config      Config
	client      *httpclient.Client
	classifiers []Classifier
	requests    atomic.Int64
}

// ensure GoogleClient implements Provider
var _ Provider = (*GoogleClient)(nil)

// NewGoogleClient initializes a client with the given configuration. The
// transport is built once so connections are pooled across pages; per-request
// proxy rotation goes through the request context.
func NewGoogleClient(cfg Config) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.CSEID == "" {
		return nil, errors.New("search engine id is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 10 {
		cfg.PageSize = 10
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ThrottleBackoff == 0 {
		cfg.ThrottleBackoff = 10 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		// Don't let env proxies capture requests aimed at local test servers.
		if req.URL.Hostname() == "127.0.0.1" || req.URL.Hostname() == "localhost" {
			return nil, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &GoogleClient{
		config:      cfg,
		client:      client,
		classifiers: DefaultClassifiers(),
	}, nil
}

// Search runs a single query page against the API. Requests pace through the
// configured limiter. Throttle responses back off before returning so the
// caller can move on to the next query without hammering the API.
func (c *GoogleClient) Search(ctx context.Context, query string, start int) ([]Result, error) {
	if c.config.Limiter != nil {
		if err := c.config.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(c.config.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.CSEID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.config.PageSize))
	params.Set("start", strconv.Itoa(start))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var activeProxy *url.URL
	if c.config.ProxyPool != nil {
		activeProxy = c.config.ProxyPool.Next()
		if activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}

	req.Header.Set("User-Agent", c.config.UAPool.GetSequential())
	req.Header.Set("Accept", "application/json")

	// Count the attempt before the outcome is known. The quota is spent on
	// attempts, not successes.
	c.requests.Add(1)
	startedAt := time.Now()

	resp, err := c.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = c.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
		}
		metrics.RecordRequest("error", time.Since(startedAt))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = c.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordRequest("error", time.Since(startedAt))
		return nil, &TransientError{Err: fmt.Errorf("read body: %w", err)}
	}

	metrics.RecordRequest(strconv.Itoa(resp.StatusCode), time.Since(startedAt))

	if resp.StatusCode != http.StatusOK {
		clsErr := Classify(resp.StatusCode, body, c.classifiers)
		var throttle *ThrottleError
		if errors.As(clsErr, &throttle) {
			c.config.Logger.Warn("search api throttled, backing off",
				"status", throttle.StatusCode,
				"reason", throttle.Reason,
				"backoff", c.config.ThrottleBackoff)
			if serr := ratelimit.Sleep(ctx, c.config.ThrottleBackoff); serr != nil {
				return nil, serr
			}
		}
		return nil, clsErr
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decode response: %w", err)}
	}

	return parsed.Items, nil
}

// Requests reports how many API calls the client has issued so far.
func (c *GoogleClient) Requests() int64 {
	return c.requests.Load()
}
