package workday

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ka2n/jobharvest/api/cache"
	"github.com/ka2n/jobharvest/api/record"
	"github.com/ka2n/jobharvest/api/source"
	"github.com/ka2n/jobharvest/log"
	"github.com/morikuni/failure/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// DefaultUserAgent mimics a desktop browser; the careers API rejects obvious bots
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1500 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
)

// NewLimiter returns a limiter allowing rps requests per second, or nil when rps is not positive
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// PageRequest selects one page of listings
type PageRequest struct {
	Offset int
	Limit  int
	// Filters are sent as appliedFacets
	Filters map[string]any
}

// PageResponse is one decoded page
type PageResponse struct {
	Records []record.Raw
	// TotalDeclared is the API's total count, when it reported one
	TotalDeclared *int
	// Attempts is the number of requests made; 0 for a cache hit
	Attempts int
}

// Options configures a Client
type Options struct {
	MaxRetries int
	// BaseDelay is multiplied by the attempt number to get the wait before the next attempt
	BaseDelay time.Duration
	// Jitter adds up to this fraction of the backoff at random
	Jitter    float64
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper

	// Cache stores successful response bodies; nil disables caching
	Cache       *cache.Cache[[]byte]
	ForceUpdate bool

	// Limiter caps the request rate across pages and retries; nil means unlimited
	Limiter *rate.Limiter

	// Sleep waits between attempts; the package-level Sleep when nil
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client fetches pages from a Workday jobs endpoint
type Client struct {
	site     source.Site
	endpoint string
	http     *resty.Client
	opts     Options
}

type searchPayload struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type jobsResponse struct {
	Total       *json.Number  `json:"total"`
	JobPostings *[]record.Raw `json:"jobPostings"`
}

// NewClient creates a client for the site's jobs endpoint
func NewClient(site source.Site, opts Options) (*Client, error) {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Transport == nil {
		opts.Transport = log.Transport()
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, failure.Wrap(err)
	}

	client := resty.New().
		SetTransport(opts.Transport).
		SetTimeout(opts.Timeout).
		SetCookieJar(jar).
		SetHeaders(map[string]string{
			"User-Agent":      opts.UserAgent,
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "en-US,en;q=0.9",
			"Content-Type":    "application/json",
			"Referer":         site.BaseURL(),
			"Origin":          site.Origin(),
		})

	return &Client{
		site:     site,
		endpoint: site.Endpoint(),
		http:     client,
		opts:     opts,
	}, nil
}

// Endpoint returns the URL pages are requested from
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch requests one page, retrying transient failures.
// Non-retryable statuses fail with ErrFatalStatus, exhausted retries with ErrRetriesExhausted.
func (c *Client) Fetch(ctx context.Context, req PageRequest) (PageResponse, error) {
	if c.opts.Cache == nil {
		page, _, err := c.fetchPage(ctx, req)
		return page, err
	}

	var fetched PageResponse
	key, err := cacheKey(c.endpoint, req)
	if err != nil {
		return PageResponse{}, err
	}
	body, err := c.opts.Cache.GetOrSet(key, func() ([]byte, error) {
		page, body, err := c.fetchPage(ctx, req)
		fetched = page
		return body, err
	}, c.opts.ForceUpdate)
	if err != nil || fetched.Attempts > 0 {
		return fetched, err
	}

	return decodePage(body)
}

// cacheKey identifies a page by endpoint, offset, limit and a digest of the filters.
// Nil and empty filters share a key; encoding/json sorts map keys.
func cacheKey(endpoint string, req PageRequest) (string, error) {
	facets := req.Filters
	if facets == nil {
		facets = map[string]any{}
	}
	b, err := json.Marshal(facets)
	if err != nil {
		return "", failure.Wrap(err, failure.Message("Filters cannot be encoded as JSON"))
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%s:%d:%d:%x", endpoint, req.Offset, req.Limit, sum[:8]), nil
}

func (c *Client) fetchPage(ctx context.Context, req PageRequest) (PageResponse, []byte, error) {
	logger := log.Logger.With("offset", req.Offset, "limit", req.Limit)

	var lastErr error
	var lastStatus int
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return PageResponse{Attempts: attempt - 1}, nil, c.canceled(err, req, attempt-1)
		}

		if c.opts.Limiter != nil {
			if err := c.opts.Limiter.Wait(ctx); err != nil {
				return PageResponse{Attempts: attempt - 1}, nil, c.canceled(err, req, attempt-1)
			}
		}

		logger.Debug("requesting page", "attempt", attempt)
		status, body, err := c.post(ctx, req)
		if err == nil {
			page, derr := decodePage(body)
			if derr == nil {
				page.Attempts = attempt
				return page, body, nil
			}
			err = derr
		} else if status != 0 && !retryableStatus(status) {
			return PageResponse{Attempts: attempt}, nil, failure.Wrap(
				&FetchError{Offset: req.Offset, Attempts: attempt, Status: status, Err: err},
				failure.WithCode(ErrFatalStatus),
				failure.Message(fmt.Sprintf("Source API rejected the request with status %d", status)),
				failure.Context{
					"endpoint": c.endpoint,
					"offset":   strconv.Itoa(req.Offset),
					"status":   strconv.Itoa(status),
				},
			)
		}

		lastErr, lastStatus = err, status
		logger.Warn("page request failed",
			"attempt", attempt,
			"max_retries", c.opts.MaxRetries,
			"status", status,
			"error", err,
		)

		if attempt < c.opts.MaxRetries {
			if err := c.opts.Sleep(ctx, c.backoff(attempt)); err != nil {
				return PageResponse{Attempts: attempt}, nil, c.canceled(err, req, attempt)
			}
		}
	}

	return PageResponse{Attempts: c.opts.MaxRetries}, nil, failure.Wrap(
		&FetchError{Offset: req.Offset, Attempts: c.opts.MaxRetries, Status: lastStatus, Err: lastErr},
		failure.WithCode(ErrRetriesExhausted),
		failure.Message(fmt.Sprintf("Page at offset %d failed after %d attempts", req.Offset, c.opts.MaxRetries)),
		failure.Context{
			"endpoint": c.endpoint,
			"offset":   strconv.Itoa(req.Offset),
			"status":   strconv.Itoa(lastStatus),
		},
	)
}

// post sends one request. A non-2xx response returns its status with an error;
// transport failures return status 0.
func (c *Client) post(ctx context.Context, req PageRequest) (int, []byte, error) {
	facets := req.Filters
	if facets == nil {
		facets = map[string]any{}
	}

	// in-flight requests are bounded by the client timeout, not by the caller
	resp, err := c.http.R().
		SetContext(context.WithoutCancel(ctx)).
		SetBody(searchPayload{
			AppliedFacets: facets,
			Limit:         req.Limit,
			Offset:        req.Offset,
			SearchText:    "",
		}).
		Post(c.endpoint)
	if err != nil {
		return 0, nil, err
	}
	if !resp.IsSuccess() {
		return resp.StatusCode(), nil, fmt.Errorf("unexpected status %s", resp.Status())
	}
	return resp.StatusCode(), resp.Body(), nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.BaseDelay * time.Duration(attempt)
	if c.opts.Jitter > 0 && d > 0 {
		d += time.Duration(rand.Float64() * c.opts.Jitter * float64(d))
	}
	return d
}

func (c *Client) canceled(err error, req PageRequest, attempts int) error {
	return failure.Wrap(
		&FetchError{Offset: req.Offset, Attempts: attempts, Err: err},
		failure.WithCode(ErrCanceled),
		failure.Message("Harvest was canceled"),
		failure.Context{"offset": strconv.Itoa(req.Offset)},
	)
}

func decodePage(body []byte) (PageResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp jobsResponse
	if err := dec.Decode(&resp); err != nil {
		return PageResponse{}, failure.Wrap(err, failure.WithCode(ErrMalformedResponse),
			failure.Message("Response body is not valid JSON"),
		)
	}
	if resp.JobPostings == nil {
		return PageResponse{}, failure.New(ErrMalformedResponse,
			failure.Message("Response has no jobPostings array"),
		)
	}

	page := PageResponse{Records: *resp.JobPostings}
	if resp.Total != nil {
		if n, err := resp.Total.Int64(); err == nil {
			total := int(n)
			page.TotalDeclared = &total
		}
	}
	return page, nil
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
