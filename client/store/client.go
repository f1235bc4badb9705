package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"changeportal/bizerror"
	"changeportal/common"
	"changeportal/config"
	"changeportal/domain"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultCacheTTL    = 5 * time.Minute
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

type FetchOptions struct {
	SkipCache bool
	Headers   http.Header
}

type Response struct {
	Status      int
	Body        []byte
	Token       string
	NotModified bool
}

// Client reads and writes managed objects in the remote store. Reads are cached for a
// fixed TTL, writes invalidate the affected paths, every call retries transient failures.
type Client struct {
	baseURL     string
	authToken   string
	maxAttempts int
	baseDelay   time.Duration

	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *responseCache
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleep replaces the wait between retry attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

func New(cfg config.StoreConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		authToken:   cfg.AuthToken,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		now:         time.Now,
		sleep:       sleepContext,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &TracingTransport{Transport: http.DefaultTransport},
		},
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultBaseDelay
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(c)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c.cache = newResponseCache(ttl, c.now)
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetch reads path, serving it from the cache while the cached copy is younger than the TTL.
func (c *Client) Fetch(ctx context.Context, path string, opts FetchOptions) (*Response, error) {
	key := cacheKey(path, opts.Headers)
	if !opts.SkipCache {
		if cached, found := c.cache.get(key); found {
			logrus.WithFields(logrus.Fields{"path": path, "key": key}).Debug("cache hit")
			return cached, nil
		}
	}

	resp, err := c.do(ctx, http.MethodGet, path, opts.Headers, nil)
	if err != nil {
		return nil, err
	}
	if resp.NotModified {
		return resp, nil
	}
	c.cache.put(key, resp)
	return resp, nil
}

// Revalidate is a conditional read bypassing the cache: NotModified is set when token still matches.
func (c *Client) Revalidate(ctx context.Context, path string, token string) (*Response, error) {
	headers := http.Header{}
	if token != "" {
		headers.Set("If-None-Match", token)
	}
	return c.do(ctx, http.MethodGet, path, headers, nil)
}

func (c *Client) FetchObject(ctx context.Context, kind domain.Kind, id string, opts FetchOptions) (*domain.ManagedObject, error) {
	path, err := domain.ObjectPath(kind, id)
	if err != nil {
		return nil, err
	}
	resp, err := c.Fetch(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return DecodeObject(resp)
}

func (c *Client) FetchCollection(ctx context.Context, kind domain.Kind, opts FetchOptions) ([]domain.ManagedObject, error) {
	path, err := domain.CollectionPath(kind)
	if err != nil {
		return nil, err
	}
	resp, err := c.Fetch(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	objects := []domain.ManagedObject{}
	if err := json.Unmarshal(resp.Body, &objects); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", path, err)
	}
	return objects, nil
}

// Update writes the whole object to path. Cached reads of path and its collection are
// dropped before it returns.
func (c *Client) Update(ctx context.Context, path string, obj *domain.ManagedObject) (*domain.ManagedObject, error) {
	return c.write(ctx, http.MethodPut, path, path, obj)
}

func (c *Client) Create(ctx context.Context, collectionPath string, obj *domain.ManagedObject) (*domain.ManagedObject, error) {
	objectPath := strings.TrimRight(collectionPath, "/") + "/" + obj.ID
	return c.write(ctx, http.MethodPost, collectionPath, objectPath, obj)
}

func (c *Client) write(ctx context.Context, method, path, invalidatePath string, obj *domain.ManagedObject) (*domain.ManagedObject, error) {
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := c.do(ctx, method, path, headers, body)
	if err != nil {
		return nil, err
	}
	c.cache.invalidate(invalidatePath)

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		persisted := obj.Clone()
		persisted.RevalidationToken = resp.Token
		return persisted, nil
	}
	return DecodeObject(resp)
}

// InvalidatePath drops cached reads of path and its parent collection.
func (c *Client) InvalidatePath(path string) {
	c.cache.invalidate(path)
}

func (c *Client) CachedEntries() int {
	return c.cache.size()
}

func DecodeObject(resp *Response) (*domain.ManagedObject, error) {
	obj := &domain.ManagedObject{}
	if err := json.Unmarshal(resp.Body, obj); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	obj.RevalidationToken = resp.Token
	return obj, nil
}

// BackoffDelay is the wait before retry n (0-indexed): base * 2^n.
func BackoffDelay(base time.Duration, n int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(n)))
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = BackoffDelay(c.baseDelay, c.maxAttempts)
	b.Reset()
	return b
}

func (c *Client) do(ctx context.Context, method, path string, headers http.Header, body []byte) (*Response, error) {
	b := c.newBackOff()
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.roundTrip(ctx, method, path, headers, body)
		if err == nil {
			return resp, nil
		}
		if !bizerror.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == c.maxAttempts-1 {
			break
		}

		delay := b.NextBackOff()
		logrus.WithFields(logrus.Fields{"method": method, "path": path, "attempt": attempt + 1, "delay": delay}).
			Warnf("store call failed, retrying: %v", err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, &bizerror.ErrRetries{Attempts: c.maxAttempts, Last: lastErr}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, headers http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	for name, values := range headers {
		req.Header.Del(name)
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &bizerror.ErrStoreResponse{Method: method, Path: path, Cause: fmt.Errorf("%w: %v", bizerror.ErrTransient, err)}
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &bizerror.ErrStoreResponse{Method: method, Path: path, StatusCode: res.StatusCode,
			Cause: fmt.Errorf("%w: %v", bizerror.ErrTransient, err)}
	}

	token := res.Header.Get("ETag")
	if res.StatusCode == http.StatusNotModified {
		return &Response{Status: res.StatusCode, Token: token, NotModified: true}, nil
	}
	if common.HttpStatusIsSuccess(res.StatusCode) {
		return &Response{Status: res.StatusCode, Body: respBody, Token: token}, nil
	}
	return nil, &bizerror.ErrStoreResponse{Method: method, Path: path, StatusCode: res.StatusCode,
		Body: string(respBody), Cause: classifyStatus(res.StatusCode)}
}

func classifyStatus(status int) error {
	switch {
	case common.HttpStatusIsAuthFailure(status):
		return bizerror.ErrAuthRequired
	case status == http.StatusNotFound:
		return bizerror.ErrNotFound
	case common.HttpStatusIsServerError(status):
		return bizerror.ErrTransient
	}
	return bizerror.ErrValidationRejected
}
