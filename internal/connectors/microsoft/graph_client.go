package microsoft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
	"github.com/custodia-labs/graphmail/internal/logger"
	"github.com/custodia-labs/graphmail/internal/metrics"
)

// GraphCaller issues authenticated requests against Microsoft Graph.
type GraphCaller interface {
	Request(ctx context.Context, method, path string, body any, headers http.Header) (*Response, error)
}

// Ensure GraphClient implements GraphCaller.
var _ GraphCaller = (*GraphClient)(nil)

// Response is a successful Graph response.
// For GET requests whose payload carries a "value" array, Body holds
// only that array.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// NextLink is the @odata.nextLink of an unwrapped list, if any.
	NextLink string
}

// Decode unmarshals the response body into v.
// An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

// GraphClient attaches a bearer token to each request and dispatches it.
// One GraphClient belongs to one call context (a CLI invocation or an
// SMTP session); its http.Client is created on first use and never shared.
type GraphClient struct {
	credentials driven.CredentialProvider
	baseURL     string
	transport   http.RoundTripper
	timeout     time.Duration
	limiter     *RateLimiter

	once   sync.Once
	client *http.Client
}

// GraphOption configures a GraphClient.
type GraphOption func(*GraphClient)

// WithBaseURL overrides the Graph endpoint.
func WithBaseURL(baseURL string) GraphOption {
	return func(c *GraphClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTransport sets the round tripper used by the lazily built client.
func WithTransport(rt http.RoundTripper) GraphOption {
	return func(c *GraphClient) { c.transport = rt }
}

// WithRateLimiter shares a limiter between clients.
func WithRateLimiter(rl *RateLimiter) GraphOption {
	return func(c *GraphClient) { c.limiter = rl }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) GraphOption {
	return func(c *GraphClient) { c.timeout = d }
}

// NewGraphClient creates a client that resolves a token from credentials
// immediately before every request.
func NewGraphClient(credentials driven.CredentialProvider, opts ...GraphOption) *GraphClient {
	c := &GraphClient{
		credentials: credentials,
		baseURL:     graphBaseURL,
		timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter()
	}
	return c
}

func (c *GraphClient) httpClient() *http.Client {
	c.once.Do(func() {
		c.client = &http.Client{Transport: c.transport, Timeout: c.timeout}
	})
	return c.client
}

// Get issues a GET and unwraps list envelopes.
func (c *GraphClient) Get(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, nil)
}

// Post issues a POST with a JSON body.
func (c *GraphClient) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, nil)
}

// Patch issues a PATCH with a JSON body.
func (c *GraphClient) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, body, nil)
}

// Delete issues a DELETE.
func (c *GraphClient) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// Request sends method to path. Absolute URLs (such as an @odata.nextLink)
// are used as-is. Non-2xx responses are returned as *APIError and are
// never retried.
func (c *GraphClient) Request(ctx context.Context, method, path string, body any, headers http.Header) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	token, err := c.credentials.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		metrics.RecordGraphRequest(method, 0, time.Since(start))
		return nil, fmt.Errorf("graph %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	metrics.RecordGraphRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read graph response: %w", err)
	}

	logger.Debug("graph: %s %s -> %d", method, path, resp.StatusCode)

	if !isSuccess(resp.StatusCode) {
		if IsRateLimited(resp.StatusCode) {
			wait := ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
			c.limiter.RecordRateLimitError(wait)
			logger.Warn("graph: throttled on %s %s", method, path)
		}
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
	if method == http.MethodGet {
		out.Body, out.NextLink = unwrapValue(data)
	}
	return out, nil
}

func (c *GraphClient) resolve(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// listEnvelope is the OData collection wrapper.
type listEnvelope struct {
	Value    json.RawMessage `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

// unwrapValue returns the "value" array of a collection response, or the
// body unchanged when it is not one.
func unwrapValue(body []byte) ([]byte, string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body, ""
	}
	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return body, ""
	}
	value := bytes.TrimSpace(env.Value)
	if len(value) == 0 || value[0] != '[' {
		return body, ""
	}
	return value, env.NextLink
}
