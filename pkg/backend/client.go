package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultLanguage       = "en"
	defaultFailureMessage = "backend request failed"
	errorBodyReadLimit    = 64 << 10
	headerSessionID       = "X-Session-Id"
	headerAcceptLanguage  = "Accept-Language"
)

var errBaseURLRequired = errors.New("backend base url is required")

// Client is the single configured request client shared by every domain API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	language   string
	metrics    *metrics.UpstreamMetrics
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// WithDefaultLanguage is used when the caller context carries no locale.
func WithDefaultLanguage(lang string) Option {
	return func(c *Client) {
		if lang = strings.TrimSpace(lang); lang != "" {
			c.language = lang
		}
	}
}

func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds a client rooted at baseURL (e.g. https://api.example.com/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		language:   defaultLanguage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Request describes one backend call. Body is JSON-encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Query: query, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Query: query})
}

// Do executes the request and returns the raw JSON body of a 2xx response.
// Non-2xx responses are returned as typed errors wrapping *APIError.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}

	endpoint := endpointLabel(req.Path)
	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.Observe(endpoint, req.Method, 0, time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, defaultFailureMessage)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(endpoint, req.Method, resp.StatusCode, time.Since(started))

	if c.logg != nil {
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{
			"upstream_method": req.Method,
			"upstream_path":   req.Path,
			"upstream_status": resp.StatusCode,
		}), "backend.request")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		apiErr := parseAPIError(resp.StatusCode, body)
		return nil, apiErr.typed()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read backend response")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// DoJSON executes the request and decodes the success body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	raw, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return Decode(raw, out)
}

// Decode unmarshals a backend payload, tagging failures as dependency errors.
func Decode(raw json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Path, req.Query), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	creds := CredentialsFromContext(ctx)
	if creds.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	}
	if creds.SessionID != "" {
		httpReq.Header.Set(headerSessionID, creds.SessionID)
	}
	lang := creds.Language
	if lang == "" {
		lang = c.language
	}
	httpReq.Header.Set(headerAcceptLanguage, lang)
	return httpReq, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	full := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

// endpointLabel keeps metric cardinality bounded by dropping ids from the path.
func endpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if isIdentifier(seg) {
			kept = append(kept, "{id}")
			continue
		}
		kept = append(kept, seg)
	}
	return "/" + strings.Join(kept, "/")
}

func isIdentifier(seg string) bool {
	for _, r := range seg {
		if (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
