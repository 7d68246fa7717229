// Package rest implements storage.Backend against a hosted Postgres exposed
// through a PostgREST-style HTTP API.
//
// Plain reads and single-row writes go to table endpoints. Writes that must
// be atomic across tables, and the reports, call database functions under
// /rpc so the server runs them in one transaction.
package rest

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

	"github.com/rs/dnscache"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/circuitbreaker"
	"github.com/eugener/silverbook/internal/storage"
	"github.com/eugener/silverbook/internal/telemetry"
)

var tracer = telemetry.Tracer("github.com/eugener/silverbook/internal/storage/rest")

var _ storage.Backend = (*Client)(nil)

// Options configures a Client.
type Options struct {
	URL     string // project base URL; "/rest/v1" is appended
	APIKey  string
	Timeout time.Duration
	// TokenSource supplies the bearer token. Nil uses APIKey as the bearer.
	TokenSource oauth2.TokenSource
	// Resolver caches DNS lookups for the backend host. Nil disables caching.
	Resolver *dnscache.Resolver
	// Breaker fails calls fast while the backend is unhealthy. Nil disables it.
	Breaker *circuitbreaker.Breaker
}

// Client is a storage.Backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("rest: url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.URL, "/") + "/rest/v1",
		http: &http.Client{
			Transport: authTransport(NewTransport(opts.Resolver), opts.APIKey, opts.TokenSource),
			Timeout:   opts.Timeout,
		},
		breaker: opts.Breaker,
	}, nil
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error returns a formatted error string including status and message.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rest: HTTP %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("rest: HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Unwrap maps the status to a domain sentinel.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return erp.ErrNotFound
	case e.StatusCode == http.StatusConflict || e.Code == "23505":
		return erp.ErrConflict
	case e.StatusCode == http.StatusBadRequest && e.Code == "P0001":
		return erp.ErrBadRequest
	default:
		return erp.ErrBackend
	}
}

// parseAPIError reads up to 4KB of the body and extracts the PostgREST
// error fields when present.
func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	e := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	if gjson.ValidBytes(body) {
		r := gjson.ParseBytes(body)
		if m := r.Get("message"); m.Exists() {
			e.Message = m.String()
		}
		e.Code = r.Get("code").String()
	}
	return e
}

// do sends a request through the breaker and returns the response body of a
// 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, prefer string) ([]byte, error) {
	if c.breaker == nil {
		return c.send(ctx, method, path, query, body, prefer)
	}
	var out []byte
	err := c.breaker.Do(func() error {
		var err error
		out, err = c.send(ctx, method, path, query, body, prefer)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("rest: %s %s: %w: %w", method, path, erp.ErrBackend, err)
	}
	return out, err
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, prefer string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "rest "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method)),
	)
	defer span.End()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rest: marshal %s: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("rest: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("rest: %s %s: %w: %w", method, path, erp.ErrBackend, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := parseAPIError(resp)
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend error")
		return nil, err
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rest: read %s: %w", path, err)
	}
	return out, nil
}

// list GETs a table and decodes the rows into out.
func (c *Client) list(ctx context.Context, table string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("select", "*")
	b, err := c.do(ctx, http.MethodGet, "/"+table, query, nil, "")
	if err != nil {
		return err
	}
	return decode(b, out)
}

// insert POSTs one row.
func (c *Client) insert(ctx context.Context, table string, row any, prefer string) error {
	if prefer == "" {
		prefer = "return=minimal"
	}
	_, err := c.do(ctx, http.MethodPost, "/"+table, nil, row, prefer)
	return err
}

// mutate PATCHes or DELETEs the rows matching query and reports ErrNotFound
// when none matched.
func (c *Client) mutate(ctx context.Context, method, table string, query url.Values, body any, entity string) error {
	b, err := c.do(ctx, method, "/"+table, query, body, "return=representation")
	if err != nil {
		return err
	}
	if rows := gjson.ParseBytes(b); !rows.IsArray() || len(rows.Array()) == 0 {
		return fmt.Errorf("%s: %w", entity, erp.ErrNotFound)
	}
	return nil
}

func isNotFound(err error) bool { return errors.Is(err, erp.ErrNotFound) }

// rpc calls a database function and returns its JSON result.
func (c *Client) rpc(ctx context.Context, fn string, args any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/rpc/"+fn, nil, args, "")
}

func decode(b []byte, out any) error {
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("rest: decode: %w: %w", erp.ErrBackend, err)
	}
	return nil
}

func eq(v string) string { return "eq." + v }

// Ping checks that the API answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/silver_rates", url.Values{"select": {"id"}, "limit": {"1"}}, nil, "")
	return err
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
