// Package upstream talks to the business API behind the bots: catalog, auth,
// purchase history and the staff order endpoints.
//
// Every call goes through Client.Do, which composes the URL, attaches Basic
// credentials and a request id, decodes the JSON body and unwraps the
// {status, data} envelope. Typed methods then run the payload through the
// normalizer and classify failures with apperr.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/netutil"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/normalize"
)

const component = "upstream"

const (
	probePath  = "/test"
	apiPrefix  = "/api"
	maxBodyLen = 4 << 20

	errFormat     = "Ошибка формата данных"
	errConnection = "Ошибка соединения с сервером"
)

// Config holds the connection settings of the upstream API.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Observer receives one sample per finished call.
type Observer interface {
	ObserveUpstream(kind string, status int, took time.Duration)
}

// Client is safe for concurrent use.
type Client struct {
	base     string
	username string
	password string
	http     *http.Client
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver attaches a metrics sink.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New builds a client. Calls are never retried.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		base:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     netutil.BuildHTTPClient(netutil.ClientOptions{Timeout: cfg.Timeout, ResponseTimeout: cfg.Timeout}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a decoded upstream answer with the envelope removed.
type Response struct {
	Status int
	Data   any
	Kind   normalize.Kind
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Object returns Data as an object, or nil.
func (r Response) Object() map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}

// Field returns a top-level string field of Data.
func (r Response) Field(key string) string {
	if m := r.Object(); m != nil {
		if s, ok := m[key].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Has reports whether Data is an object carrying key.
func (r Response) Has(key string) bool {
	m := r.Object()
	if m == nil {
		return false
	}
	_, ok := m[key]
	return ok
}

// URL composes the request URL for path. The probe path bypasses the API
// prefix; any other path gets it unless it already carries it.
func (c *Client) URL(path string) string {
	if path == probePath {
		if strings.Contains(c.base, probePath) {
			return c.base
		}
		return c.base + probePath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if strings.HasPrefix(path, apiPrefix+"/") || path == apiPrefix {
		return c.base + path
	}
	return c.base + apiPrefix + path
}

// Do performs one request. A transport failure yields a synthetic 500
// response together with an Unavailable error; any HTTP answer, successful
// or not, is returned with a nil error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (Response, error) {
	kind := normalize.KindForPath(method, path)
	target := c.URL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	start := time.Now()

	req, err := c.newRequest(ctx, method, target, body)
	if err != nil {
		return Response{Status: apperr.UnavailableStatus, Kind: kind}, fmt.Errorf("upstream: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		took := time.Since(start)
		c.observe(kind, apperr.UnavailableStatus, took)
		logger.Error(ctx, component, "request.fail",
			slog.String("op", method+" "+path),
			slog.String("kind", string(kind)),
			slog.Int64("duration_ms", logger.RoundMS(took).Milliseconds()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return Response{
			Status: apperr.UnavailableStatus,
			Kind:   kind,
			Data:   map[string]any{"error": errConnection, "message": err.Error()},
		}, apperr.Unavailable(string(kind), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLen))
	if err != nil {
		c.observe(kind, apperr.UnavailableStatus, time.Since(start))
		return Response{
			Status: apperr.UnavailableStatus,
			Kind:   kind,
			Data:   map[string]any{"error": errConnection, "message": err.Error()},
		}, apperr.Unavailable(string(kind), err)
	}

	out := decodeResponse(resp.StatusCode, raw)
	out.Kind = kind
	took := time.Since(start)
	c.observe(kind, out.Status, took)

	level := logger.Debug
	if !out.OK() {
		level = logger.Warn
	}
	level(ctx, component, "request.done",
		slog.String("op", method+" "+path),
		slog.String("kind", string(kind)),
		slog.Int("http_code", out.Status),
		slog.Int64("duration_ms", logger.RoundMS(took).Milliseconds()),
	)
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)

	rid := logger.RIDFrom(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	req.Header.Set("X-Request-ID", rid)
	return req, nil
}

func (c *Client) observe(kind normalize.Kind, status int, took time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(string(kind), status, took)
	}
}

// decodeResponse applies the envelope rules: the HTTP status is
// authoritative unless it is 200 and the envelope carries a numeric non-2xx
// status.
func decodeResponse(httpStatus int, raw []byte) Response {
	out := Response{Status: httpStatus}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		out.Data = map[string]any{"error": errFormat, "message": string(raw)}
		return out
	}

	data, envStatus := unwrapEnvelope(body)
	out.Data = data
	if httpStatus == http.StatusOK && envStatus != 0 && (envStatus < 200 || envStatus > 299) {
		out.Status = envStatus
	}
	return out
}

func unwrapEnvelope(body any) (any, int) {
	m, ok := body.(map[string]any)
	if !ok {
		return body, 0
	}
	status, numeric := envelopeStatus(m["status"])
	if inner, hasData := m["data"]; hasData {
		if _, hasStatus := m["status"]; hasStatus {
			return inner, status
		}
	}
	if numeric {
		_, hasMsg := m["message"]
		_, hasErr := m["error"]
		if hasMsg || hasErr {
			return m, status
		}
	}
	return m, 0
}

func envelopeStatus(v any) (int, bool) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	case float64:
		n = int64(x)
	default:
		return 0, false
	}
	if n < 100 || n > 599 {
		return 0, false
	}
	return int(n), true
}

// rejected classifies a non-success answer, extracting the message from
// data.message, then data.error.
func rejected(op string, resp Response) error {
	msg := resp.Field("message")
	if msg == "" {
		msg = resp.Field("error")
	}
	return apperr.Rejected(op, resp.Status, msg)
}
