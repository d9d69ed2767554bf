package forecastapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
)

// Client is the single outbound path to the forecast service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options describe one request. A non-nil JSON value is encoded as the
// request body and defaults Method to POST; otherwise Method defaults to GET.
type Options struct {
	Method string
	JSON   any
	Header http.Header
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// BaseURL returns the resolved service address.
func (c *Client) BaseURL() string { return c.baseURL }

// Send issues a request to endpoint and decodes the response by content type.
// Every non-2xx status or network failure is returned as a *TransportError.
func (c *Client) Send(ctx context.Context, endpoint string, opts Options) (Body, error) {
	req, err := c.newRequest(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, "unreachable").Inc()
		c.logger.Warn("forecast service unreachable", "endpoint", endpoint, "error", err)
		return nil, &TransportError{
			Message:  fmt.Sprintf("unable to reach forecast service: %v", err),
			Endpoint: endpoint,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, "decode_error").Inc()
		return nil, &TransportError{
			Message:  fmt.Sprintf("read response: %v", err),
			Status:   resp.StatusCode,
			Endpoint: endpoint,
			Err:      err,
		}
	}

	kind := classify(resp.Header.Get("Content-Type"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.APIRequests.WithLabelValues(endpoint, "http_error").Inc()
		msg := errorMessage(kind, data, resp.StatusCode)
		c.logger.Warn("forecast service error", "endpoint", endpoint, "status", resp.StatusCode, "error", msg)
		return nil, &TransportError{Message: msg, Status: resp.StatusCode, Endpoint: endpoint}
	}

	body, err := decodeBody(kind, data, resp.Header)
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, "decode_error").Inc()
		return nil, &TransportError{Message: err.Error(), Status: resp.StatusCode, Endpoint: endpoint, Err: err}
	}

	c.metrics.APIRequests.WithLabelValues(endpoint, "success").Inc()
	c.logger.Debug("forecast service response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(data))
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, opts Options) (*http.Request, error) {
	method := opts.Method
	var body io.Reader
	if opts.JSON != nil {
		payload, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
		if method == "" {
			method = http.MethodPost
		}
	}
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(endpoint, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", MediaTypeJSON)
	}
	return req, nil
}

func decodeBody(kind bodyKind, data []byte, header http.Header) (Body, error) {
	switch kind {
	case kindJSON:
		if !json.Valid(data) {
			return nil, errors.New("decode response: invalid JSON document")
		}
		return JSONBody{Raw: json.RawMessage(data)}, nil
	case kindBinary:
		return BinaryBody{Data: data, Header: header.Clone()}, nil
	default:
		return TextBody{Text: string(data)}, nil
	}
}
