package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PromAPIConfig configures the remote time-series query client.
type PromAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PromAPI issues instant queries against a Prometheus-compatible HTTP
// query API and returns vector results.
type PromAPI struct {
	baseURL    string
	httpClient *http.Client
}

// NewPromAPI builds the client. The base URL must be non-empty.
func NewPromAPI(cfg PromAPIConfig) (*PromAPI, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parsing prometheus base URL %q: %w", cfg.BaseURL, err)
	}

	d := &net.Dialer{Timeout: cfg.Timeout}
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			DialContext:         d.DialContext,
			TLSHandshakeTimeout: cfg.Timeout,
		},
	}

	return &PromAPI{baseURL: cfg.BaseURL, httpClient: client}, nil
}

// VectorSample is one (labelset, scalar) result of an instant query.
type VectorSample struct {
	Labels map[string]string
	Value  float64
}

type apiResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []any             `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// QueryVector evaluates expr via GET /api/v1/query.
func (c *PromAPI) QueryVector(ctx context.Context, expr string) ([]VectorSample, error) {
	reqURL := fmt.Sprintf("%s/api/v1/query?query=%s", c.baseURL, url.QueryEscape(expr))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, classify(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query returned HTTP %d: %w", resp.StatusCode, ErrQuery)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", ErrQuery)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("query failed: %s: %w", parsed.Error, ErrQuery)
	}
	if parsed.Data.ResultType != "vector" {
		return nil, fmt.Errorf("unexpected result type %q: %w", parsed.Data.ResultType, ErrQuery)
	}

	samples := make([]VectorSample, 0, len(parsed.Data.Result))
	for _, r := range parsed.Data.Result {
		// Instant vector values are [unix_ts, "value"] pairs.
		if len(r.Value) != 2 {
			return nil, fmt.Errorf("malformed vector value: %w", ErrQuery)
		}
		raw, ok := r.Value[1].(string)
		if !ok {
			return nil, fmt.Errorf("malformed vector value: %w", ErrQuery)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing vector value %q: %w", raw, ErrQuery)
		}
		samples = append(samples, VectorSample{Labels: r.Metric, Value: v})
	}
	return samples, nil
}
