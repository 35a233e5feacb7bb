// Package moenv provides a client for the Taiwan Ministry of Environment
// open-data API.
package moenv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aqimap/aqimap/internal/aqi"
)

const (
	// DefaultBaseURL is the aqx_p_432 dataset endpoint (real-time AQI for
	// every monitoring station).
	DefaultBaseURL = "https://data.moenv.gov.tw/api/v2/aqx_p_432"

	// DefaultLimit is the number of records requested per fetch.
	DefaultLimit = 1000

	// DefaultTimeout bounds the single fetch attempt. The client never
	// retries a failed request.
	DefaultTimeout = 10 * time.Second
)

// ErrAPIFailure means the response envelope carried success=false.
var ErrAPIFailure = errors.New("upstream api reported failure")

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the MOENV client.
type ClientConfig struct {
	// BaseURL is the dataset endpoint (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is the open-data platform API key, sent as a query parameter.
	APIKey string

	// HTTPClient is the HTTP client to use. If nil, a plain client with
	// Timeout applied is created.
	HTTPClient HTTPDoer

	// Timeout for the fetch request (default: 10s). Ignored when
	// HTTPClient is set.
	Timeout time.Duration
}

// Client fetches raw station records from the open-data API. It is a dumb
// transport boundary: records come back exactly as published, and all
// validation is left to the rendering side.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

// NewClient creates a new MOENV client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// envelope is the decoded upstream response. The API answers with either a
// bare array of records or an object wrapping the records with a success
// flag; any third shape is rejected at decode time.
type envelope struct {
	Records []aqi.StationRecord
	Success bool
	Message string
}

func (e *envelope) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return errors.New("empty response body")
	}

	switch trimmed[0] {
	case '[':
		e.Success = true
		return json.Unmarshal(data, &e.Records)
	case '{':
		var wrapped struct {
			Success bool                `json:"success"`
			Records []aqi.StationRecord `json:"records"`
			Message string              `json:"message"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		e.Success = wrapped.Success
		e.Records = wrapped.Records
		e.Message = wrapped.Message
		return nil
	default:
		return fmt.Errorf("unexpected response shape starting with %q", rune(trimmed[0]))
	}
}

// FetchRecords performs one GET against the dataset endpoint and returns
// the accepted record sequence. Transport failures, non-200 statuses,
// undecodable bodies, and a false success flag all surface as errors with
// no records and no retry.
func (c *Client) FetchRecords(ctx context.Context, limit int) ([]aqi.StationRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "ImportDate")
	q.Set("order", "desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch station records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from dataset endpoint", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !env.Success {
		if env.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrAPIFailure, env.Message)
		}
		return nil, ErrAPIFailure
	}

	return env.Records, nil
}

// Close releases idle connections held by the underlying transport. The
// connection lifecycle is one fetch-and-close cycle per run, regardless of
// outcome.
func (c *Client) Close() {
	if closer, ok := c.httpClient.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}
