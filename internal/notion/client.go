// Package notion implements links.Fetcher against the Notion database query API.
package notion

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

	"go.uber.org/zap"

	"github.com/JakeFAU/linkboard/internal/links"
	"github.com/JakeFAU/linkboard/internal/metrics"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultBaseURL        = "https://api.notion.com"
	DefaultAPIVersion     = "2022-06-28"
	DefaultFilterProperty = "Show"
	DefaultPageSize       = 100
)

var (
	// ErrUpstream reports an unreachable upstream or an unusable response.
	ErrUpstream = errors.New("notion upstream error")
	// ErrDecode reports a response body that does not match the expected schema.
	ErrDecode = errors.New("notion decode error")
)

// Limiter paces outbound requests. *ratelimit.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Options configures the query client.
type Options struct {
	BaseURL        string
	Token          string
	DatabaseID     string
	APIVersion     string
	FilterProperty string
	PageSize       int
	UserAgent      string
	HTTPClient     *http.Client
	// Limiter is consulted before every page request. Nil means no pacing.
	Limiter Limiter
	Logger  *zap.Logger
}

// Client pages through a database query. It never retries: the first failed
// page aborts the whole fetch.
type Client struct {
	baseURL        string
	token          string
	databaseID     string
	apiVersion     string
	filterProperty string
	pageSize       int
	userAgent      string
	httpClient     *http.Client
	limiter        Limiter
	logger         *zap.Logger
}

// NewClient validates opts and fills in defaults.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, fmt.Errorf("notion token is required")
	}
	databaseID := strings.TrimSpace(opts.DatabaseID)
	if databaseID == "" {
		return nil, fmt.Errorf("notion database id is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	filterProperty := strings.TrimSpace(opts.FilterProperty)
	if filterProperty == "" {
		filterProperty = DefaultFilterProperty
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:        baseURL,
		token:          token,
		databaseID:     databaseID,
		apiVersion:     apiVersion,
		filterProperty: filterProperty,
		pageSize:       pageSize,
		userAgent:      strings.TrimSpace(opts.UserAgent),
		httpClient:     httpClient,
		limiter:        opts.Limiter,
		logger:         logger,
	}, nil
}

type queryRequest struct {
	Filter      queryFilter `json:"filter"`
	PageSize    int         `json:"page_size"`
	StartCursor string      `json:"start_cursor,omitempty"`
}

type queryFilter struct {
	Property string         `json:"property"`
	Checkbox checkboxFilter `json:"checkbox"`
}

type checkboxFilter struct {
	Equals bool `json:"equals"`
}

type queryResponse struct {
	Results    []links.Record `json:"results"`
	HasMore    bool           `json:"has_more"`
	NextCursor *string        `json:"next_cursor"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FetchAll returns the visible records of every page, in response order.
func (c *Client) FetchAll(ctx context.Context) ([]links.Record, error) {
	var (
		results []links.Record
		cursor  string
	)
	for page := 1; ; page++ {
		resp, err := c.queryPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("query page %d: %w", page, err)
		}
		metrics.ObserveUpstreamPage()
		results = append(results, resp.Results...)
		c.logger.Debug("fetched page",
			zap.Int("page", page),
			zap.Int("results", len(resp.Results)),
			zap.Bool("has_more", resp.HasMore),
		)
		if !resp.HasMore {
			break
		}
		if resp.NextCursor == nil || *resp.NextCursor == "" {
			return nil, fmt.Errorf("%w: page %d reports more results without a cursor", ErrUpstream, page)
		}
		cursor = *resp.NextCursor
	}
	return results, nil
}

func (c *Client) queryPage(ctx context.Context, cursor string) (queryResponse, error) {
	body, err := json.Marshal(queryRequest{
		Filter: queryFilter{
			Property: c.filterProperty,
			Checkbox: checkboxFilter{Equals: true},
		},
		PageSize:    c.pageSize,
		StartCursor: cursor,
	})
	if err != nil {
		return queryResponse{}, fmt.Errorf("marshal query: %w", err)
	}
	endpoint := c.baseURL + "/v1/databases/" + url.PathEscape(c.databaseID) + "/query"
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return queryResponse{}, fmt.Errorf("%w: %w", ErrUpstream, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return queryResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.apiVersion)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return queryResponse{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		c.logger.Warn("close response body failed", zap.Error(closeErr))
	}
	if readErr != nil {
		return queryResponse{}, fmt.Errorf("%w: read body: %w", ErrUpstream, readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return queryResponse{}, statusError(resp.StatusCode, respBody)
	}

	var page queryResponse
	if err := json.Unmarshal(respBody, &page); err != nil {
		return queryResponse{}, fmt.Errorf("%w: %w: %w", ErrUpstream, ErrDecode, err)
	}
	return page, nil
}

func statusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var parsed apiError
	if json.Unmarshal(body, &parsed) == nil {
		if strings.TrimSpace(parsed.Message) != "" {
			message = parsed.Message
		}
		if parsed.Code != "" {
			return fmt.Errorf("%w: status=%d code=%s message=%s", ErrUpstream, status, parsed.Code, message)
		}
	}
	return fmt.Errorf("%w: status=%d message=%s", ErrUpstream, status, message)
}
