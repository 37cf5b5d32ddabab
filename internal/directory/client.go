// Package directory talks to the bridge's HTTP API for the model list and
// per-model chat history summaries.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ollamachat/internal/logging"
	"ollamachat/internal/models"
)

const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request. The client passed to WithHTTPClient is
// never modified; the timeout applies to a copy of it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = logging.Component(l, "directory") }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

type modelsResponse struct {
	Models []models.ModelID `json:"models"`
}

type historiesResponse struct {
	Histories []models.HistorySummary `json:"histories"`
}

// ListModels returns the bridge's models, most recently listed first.
func (c *Client) ListModels(ctx context.Context) ([]models.ModelID, error) {
	var resp modelsResponse
	if err := c.getJSON(ctx, "/api/models", nil, &resp); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	ids := slices.Clone(resp.Models)
	slices.Reverse(ids)
	c.logger.Debug().Int("count", len(ids)).Msg("Models listed")
	return ids, nil
}

// ListHistories returns the chat history summaries stored for model.
func (c *Client) ListHistories(ctx context.Context, model models.ModelID) ([]models.HistorySummary, error) {
	q := url.Values{}
	q.Set("model", string(model))

	var resp historiesResponse
	if err := c.getJSON(ctx, "/api/chat_histories", q, &resp); err != nil {
		return nil, fmt.Errorf("list histories for %s: %w", model, err)
	}
	c.logger.Debug().Str("model", string(model)).Int("count", len(resp.Histories)).Msg("Histories listed")
	return resp.Histories, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
