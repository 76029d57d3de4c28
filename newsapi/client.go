package newsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/apperr"
	"github.com/goliatone/go-query-cache/pagination"
)

var _ API = (*Client)(nil)

const defaultTimeout = 10 * time.Second

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:8080.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Timeout bounds every request. Defaults to 10s.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Client calls the news API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource attaches a bearer token to every request when one is
// available.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "newsapi").Logger()
	}
}

// NewClient builds a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// springPage is the Spring Data page envelope.
type springPage struct {
	Content       []Article `json:"content"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
}

// ListNews fetches one page of articles.
func (c *Client) ListNews(ctx context.Context, params ListParams) (pagination.Page[Article], error) {
	if err := params.Validate(); err != nil {
		return pagination.Page[Article]{}, err
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("size", strconv.Itoa(params.Size))
	if params.Status != "" {
		q.Set("status", params.Status)
	}

	var page springPage
	if err := c.do(ctx, http.MethodGet, "/api/news?"+q.Encode(), nil, &page); err != nil {
		return pagination.Page[Article]{}, err
	}

	return pagination.Page[Article]{
		Window: pagination.Window{
			PageIndex:     page.Number,
			PageSize:      page.Size,
			TotalElements: page.TotalElements,
			TotalPages:    page.TotalPages,
		},
		Content: page.Content,
	}, nil
}

// GetNewsByID fetches a single article.
func (c *Client) GetNewsByID(ctx context.Context, id int64) (Article, error) {
	var article Article
	err := c.do(ctx, http.MethodGet, "/api/news/"+strconv.FormatInt(id, 10), nil, &article)
	return article, err
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	if err := creds.Validate(); err != nil {
		return AuthResponse{}, err
	}
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &resp)
	return resp, err
}

// errorBody is the error envelope returned by the API.
type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("newsapi: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("newsapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return apperr.Transport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Transport(fmt.Errorf("read response body: %w", err))
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		e := apperr.Application(resp.StatusCode, "")
		e.Code = apperr.CodeServer
		e.Cause = fmt.Errorf("decode response: %w", err)
		return e
	}
	return nil
}

// classify maps a non-2xx response to an application error carrying the
// server's message when the body has one.
func classify(status int, body []byte) error {
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) != nil {
		eb.Message = ""
	}
	return apperr.Application(status, strings.TrimSpace(eb.Message))
}
