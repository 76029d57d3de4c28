// Package newsapi is the client side of the news portal REST API.
//
// Client talks HTTP; CachedAPI decorates any API with a TTL cache for article
// detail reads. Listing and login calls always reach the server, listings
// being cached per page by the query cache instead.
package newsapi

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-query-cache/apperr"
	"github.com/goliatone/go-query-cache/pagination"
)

// Publication statuses accepted by the listing endpoint.
const (
	StatusPublished = "PUBLISHED"
	StatusDraft     = "DRAFT"
	StatusArchived  = "ARCHIVED"
)

// Article is a news item as returned by the API.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Author      string    `json:"author,omitempty"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

// ListFilters are the listing filters that take part in the page cache key.
type ListFilters struct {
	Status string
}

// ListParams selects one page of the listing.
type ListParams struct {
	Page   int
	Size   int
	Status string
}

// Validate rejects impossible page requests before they reach the network.
func (p ListParams) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Page, validation.Min(0)),
		validation.Field(&p.Size, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&p.Status, validation.In(StatusPublished, StatusDraft, StatusArchived)),
	)
	if err != nil {
		return apperr.Validation(err.Error(), err)
	}
	return nil
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate requires both fields.
func (c Credentials) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
	if err != nil {
		return apperr.Validation(err.Error(), err)
	}
	return nil
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token    string   `json:"token"`
	Type     string   `json:"type,omitempty"`
	ID       int64    `json:"id,omitempty"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// API is the set of remote operations the portal consumes.
type API interface {
	ListNews(ctx context.Context, params ListParams) (pagination.Page[Article], error)
	GetNewsByID(ctx context.Context, id int64) (Article, error)
	Login(ctx context.Context, creds Credentials) (AuthResponse, error)
}

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}
