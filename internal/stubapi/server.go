// Package stubapi is an in-process fake of the news portal API used by tests
// and the example program. It speaks the same JSON as the real backend:
// Spring style pages for listings, HS256 JWTs for logins and
// {"message": ...} bodies for errors.
package stubapi

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/goliatone/go-query-cache/newsapi"
	"github.com/goliatone/go-query-cache/session"
)

// Messages returned in error bodies.
const (
	MsgInvalidCredentials = "Credenciales inválidas"
	MsgNewsNotFound       = "Noticia no encontrada"
	MsgUnauthorized       = "No autorizado"
)

const defaultPageSize = 10

// User is a login the stub accepts.
type User struct {
	ID       int64
	Username string
	Password string
	Email    string
	Roles    []string
}

// Server is the fake API.
type Server struct {
	echo   *echo.Echo
	secret []byte
	ttl    time.Duration

	mu       sync.RWMutex
	articles []newsapi.Article
	users    map[string]User

	listCalls   atomic.Int64
	detailCalls atomic.Int64
	loginCalls  atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithArticles replaces the seeded articles.
func WithArticles(articles []newsapi.Article) Option {
	return func(s *Server) {
		s.articles = slices.Clone(articles)
	}
}

// WithUser adds an accepted login.
func WithUser(u User) Option {
	return func(s *Server) {
		s.users[u.Username] = u
	}
}

// WithSecret sets the HS256 signing key.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// New builds a server seeded with 25 published articles and an admin user.
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte("stub-secret"),
		ttl:      time.Hour,
		articles: SeedArticles(25, newsapi.StatusPublished),
		users: map[string]User{
			"admin": {ID: 1, Username: "admin", Password: "admin123", Email: "admin@newsportal.local", Roles: []string{"ADMIN"}},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.GET("/api/news", s.listNews)
	e.GET("/api/news/:id", s.getNews)
	e.POST("/api/auth/login", s.login)
	e.GET("/api/auth/me", s.me, s.requireToken)

	s.echo = e
	return s
}

// SeedArticles generates n articles with the given status, newest first.
func SeedArticles(n int, status string) []newsapi.Article {
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	out := make([]newsapi.Article, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, newsapi.Article{
			ID:          int64(i),
			Title:       fmt.Sprintf("Noticia %d", i),
			Summary:     fmt.Sprintf("Resumen de la noticia %d", i),
			Content:     fmt.Sprintf("Contenido completo de la noticia %d", i),
			Author:      "redaccion",
			Status:      status,
			Tags:        []string{"general"},
			PublishedAt: base.Add(time.Duration(n-i) * time.Hour),
		})
	}
	return out
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ListCalls returns how many listing requests were served.
func (s *Server) ListCalls() int64 { return s.listCalls.Load() }

// DetailCalls returns how many detail requests were served.
func (s *Server) DetailCalls() int64 { return s.detailCalls.Load() }

// LoginCalls returns how many login requests were served.
func (s *Server) LoginCalls() int64 { return s.loginCalls.Load() }

type pageResponse struct {
	Content       []newsapi.Article `json:"content"`
	TotalElements int               `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
	Number        int               `json:"number"`
	Size          int               `json:"size"`
	First         bool              `json:"first"`
	Last          bool              `json:"last"`
	Empty         bool              `json:"empty"`
}

func (s *Server) listNews(c echo.Context) error {
	s.listCalls.Add(1)

	page, err := intParam(c, "page", 0)
	if err != nil || page < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be a non-negative integer")
	}
	size, err := intParam(c, "size", defaultPageSize)
	if err != nil || size < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "size must be a positive integer")
	}
	status := strings.ToUpper(c.QueryParam("status"))
	if status == "" {
		status = newsapi.StatusPublished
	}

	s.mu.RLock()
	var matching []newsapi.Article
	for _, a := range s.articles {
		if a.Status == status {
			matching = append(matching, a)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matching, func(a, b newsapi.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	total := len(matching)
	totalPages := (total + size - 1) / size
	start := min(page*size, total)
	end := min(start+size, total)
	content := matching[start:end]
	if content == nil {
		content = []newsapi.Article{}
	}

	return c.JSON(http.StatusOK, pageResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        page,
		Size:          size,
		First:         page == 0,
		Last:          page >= totalPages-1,
		Empty:         len(content) == 0,
	})
}

func (s *Server) getNews(c echo.Context) error {
	s.detailCalls.Add(1)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be numeric")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if a.ID == id {
			return c.JSON(http.StatusOK, a)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, MsgNewsNotFound)
}

func (s *Server) login(c echo.Context) error {
	s.loginCalls.Add(1)

	var creds newsapi.Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}

	s.mu.RLock()
	u, ok := s.users[creds.Username]
	s.mu.RUnlock()
	if !ok || u.Password != creds.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidCredentials)
	}

	token, err := s.issue(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newsapi.AuthResponse{
		Token:    token,
		Type:     "Bearer",
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.Roles,
	})
}

func (s *Server) me(c echo.Context) error {
	claims := c.Get("claims").(*session.Claims)
	return c.JSON(http.StatusOK, map[string]any{
		"id":       claims.UserID,
		"username": claims.Subject,
		"roles":    claims.Roles,
	})
}

func (s *Server) issue(u User) (string, error) {
	now := time.Now()
	claims := session.Claims{
		UserID: u.ID,
		Roles:  u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// requireToken verifies the bearer token and stores its claims under
// "claims".
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, MsgUnauthorized)
		}

		claims := &session.Claims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, MsgUnauthorized)
		}

		c.Set("claims", claims)
		return next(c)
	}
}

// errorHandler renders every error as {"message": ...}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	_ = c.JSON(code, map[string]string{"message": msg})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
