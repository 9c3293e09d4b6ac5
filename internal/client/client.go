// Package client es el cliente de referencia de la API de usuarios: CRUD, export
// binario y verificación de integridad del lado del lector.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	dto "github.com/dropDatabas3/adminpanel/internal/http/dto/users"
)

const (
	headerAdminKey  = "X-Admin-API-Key"
	headerPublicKey = "X-Public-Key"

	defaultTimeout     = 30 * time.Second
	maxErrorBodyBytes  = 64 << 10
	defaultConcurrency = 8
)

// APIError es una respuesta no 2xx. Code/Message/Detail vienen del cuerpo JSON
// del servidor cuando lo hay.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reporta si err es un 404 de la API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL     string
	http        *http.Client
	adminKey    string
	concurrency int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAdminKey manda X-Admin-API-Key en cada request.
func WithAdminKey(key string) Option {
	return func(c *Client) { c.adminKey = key }
}

// WithConcurrency acota cuántos registros se verifican en paralelo.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New crea un cliente contra baseURL (ej: http://localhost:3001).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListParams son los filtros de GET /api/users. Valores cero no se envían.
type ListParams struct {
	Page         int
	Limit        int
	Search       string
	SortBy       string
	SortOrder    string
	FilterRole   string
	FilterStatus string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("search", p.Search)
	set("sortBy", p.SortBy)
	set("sortOrder", p.SortOrder)
	set("filterRole", p.FilterRole)
	set("filterStatus", p.FilterStatus)
	return v
}

func (c *Client) List(ctx context.Context, p ListParams) (*dto.ListUsersResponse, error) {
	var out dto.ListUsersResponse
	path := "/api/users"
	if q := p.values().Encode(); q != "" {
		path += "?" + q
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*dto.User, error) {
	var out dto.GetUserResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Create(ctx context.Context, req dto.CreateUserRequest) (*dto.User, error) {
	var out dto.CreateUserResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/users", req, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Update devuelve la respuesta completa: incluye la clave pública con la que se re-firmó.
func (c *Client) Update(ctx context.Context, id string, req dto.UpdateUserRequest) (*dto.UpdateUserResponse, error) {
	var out dto.UpdateUserResponse
	if err := c.doJSON(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil, nil)
}

// FetchPublicKey trae el PEM de GET /api/users/public-key.
func (c *Client) FetchPublicKey(ctx context.Context) (string, error) {
	var out dto.PublicKeyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/public-key", nil, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.PublicKey) == "" {
		return "", errors.New("client: empty public key")
	}
	return out.PublicKey, nil
}

// ---- transporte ----

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set(headerAdminKey, c.adminKey)
	}
	return req, nil
}

// do ejecuta el request y convierte cualquier status no 2xx en *APIError.
// El caller cierra el body cuando err == nil.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = json.Unmarshal(b, apiErr)
	apiErr.StatusCode = resp.StatusCode
	return nil, apiErr
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}
