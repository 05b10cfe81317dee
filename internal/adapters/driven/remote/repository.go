package remote

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

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Repository[domain.Item] = (*Repository[domain.Item])(nil)

const maxErrorBody = 1024

// TokenSource mints bearer tokens for outgoing requests.
type TokenSource interface {
	Sign(subject, audience string) (string, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Unwrap maps 404 onto domain.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

// Repository is the online repository for one REST resource:
//
//	GET    {base}/{resource}
//	GET    {base}/{resource}/{id}
//	PUT    {base}/{resource}/{id}
//	DELETE {base}/{resource}/{id}
type Repository[T domain.Entity] struct {
	base     *url.URL
	resource string
	client   *http.Client
	tokens   TokenSource
	subject  string
	audience string
}

// Config holds configuration for Repository.
type Config struct {
	BaseURL  string
	Resource string       // Path segment, e.g. "items"
	Client   *http.Client // Defaults to a client with a 15s timeout
	Tokens   TokenSource  // Optional: requests are unauthenticated without it
	Subject  string       // Token subject (default: "inventory-sync")
	Audience string       // Token audience (default: the backend host)
}

// NewRepository creates an HTTP-backed online repository.
func NewRepository[T domain.Entity](cfg Config) (*Repository[T], error) {
	if cfg.BaseURL == "" || cfg.Resource == "" {
		return nil, fmt.Errorf("%w: base url and resource are required", domain.ErrInvalidInput)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse base url: %v", domain.ErrInvalidInput, err)
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "inventory-sync"
	}
	audience := cfg.Audience
	if audience == "" {
		audience = base.Host
	}

	return &Repository[T]{
		base:     base,
		resource: strings.Trim(cfg.Resource, "/"),
		client:   client,
		tokens:   cfg.Tokens,
		subject:  subject,
		audience: audience,
	}, nil
}

// FetchAll lists the resource.
func (r *Repository[T]) FetchAll(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.do(ctx, http.MethodGet, r.collectionURL(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Fetch gets one entity; a 404 matches domain.ErrNotFound.
func (r *Repository[T]) Fetch(ctx context.Context, id string) (T, error) {
	var item T
	if err := r.do(ctx, http.MethodGet, r.itemURL(id), nil, &item); err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

// Save upserts an entity with PUT.
func (r *Repository[T]) Save(ctx context.Context, item T) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", item.EntityID(), err)
	}
	return r.do(ctx, http.MethodPut, r.itemURL(item.EntityID()), body, nil)
}

// Delete removes an entity; a 404 matches domain.ErrNotFound.
func (r *Repository[T]) Delete(ctx context.Context, item T) error {
	return r.do(ctx, http.MethodDelete, r.itemURL(item.EntityID()), nil, nil)
}

func (r *Repository[T]) collectionURL() string {
	return r.base.JoinPath(r.resource).String()
}

func (r *Repository[T]) itemURL(id string) string {
	return r.collectionURL() + "/" + url.PathEscape(id)
}

func (r *Repository[T]) do(ctx context.Context, method, target string, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.tokens != nil {
		token, err := r.tokens.Sign(r.subject, r.audience)
		if err != nil {
			return fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: method,
			URL:    target,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
		}
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, target, err)
	}
	return nil
}
