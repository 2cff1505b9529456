// Package peer holds the HTTP clients a service uses to interrogate its
// peers: existence checks against sibling record services and authorization
// decisions against the identity service. Both are total over their result
// types; transport failures become values, never panics into the saga.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Status classifies one peer existence answer.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusUnavailable
)

// Result is the outcome of one peer call.
type Result struct {
	Status Status
	Err    error
}

// Found reports a confirmed dependency.
func Found() Result { return Result{Status: StatusFound} }

// NotFound reports a confirmed absence.
func NotFound() Result { return Result{Status: StatusNotFound} }

// Unavailable reports that the peer could not answer.
func Unavailable(err error) Result { return Result{Status: StatusUnavailable, Err: err} }

// Endpoint describes one peer exist endpoint. NotFoundStatus carries the
// status the peer actually replies with for absence; most answer 404 but
// some legacy endpoints reply 204.
type Endpoint struct {
	Path           string
	NotFoundStatus int
}

const defaultTimeout = 5 * time.Second

// Client asks one peer service whether entities exist.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client for the peer at baseURL. A non-positive timeout
// falls back to a finite default; existence checks must never hang a saga.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Exists posts the natural-key fields to the peer's exist endpoint,
// forwarding the caller's credential unchanged. A 200 is Found, the
// endpoint's configured not-found status is NotFound, anything else
// (including transport failure) is Unavailable.
func (c *Client) Exists(ctx context.Context, token string, ep Endpoint, key map[string]string) Result {
	body, err := json.Marshal(key)
	if err != nil {
		return Unavailable(fmt.Errorf("encode natural key: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+ep.Path, bytes.NewReader(body))
	if err != nil {
		return Unavailable(fmt.Errorf("build peer request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Unavailable(fmt.Errorf("peer %s unreachable: %w", ep.Path, err))
	}
	defer resp.Body.Close()

	notFound := ep.NotFoundStatus
	if notFound == 0 {
		notFound = http.StatusNotFound
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return Found()
	case notFound:
		return NotFound()
	default:
		return Unavailable(fmt.Errorf("peer %s returned status %d", ep.Path, resp.StatusCode))
	}
}
