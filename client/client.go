// Package client is a typed HTTP client for the POS API, used by the view
// controllers and the catalog wizard.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "http://localhost:8080"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Message string
	// Body is the raw response, kept so callers can decode extra fields
	// such as the current record on a conflict.
	Body []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for baseURL; an empty baseURL uses POS_API_URL, then
// DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("POS_API_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends body as JSON and decodes a 2xx response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, headers map[string]string) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Body: raw, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			if payload.Reason != "" {
				apiErr.Message += ": " + payload.Reason
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &resp, nil); err != nil {
		return "", err
	}
	c.SetToken(resp.Token)
	return resp.Token, nil
}
