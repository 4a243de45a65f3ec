package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jsonpdb/internal/shared"
)

// ErrUnauthorized matches a StatusError for a rejected update.
var ErrUnauthorized = errors.New("modification-key rejected")

// StatusError is a non-200 answer from the server.
type StatusError struct {
	Code      int
	Message   string
	RequestID string
}

func (e *StatusError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("jsonpdb: %s (request %s)", e.Message, e.RequestID)
	}
	return "jsonpdb: " + e.Message
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Get returns the stored value, or found=false when the key was never written.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(key), "")
	if err != nil {
		return "", false, err
	}
	if body == shared.Undefined {
		return "", false, nil
	}
	return body, true, nil
}

// Put stores value under key and returns the modification key handed back
// by the server ("" when the server does not guard updates).
func (c *Client) Put(ctx context.Context, key, value, modKey string) (string, error) {
	if value == "" {
		return "", errors.New("jsonpdb: empty value cannot be stored")
	}
	form := url.QueryEscape(value)
	if modKey != "" {
		form += "&" + shared.ParamModificationKey + "=" + url.QueryEscape(modKey)
	}
	body, err := c.do(ctx, http.MethodPost, "/"+url.PathEscape(key), form)
	if err != nil {
		return "", err
	}
	return parseWriteReply(value, body)
}

func (c *Client) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, shared.ListByPrefixPath+url.PathEscape(prefix), "")
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal([]byte(body), &keys); err != nil {
		return nil, fmt.Errorf("jsonpdb: decode key list: %w", err)
	}
	return keys, nil
}

func (c *Client) do(ctx context.Context, method, path, form string) (string, error) {
	var rd io.Reader
	if form != "" {
		rd = strings.NewReader(form)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return "", err
	}
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{
			Code:      resp.StatusCode,
			Message:   errorMessage(string(b)),
			RequestID: resp.Header.Get(shared.HeaderRequestID),
		}
	}
	return string(b), nil
}

// parseWriteReply accepts either the bare value or "[<value>, "<token>"]".
func parseWriteReply(value, body string) (string, error) {
	if body == value {
		return "", nil
	}
	head := "[" + value + ", "
	if !strings.HasPrefix(body, head) || !strings.HasSuffix(body, "]") {
		return "", fmt.Errorf("jsonpdb: unexpected write reply %q", body)
	}
	var token string
	if err := json.Unmarshal([]byte(body[len(head):len(body)-1]), &token); err != nil {
		return "", fmt.Errorf("jsonpdb: decode modification-key: %w", err)
	}
	return token, nil
}

// errorMessage pulls the text out of the HTML error page.
func errorMessage(page string) string {
	start := strings.Index(page, "<pre>")
	end := strings.LastIndex(page, "</pre>")
	if start < 0 || end <= start {
		return strings.TrimSpace(page)
	}
	return strings.TrimSpace(html.UnescapeString(page[start+len("<pre>") : end]))
}
