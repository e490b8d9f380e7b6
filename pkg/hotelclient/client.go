// Package hotelclient is the Go client of the hotel reservation API: the storefront booking
// flow, guest lookups and the staff console.
package hotelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 20 * time.Second

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Tokens supplies the customer bearer token. Nil means anonymous calls.
	Tokens TokenStore
}

func New(baseURL string, tokens TokenStore) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		Tokens:     tokens,
	}
}

type call struct {
	method  string
	path    string
	query   url.Values
	headers map[string]string
	body    any
	out     any
}

// do sends one JSON request. It never retries. Non-2xx answers come back as *Error.
func (c *Client) do(ctx context.Context, in call) (*http.Response, error) {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	var buf bytes.Buffer
	if in.body != nil {
		if err := json.NewEncoder(&buf).Encode(in.body); err != nil {
			return nil, &Error{Kind: KindValidation, Code: "ENCODE_FAILED", Message: err.Error()}
		}
	}

	u := strings.TrimRight(c.BaseURL, "/") + in.path
	if len(in.query) > 0 {
		u += "?" + in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, u, &buf)
	if err != nil {
		return nil, networkError(err)
	}
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Tokens != nil {
		if tok := c.Tokens.Get(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, v := range in.headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, b)
		if apiErr.Kind == KindUnauthorized && c.Tokens != nil {
			c.Tokens.Clear()
		}
		return resp, apiErr
	}

	if in.out != nil && len(b) > 0 {
		if err := json.Unmarshal(b, in.out); err != nil {
			return resp, &Error{Kind: KindNetwork, Code: "DECODE_FAILED", Status: resp.StatusCode,
				Message: fmt.Sprintf("unexpected response body: %v", err)}
		}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, query: query, out: out})
	return err
}

type items[T any] struct {
	Items []T `json:"items"`
}
