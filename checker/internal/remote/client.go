// Package remote talks to the library data services: owned games,
// wishlist, aliases, the store app list and the page selector
// configuration. Every call is a single request; there is no retry.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/steamcheck/checker/internal/selectors"
)

// DefaultBaseURL is the production location of the services.
const DefaultBaseURL = "https://www.foxslash.com/apps/steamchecker"

// ErrRemoteMessage marks a response in which the service declared a failure
// through a "message" field instead of returning data.
var ErrRemoteMessage = errors.New("remote: service message")

// maxBody caps response reads; the app list is the largest payload.
const maxBody = 64 << 20

// Client performs the remote calls.
type Client struct {
	base   string
	client *http.Client
	ua     string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.ua = ua }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the services rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     "steamcheck/1.0",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OwnedGames fetches the games owned by id. The service answers either the
// bare payload or one wrapped under "response".
func (c *Client) OwnedGames(ctx context.Context, id Identity) (*OwnedGames, error) {
	q := url.Values{"steamid": {id.SteamID}}
	if id.ID64 {
		q.Set("id64", "1")
	}

	var resp struct {
		OwnedGames
		Response *OwnedGames `json:"response"`
		Message  string      `json:"message"`
	}
	if err := c.getJSON(ctx, "/owned/", q, &resp); err != nil {
		return nil, err
	}
	if resp.Message != "" {
		return nil, fmt.Errorf("remote: owned: %w: %s", ErrRemoteMessage, resp.Message)
	}
	if resp.Response != nil {
		return resp.Response, nil
	}
	if resp.Games == nil {
		return nil, fmt.Errorf("remote: owned: no steam games fetched")
	}
	return &resp.OwnedGames, nil
}

// Wishlist fetches the app ids on id's wishlist, in service order.
func (c *Client) Wishlist(ctx context.Context, id Identity) ([]string, error) {
	kind := "id"
	if id.ID64 {
		kind = "id64"
	}
	q := url.Values{"id": {id.SteamID}, "type": {kind}}

	var resp struct {
		Wishlist []appID `json:"wishlist"`
		Message  string  `json:"message"`
	}
	if err := c.getJSON(ctx, "/wishlist/", q, &resp); err != nil {
		return nil, err
	}
	if resp.Message != "" {
		return nil, fmt.Errorf("remote: wishlist: %w: %s", ErrRemoteMessage, resp.Message)
	}

	ids := make([]string, len(resp.Wishlist))
	for i, a := range resp.Wishlist {
		ids[i] = string(a)
	}
	return ids, nil
}

// Aliases fetches the alias map.
func (c *Client) Aliases(ctx context.Context, req AliasRequest) (AliasMap, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("remote: aliases: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/aliases/", nil, body)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("remote: aliases: decode: %w", err)
	}
	if msg, ok := raw["message"]; ok {
		var s string
		if json.Unmarshal(msg, &s) == nil {
			return nil, fmt.Errorf("remote: aliases: %w: %s", ErrRemoteMessage, s)
		}
	}

	out := make(AliasMap, len(raw))
	for id, v := range raw {
		var names []string
		if err := json.Unmarshal(v, &names); err != nil {
			c.logger.Warn("remote: skipping malformed alias entry", "appid", id, "error", err)
			continue
		}
		out[id] = names
	}
	return out, nil
}

// AppList fetches the store-wide app list used to name wishlist ids.
func (c *Client) AppList(ctx context.Context) ([]App, error) {
	var resp struct {
		AppList struct {
			Apps []App `json:"apps"`
		} `json:"applist"`
		Message string `json:"message"`
	}
	if err := c.getJSON(ctx, "/appList.json", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Message != "" {
		return nil, fmt.Errorf("remote: app list: %w: %s", ErrRemoteMessage, resp.Message)
	}
	return resp.AppList.Apps, nil
}

// Selectors fetches the page selector configuration. It satisfies
// selectors.Source.
func (c *Client) Selectors(ctx context.Context) ([]selectors.Entry, error) {
	data, err := c.do(ctx, http.MethodGet, "/selectors/", nil, nil)
	if err != nil {
		return nil, err
	}
	return selectors.DecodeOrdered(data)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	data, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("remote: %s: decode: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte) ([]byte, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("remote: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("remote: %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote: %s: status %d", path, resp.StatusCode)
	}

	c.logger.Debug("remote: fetched",
		"path", path, "status", resp.StatusCode,
		"size", len(data), "elapsed", time.Since(start))
	return data, nil
}
