package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// Client calls a running server's subscription routes.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient constructs a Client. The timeout must cover a feed validation.
func NewClient(baseURL string, timeout time.Duration) Client {
	return Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// ParseChannel splits "platform:id" into a ChannelRef, rejecting malformed input.
func ParseChannel(s string) (subscription.ChannelRef, error) {
	platform, id, ok := strings.Cut(s, ":")
	if !ok || platform == "" || id == "" {
		return "", fmt.Errorf("channel %q is not platform:id", s)
	}
	return subscription.NewChannelRef(platform, id), nil
}

// Subscribe asks the server to subscribe channel to feedURL.
func (c Client) Subscribe(ctx context.Context, channel subscription.ChannelRef, feedURL string) (string, error) {
	body := strings.NewReader(url.Values{"url": {feedURL}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(channel, ""), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// Unsubscribe asks the server to remove feedURL from channel.
func (c Client) Unsubscribe(ctx context.Context, channel subscription.ChannelRef, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(channel, feedURL), nil)
	if err != nil {
		return "", err
	}
	return c.do(req)
}

// List returns channel's subscriptions as the server formats them.
func (c Client) List(ctx context.Context, channel subscription.ChannelRef) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(channel, ""), nil)
	if err != nil {
		return "", err
	}
	return c.do(req)
}

func (c Client) endpoint(channel subscription.ChannelRef, feedURL string) string {
	platform, id, _ := strings.Cut(channel.String(), ":")
	u := fmt.Sprintf("%s/channels/%s/%s/subscriptions", c.BaseURL, url.PathEscape(platform), url.PathEscape(id))
	if feedURL != "" {
		u += "?" + url.Values{"url": {feedURL}}.Encode()
	}
	return u
}

func (c Client) do(req *http.Request) (string, error) {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
