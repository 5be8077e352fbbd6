package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/config"
)

// RESTClient talks to the chat platform gateway over HTTP.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewRESTClient builds a gateway client from config.
func NewRESTClient(cfg config.PlatformConfig, logger *zap.Logger) *RESTClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// IsChannelResolvable reports whether the channel still exists on the
// platform. Transport failures map to ErrUnknown so callers can fail open.
func (c *RESTClient) IsChannelResolvable(ctx context.Context, channelID int64) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%d", channelID), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: gateway returned %d", ErrUnknown, resp.StatusCode)
	}
}

// FetchDisplayName resolves a user's display name.
func (c *RESTClient) FetchDisplayName(ctx context.Context, identity int64) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", identity), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.DisplayName, nil
}

// ListChannels fetches the guild's channel listing.
func (c *RESTClient) ListChannels(ctx context.Context, guildID int64) ([]ChannelInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%d/channels", guildID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var body []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	channels := make([]ChannelInfo, 0, len(body))
	for _, raw := range body {
		id, err := strconv.ParseInt(raw.ID, 10, 64)
		if err != nil {
			c.logger.Warn("skipping channel with malformed id", zap.String("id", raw.ID))
			continue
		}
		channels = append(channels, ChannelInfo{ID: id, Name: raw.Name})
	}
	return channels, nil
}

// SendMessage posts content to a channel.
func (c *RESTClient) SendMessage(ctx context.Context, channelID int64, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/messages", channelID), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}
