package platform

import (
	"context"

	"go.uber.org/zap"
)

// NoopClient stands in when no gateway is configured. Liveness checks come
// back unknown so reconciliation keeps every channel, name lookups miss, and
// outbound messages are logged and dropped.
type NoopClient struct {
	logger *zap.Logger
}

// NewNoopClient constructs the disabled gateway client.
func NewNoopClient(logger *zap.Logger) *NoopClient {
	return &NoopClient{logger: logger}
}

func (c *NoopClient) IsChannelResolvable(ctx context.Context, channelID int64) (bool, error) {
	return false, ErrUnknown
}

func (c *NoopClient) FetchDisplayName(ctx context.Context, identity int64) (string, error) {
	return "", ErrNotFound
}

func (c *NoopClient) ListChannels(ctx context.Context, guildID int64) ([]ChannelInfo, error) {
	return nil, ErrUnknown
}

func (c *NoopClient) SendMessage(ctx context.Context, channelID int64, content string) error {
	c.logger.Info("platform gateway disabled; dropping outbound message",
		zap.Int64("channel_id", channelID))
	return nil
}
