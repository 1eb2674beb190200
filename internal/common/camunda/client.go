// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"mangastream-workers/internal/common/logger"
)

type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// NewClient connects to the gateway, retrying transient failures with exponential backoff.
func NewClient(ctx context.Context, config *ClientConfig, log logger.Logger) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	var zeebeClient zbc.Client
	err := RetryWithBackoff(ctx, config.RetryConfig, log, "zeebe connection", func(ctx context.Context) error {
		c, err := zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         config.GatewayAddress,
			UsePlaintextConnection: config.UsePlaintextConnection,
		})
		if err != nil {
			return fmt.Errorf("failed to create Zeebe client: %w", err)
		}

		topoCtx, cancel := context.WithTimeout(ctx, config.ConnectionTimeout)
		defer cancel()
		if _, err := c.NewTopologyCommand().Send(topoCtx); err != nil {
			_ = c.Close()
			return fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
		}

		zeebeClient = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Client{client: zeebeClient, config: config}, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// RetryWithBackoff runs op until it succeeds, the attempts run out, or ctx is done.
// Errors that do not look transient stop the loop immediately.
func RetryWithBackoff(ctx context.Context, cfg *RetryConfig, log logger.Logger, operationName string, op func(context.Context) error) error {
	if cfg == nil {
		cfg = DefaultRetryConfig
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryableError(lastErr) || attempt == cfg.MaxRetries {
			break
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       lastErr.Error(),
			"attempt":     attempt,
			"maxRetries":  cfg.MaxRetries,
			"nextRetryIn": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt, ctx.Err())
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, cfg.MaxRetries, lastErr)
}

// IsRetryableError reports whether err looks like a transient network failure.
func IsRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
		"no such host",
		"eof",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
