package elasticsearch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// ConnectOptions bound the startup wait for the cluster.
type ConnectOptions struct {
	Retries     uint64
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	PingTimeout time.Duration
}

// DefaultConnectOptions waits up to roughly four minutes for the cluster.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		Retries:     10,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		PingTimeout: 5 * time.Second,
	}
}

// Connect creates a client and pings the cluster until it answers, backing
// off exponentially between attempts.
func Connect(ctx context.Context, addr, index string, logger *slog.Logger, opts ConnectOptions) (*Client, error) {
	client, err := New(addr, index, logger)
	if err != nil {
		return nil, err
	}

	b := retry.NewExponential(opts.BaseDelay)
	b = retry.WithCappedDuration(opts.MaxDelay, b)
	b = retry.WithMaxRetries(opts.Retries, b)

	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()

		if err := client.Ping(pingCtx); err != nil {
			client.log.Warn("elasticsearch ping failed, retrying",
				slog.Any("err", err),
				slog.Int("attempt", attempt),
				slog.Uint64("max_retries", opts.Retries),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch after %d attempts: %w", attempt, err)
	}

	client.log.Info("connected to elasticsearch", slog.String("addr", addr))
	return client, nil
}
