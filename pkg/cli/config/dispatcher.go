package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/service/dispatcher"
	"github.com/urfave/cli/v3"
)

type Dispatcher struct {
	maxRetry    int
	baseDelay   time.Duration
	httpTimeout time.Duration
}

func (x *Dispatcher) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "notify-max-retry",
			Usage:       "Max delivery attempts per notification (capped at 5)",
			Category:    "Notification",
			Sources:     cli.EnvVars("ROTA_NOTIFY_MAX_RETRY"),
			Value:       3,
			Destination: &x.maxRetry,
		},
		&cli.DurationFlag{
			Name:        "notify-base-delay",
			Usage:       "Base delay of the delivery retry backoff",
			Category:    "Notification",
			Sources:     cli.EnvVars("ROTA_NOTIFY_BASE_DELAY"),
			Value:       time.Second,
			Destination: &x.baseDelay,
		},
		&cli.DurationFlag{
			Name:        "notify-http-timeout",
			Usage:       "HTTP timeout for webhook deliveries",
			Category:    "Notification",
			Sources:     cli.EnvVars("ROTA_NOTIFY_HTTP_TIMEOUT"),
			Value:       10 * time.Second,
			Destination: &x.httpTimeout,
		},
	}
}

func (x Dispatcher) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("max_retry", x.maxRetry),
		slog.Duration("base_delay", x.baseDelay),
		slog.Duration("http_timeout", x.httpTimeout),
	)
}

func (x *Dispatcher) Configure(repo interfaces.Repository) *dispatcher.Dispatcher {
	return dispatcher.New(repo,
		dispatcher.WithMaxRetry(x.maxRetry),
		dispatcher.WithBaseDelay(x.baseDelay),
		dispatcher.WithHTTPClient(&http.Client{Timeout: x.httpTimeout}),
	)
}
