package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultPushTimeout = 5 * time.Second

// Pusher sends the collected metrics somewhere once the command finishes.
type Pusher interface {
	Push(ctx context.Context, registry *prometheus.Registry) error
}

// NewPusher builds a Pushgateway pusher from config. It returns nil when
// no endpoint is configured.
func NewPusher(cfg Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := strings.TrimSpace(cfg.PushgatewayURL)
	if endpoint == "" {
		return nil
	}
	job := strings.TrimSpace(cfg.PushgatewayJob)
	if job == "" {
		job = "orgadmin"
	}
	logger.Debug("metrics pushgateway enabled", zap.String("endpoint", endpoint), zap.String("job", job))
	return NewPushgatewayPusher(endpoint, job, map[string]string{
		"environment": strings.TrimSpace(cfg.Environment),
	})
}

// PushgatewayPusher sends metrics to a Prometheus Pushgateway.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

// NewPushgatewayPusher returns a pusher for Prometheus Pushgateway.
func NewPushgatewayPusher(endpoint, job string, grouping map[string]string) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: endpoint,
		job:      strings.TrimSpace(job),
		grouping: grouping,
	}
}

// Push sends the current registry metrics to the Pushgateway.
func (p *PushgatewayPusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}
	if strings.TrimSpace(p.endpoint) == "" {
		return errors.New("pushgateway endpoint is required")
	}
	if p.job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(registry)
	for key, value := range p.grouping {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	return pusher.PushContext(ctx)
}

type pushParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Pusher    Pusher `optional:"true"`
	Log       *zap.Logger
}

// RegisterPushOnStop pushes metrics when the application stops. Push
// failures are logged and never fail the command.
func RegisterPushOnStop(p pushParams) {
	if p.Pusher == nil {
		return
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
			defer cancel()
			if err := p.Pusher.Push(pushCtx, p.Metrics.Registry()); err != nil {
				p.Log.Warn("metrics push failed", zap.Error(err))
			}
			return nil
		},
	})
}
