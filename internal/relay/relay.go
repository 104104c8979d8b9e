// Package relay publishes pipeline forecasts onto NATS, one subject per
// entity, so downstream consumers can subscribe to exactly the entities
// they care about.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

// Config configures the forecast relay.
type Config struct {
	// NATS connection
	URL  string
	Name string // client name reported to the server

	// SubjectPrefix roots the per-entity subjects:
	// <prefix>.forecasts.<entityID>
	SubjectPrefix string

	// FlushTimeout bounds the final flush on Close.
	FlushTimeout time.Duration

	Logger *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = natsgo.DefaultURL
	}
	if c.Name == "" {
		c.Name = "bridget-relay"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "bridget"
	}
	if c.FlushTimeout == 0 {
		c.FlushTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Relay publishes forecast batches to NATS.
type Relay struct {
	config *Config
	logger *zap.Logger
	nc     *natsgo.Conn

	mu     sync.Mutex
	closed bool
}

// New connects to NATS and returns a relay ready to publish.
func New(config *Config) (*Relay, error) {
	config.applyDefaults()

	nc, err := natsgo.Connect(config.URL,
		natsgo.Name(config.Name),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	config.Logger.Info("Forecast relay connected",
		zap.String("url", config.URL),
		zap.String("subject_prefix", config.SubjectPrefix))

	return &Relay{
		config: config,
		logger: config.Logger,
		nc:     nc,
	}, nil
}

// PublishForecasts publishes each forecast as JSON on its entity subject,
// stopping at the first failure.
func (r *Relay) PublishForecasts(ctx context.Context, forecasts []domain.Forecast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("relay already closed")
	}

	for _, forecast := range forecasts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("publish aborted: %w", err)
		}

		payload, err := json.Marshal(forecast)
		if err != nil {
			return fmt.Errorf("failed to marshal forecast %s: %w", forecast.ID, err)
		}

		subject := r.subjectFor(forecast.EntityID)
		if err := r.nc.Publish(subject, payload); err != nil {
			return fmt.Errorf("failed to publish forecast to %s: %w", subject, err)
		}

		r.logger.Debug("Published forecast",
			zap.String("subject", subject),
			zap.String("entity_id", forecast.EntityID),
			zap.Float64("probability", forecast.Probability))
	}

	r.logger.Info("Published forecast batch", zap.Int("forecasts", len(forecasts)))
	return nil
}

// Close flushes outstanding publishes and drops the connection. It is safe
// to call more than once.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	flushErr := r.nc.FlushTimeout(r.config.FlushTimeout)
	r.nc.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush relay: %w", flushErr)
	}

	r.logger.Info("Forecast relay closed")
	return nil
}

// subjectFor builds the per-entity subject. Characters NATS treats as
// token separators or wildcards are replaced so an entity ID can never
// fan out across subjects.
func (r *Relay) subjectFor(entityID string) string {
	sanitized := strings.Map(func(ch rune) rune {
		switch ch {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return ch
	}, entityID)
	return fmt.Sprintf("%s.forecasts.%s", r.config.SubjectPrefix, sanitized)
}
