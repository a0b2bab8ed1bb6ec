// Package bus publishes CloudEvents-shaped notifications to NATS JetStream
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agentpulse/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config configures the NATS connection and the stream events land in
type Config struct {
	Enabled  bool
	URL      string
	Stream   string
	Subjects []string
	Source   string
	Name     string

	// MaxAge bounds stream retention; zero keeps the server default
	MaxAge time.Duration
}

// Event is the envelope written to the stream
type Event struct {
	SpecVersion     string    `json:"specversion"`
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Type            string    `json:"type"`
	Subject         string    `json:"subject"`
	DataContentType string    `json:"datacontenttype"`
	Time            time.Time `json:"time"`
	Data            any       `json:"data"`
}

// Publisher writes events to one JetStream stream
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
	source string
	log    logger.Logger
}

// ErrDisabled is returned by Connect when the bus is switched off
var ErrDisabled = errors.New("bus: disabled")

// Connect dials NATS, ensures the stream exists, and returns a Publisher
func Connect(ctx context.Context, cfg Config, log logger.Logger, opts ...nats.Option) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if cfg.Stream == "" || len(cfg.Subjects) == 0 {
		return nil, fmt.Errorf("bus: stream and subjects are required")
	}

	base := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	nc, err := nats.Connect(cfg.URL, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("bus: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("bus: jetstream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: cfg.Subjects,
		MaxAge:   cfg.MaxAge,
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("bus: ensure stream %s: %w", cfg.Stream, err)
	}

	src := cfg.Source
	if src == "" {
		src = "agentpulse"
	}
	return &Publisher{nc: nc, js: js, stream: cfg.Stream, source: src, log: log}, nil
}

// Publish wraps data in an Event and publishes it; the event id doubles as the
// JetStream dedupe id so a retried publish is stored once
func (p *Publisher) Publish(ctx context.Context, subject, eventType string, data any) (uint64, error) {
	ev := Event{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Source:          p.source,
		Type:            eventType,
		Subject:         subject,
		DataContentType: "application/json",
		Time:            time.Now().UTC(),
		Data:            data,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("bus: marshal %s: %w", eventType, err)
	}
	ack, err := p.js.Publish(ctx, subject, b, jetstream.WithMsgID(ev.ID))
	if err != nil {
		return 0, fmt.Errorf("bus: publish %s: %w", subject, err)
	}
	p.log.Debug().Str("event_id", ev.ID).Str("subject", subject).Uint64("seq", ack.Sequence).Msg("event published")
	return ack.Sequence, nil
}

// Ping reports whether the connection is currently usable
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil || p.nc == nil {
		return errors.New("bus: not connected")
	}
	if st := p.nc.Status(); st != nats.CONNECTED {
		return fmt.Errorf("bus: connection %s", st)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("bus: flush: %w", err)
	}
	return nil
}

// Stream returns the stream name events are stored in
func (p *Publisher) Stream() string { return p.stream }

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
