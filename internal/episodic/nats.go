package episodic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig configures the NATS publishing sink.
type NATSConfig struct {
	// URL is the NATS server URL. Default nats.DefaultURL.
	URL string
	// Subject is the subject episodes are published to.
	// Default "protocold.episodes".
	Subject string
	// Name identifies the connection to the server for monitoring.
	Name string
}

func (c *NATSConfig) applyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Subject == "" {
		c.Subject = "protocold.episodes"
	}
	if c.Name == "" {
		c.Name = "protocold-episodic"
	}
}

// NATSSink publishes each episode as a JSON message so external consumers
// can build their own views of selection history.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewNATSSink connects to the server and returns a publishing sink.
func NewNATSSink(cfg NATSConfig, logger *zap.Logger) (*NATSSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.URL, err)
	}

	logger.Info("episodic NATS sink connected",
		zap.String("url", cfg.URL),
		zap.String("subject", cfg.Subject),
	)

	return &NATSSink{conn: conn, subject: cfg.Subject, logger: logger}, nil
}

// Append implements Sink.
func (s *NATSSink) Append(_ context.Context, rec *Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding episode %s: %w", rec.ID, err)
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publishing episode %s: %w", rec.ID, err)
	}
	return nil
}

// Close implements Sink. Drain flushes buffered messages before the
// connection closes.
func (s *NATSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Drain(); err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}
	return nil
}
