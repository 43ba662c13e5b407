package episodic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// Sink errors.
var (
	ErrSinkClosed  = errors.New("episodic sink is closed")
	ErrUnknownSink = errors.New("unknown episodic sink kind")
)

// Record is one protocol execution episode.
type Record struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Context   protocol.Context `json:"context"`
	Protocol  string           `json:"protocol"`
	Strategy  string           `json:"strategy"`
	Response  string           `json:"response"`
	Reward    float64          `json:"reward"`
}

// NewRecord builds a record for one execution with a fresh ID and timestamp.
func NewRecord(pctx protocol.Context, name, strategy, response string, reward float64) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Context:   pctx,
		Protocol:  name,
		Strategy:  strategy,
		Response:  response,
		Reward:    reward,
	}
}

// Sink receives execution episodes.
type Sink interface {
	// Append stores one record. Append must be safe for concurrent use.
	Append(ctx context.Context, rec *Record) error
	// Close releases the sink's resources. Appends after Close fail.
	Close() error
}

// NopSink discards every record.
type NopSink struct{}

// Append implements Sink.
func (NopSink) Append(context.Context, *Record) error { return nil }

// Close implements Sink.
func (NopSink) Close() error { return nil }

// MemorySink buffers records in memory. Intended for tests and for
// deployments without persistence.
type MemorySink struct {
	mu      sync.Mutex
	closed  bool
	records []*Record
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a snapshot of the buffered records.
func (s *MemorySink) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Sink kinds accepted by New.
const (
	KindNop     = "nop"
	KindMemory  = "memory"
	KindChromem = "chromem"
	KindNATS    = "nats"
)

// Deps carries shared dependencies into sink constructors.
type Deps struct {
	Logger *zap.Logger
}

// Options selects and configures a sink implementation.
type Options struct {
	// Kind is one of the Kind* constants. Empty means nop.
	Kind string

	// Chromem settings.
	Path       string
	Collection string
	Compress   bool

	// NATS settings.
	URL     string
	Subject string
}

// New builds the sink named by opts.Kind.
func New(opts Options, deps Deps) (Sink, error) {
	switch opts.Kind {
	case "", KindNop:
		return NopSink{}, nil
	case KindMemory:
		return NewMemorySink(), nil
	case KindChromem:
		return NewChromemSink(ChromemConfig{
			Path:       opts.Path,
			Collection: opts.Collection,
			Compress:   opts.Compress,
		}, deps.Logger)
	case KindNATS:
		return NewNATSSink(NATSConfig{
			URL:     opts.URL,
			Subject: opts.Subject,
		}, deps.Logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, opts.Kind)
	}
}
