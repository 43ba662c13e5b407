package episodic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/bandit"
)

// ChromemConfig configures the embedded vector store sink.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string
	// Collection is the chromem collection name. Default "protocold_episodes".
	Collection string
	// Compress enables gzip compression of stored data.
	Compress bool
}

func (c *ChromemConfig) applyDefaults() {
	if c.Collection == "" {
		c.Collection = "protocold_episodes"
	}
}

// ChromemSink persists episodes to an embedded chromem-go database.
//
// Records carry no free text worth embedding with a language model, so each
// document's vector is the selection feature encoding of the record's
// context. Similar contexts therefore land near each other, which makes the
// store queryable by context without an external embedder.
type ChromemSink struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewChromemSink opens (or creates) the persistent store at cfg.Path.
func NewChromemSink(cfg ChromemConfig, logger *zap.Logger) (*ChromemSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("chromem sink: path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}

	// Embeddings are precomputed per record; a text embedder is never
	// legitimate here, so fail loudly if chromem asks for one.
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("episodic records carry precomputed embeddings")
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", cfg.Collection, err)
	}

	logger.Info("episodic chromem sink opened",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
		zap.Bool("compress", cfg.Compress),
	)

	return &ChromemSink{db: db, collection: collection, logger: logger}, nil
}

// Append implements Sink.
func (s *ChromemSink) Append(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.mu.Unlock()

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Response,
		Embedding: contextEmbedding(rec),
		Metadata: map[string]string{
			"protocol":  rec.Protocol,
			"strategy":  rec.Strategy,
			"reward":    strconv.FormatFloat(rec.Reward, 'f', -1, 64),
			"emotion":   rec.Context.Emotion,
			"intent":    rec.Context.Intent,
			"timestamp": rec.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("storing episode %s: %w", rec.ID, err)
	}
	return nil
}

// Count returns the number of stored episodes.
func (s *ChromemSink) Count() int {
	return s.collection.Count()
}

// Close implements Sink. Chromem persists on write, so Close only blocks
// further appends.
func (s *ChromemSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// contextEmbedding encodes the record's context as the document vector.
// The bias term in the encoding keeps the vector non-zero even when every
// context field is out of vocabulary.
func contextEmbedding(rec *Record) []float32 {
	features := bandit.Features(rec.Context)
	out := make([]float32, len(features))
	for i, f := range features {
		out[i] = float32(f)
	}
	return out
}
