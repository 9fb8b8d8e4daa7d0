// Package cache implements the semantic response cache: an append-only record
// store mirrored by an in-memory inner-product index over unit-normalized
// query embeddings.
//
// The store is the durable half and the source of truth. The index is rebuilt
// from it once per process, on the first operation that needs it, and kept in
// lockstep afterwards: position i of the index is always the i-th record of
// the store in id order.
package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/index"
	"github.com/pario-ai/semcache/pkg/logging"
	"github.com/pario-ai/semcache/pkg/metrics"
	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/vector"
)

// Store is the durable record store backing the cache.
type Store interface {
	Append(ctx context.Context, queryText string, embedding []float32, response []byte) (int64, error)
	ScanAll(ctx context.Context, fn func(models.CacheRecord) error) error
	Fetch(ctx context.Context, id int64) (models.CacheRecord, bool, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Cache coordinates the store, the index and the position to id mapping.
// It is safe for concurrent use.
type Cache struct {
	mu   sync.RWMutex
	idx  *index.Flat
	ids  []int64
	warm bool

	store    Store
	embedder Embedder
	log      logrus.FieldLogger
	metrics  *metrics.Metrics

	hits    atomic.Int64
	misses  atomic.Int64
	inserts atomic.Int64
}

// New creates a cold Cache. The index dimension is taken from the embedder.
// log and m may be nil.
func New(store Store, embedder Embedder, log logrus.FieldLogger, m *metrics.Metrics) *Cache {
	if log == nil {
		log = logging.Discard()
	}
	return &Cache{
		idx:      index.NewFlat(embedder.Dimensions()),
		store:    store,
		embedder: embedder,
		log:      log.WithField("component", "cache"),
		metrics:  m,
	}
}

// Lookup returns the cached response for the stored query most similar to
// query, provided its cosine similarity is at least threshold. An empty cache
// is a miss with score zero, never an error.
func (c *Cache) Lookup(ctx context.Context, query string, threshold float32) (models.LookupResult, error) {
	start := time.Now()
	res, err := c.lookup(ctx, query, threshold)
	switch {
	case err != nil:
		c.metrics.ObserveLookup(metrics.ResultError, time.Since(start).Seconds())
		c.metrics.IncrementErrors("lookup")
	case res.Hit:
		c.hits.Add(1)
		c.metrics.ObserveLookup(metrics.ResultHit, time.Since(start).Seconds())
	default:
		c.misses.Add(1)
		c.metrics.ObserveLookup(metrics.ResultMiss, time.Since(start).Seconds())
	}
	return res, err
}

func (c *Cache) lookup(ctx context.Context, query string, threshold float32) (models.LookupResult, error) {
	if threshold < 0 || threshold > 1 || math.IsNaN(float64(threshold)) {
		return models.LookupResult{}, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	if err := c.ensureWarm(ctx); err != nil {
		return models.LookupResult{}, err
	}

	vec, err := c.embed(ctx, query)
	if err != nil {
		return models.LookupResult{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// A Rebuild that failed while the query was being embedded leaves the
	// index empty and cold; searching it would report a false miss.
	if !c.warm {
		return models.LookupResult{}, fmt.Errorf("%w: index not loaded", ErrStoreRead)
	}

	matches, err := c.idx.Search(vec, 1)
	if err != nil {
		return models.LookupResult{}, fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	}
	if len(matches) == 0 {
		return models.LookupResult{}, nil
	}

	best := matches[0]
	if best.Score < threshold {
		c.log.WithFields(logrus.Fields{"score": best.Score, "threshold": threshold}).Debug("cache miss")
		return models.LookupResult{Score: best.Score}, nil
	}

	id := c.ids[best.Position]
	rec, ok, err := c.store.Fetch(ctx, id)
	if err != nil {
		return models.LookupResult{}, fmt.Errorf("%w: fetch record %d: %w", ErrStoreRead, id, err)
	}
	if !ok {
		c.log.WithFields(logrus.Fields{"id": id, "position": best.Position}).Error("indexed record missing from store")
		return models.LookupResult{}, fmt.Errorf("%w: record %d at position %d not found", ErrConsistency, id, best.Position)
	}

	c.log.WithFields(logrus.Fields{"id": id, "score": best.Score, "threshold": threshold}).Debug("cache hit")
	return models.LookupResult{
		Hit:          true,
		ID:           rec.ID,
		MatchedQuery: rec.QueryText,
		Response:     rec.Response,
		Score:        best.Score,
	}, nil
}

// Insert embeds query and appends it with response to both the store and
// the index. The response is stored as-is. Duplicate queries are not
// rejected; each insert creates a new record.
//
// Once the store write has started it runs to completion even if ctx is
// cancelled, so the store and the index never diverge.
func (c *Cache) Insert(ctx context.Context, query string, response []byte) (int64, error) {
	id, err := c.insert(ctx, query, response)
	if err != nil {
		c.metrics.IncrementErrors("insert")
		return 0, err
	}
	c.inserts.Add(1)
	c.metrics.IncrementInserts()
	return id, nil
}

func (c *Cache) insert(ctx context.Context, query string, response []byte) (int64, error) {
	vec, err := c.embed(ctx, query)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.warmLocked(ctx); err != nil {
		return 0, err
	}

	id, err := c.store.Append(context.WithoutCancel(ctx), query, vec, response)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if _, err := c.idx.Add(vec); err != nil {
		// Unreachable once embed has checked the dimension; the store now
		// holds a row the index lacks, so force a rescan on next use.
		c.warm = false
		return 0, fmt.Errorf("%w: %w", ErrConsistency, err)
	}
	c.ids = append(c.ids, id)
	c.metrics.SetIndexSize(c.idx.Len())

	c.log.WithFields(logrus.Fields{"id": id, "query": query}).Debug("cache insert")
	return id, nil
}

// Clear deletes every record and empties the index as one step. The cache
// stays warm: an empty index after Clear is legitimate and never triggers a
// rescan.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteAll(ctx); err != nil {
		c.metrics.IncrementErrors("clear")
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	c.idx.Reset()
	c.ids = nil
	c.warm = true
	c.metrics.SetIndexSize(0)

	c.log.Info("cache cleared")
	return nil
}

// Stats reports the store's record count, the index size and the process
// counters. Consistent is false when the two sizes differ.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	if err := c.ensureWarm(ctx); err != nil {
		return models.CacheStats{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	count, err := c.store.Count(ctx)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("%w: count records: %w", ErrStoreRead, err)
	}
	size := int64(c.idx.Len())
	return models.CacheStats{
		RecordCount: count,
		IndexSize:   size,
		Consistent:  count == size,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Inserts:     c.inserts.Load(),
	}, nil
}

// Rebuild discards the index and replays every stored record into it.
// Calling it repeatedly yields the same index.
func (c *Cache) Rebuild(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.warm = false
	return c.warmLocked(ctx)
}

func (c *Cache) ensureWarm(ctx context.Context) error {
	c.mu.RLock()
	warm := c.warm
	c.mu.RUnlock()
	if warm {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warmLocked(ctx)
}

// warmLocked rehydrates the index from the store unless it is already warm.
// On failure the index is left empty and the cache stays cold. c.mu must be
// held for writing.
func (c *Cache) warmLocked(ctx context.Context) error {
	if c.warm {
		return nil
	}

	c.idx.Reset()
	c.ids = nil

	err := c.store.ScanAll(ctx, func(rec models.CacheRecord) error {
		if _, err := c.idx.Add(rec.Embedding); err != nil {
			return fmt.Errorf("%w: record %d: %w", ErrDimensionMismatch, rec.ID, err)
		}
		c.ids = append(c.ids, rec.ID)
		return nil
	})
	if err != nil {
		c.idx.Reset()
		c.ids = nil
		c.metrics.IncrementErrors("rehydrate")
		if errors.Is(err, ErrDimensionMismatch) {
			return err
		}
		return fmt.Errorf("%w: rehydrate index: %w", ErrStoreRead, err)
	}

	c.warm = true
	c.metrics.IncrementRehydrations()
	c.metrics.SetIndexSize(c.idx.Len())
	c.log.WithField("records", c.idx.Len()).Info("cache index rehydrated")
	return nil
}

// embed calls the provider and returns a unit-length vector of the index's
// dimension. It never holds c.mu.
func (c *Cache) embed(ctx context.Context, text string) ([]float32, error) {
	raw, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(raw) != c.idx.Dim() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(raw), c.idx.Dim())
	}
	vec, err := vector.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	return vec, nil
}
