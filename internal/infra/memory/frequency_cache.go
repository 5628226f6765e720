package memory

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"assoc-quiz-service/internal/app"
	"assoc-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// FrequencyCache caches frequency tables with TTL to avoid repeated reaction scans.
type FrequencyCache struct {
	source app.FrequencySource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	rndMu sync.Mutex
	cache map[string]cachedTable
}

type cachedTable struct {
	entries   []domain.FrequencyEntry
	expiresAt time.Time
}

func NewFrequencyCache(source app.FrequencySource, ttl time.Duration) *FrequencyCache {
	return &FrequencyCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTable),
	}
}

func (c *FrequencyCache) FrequencyTable(ctx context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.FrequencyEntry, error) {
	key := keyPrefix(stimulusID) + opts.Key()

	if entries, ok := c.lookup(key, c.clock()); ok {
		return entries, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		if entries, ok := c.lookup(key, now); ok {
			return entries, nil
		}

		entries, err := c.source.FrequencyTable(ctx, stimulusID, opts)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedTable{
			entries:   entries,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.FrequencyEntry), nil
}

// Invalidate drops every cached table of the given stimuli, whatever the selection.
func (c *FrequencyCache) Invalidate(_ context.Context, stimulusIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range stimulusIDs {
		prefix := keyPrefix(id)
		for key := range c.cache {
			if strings.HasPrefix(key, prefix) {
				delete(c.cache, key)
			}
		}
	}
	return nil
}

func keyPrefix(stimulusID int64) string {
	return strconv.FormatInt(stimulusID, 10) + "|"
}

func (c *FrequencyCache) lookup(key string, now time.Time) ([]domain.FrequencyEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return entry.entries, true
}

func (c *FrequencyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
