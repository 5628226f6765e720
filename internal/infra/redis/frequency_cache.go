package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"assoc-quiz-service/internal/app"
	"assoc-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FrequencyCache caches frequency tables in Redis and falls back to a source on cache miss.
// Tables are stored as JSON under: dictionary:{stimulusID}:{options key}
type FrequencyCache struct {
	client *redis.Client
	source app.FrequencySource
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewFrequencyCache(client *redis.Client, source app.FrequencySource, ttl time.Duration, logger *zap.Logger) *FrequencyCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrequencyCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *FrequencyCache) FrequencyTable(ctx context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.FrequencyEntry, error) {
	key := c.key(stimulusID, opts)

	if entries, ok := c.cached(ctx, key); ok {
		return entries, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if entries, ok := c.cached(ctx, key); ok {
			return entries, nil
		}

		entries, err := c.source.FrequencyTable(ctx, stimulusID, opts)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, data, c.ttlWithJitter()).Err(); err != nil {
			c.logger.Warn("cache frequency table", zap.String("key", key), zap.Error(err))
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.FrequencyEntry), nil
}

// Invalidate deletes every cached table of the given stimuli, whatever the selection.
func (c *FrequencyCache) Invalidate(ctx context.Context, stimulusIDs ...int64) error {
	for _, id := range stimulusIDs {
		iter := c.client.Scan(ctx, 0, c.keyPrefix(id)+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) == 0 {
			continue
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *FrequencyCache) cached(ctx context.Context, key string) ([]domain.FrequencyEntry, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("read cached frequency table", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var entries []domain.FrequencyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *FrequencyCache) key(stimulusID int64, opts domain.SelectionOptions) string {
	return c.keyPrefix(stimulusID) + opts.Key()
}

func (c *FrequencyCache) keyPrefix(stimulusID int64) string {
	return "dictionary:" + strconv.FormatInt(stimulusID, 10) + ":"
}

func (c *FrequencyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
