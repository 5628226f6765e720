package redis

import (
	"context"
	"fmt"
	"time"

	"assoc-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const importLockKey = "import:lock"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ImportLock is a Redis-backed app.ImportLock shared by every service instance.
// The TTL bounds how long a crashed importer can hold the lock.
type ImportLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewImportLock(client *redis.Client, ttl time.Duration) *ImportLock {
	return &ImportLock{client: client, ttl: ttl}
}

func (l *ImportLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, importLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrImportInProgress
	}
	return func() {
		// best-effort; the TTL clears it otherwise
		_ = releaseScript.Run(context.Background(), l.client, []string{importLockKey}, token).Err()
	}, nil
}
