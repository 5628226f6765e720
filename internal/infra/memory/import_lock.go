package memory

import (
	"context"
	"sync"

	"assoc-quiz-service/internal/domain"
)

// ImportLock is an in-process implementation of app.ImportLock.
type ImportLock struct {
	mu sync.Mutex
}

func NewImportLock() *ImportLock {
	return &ImportLock{}
}

func (l *ImportLock) Acquire(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, domain.ErrImportInProgress
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
