package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/scribe/logger"
)

// Factory creates a Storage from config.
type Factory func(ctx context.Context, cfg Config) (Storage, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// RegisterFactory registers a backend factory. Implementation packages call
// this from init, so import them for side effects:
//
//	import _ "github.com/kbukum/scribe/storage/s3"
func RegisterFactory(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New creates the Storage selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.RLock()
	f, ok := factories[cfg.Provider]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	logger.Get("storage").Info("initializing storage", logger.Fields("provider", cfg.Provider))
	return f(ctx, cfg)
}
