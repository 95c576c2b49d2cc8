package backend

import (
	"context"

	"spendmate/internal/store"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a ready store plus the hooks the binaries need to run it.
type Result struct {
	Store store.Store
	// Follow blocks applying changes made by other processes until ctx ends.
	Follow func(ctx context.Context) error
	// Ready reports whether the backend can serve requests.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	// Optional; empty disables cross-process change notifications.
	AMQPURL      string
	AMQPExchange string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
