package backend

import (
	"context"
	"errors"
	"fmt"

	"spendmate/internal/amqp"
	"spendmate/internal/log"
	"spendmate/internal/storage"
	"spendmate/internal/store/memory"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	opts := []storage.Option{storage.WithLogger(f.logger)}

	// Change notifications are optional: without them the store still works
	// but other processes only see changes on their next read.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		c, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change notifications", log.FieldError, err)
		} else {
			amqpClient = c
			opts = append(opts, storage.WithNotifier(c))
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange)
		}
	}

	s, err := storage.Open(config.SQLiteDBPath, opts...)
	if err != nil {
		if amqpClient != nil {
			amqpClient.Close()
		}
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil,
		"origin", s.Origin())

	return &Result{
		Store:  s,
		Follow: s.Follow,
		Ready:  s.Ping,
		Cleanup: func() error {
			var errs []error
			if err := s.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*Result, error) {
	s := memory.New()
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &Result{
		Store: s,
		Follow: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Ready:   func(context.Context) error { return nil },
		Cleanup: s.Close,
	}, nil
}
