package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	sheetsmem "fintrack/internal/sheets/memory"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/mongostore"
	"fintrack/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured store and, when an AMQP URL is set,
// an event publisher. A broker that cannot be reached at startup degrades to
// running without events rather than failing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MongoBackend:
		result, err = f.createMongoBackend(ctx, config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				log.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange, "queue", config.AMQPQueue)
			result.Publisher = client
			storeCleanup := result.Cleanup
			result.Cleanup = func() error {
				return errors.Join(client.Close(), callCleanup(storeCleanup))
			}
		}
	}
	return result, nil
}

func callCleanup(fn CleanupFunc) error {
	if fn == nil {
		return nil
	}
	return fn()
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store, err := mongostore.Connect(connectCtx, mongostore.Config{
		URI:          config.MongoURI,
		Database:     config.MongoDatabase,
		Transactions: config.MongoTransactions,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}
	f.logger.Info("Initialized MongoDB backend",
		"database", config.MongoDatabase, "transactions", config.MongoTransactions)
	return &BackendResult{
		Store: store,
		Cleanup: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return store.Close(ctx)
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend")
	return &BackendResult{Store: memory.New()}
}

// CreateMirror builds the worker's transaction mirror.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	if err := config.ValidateMirror(); err != nil {
		return nil, err
	}

	switch config.MirrorType {
	case SheetsMirror:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		if err := cli.EnsureHeader(ctx); err != nil {
			return nil, fmt.Errorf("prepare sheet: %w", err)
		}
		f.logger.Info("Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
		return &MirrorResult{Mirror: cli}, nil
	case MemoryMirror:
		f.logger.Info("Initialized memory mirror")
		return &MirrorResult{Mirror: sheetsmem.New()}, nil
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", config.MirrorType)
	}
}
