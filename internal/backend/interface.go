// Package backend builds the ledger store, the optional event publisher and
// the worker's mirror from configuration.
package backend

import (
	"context"
	"time"

	"fintrack/internal/ledger"
	"fintrack/internal/sheets"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult holds the store and an optional publisher. Publisher is nil
// when events are disabled or the broker was unreachable at startup.
type BackendResult struct {
	Store     ledger.Store
	Publisher ledger.EventPublisher
	Cleanup   CleanupFunc
}

// MirrorResult holds the transaction mirror used by the worker.
type MirrorResult struct {
	Mirror  sheets.TransactionMirror
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	ConnectTimeout    time.Duration

	// AMQP, optional for every store type
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror
	MirrorType               MirrorType
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MongoBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

type MirrorType string

const (
	SheetsMirror MirrorType = "sheets"
	MemoryMirror MirrorType = "memory"
)

func (mt MirrorType) IsValid() bool {
	return mt == SheetsMirror || mt == MemoryMirror
}
