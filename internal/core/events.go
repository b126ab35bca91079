package core

import "time"

// EventKind names a committed ledger change.
type EventKind string

const (
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionUpdated EventKind = "transaction.updated"
	EventTransactionDeleted EventKind = "transaction.deleted"
)

// LedgerEvent describes a committed transaction change. Transaction holds the
// state after the change, or the removed state for deletions.
type LedgerEvent struct {
	Kind        EventKind   `json:"kind"`
	Transaction Transaction `json:"transaction"`
	Timestamp   time.Time   `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, t Transaction, at time.Time) LedgerEvent {
	return LedgerEvent{Kind: kind, Transaction: t, Timestamp: at}
}
