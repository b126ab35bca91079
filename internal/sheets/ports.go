// Package sheets mirrors ledger transactions into a spreadsheet, one row per
// transaction keyed by id in the first column.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps an external copy of the ledger. Both methods
	// are idempotent: replaying an event leaves the mirror unchanged.
	TransactionMirror interface {
		Upsert(ctx context.Context, t core.Transaction) error
		Remove(ctx context.Context, id string) error
	}

	// MirrorLister returns every mirrored transaction id, used to prune rows
	// during a full resync.
	MirrorLister interface {
		MirroredIDs(ctx context.Context) ([]string, error)
	}
)
