// Package worker applies ledger events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// MirrorWorker keeps a TransactionMirror in step with the ledger.
type MirrorWorker struct {
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewMirrorWorker(mirror sheets.TransactionMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleEvent applies one ledger event. Returning an error asks the broker
// to redeliver it.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	fields := log.NewFields().WithTransaction(ev.Transaction).WithOperation(log.OpMirror)
	fields[log.FieldEventKind] = string(ev.Kind)

	var err error
	switch ev.Kind {
	case core.EventTransactionCreated, core.EventTransactionUpdated:
		err = w.mirror.Upsert(ctx, ev.Transaction)
	case core.EventTransactionDeleted:
		err = w.mirror.Remove(ctx, ev.Transaction.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", fields.ToSlice()...)
		return nil
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror ledger event", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("mirror %s %s: %w", ev.Kind, ev.Transaction.ID, err)
	}

	w.logger.InfoContext(ctx, "Mirrored ledger event", fields.ToSlice()...)
	return nil
}

// Resync rewrites every ledger transaction into the mirror and, when the
// mirror can list its rows, removes rows for transactions that no longer
// exist. It recovers from events lost while the worker was down.
func (w *MirrorWorker) Resync(ctx context.Context, source ledger.TransactionStore) error {
	txs, err := source.ListTransactions(ctx, ledger.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	live := make(map[string]struct{}, len(txs))
	synced, failed := 0, 0
	// Oldest first so a fresh sheet reads chronologically.
	for i := len(txs) - 1; i >= 0; i-- {
		t := txs[i]
		live[t.ID] = struct{}{}
		if err := w.mirror.Upsert(ctx, t); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "Failed to resync transaction",
				log.FieldTransactionID, t.ID, log.FieldError, err.Error())
			failed++
			continue
		}
		synced++
	}

	pruned := 0
	if lister, ok := w.mirror.(sheets.MirrorLister); ok {
		ids, err := lister.MirroredIDs(ctx)
		if err != nil {
			return fmt.Errorf("list mirrored rows: %w", err)
		}
		for _, id := range ids {
			if _, ok := live[id]; ok {
				continue
			}
			if err := w.mirror.Remove(ctx, id); err != nil {
				w.logger.ErrorContext(ctx, "Failed to prune mirrored row",
					log.FieldTransactionID, id, log.FieldError, err.Error())
				failed++
				continue
			}
			pruned++
		}
	}

	w.logger.InfoContext(ctx, "Mirror resync completed",
		"total", len(txs), "synced", synced, "pruned", pruned, "errors", failed)
	if failed > 0 {
		return fmt.Errorf("resync finished with %d errors", failed)
	}
	return nil
}
