package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/webpiratt/swapd/internal/sideshift"
	"github.com/webpiratt/swapd/internal/tasks"
	"github.com/webpiratt/swapd/internal/types"
)

// dcaOccurrencePrefix marks history rows whose provider order was never
// created; there is nothing upstream to reconcile against.
const dcaOccurrencePrefix = "dca-"

// Reconcile refreshes one pending swap from the provider. Idempotent: an
// unchanged status writes nothing, terminal entries are left untouched.
func (m *Monitor) Reconcile(ctx context.Context, providerOrderID string) error {
	entry, err := m.db.GetSwapHistoryEntry(ctx, providerOrderID)
	if err != nil {
		return fmt.Errorf("load swap %s: %w", providerOrderID, err)
	}
	if entry.Status.IsTerminal() {
		return nil
	}
	if strings.HasPrefix(entry.ProviderOrderID, dcaOccurrencePrefix) {
		return nil
	}

	status, err := m.provider.GetOrderStatus(ctx, entry.ProviderOrderID)
	if err != nil {
		var notFound *types.NotFoundError
		if errors.As(err, &notFound) {
			// The provider forgot the order; nothing more will happen to it.
			return m.settleStatus(ctx, entry, types.SwapStatusExpired, "")
		}
		return fmt.Errorf("provider status for %s: %w", entry.ProviderOrderID, err)
	}

	mapped := sideshift.MapStatus(status.Status)
	if mapped == entry.Status {
		return nil
	}
	if !entry.Status.CanTransitionTo(mapped) {
		// Provider statuses only move forward; a backwards report is noise.
		m.logger.WithField("order", entry.ProviderOrderID).
			Warnf("ignoring backwards status %s -> %s", entry.Status, mapped)
		return nil
	}
	return m.settleStatus(ctx, entry, mapped, status.TxHash)
}

func (m *Monitor) settleStatus(ctx context.Context, entry types.SwapHistoryEntry, status types.SwapStatus, txHash string) error {
	if err := m.db.UpdateSwapHistoryStatus(ctx, entry.ProviderOrderID, status, txHash); err != nil {
		return fmt.Errorf("update swap %s: %w", entry.ProviderOrderID, err)
	}
	m.incCounter("monitor.reconcile.updated", []string{"status:" + string(status)})

	switch status {
	case types.SwapStatusSettled, types.SwapStatusCompleted:
		m.notify(ctx, entry.Owner, tasks.KindSwapSettled, tasks.NotificationPayload{
			Subject: "Swap settled",
			Body: fmt.Sprintf("Your %s→%s swap %s has settled.",
				entry.FromAsset, entry.ToAsset, entry.ProviderOrderID),
			Fields: map[string]string{"order": entry.ProviderOrderID, "tx_hash": txHash},
		})
	case types.SwapStatusFailed, types.SwapStatusExpired:
		m.notify(ctx, entry.Owner, tasks.KindSwapFailed, tasks.NotificationPayload{
			Subject: "Swap did not complete",
			Body: fmt.Sprintf("Your %s→%s swap %s ended with status %s.",
				entry.FromAsset, entry.ToAsset, entry.ProviderOrderID, status),
			Fields: map[string]string{"order": entry.ProviderOrderID},
		})
	}
	return nil
}

// ReconcileAll sweeps every non-terminal swap. One bad entry never stops
// the sweep.
func (m *Monitor) ReconcileAll(ctx context.Context) {
	entries, err := m.db.ListNonTerminalSwaps(ctx)
	if err != nil {
		m.logger.WithError(err).Error("failed to list pending swaps")
		return
	}
	for _, entry := range entries {
		itemCtx, cancel := context.WithTimeout(ctx, m.cfg.ItemTimeout)
		if err := m.Reconcile(itemCtx, entry.ProviderOrderID); err != nil {
			m.logger.WithField("order", entry.ProviderOrderID).
				Errorf("reconcile failed: %v", err)
		}
		cancel()
	}
}
