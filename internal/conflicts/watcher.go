package conflicts

import (
	"context"
	"log/slog"
	"time"
)

// StartWatcher polls the backend for conflict changes on a fixed
// interval so the banner count stays current without user action.
// It refreshes the workflow immediately and then on every
// tick until ctx is cancelled. onUpdate, when non-nil, runs after each
// successful refresh. Blocks; run it in its own goroutine.
func StartWatcher(ctx context.Context, workflow *Workflow, interval time.Duration, onUpdate func()) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	refresh := func() {
		rctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := workflow.Refresh(rctx); err != nil {
			slog.Warn("conflict refresh failed", "error", err)
			return
		}
		if onUpdate != nil {
			onUpdate()
		}
	}

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("conflict watcher stopped")
			return
		case <-ticker.C:
			refresh()
		}
	}
}
