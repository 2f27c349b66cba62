package documents

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// notifyChannel is raised by a trigger whenever the OCR pipeline
// inserts or updates a document row.
const notifyChannel = "documentos_events"

// Listen blocks on a dedicated connection waiting for document change
// notifications and invokes onEvent with each payload. It reconnects
// with backoff when the connection drops and returns when ctx ends.
// Run it in its own goroutine.
func Listen(ctx context.Context, pool *pgxpool.Pool, onEvent func(payload string)) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := listenOnce(ctx, pool, onEvent)
		if ctx.Err() != nil {
			slog.Info("document listener stopped")
			return
		}
		slog.Warn("document listener disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func listenOnce(ctx context.Context, pool *pgxpool.Pool, onEvent func(payload string)) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		onEvent(n.Payload)
	}
}

// StartPendingPoller periodically recounts pending OCR documents as a
// fallback for missed notifications. Blocks until ctx ends.
func StartPendingPoller(ctx context.Context, store *Store, interval time.Duration, onCount func(pending int)) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	poll := func() {
		pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		n, err := store.PendingCount(pctx)
		if err != nil {
			slog.Warn("pending document count failed", "error", err)
			return
		}
		if onCount != nil {
			onCount(n)
		}
	}

	poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("document poller stopped")
			return
		case <-ticker.C:
			poll()
		}
	}
}
