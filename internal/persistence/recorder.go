package persistence

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hauntsim/internal/engine"
)

// recordBatch is the number of records written per transaction.
const recordBatch = 64

// Record drains a mission subscription into the event log until the channel
// closes or the context ends. Records are written in batches, at least once
// per flush interval.
func (db *DB) Record(ctx context.Context, missionID uuid.UUID, records <-chan engine.Record, flush time.Duration) error {
	if flush <= 0 {
		flush = time.Second
	}
	ticker := time.NewTicker(flush)
	defer ticker.Stop()

	var batch []engine.Record
	write := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := db.SaveEvents(missionID, batch)
		if err != nil {
			slog.Error("failed to save events", "mission", missionID.String(), "count", len(batch), "error", err)
		}
		batch = batch[:0]
		return err
	}

	for {
		select {
		case r, ok := <-records:
			if !ok {
				return write()
			}
			batch = append(batch, r)
			if len(batch) >= recordBatch {
				if err := write(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := write(); err != nil {
				return err
			}
		case <-ctx.Done():
			// Keep whatever is already buffered on the channel.
			for {
				select {
				case r, ok := <-records:
					if !ok {
						return write()
					}
					batch = append(batch, r)
				default:
					return write()
				}
			}
		}
	}
}
