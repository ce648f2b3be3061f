package workers

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"
)

const leftText = "left"

// SweeperWorker evicts participants that stopped heartbeating.
// Every interval it removes registry entries older than the activity
// timeout and broadcasts one "left" status notice per removal. A failed
// tick is logged and skipped; the next tick retries the same stale set.
type SweeperWorker struct {
	log          *slog.Logger
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
	interval     time.Duration
	timeout      time.Duration
}

func NewSweeperWorker(
	log *slog.Logger,
	participants repositories.IParticipantRepository,
	messages repositories.IMessageRepository,
	interval, timeout time.Duration,
) *SweeperWorker {
	return &SweeperWorker{
		log:          log,
		participants: participants,
		messages:     messages,
		interval:     interval,
		timeout:      timeout,
	}
}

// Run executes the main loop of the worker, sweeping the registry on
// every tick until the context is canceled.
func (w *SweeperWorker) Run(ctx context.Context) error {
	w.log.Info("Starting presence sweeper", "interval", w.interval, "timeout", w.timeout)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(time.Now().UTC())
		}
	}
}

// sweep performs a single tick. Expiry is one atomic registry operation,
// so a participant removed here can never be reported by a later tick;
// the notices are appended afterwards, outside any registry lock.
func (w *SweeperWorker) sweep(now time.Time) {
	removed, err := w.participants.ExpireOlderThan(now.Add(-w.timeout))
	if err != nil {
		w.log.Error("Presence sweep failed, skipping tick", "err", err)
		return
	}

	for _, participant := range removed {
		_, err := w.messages.Append(domain.Message{
			From:     participant.Name,
			To:       domain.Broadcast,
			Text:     leftText,
			Category: domain.CategoryStatus,
		})
		if err != nil {
			// The participant is already gone from the registry, so the
			// notice is dropped rather than retried: re-emitting on a
			// later tick would duplicate it for observers.
			w.log.Error("Failed to record leave notice",
				"participant", participant.Name, "err", err)
		}
	}

	if len(removed) > 0 {
		w.log.Info("Evicted stale participants", "count", len(removed))
	}
}
