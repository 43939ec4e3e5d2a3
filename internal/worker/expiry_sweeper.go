// Package worker holds the background loops that advance requests the
// request/response path cannot: card expiry and stale-request cleanup.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/application/services"
)

// ExpirySweeper walks assigned requests whose card validity window has
// lapsed and marks them expired. Each record is handled independently so one
// failure never stalls the rest of the batch.
type ExpirySweeper struct {
	requests   application.RequestStore
	assignment *services.AssignmentService
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger
}

func NewExpirySweeper(
	requests application.RequestStore,
	assignment *services.AssignmentService,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		requests:   requests,
		assignment: assignment,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
	}
}

func (w *ExpirySweeper) Start(ctx context.Context) {
	w.logger.Info("expiry sweeper started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopping")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass. Exposed so a deployment can also trigger it from an
// admin endpoint or a test without waiting for the ticker.
func (w *ExpirySweeper) Sweep(ctx context.Context) error {
	lapsed, err := w.requests.ListExpiredAssigned(ctx, time.Now(), w.batchSize)
	if err != nil {
		return err
	}
	if len(lapsed) == 0 {
		return nil
	}

	var expired int
	for _, req := range lapsed {
		if _, err := w.assignment.ExpireCard(ctx, req.ID); err != nil {
			w.logger.Error("failed to expire card",
				"request_id", req.ID,
				"error", err)
			continue
		}
		expired++
	}

	w.logger.Info("expiry sweep complete",
		"candidates", len(lapsed),
		"expired", expired)
	return nil
}
