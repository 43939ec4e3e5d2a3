package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// StaleReclaimer declines pending requests that never received a payment
// within the configured window, releasing the student's one-active-request
// slot. A zero staleAfter disables the loop entirely.
type StaleReclaimer struct {
	requests   application.RequestStore
	lifecycle  paymentFailer
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	logger     *slog.Logger
}

// paymentFailer is the slice of the lifecycle service the reclaimer needs.
type paymentFailer interface {
	FailPayment(ctx context.Context, reference string) (*domain.CardRequest, error)
}

func NewStaleReclaimer(
	requests application.RequestStore,
	lifecycle paymentFailer,
	interval time.Duration,
	staleAfter time.Duration,
	batchSize int,
	logger *slog.Logger,
) *StaleReclaimer {
	return &StaleReclaimer{
		requests:   requests,
		lifecycle:  lifecycle,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		logger:     logger,
	}
}

func (w *StaleReclaimer) Start(ctx context.Context) {
	if w.staleAfter <= 0 {
		w.logger.Info("stale reclaimer disabled")
		return
	}

	w.logger.Info("stale reclaimer started",
		"interval", w.interval, "stale_after", w.staleAfter)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stale reclaimer stopping")
			return
		case <-ticker.C:
			if err := w.Reclaim(ctx); err != nil {
				w.logger.Error("stale reclaim failed", "error", err)
			}
		}
	}
}

// Reclaim runs one pass over pending requests older than the stale window.
func (w *StaleReclaimer) Reclaim(ctx context.Context) error {
	cutoff := time.Now().Add(-w.staleAfter)

	stale, err := w.requests.ListStalePending(ctx, cutoff, w.batchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	var reclaimed int
	for _, req := range stale {
		if _, err := w.lifecycle.FailPayment(ctx, req.PaymentReference); err != nil {
			w.logger.Error("failed to reclaim stale request",
				"request_id", req.ID,
				"error", err)
			continue
		}
		reclaimed++
	}

	w.logger.Info("stale reclaim complete",
		"candidates", len(stale),
		"reclaimed", reclaimed)
	return nil
}
