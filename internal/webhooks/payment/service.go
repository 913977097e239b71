package payment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/internal/cart"
	"github.com/shopvia/shopvia-backend/internal/checkout"
	"github.com/shopvia/shopvia-backend/internal/orders"
	"github.com/shopvia/shopvia-backend/internal/points"
	"github.com/shopvia/shopvia-backend/internal/retry"
	"github.com/shopvia/shopvia-backend/internal/stock"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
	"github.com/shopvia/shopvia-backend/pkg/logger"
	"github.com/shopvia/shopvia-backend/pkg/metrics"
)

// EventTypeCheckoutCompleted is the only event this finalizer settles.
const EventTypeCheckoutCompleted = "checkout.completed"

// Event is the provider notification after signature verification and
// parsing. Metadata is the session metadata written at intake, echoed
// back verbatim.
type Event struct {
	ID        string
	Type      string
	PaymentID string
	Metadata  map[string]string
}

// Outcome classifies how an event was handled.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeReplay    Outcome = "replay"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeMalformed Outcome = "malformed"
	OutcomeFailed    Outcome = "failed"
)

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service finalizes provisional online batches when the provider confirms
// payment. Delivery is at least once, so every path must be safe to replay.
type Service struct {
	tx         TxRunner
	orders     orders.Repository
	cartRepo   cart.Repository
	ledger     *points.Ledger
	reconciler *stock.Reconciler
	policy     *points.Policy
	coord      *retry.Coordinator
	guard      *Guard
	metrics    *metrics.CheckoutMetrics
	logger     *logger.Logger
}

type ServiceParams struct {
	Tx         TxRunner
	Orders     orders.Repository
	Cart       cart.Repository
	Ledger     *points.Ledger
	Reconciler *stock.Reconciler
	Policy     *points.Policy
	Retry      *retry.Coordinator
	Guard      *Guard
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
}

func NewService(p ServiceParams) *Service {
	return &Service{
		tx:         p.Tx,
		orders:     p.Orders,
		cartRepo:   p.Cart,
		ledger:     p.Ledger,
		reconciler: p.Reconciler,
		policy:     p.Policy,
		coord:      p.Retry,
		guard:      p.Guard,
		metrics:    p.Metrics,
		logger:     p.Logger,
	}
}

// HandleEvent settles one webhook delivery. The redis mark filters cheap
// replays; the order's payment status decides authoritatively. Failures
// release the mark so the provider's redelivery can try again.
func (s *Service) HandleEvent(ctx context.Context, evt Event) (Outcome, error) {
	if evt.Type != EventTypeCheckoutCompleted {
		s.metrics.IncWebhookEvent(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}
	if evt.ID == "" {
		s.metrics.IncWebhookEvent(string(OutcomeMalformed))
		return OutcomeMalformed, pkgerrors.New(pkgerrors.CodeValidation, "webhook event id missing")
	}

	firstSeen, err := s.guard.CheckAndMark(ctx, evt.ID)
	if err != nil {
		s.metrics.IncWebhookEvent(string(OutcomeFailed))
		return OutcomeFailed, err
	}
	if !firstSeen {
		s.logEvent(ctx, evt, "webhook event already marked, skipping")
		s.metrics.IncWebhookEvent(string(OutcomeReplay))
		return OutcomeReplay, nil
	}

	meta, err := checkout.DecodeSessionMetadata(evt.Metadata)
	if err != nil {
		s.release(ctx, evt)
		s.metrics.IncWebhookEvent(string(OutcomeMalformed))
		return OutcomeMalformed, err
	}

	replay := false
	err = s.coord.Run(ctx, "webhook finalize", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.finalize(tx, evt, meta, &replay)
		})
	})
	if err != nil {
		s.release(ctx, evt)
		s.metrics.IncWebhookEvent(string(OutcomeFailed))
		return OutcomeFailed, err
	}
	if replay {
		s.logEvent(ctx, evt, "batch already finalized, replay is a no-op")
		s.metrics.IncWebhookEvent(string(OutcomeReplay))
		return OutcomeReplay, nil
	}

	s.logEvent(ctx, evt, "payment batch finalized")
	s.metrics.IncWebhookEvent(string(OutcomeProcessed))
	return OutcomeProcessed, nil
}

func (s *Service) finalize(tx *gorm.DB, evt Event, meta checkout.SessionMetadata, replay *bool) error {
	batch, err := s.orders.WithTx(tx).FindByIDs(meta.OrderIDs)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no orders found for webhook event")
	}

	// The first row speaks for the batch: intake writes every row with
	// the same status in one transaction.
	if batch[0].PaymentStatus.Finalized() {
		*replay = true
		return nil
	}

	ids := make([]uuid.UUID, 0, len(batch))
	stockLines := make([]stock.Line, 0, len(batch))
	productIDs := make([]uuid.UUID, 0, len(batch))
	for _, order := range batch {
		ids = append(ids, order.ID)
		stockLines = append(stockLines, stock.Line{ProductID: order.ProductID, Qty: order.Qty})
		productIDs = append(productIDs, order.ProductID)
	}

	if err := s.orders.WithTx(tx).MarkPaid(ids, evt.PaymentID); err != nil {
		return err
	}
	if err := s.reconciler.WithTx(tx).Decrement(stockLines); err != nil {
		return err
	}

	ledger := s.ledger.WithTx(tx)
	if meta.PointsToUse > 0 {
		if err := ledger.Apply(meta.UserID, -meta.PointsToUse); err != nil {
			return err
		}
	}
	if earned := s.policy.Earned(meta.TotalAmount); earned > 0 {
		if err := ledger.Apply(meta.UserID, earned); err != nil {
			return err
		}
	}

	return s.cartRepo.WithTx(tx).DeleteForUser(meta.UserID, productIDs)
}

func (s *Service) release(ctx context.Context, evt Event) {
	if err := s.guard.Release(ctx, evt.ID); err != nil && s.logger != nil {
		s.logger.Error(ctx, "failed to release webhook event mark", err)
	}
}

func (s *Service) logEvent(ctx context.Context, evt Event, msg string) {
	if s.logger == nil {
		return
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"event_id":   evt.ID,
		"event_type": evt.Type,
		"payment_id": evt.PaymentID,
	})
	s.logger.Info(ctx, msg)
}
