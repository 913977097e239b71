package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/internal/address"
	"github.com/shopvia/shopvia-backend/internal/cart"
	"github.com/shopvia/shopvia-backend/internal/orders"
	"github.com/shopvia/shopvia-backend/internal/points"
	"github.com/shopvia/shopvia-backend/internal/products"
	"github.com/shopvia/shopvia-backend/internal/retry"
	"github.com/shopvia/shopvia-backend/internal/stock"
	"github.com/shopvia/shopvia-backend/internal/users"
	"github.com/shopvia/shopvia-backend/pkg/db/models"
	"github.com/shopvia/shopvia-backend/pkg/enums"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
	"github.com/shopvia/shopvia-backend/pkg/logger"
	"github.com/shopvia/shopvia-backend/pkg/metrics"
	"github.com/shopvia/shopvia-backend/pkg/square"
)

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentLinker opens hosted checkout sessions at the payment provider.
type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkParams) (*square.PaymentLinkSession, error)
	NewIdempotencyKey(prefix string) string
}

// CODResult is the outcome of a cash-on-delivery intake.
type CODResult struct {
	CheckoutRef  uuid.UUID
	Orders       []models.Order
	EarnedPoints int64
	UsedPoints   int64
}

// OnlineResult is the outcome of an online intake. Finalized batches
// skipped the gateway and carry no session.
type OnlineResult struct {
	CheckoutRef uuid.UUID
	Orders      []models.Order
	SessionID   string
	CheckoutURL string
	Finalized   bool
}

// Service runs order intake for both payment paths. Cash orders commit
// eagerly in one transaction; online orders persist provisional rows and
// defer every side effect to the webhook finalizer.
type Service struct {
	tx           TxRunner
	orders       orders.Repository
	productsRepo products.Repository
	users        users.Repository
	addresses    address.Repository
	cartRepo     cart.Repository
	ledger       *points.Ledger
	reconciler   *stock.Reconciler
	policy       *points.Policy
	coord        *retry.Coordinator
	gateway      PaymentLinker
	metrics      *metrics.CheckoutMetrics
	logger       *logger.Logger
}

type ServiceParams struct {
	Tx         TxRunner
	Orders     orders.Repository
	Products   products.Repository
	Users      users.Repository
	Addresses  address.Repository
	Cart       cart.Repository
	Ledger     *points.Ledger
	Reconciler *stock.Reconciler
	Policy     *points.Policy
	Retry      *retry.Coordinator
	Gateway    PaymentLinker
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
}

func NewService(p ServiceParams) *Service {
	return &Service{
		tx:           p.Tx,
		orders:       p.Orders,
		productsRepo: p.Products,
		users:        p.Users,
		addresses:    p.Addresses,
		cartRepo:     p.Cart,
		ledger:       p.Ledger,
		reconciler:   p.Reconciler,
		policy:       p.Policy,
		coord:        p.Retry,
		gateway:      p.Gateway,
		metrics:      p.Metrics,
		logger:       p.Logger,
	}
}

// SubmitCOD commits a cash-on-delivery batch: orders, stock, points, and
// cart cleanup land in a single transaction.
func (s *Service) SubmitCOD(ctx context.Context, in IntakeInput) (*CODResult, error) {
	if err := in.validate(); err != nil {
		s.metrics.IncIntake("cod", "error")
		return nil, err
	}

	ref := uuid.New()
	var created []models.Order
	var earned int64
	err := s.coord.Run(ctx, "cod intake", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			q, err := s.buildQuote(tx, in)
			if err != nil {
				return err
			}
			batch := buildOrders(s.policy, q, in, ref, enums.PaymentStatusCODPending)
			if err := s.orders.WithTx(tx).CreateBatch(batch); err != nil {
				return err
			}
			if err := s.applyFinalEffects(tx, in.UserID, q); err != nil {
				return err
			}
			created = collect(batch)
			earned = s.policy.Earned(q.totalAmount)
			return nil
		})
	})
	if err != nil {
		s.recordRetryExhaustion(err)
		s.metrics.IncIntake("cod", "error")
		return nil, err
	}

	s.metrics.IncIntake("cod", "ok")
	s.logIntake(ctx, "cod order batch committed", ref, in, len(created))
	return &CODResult{CheckoutRef: ref, Orders: created, EarnedPoints: earned, UsedPoints: in.PointsToUse}, nil
}

// SubmitOnline runs the online path. A zero total after redemption means
// there is nothing to collect, so the batch finalizes immediately without
// contacting the gateway. Otherwise provisional rows are committed and a
// hosted checkout session is opened for them.
func (s *Service) SubmitOnline(ctx context.Context, in IntakeInput) (*OnlineResult, error) {
	if err := in.validate(); err != nil {
		s.metrics.IncIntake("online", "error")
		return nil, err
	}

	ref := uuid.New()
	var created []models.Order
	var zeroTotal bool
	err := s.coord.Run(ctx, "online intake", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			q, err := s.buildQuote(tx, in)
			if err != nil {
				return err
			}
			zeroTotal = q.totalAmount == 0
			status := enums.PaymentStatusAwaitingPayment
			if zeroTotal {
				status = enums.PaymentStatusPaid
			}
			batch := buildOrders(s.policy, q, in, ref, status)
			if err := s.orders.WithTx(tx).CreateBatch(batch); err != nil {
				return err
			}
			if zeroTotal {
				if err := s.applyFinalEffects(tx, in.UserID, q); err != nil {
					return err
				}
			}
			created = collect(batch)
			return nil
		})
	})
	if err != nil {
		s.recordRetryExhaustion(err)
		s.metrics.IncIntake("online", "error")
		return nil, err
	}

	if zeroTotal {
		s.metrics.IncIntake("online", "ok")
		s.logIntake(ctx, "zero-total batch finalized without gateway", ref, in, len(created))
		return &OnlineResult{CheckoutRef: ref, Orders: created, Finalized: true}, nil
	}

	session, err := s.openSession(ctx, ref, in, created)
	if err != nil {
		s.compensate(ctx, created)
		s.metrics.IncIntake("online", "error")
		return nil, err
	}

	s.metrics.IncIntake("online", "ok")
	s.logIntake(ctx, "hosted checkout session opened", ref, in, len(created))
	return &OnlineResult{CheckoutRef: ref, Orders: created, SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// buildQuote reprices the submission from the catalog inside the
// transaction and validates the client-supplied amounts against it.
func (s *Service) buildQuote(tx *gorm.DB, in IntakeInput) (*quote, error) {
	byID, err := s.productsRepo.WithTx(tx).FindByIDs(in.productIDs())
	if err != nil {
		return nil, err
	}

	lines := make([]quoteLine, 0, len(in.Lines))
	subtotal := int64(0)
	for _, line := range in.Lines {
		product := byID[line.ProductID]
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is not available", product.ID))
		}
		lineSubtotal := discountedUnitPrice(product) * int64(line.Qty)
		lines = append(lines, quoteLine{product: product, qty: line.Qty, subtotal: lineSubtotal})
		subtotal += lineSubtotal
	}
	if in.SubtotalAmount != subtotal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart pricing is stale, refresh and retry").
			WithDetails(map[string]int64{"expected_subtotal": subtotal})
	}

	discount := s.policy.RedemptionValue(in.PointsToUse)
	if discount > subtotal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points exceed order value")
	}
	total := subtotal - discount
	if in.TotalAmount != total {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart pricing is stale, refresh and retry").
			WithDetails(map[string]int64{"expected_total": total})
	}

	user, err := s.users.WithTx(tx).FindByID(in.UserID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRedeem(in.PointsToUse, user.RewardsPoints, subtotal) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested points exceed the redeemable amount")
	}

	if _, err := s.addresses.WithTx(tx).FindForUser(in.AddressID, in.UserID); err != nil {
		return nil, err
	}

	allocatePoints(lines, in.PointsToUse, subtotal)
	return &quote{
		lines:          lines,
		subtotalAmount: subtotal,
		totalAmount:    total,
		pointsToUse:    in.PointsToUse,
	}, nil
}

// applyFinalEffects runs the settlement side effects: guarded stock
// decrements, the points redemption and grant, and cart cleanup.
func (s *Service) applyFinalEffects(tx *gorm.DB, userID uuid.UUID, q *quote) error {
	stockLines := make([]stock.Line, 0, len(q.lines))
	productIDs := make([]uuid.UUID, 0, len(q.lines))
	for _, line := range q.lines {
		stockLines = append(stockLines, stock.Line{ProductID: line.product.ID, Qty: line.qty})
		productIDs = append(productIDs, line.product.ID)
	}
	if err := s.reconciler.WithTx(tx).Decrement(stockLines); err != nil {
		return err
	}

	ledger := s.ledger.WithTx(tx)
	if q.pointsToUse > 0 {
		if err := ledger.Apply(userID, -q.pointsToUse); err != nil {
			return err
		}
	}
	if earned := s.policy.Earned(q.totalAmount); earned > 0 {
		if err := ledger.Apply(userID, earned); err != nil {
			return err
		}
	}

	return s.cartRepo.WithTx(tx).DeleteForUser(userID, productIDs)
}

func (s *Service) openSession(ctx context.Context, ref uuid.UUID, in IntakeInput, batch []models.Order) (*square.PaymentLinkSession, error) {
	orderIDs := make([]uuid.UUID, 0, len(batch))
	for _, order := range batch {
		orderIDs = append(orderIDs, order.ID)
	}
	meta := SessionMetadata{
		UserID:      in.UserID,
		AddressID:   in.AddressID,
		OrderIDs:    orderIDs,
		TotalAmount: in.TotalAmount,
		PointsToUse: in.PointsToUse,
	}

	// Per-line unit prices only reproduce the charged total when no
	// redemption discount is in play. A discounted batch collapses to a
	// single line so the provider charges exactly the computed total.
	var lines []square.PaymentLinkLine
	if in.PointsToUse == 0 {
		lines = make([]square.PaymentLinkLine, 0, len(batch))
		for _, order := range batch {
			lines = append(lines, square.PaymentLinkLine{
				Name:   order.ProductName,
				Qty:    order.Qty,
				Amount: order.SubtotalAmount / int64(order.Qty),
			})
		}
	} else {
		lines = []square.PaymentLinkLine{{
			Name:   fmt.Sprintf("Order %s", ref),
			Qty:    1,
			Amount: in.TotalAmount,
		}}
	}

	return s.gateway.CreatePaymentLink(ctx, square.PaymentLinkParams{
		ReferenceID:    ref.String(),
		Lines:          lines,
		Metadata:       meta.Encode(),
		IdempotencyKey: s.gateway.NewIdempotencyKey("checkout"),
	})
}

// compensate deletes the provisional batch when the gateway refused to
// open a session. Best effort: a leftover awaiting row is harmless and
// visible to operators.
func (s *Service) compensate(ctx context.Context, batch []models.Order) {
	ids := make([]uuid.UUID, 0, len(batch))
	for _, order := range batch {
		ids = append(ids, order.ID)
	}
	if err := s.orders.DeleteAwaiting(ids); err != nil && s.logger != nil {
		s.logger.Error(ctx, "failed to remove provisional orders after gateway error", err)
	}
}

func (s *Service) recordRetryExhaustion(err error) {
	if pkgerrors.HasCode(err, pkgerrors.CodeContention) {
		s.metrics.IncRetryExhausted()
	}
}

func (s *Service) logIntake(ctx context.Context, msg string, ref uuid.UUID, in IntakeInput, count int) {
	if s.logger == nil {
		return
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"checkout_ref": ref.String(),
		"user_id":      in.UserID.String(),
		"order_count":  count,
		"total_amount": in.TotalAmount,
		"points_used":  in.PointsToUse,
	})
	s.logger.Info(ctx, msg)
}

// buildOrders materializes one order row per line, splitting the points
// spend so the row totals sum to the batch total.
func buildOrders(policy *points.Policy, q *quote, in IntakeInput, ref uuid.UUID, status enums.PaymentStatus) []*models.Order {
	batch := make([]*models.Order, 0, len(q.lines))
	for _, line := range q.lines {
		discount := policy.RedemptionValue(line.pointsShare)
		batch = append(batch, &models.Order{
			ID:                uuid.New(),
			Code:              newOrderCode(),
			CheckoutRef:       ref,
			UserID:            in.UserID,
			ProductID:         line.product.ID,
			ProductName:       line.product.Name,
			ProductImage:      line.product.ImageURL,
			Qty:               line.qty,
			PaymentStatus:     status,
			DeliveryAddressID: in.AddressID,
			SubtotalAmount:    line.subtotal,
			TotalAmount:       line.subtotal - discount,
			UsedPoints:        line.pointsShare,
			Status:            enums.OrderStatusPending,
		})
	}
	return batch
}

func collect(batch []*models.Order) []models.Order {
	out := make([]models.Order, 0, len(batch))
	for _, order := range batch {
		out = append(out, *order)
	}
	return out
}
