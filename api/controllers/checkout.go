package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shopvia/shopvia-backend/api/middleware"
	"github.com/shopvia/shopvia-backend/api/responses"
	"github.com/shopvia/shopvia-backend/api/validators"
	"github.com/shopvia/shopvia-backend/internal/checkout"
	"github.com/shopvia/shopvia-backend/pkg/db/models"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
	"github.com/shopvia/shopvia-backend/pkg/logger"
)

// CheckoutService is the intake surface the controllers call.
type CheckoutService interface {
	SubmitCOD(ctx context.Context, in checkout.IntakeInput) (*checkout.CODResult, error)
	SubmitOnline(ctx context.Context, in checkout.IntakeInput) (*checkout.OnlineResult, error)
}

type checkoutLinePayload struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"required,min=1"`
}

type checkoutRequest struct {
	AddressID      string                `json:"address_id" validate:"required,uuid"`
	Lines          []checkoutLinePayload `json:"lines" validate:"required,min=1,dive"`
	SubtotalAmount int64                 `json:"subtotal_amount" validate:"gte=0"`
	TotalAmount    int64                 `json:"total_amount" validate:"gte=0"`
	PointsToUse    int64                 `json:"points_to_use" validate:"gte=0"`
}

type orderView struct {
	ID             uuid.UUID `json:"id"`
	Code           string    `json:"code"`
	CheckoutRef    uuid.UUID `json:"checkout_ref"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	ProductImage   string    `json:"product_image,omitempty"`
	Qty            int       `json:"qty"`
	PaymentStatus  string    `json:"payment_status"`
	SubtotalAmount int64     `json:"subtotal_amount"`
	TotalAmount    int64     `json:"total_amount"`
	UsedPoints     int64     `json:"used_points"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type codCheckoutResponse struct {
	CheckoutRef  uuid.UUID   `json:"checkout_ref"`
	Orders       []orderView `json:"orders"`
	EarnedPoints int64       `json:"points_earned"`
	UsedPoints   int64       `json:"points_used"`
}

type onlineCheckoutResponse struct {
	CheckoutRef uuid.UUID   `json:"checkout_ref"`
	Orders      []orderView `json:"orders"`
	SessionID   string      `json:"session_id,omitempty"`
	CheckoutURL string      `json:"checkout_url,omitempty"`
	FreeOrder   bool        `json:"free_order"`
}

// SubmitCODCheckout commits a cash-on-delivery batch for the caller.
func SubmitCODCheckout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		in, err := decodeIntake(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.SubmitCOD(ctx, in)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, codCheckoutResponse{
			CheckoutRef:  result.CheckoutRef,
			Orders:       toOrderViews(result.Orders),
			EarnedPoints: result.EarnedPoints,
			UsedPoints:   result.UsedPoints,
		})
	}
}

// SubmitOnlineCheckout opens a hosted payment session, or finalizes
// immediately when there is nothing to collect.
func SubmitOnlineCheckout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		in, err := decodeIntake(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.SubmitOnline(ctx, in)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, onlineCheckoutResponse{
			CheckoutRef: result.CheckoutRef,
			Orders:      toOrderViews(result.Orders),
			SessionID:   result.SessionID,
			CheckoutURL: result.CheckoutURL,
			FreeOrder:   result.Finalized,
		})
	}
}

func decodeIntake(r *http.Request) (checkout.IntakeInput, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return checkout.IntakeInput{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	var req checkoutRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		return checkout.IntakeInput{}, err
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		return checkout.IntakeInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid address id")
	}
	lines := make([]checkout.IntakeLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return checkout.IntakeInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
		}
		lines = append(lines, checkout.IntakeLine{ProductID: productID, Qty: line.Qty})
	}

	return checkout.IntakeInput{
		UserID:         userID,
		AddressID:      addressID,
		Lines:          lines,
		SubtotalAmount: req.SubtotalAmount,
		TotalAmount:    req.TotalAmount,
		PointsToUse:    req.PointsToUse,
	}, nil
}

func toOrderViews(batch []models.Order) []orderView {
	views := make([]orderView, 0, len(batch))
	for _, order := range batch {
		views = append(views, orderView{
			ID:             order.ID,
			Code:           order.Code,
			CheckoutRef:    order.CheckoutRef,
			ProductID:      order.ProductID,
			ProductName:    order.ProductName,
			ProductImage:   order.ProductImage,
			Qty:            order.Qty,
			PaymentStatus:  string(order.PaymentStatus),
			SubtotalAmount: order.SubtotalAmount,
			TotalAmount:    order.TotalAmount,
			UsedPoints:     order.UsedPoints,
			Status:         string(order.Status),
			CreatedAt:      order.CreatedAt,
		})
	}
	return views
}
