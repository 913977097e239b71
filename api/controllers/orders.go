package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shopvia/shopvia-backend/api/middleware"
	"github.com/shopvia/shopvia-backend/api/responses"
	"github.com/shopvia/shopvia-backend/internal/orders"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
	"github.com/shopvia/shopvia-backend/pkg/logger"
)

type ordersListResponse struct {
	Orders []orderView `json:"orders"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ListOrders returns the caller's order history, newest first.
func ListOrders(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)

		found, err := repo.ListByUser(userID, limit, offset)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ordersListResponse{
			Orders: toOrderViews(found),
			Limit:  limit,
			Offset: offset,
		})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
