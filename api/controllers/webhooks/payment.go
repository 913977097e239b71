package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/shopvia/shopvia-backend/api/responses"
	"github.com/shopvia/shopvia-backend/internal/webhooks/payment"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
	"github.com/shopvia/shopvia-backend/pkg/logger"
)

const signatureHeader = "Square-Signature"

// FinalizerService settles provisional batches for verified events.
type FinalizerService interface {
	HandleEvent(ctx context.Context, evt payment.Event) (payment.Outcome, error)
}

type signingClient interface {
	SigningSecret() string
}

type webhookPayload struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Object struct {
			Payment struct {
				ID string `json:"id"`
			} `json:"payment"`
			Order struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"order"`
		} `json:"object"`
	} `json:"data"`
}

type ackResponse struct {
	Received bool `json:"received"`
}

// PaymentWebhook verifies and settles provider payment notifications.
// Once the signature and envelope check out the provider always gets an
// acknowledgement, even when finalization fails internally: the provider
// cannot fix our failures, and the order stays awaiting_payment for the
// next redelivery or an operator.
func PaymentWebhook(svc FinalizerService, client signingClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook finalizer unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sig := strings.TrimSpace(r.Header.Get(signatureHeader))
		if sig == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}
		if !validSignature(body, client.SigningSecret(), sig) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var envelope webhookPayload
		if err := json.Unmarshal(body, &envelope); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		outcome, err := svc.HandleEvent(ctx, payment.Event{
			ID:        envelope.EventID,
			Type:      envelope.Type,
			PaymentID: envelope.Data.Object.Payment.ID,
			Metadata:  envelope.Data.Object.Order.Metadata,
		})
		if err != nil && logg != nil {
			evCtx := logg.WithFields(ctx, map[string]any{
				"event_id": envelope.EventID,
				"outcome":  string(outcome),
			})
			logg.Error(evCtx, "webhook finalization failed", err)
		}

		responses.WriteJSON(w, http.StatusOK, ackResponse{Received: true})
	}
}

func validSignature(payload []byte, secret, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
