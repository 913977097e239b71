package checkout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopvia/shopvia-backend/pkg/db/models"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

// IntakeLine is one requested cart line.
type IntakeLine struct {
	ProductID uuid.UUID
	Qty       int
}

// IntakeInput is a checkout submission. Subtotal and total are the amounts
// the client displayed; the server recomputes both from the catalog and
// rejects the submission when they disagree.
type IntakeInput struct {
	UserID         uuid.UUID
	AddressID      uuid.UUID
	Lines          []IntakeLine
	SubtotalAmount int64
	TotalAmount    int64
	PointsToUse    int64
}

type quoteLine struct {
	product     models.Product
	qty         int
	subtotal    int64
	pointsShare int64
}

type quote struct {
	lines          []quoteLine
	subtotalAmount int64
	totalAmount    int64
	pointsToUse    int64
}

func (in IntakeInput) validate() error {
	if in.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if in.AddressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if len(in.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one line")
	}
	for _, line := range in.Lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line product id is required")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid quantity %d for product %s", line.Qty, line.ProductID))
		}
	}
	if in.PointsToUse < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points to use cannot be negative")
	}
	return nil
}

func (in IntakeInput) productIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(in.Lines))
	for _, line := range in.Lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

// discountedUnitPrice applies the catalog discount percent, flooring to a
// whole minor unit.
func discountedUnitPrice(product models.Product) int64 {
	if product.DiscountPercent <= 0 {
		return product.PriceAmount
	}
	return decimal.NewFromInt(product.PriceAmount).
		Mul(decimal.NewFromInt(int64(100 - product.DiscountPercent))).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
}

// allocatePoints splits the redeemed points across lines in proportion to
// each line's subtotal, handing any rounding remainder to the last line so
// the per-line totals always sum back to the batch total.
func allocatePoints(lines []quoteLine, points, subtotal int64) {
	if points <= 0 || subtotal <= 0 {
		return
	}
	allocated := int64(0)
	for i := range lines {
		if i == len(lines)-1 {
			lines[i].pointsShare = points - allocated
			break
		}
		share := decimal.NewFromInt(points).
			Mul(decimal.NewFromInt(lines[i].subtotal)).
			Div(decimal.NewFromInt(subtotal)).
			Floor().
			IntPart()
		lines[i].pointsShare = share
		allocated += share
	}
}

func newOrderCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "SV-" + raw[:12]
}
