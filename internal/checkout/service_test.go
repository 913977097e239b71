package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/internal/address"
	"github.com/shopvia/shopvia-backend/internal/cart"
	"github.com/shopvia/shopvia-backend/internal/orders"
	"github.com/shopvia/shopvia-backend/internal/points"
	"github.com/shopvia/shopvia-backend/internal/products"
	"github.com/shopvia/shopvia-backend/internal/retry"
	"github.com/shopvia/shopvia-backend/internal/stock"
	"github.com/shopvia/shopvia-backend/internal/users"
	"github.com/shopvia/shopvia-backend/pkg/config"
	"github.com/shopvia/shopvia-backend/pkg/db/models"
	"github.com/shopvia/shopvia-backend/pkg/enums"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
	"github.com/shopvia/shopvia-backend/pkg/square"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type gatewayStub struct {
	calls   int
	params  square.PaymentLinkParams
	session *square.PaymentLinkSession
	err     error
}

func (g *gatewayStub) CreatePaymentLink(_ context.Context, params square.PaymentLinkParams) (*square.PaymentLinkSession, error) {
	g.calls++
	g.params = params
	if g.err != nil {
		return nil, g.err
	}
	if g.session != nil {
		return g.session, nil
	}
	return &square.PaymentLinkSession{
		ID:      "plink_" + uuid.NewString(),
		URL:     "https://checkout.example.com/" + uuid.NewString(),
		OrderID: "sqorder_" + uuid.NewString(),
	}, nil
}

func (g *gatewayStub) NewIdempotencyKey(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	gateway *gatewayStub
	userID  uuid.UUID
	addrID  uuid.UUID
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Address{},
		&models.CartItem{}, &models.Order{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := models.User{
		ID:            uuid.New(),
		Email:         uuid.NewString() + "@example.com",
		Name:          "Buyer",
		RewardsPoints: balance,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	addr := models.Address{
		ID:      uuid.New(),
		UserID:  user.ID,
		Line1:   "12 Market St",
		City:    "Springfield",
		Country: "US",
	}
	if err := gdb.Create(&addr).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}

	policy := points.NewPolicy(config.PointsConfig{
		PointValue:       1000,
		EarnDivisor:      10000,
		RedeemCapPercent: 50,
	})
	coord := retry.NewCoordinator(config.CheckoutConfig{
		RetryMaxAttempts: 2,
		RetryBackoff:     time.Millisecond,
	}, nil)
	gateway := &gatewayStub{}

	svc := NewService(ServiceParams{
		Tx:         testTxRunner{db: gdb},
		Orders:     orders.NewRepository(gdb),
		Products:   products.NewRepository(gdb),
		Users:      users.NewRepository(gdb),
		Addresses:  address.NewRepository(gdb),
		Cart:       cart.NewRepository(gdb),
		Ledger:     points.NewLedger(gdb),
		Reconciler: stock.NewReconciler(gdb),
		Policy:     policy,
		Retry:      coord,
		Gateway:    gateway,
	})
	return &fixture{db: gdb, svc: svc, gateway: gateway, userID: user.ID, addrID: addr.ID}
}

func (f *fixture) seedProduct(t *testing.T, price int64, discountPercent, stockQty int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:              uuid.New(),
		Name:            "Widget",
		ImageURL:        "https://cdn.example.com/widget.png",
		PriceAmount:     price,
		DiscountPercent: discountPercent,
		Stock:           stockQty,
		IsActive:        true,
	}
	if err := f.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func (f *fixture) seedCartLine(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	item := models.CartItem{ID: uuid.New(), UserID: f.userID, ProductID: productID, Qty: qty}
	if err := f.db.Create(&item).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
}

func (f *fixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := f.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	var user models.User
	if err := f.db.First(&user, "id = ?", f.userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user.RewardsPoints
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}

func (f *fixture) cartCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.CartItem{}).Count(&count).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	return count
}

func TestSubmitCODCommitsEverythingAtOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 100)
	productID := f.seedProduct(t, 100000, 0, 10)
	f.seedCartLine(t, productID, 2)

	res, err := f.svc.SubmitCOD(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 2}},
		SubtotalAmount: 200000,
		TotalAmount:    150000,
		PointsToUse:    50,
	})
	if err != nil {
		t.Fatalf("submit cod: %v", err)
	}
	if len(res.Orders) != 1 {
		t.Fatalf("order count = %d, want 1", len(res.Orders))
	}
	order := res.Orders[0]
	if order.PaymentStatus != enums.PaymentStatusCODPending {
		t.Fatalf("payment status = %s, want cod_pending", order.PaymentStatus)
	}
	if order.TotalAmount != 150000 {
		t.Fatalf("order total = %d, want 150000", order.TotalAmount)
	}
	if order.UsedPoints != 50 {
		t.Fatalf("used points = %d, want 50", order.UsedPoints)
	}
	if res.EarnedPoints != 15 {
		t.Fatalf("earned points = %d, want 15", res.EarnedPoints)
	}
	if got := f.stockOf(t, productID); got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}
	// 100 - 50 redeemed + 15 earned.
	if got := f.balance(t); got != 65 {
		t.Fatalf("balance = %d, want 65", got)
	}
	if got := f.cartCount(t); got != 0 {
		t.Fatalf("cart items left = %d, want 0", got)
	}
	if f.gateway.calls != 0 {
		t.Fatalf("gateway called %d times on cod path", f.gateway.calls)
	}
}

func TestSubmitCODEarnsOnTotal(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	productID := f.seedProduct(t, 250000, 0, 5)

	res, err := f.svc.SubmitCOD(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 1}},
		SubtotalAmount: 250000,
		TotalAmount:    250000,
	})
	if err != nil {
		t.Fatalf("submit cod: %v", err)
	}
	if res.EarnedPoints != 25 {
		t.Fatalf("earned points = %d, want 25", res.EarnedPoints)
	}
	if got := f.balance(t); got != 25 {
		t.Fatalf("balance = %d, want 25", got)
	}
}

func TestSubmitCODRejectsStalePricing(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	productID := f.seedProduct(t, 100000, 10, 5)

	_, err := f.svc.SubmitCOD(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 1}},
		SubtotalAmount: 100000, // catalog says 90000 after discount
		TotalAmount:    100000,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := f.orderCount(t); got != 0 {
		t.Fatalf("orders persisted on rejected intake: %d", got)
	}
}

func TestSubmitCODInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 100)
	productID := f.seedProduct(t, 100000, 0, 1)

	_, err := f.svc.SubmitCOD(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 2}},
		SubtotalAmount: 200000,
		TotalAmount:    200000,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if got := f.orderCount(t); got != 0 {
		t.Fatalf("orders persisted on rejected intake: %d", got)
	}
	if got := f.balance(t); got != 100 {
		t.Fatalf("balance changed on rejected intake: %d", got)
	}
	if got := f.stockOf(t, productID); got != 1 {
		t.Fatalf("stock changed on rejected intake: %d", got)
	}
}

func TestSubmitCODRejectsPointsAboveCap(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1000)
	productID := f.seedProduct(t, 100000, 0, 5)

	// Cap is 50% of 100,000 = 50 points; 51 must be rejected.
	_, err := f.svc.SubmitCOD(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 1}},
		SubtotalAmount: 100000,
		TotalAmount:    49000,
		PointsToUse:    51,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitCODRejectsForeignAddress(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	productID := f.seedProduct(t, 100000, 0, 5)

	other := models.Address{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Line1:   "99 Elsewhere Ave",
		City:    "Shelbyville",
		Country: "US",
	}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("seed foreign address: %v", err)
	}

	_, err := f.svc.SubmitCOD(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      other.ID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 1}},
		SubtotalAmount: 100000,
		TotalAmount:    100000,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestSubmitOnlineOpensHostedSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	productID := f.seedProduct(t, 100000, 0, 10)
	f.seedCartLine(t, productID, 2)

	res, err := f.svc.SubmitOnline(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 2}},
		SubtotalAmount: 200000,
		TotalAmount:    200000,
	})
	if err != nil {
		t.Fatalf("submit online: %v", err)
	}
	if res.Finalized {
		t.Fatal("non-zero total must not finalize at intake")
	}
	if res.CheckoutURL == "" {
		t.Fatal("expected a checkout url")
	}
	if res.Orders[0].PaymentStatus != enums.PaymentStatusAwaitingPayment {
		t.Fatalf("payment status = %s, want awaiting_payment", res.Orders[0].PaymentStatus)
	}

	// No side effects before the webhook lands.
	if got := f.stockOf(t, productID); got != 10 {
		t.Fatalf("stock touched at intake: %d", got)
	}
	if got := f.balance(t); got != 0 {
		t.Fatalf("balance touched at intake: %d", got)
	}
	if got := f.cartCount(t); got != 1 {
		t.Fatalf("cart cleared at intake: %d items", got)
	}

	// The session metadata must round-trip to the provisional batch.
	meta, err := DecodeSessionMetadata(f.gateway.params.Metadata)
	if err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.UserID != f.userID {
		t.Fatalf("metadata user = %s, want %s", meta.UserID, f.userID)
	}
	if len(meta.OrderIDs) != 1 || meta.OrderIDs[0] != res.Orders[0].ID {
		t.Fatalf("metadata order ids = %v", meta.OrderIDs)
	}
	if meta.TotalAmount != 200000 {
		t.Fatalf("metadata total = %d, want 200000", meta.TotalAmount)
	}
}

func TestSubmitOnlineZeroTotalSkipsGateway(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	productID := f.seedProduct(t, 0, 0, 3)
	f.seedCartLine(t, productID, 1)

	res, err := f.svc.SubmitOnline(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 1}},
		SubtotalAmount: 0,
		TotalAmount:    0,
	})
	if err != nil {
		t.Fatalf("submit online: %v", err)
	}
	if !res.Finalized {
		t.Fatal("zero total must finalize at intake")
	}
	if res.CheckoutURL != "" {
		t.Fatalf("unexpected checkout url %q", res.CheckoutURL)
	}
	if res.Orders[0].PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", res.Orders[0].PaymentStatus)
	}
	if f.gateway.calls != 0 {
		t.Fatalf("gateway called %d times for zero total", f.gateway.calls)
	}
	if got := f.stockOf(t, productID); got != 2 {
		t.Fatalf("stock = %d, want 2", got)
	}
	if got := f.cartCount(t); got != 0 {
		t.Fatalf("cart items left = %d, want 0", got)
	}
}

func TestSubmitOnlineGatewayFailureRemovesProvisionalRows(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	productID := f.seedProduct(t, 100000, 0, 10)
	f.gateway.err = errors.New("gateway down")

	_, err := f.svc.SubmitOnline(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: productID, Qty: 1}},
		SubtotalAmount: 100000,
		TotalAmount:    100000,
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if got := f.orderCount(t); got != 0 {
		t.Fatalf("provisional orders left behind: %d", got)
	}
}

func TestSubmitOnlineMultiLineTotalsSum(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 300)
	first := f.seedProduct(t, 100000, 0, 10)
	second := f.seedProduct(t, 30000, 0, 10)

	res, err := f.svc.SubmitOnline(context.Background(), IntakeInput{
		UserID:         f.userID,
		AddressID:      f.addrID,
		Lines:          []IntakeLine{{ProductID: first, Qty: 1}, {ProductID: second, Qty: 3}},
		SubtotalAmount: 190000,
		TotalAmount:    160000,
		PointsToUse:    30,
	})
	if err != nil {
		t.Fatalf("submit online: %v", err)
	}

	var sumTotal, sumPoints int64
	for _, order := range res.Orders {
		sumTotal += order.TotalAmount
		sumPoints += order.UsedPoints
	}
	if sumTotal != 160000 {
		t.Fatalf("sum of order totals = %d, want 160000", sumTotal)
	}
	if sumPoints != 30 {
		t.Fatalf("sum of used points = %d, want 30", sumPoints)
	}
}
