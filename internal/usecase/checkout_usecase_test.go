package usecase_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"shop/internal/domain/model"
	"shop/internal/notification"
	"shop/internal/payment"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type CoCartItemRepoMock struct{ mock.Mock }

func (m *CoCartItemRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CoCartItemRepoMock) UpsertByUserAndProduct(ctx context.Context, userID int64, productID int64, addQty int64) error {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoCartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, userID int64, qty int64) error {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoCartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64, userID int64) error {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoCartItemRepoMock) DeleteByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type CoProductRepoMock struct{ mock.Mock }

func (m *CoProductRepoMock) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

type CoUserRepoMock struct{ mock.Mock }

func (m *CoUserRepoMock) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

type CoOrderRepoMock struct{ mock.Mock }

func (m *CoOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CoOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoOrderRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	panic("not used in CheckoutUsecase tests")
}

type CoOrderItemRepoMock struct{ mock.Mock }

func (m *CoOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *CoOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	panic("not used in CheckoutUsecase tests")
}

type CoInventoryRepoMock struct{ mock.Mock }

func (m *CoInventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

type CoGatewayMock struct{ mock.Mock }

func (m *CoGatewayMock) Charge(ctx context.Context, in payment.ChargeInput) (payment.Charge, error) {
	args := m.Called(ctx, in)
	ch, _ := args.Get(0).(payment.Charge)
	return ch, args.Error(1)
}

type CoNotifierSpy struct {
	events []notification.OrderConfirmation
}

func (n *CoNotifierSpy) Enqueue(ev notification.OrderConfirmation) {
	n.events = append(n.events, ev)
}

// txに入ったかどうかを記録するスタブ
type coTxRepos struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	cartItems  repo.CartItemRepository
	inventory  repo.InventoryRepository
	products   repo.ProductRepository
}

func (r *coTxRepos) Orders() repo.OrderRepository         { return r.orders }
func (r *coTxRepos) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *coTxRepos) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *coTxRepos) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *coTxRepos) Products() repo.ProductRepository     { return r.products }

type coTxManagerStub struct {
	repos  repo.TxRepos
	called bool
}

func (m *coTxManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.called = true
	return fn(m.repos)
}

func assertHTTPError(t *testing.T, err error, status int, contains string) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	assert.Equal(t, status, he.Status)
	if contains != "" && !strings.Contains(he.Message, contains) {
		t.Fatalf("message %q does not contain %q", he.Message, contains)
	}
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// =====================
// PlaceOrder
// =====================

func newCheckoutFixture() (*usecase.CheckoutUsecase, *CoCartItemRepoMock, *CoProductRepoMock, *CoUserRepoMock, *CoOrderRepoMock, *CoOrderItemRepoMock, *CoInventoryRepoMock, *CoGatewayMock, *CoNotifierSpy, *coTxManagerStub) {
	cartRepo := new(CoCartItemRepoMock)
	productRepo := new(CoProductRepoMock)
	userRepo := new(CoUserRepoMock)
	orderRepo := new(CoOrderRepoMock)
	orderItemRepo := new(CoOrderItemRepoMock)
	inventoryRepo := new(CoInventoryRepoMock)
	gateway := new(CoGatewayMock)
	notifier := &CoNotifierSpy{}

	txm := &coTxManagerStub{repos: &coTxRepos{
		orders:     orderRepo,
		orderItems: orderItemRepo,
		cartItems:  cartRepo,
		inventory:  inventoryRepo,
		products:   productRepo,
	}}

	uc := usecase.NewCheckoutUsecase(txm, cartRepo, productRepo, userRepo, gateway, notifier, "usd")
	return uc, cartRepo, productRepo, userRepo, orderRepo, orderItemRepo, inventoryRepo, gateway, notifier, txm
}

func TestCheckoutUsecase_PlaceOrder_MissingPaymentMethod(t *testing.T) {
	uc, _, _, _, _, _, _, gateway, _, txm := newCheckoutFixture()

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{PaymentMethodID: "  "})
	assertHTTPError(t, err, http.StatusBadRequest, "payment_method_id")

	gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	assert.False(t, txm.called)
}

func TestCheckoutUsecase_PlaceOrder_EmptyCart(t *testing.T) {
	uc, cartRepo, _, _, _, _, _, gateway, _, txm := newCheckoutFixture()

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{}, nil)

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{PaymentMethodID: "pm_123"})
	assertHTTPError(t, err, http.StatusBadRequest, "Cart is empty")

	//空カートではゲートウェイを呼ばない
	gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	assert.False(t, txm.called)
}

func TestCheckoutUsecase_PlaceOrder_Success(t *testing.T) {
	uc, cartRepo, productRepo, userRepo, orderRepo, orderItemRepo, inventoryRepo, gateway, notifier, _ := newCheckoutFixture()
	ctx := context.Background()

	//cart = A(10.00)×2 + B(5.00)×1 → total 25.00
	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 11, UserID: 1, ProductID: 100, Quantity: 2},
		{ID: 12, UserID: 1, ProductID: 200, Quantity: 1},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Product{ID: 100, Name: "A", Price: d("10.00"), InventoryCount: 5}, nil)
	productRepo.On("FindByID", mock.Anything, int64(200)).
		Return(model.Product{ID: 200, Name: "B", Price: d("5.00"), InventoryCount: 3}, nil)

	//最小通貨単位で2500
	gateway.On("Charge", mock.Anything, payment.ChargeInput{
		AmountMinor:     2500,
		Currency:        "usd",
		PaymentMethodID: "pm_123",
	}).Return(payment.Charge{ID: "pi_1", Status: "succeeded"}, nil)

	orderRepo.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == 1 &&
			o.Status == model.OrderStatusPaid &&
			o.TotalAmount.Equal(d("25.00")) &&
			o.PaymentIntentID == "pi_1"
	})).Return(int64(42), nil)

	//unit_priceは現在価格のスナップショット
	orderItemRepo.On("CreateBulk", mock.Anything, int64(42), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 2 &&
			items[0].ProductID == 100 && items[0].Quantity == 2 && items[0].UnitPrice.Equal(d("10.00")) &&
			items[1].ProductID == 200 && items[1].Quantity == 1 && items[1].UnitPrice.Equal(d("5.00"))
	})).Return(nil)

	inventoryRepo.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)
	inventoryRepo.On("DecreaseStockIfEnough", mock.Anything, int64(200), int64(1)).Return(true, nil)

	cartRepo.On("DeleteByUserID", mock.Anything, int64(1)).Return(nil)

	userRepo.On("FindByID", mock.Anything, int64(1)).
		Return(model.User{ID: 1, Email: "buyer@example.com"}, nil)

	out, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{PaymentMethodID: "pm_123"})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)
	assert.Equal(t, string(model.OrderStatusPaid), out.Status)
	assert.True(t, out.TotalAmount.Equal(d("25.00")))
	assert.Len(t, out.Items, 2)
	assert.True(t, out.Items[0].TotalPrice.Equal(d("20.00")))

	orderRepo.AssertExpectations(t)
	orderItemRepo.AssertExpectations(t)
	inventoryRepo.AssertExpectations(t)
	cartRepo.AssertExpectations(t)

	//確認メールが投入されている
	if assert.Len(t, notifier.events, 1) {
		assert.Equal(t, "buyer@example.com", notifier.events[0].Email)
		assert.Equal(t, int64(42), notifier.events[0].OrderID)
		assert.True(t, notifier.events[0].TotalAmount.Equal(d("25.00")))
	}
}

func TestCheckoutUsecase_PlaceOrder_GatewayDeclined(t *testing.T) {
	uc, cartRepo, productRepo, _, _, _, _, gateway, notifier, txm := newCheckoutFixture()

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 11, UserID: 1, ProductID: 100, Quantity: 1},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Product{ID: 100, Price: d("10.00"), InventoryCount: 5}, nil)

	gateway.On("Charge", mock.Anything, mock.Anything).
		Return(payment.Charge{}, &payment.GatewayError{Code: "card_declined", Message: "Your card was declined."})

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{PaymentMethodID: "pm_bad"})
	assertHTTPError(t, err, http.StatusBadRequest, "Your card was declined.")

	//失敗時はDBに一切書かない
	assert.False(t, txm.called)
	assert.Empty(t, notifier.events)
}

func TestCheckoutUsecase_PlaceOrder_OutOfStock(t *testing.T) {
	uc, cartRepo, productRepo, _, _, _, _, gateway, _, txm := newCheckoutFixture()

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 11, UserID: 1, ProductID: 100, Quantity: 3},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Product{ID: 100, Price: d("10.00"), InventoryCount: 2}, nil)

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{PaymentMethodID: "pm_123"})
	assertHTTPError(t, err, http.StatusBadRequest, "out of stock")

	//課金前に弾く
	gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	assert.False(t, txm.called)
}

func TestCheckoutUsecase_PlaceOrder_PersistFailureAfterCharge(t *testing.T) {
	uc, cartRepo, productRepo, _, orderRepo, orderItemRepo, inventoryRepo, gateway, notifier, _ := newCheckoutFixture()

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 11, UserID: 1, ProductID: 100, Quantity: 1},
	}, nil)
	productRepo.On("FindByID", mock.Anything, int64(100)).
		Return(model.Product{ID: 100, Price: d("10.00"), InventoryCount: 1}, nil)

	gateway.On("Charge", mock.Anything, mock.Anything).
		Return(payment.Charge{ID: "pi_2", Status: "succeeded"}, nil)

	orderRepo.On("Create", mock.Anything, mock.Anything).Return(int64(43), nil)
	orderItemRepo.On("CreateBulk", mock.Anything, int64(43), mock.Anything).Return(nil)
	//事前チェック後に他のチェックアウトが在庫を取った
	inventoryRepo.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(false, nil)

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{PaymentMethodID: "pm_123"})
	assertHTTPError(t, err, http.StatusInternalServerError, "")

	cartRepo.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.events)
}
