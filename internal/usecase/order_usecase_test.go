package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type OrdOrderRepoMock struct{ mock.Mock }

func (m *OrdOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrdOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrdOrderRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

type OrdOrderItemRepoMock struct{ mock.Mock }

func (m *OrdOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrdOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func newOrderFixture() (*usecase.OrderUsecase, *OrdOrderRepoMock, *OrdOrderItemRepoMock) {
	orderRepo := new(OrdOrderRepoMock)
	orderItemRepo := new(OrdOrderItemRepoMock)

	txm := &coTxManagerStub{repos: &coTxRepos{
		orders:     orderRepo,
		orderItems: orderItemRepo,
	}}

	return usecase.NewOrderUsecase(txm), orderRepo, orderItemRepo
}

func TestOrderUsecase_ListMyOrders_Success(t *testing.T) {
	uc, orderRepo, orderItemRepo := newOrderFixture()

	now := time.Now()
	orderRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.Order{
		{ID: 42, UserID: 1, Status: model.OrderStatusPaid, TotalAmount: d("25.00"), CreatedAt: now},
	}, nil)
	orderItemRepo.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{ID: 1, OrderID: 42, ProductID: 100, Quantity: 2, UnitPrice: d("10.00")},
		{ID: 2, OrderID: 42, ProductID: 200, Quantity: 1, UnitPrice: d("5.00")},
	}, nil)

	outs, err := uc.ListMyOrders(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, outs, 1)
	assert.Len(t, outs[0].Items, 2)
	assert.True(t, outs[0].TotalAmount.Equal(d("25.00")))
	assert.True(t, outs[0].Items[0].TotalPrice.Equal(d("20.00")))
}

func TestOrderUsecase_GetMyOrderDetail_OtherUsersOrder(t *testing.T) {
	uc, orderRepo, _ := newOrderFixture()

	orderRepo.On("FindByID", mock.Anything, int64(42)).
		Return(model.Order{ID: 42, UserID: 1}, nil)

	//他人の注文は404
	_, err := uc.GetMyOrderDetail(context.Background(), 2, 42)
	assertHTTPError(t, err, http.StatusNotFound, "not found")
}

func TestOrderUsecase_GetMyOrderDetail_NotFound(t *testing.T) {
	uc, orderRepo, _ := newOrderFixture()

	orderRepo.On("FindByID", mock.Anything, int64(999)).
		Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.GetMyOrderDetail(context.Background(), 1, 999)
	assertHTTPError(t, err, http.StatusNotFound, "not found")
}
