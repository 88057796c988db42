package coordinator_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/cashsession"
	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/state"
)

// --- Mock implementations ---

type mockGateway struct {
	upsertFn          func(ctx context.Context, in gateway.PendingOrderInput) (model.PendingOrder, error)
	pendingOrdersFn   func(ctx context.Context, operatorID uuid.UUID) ([]model.PendingOrder, error)
	pendingItemsFn    func(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.PendingOrderLine, error)
	cancelOrderFn     func(ctx context.Context, in gateway.CancelPendingOrderInput) (*model.PendingOrder, error)
	cancelItemFn      func(ctx context.Context, in gateway.CancelPendingOrderItemInput) (model.OrderStatusChange, error)
	completeFn        func(ctx context.Context, in gateway.CompletePendingOrderInput) (*model.Order, error)
	createOrderFn     func(ctx context.Context, in gateway.CreateOrderInput) (model.Order, error)
	ordersByUserFn    func(ctx context.Context, operatorID uuid.UUID) ([]model.Order, error)
	orderItemsFn      func(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.OrderItemDetail, error)
	cancelOrderItemFn func(ctx context.Context, in gateway.CancelOrderItemInput) error

	pendingRefreshes int
	mutations        int
}

func (m *mockGateway) CreateOrAppendPendingOrder(ctx context.Context, in gateway.PendingOrderInput) (model.PendingOrder, error) {
	m.mutations++
	return m.upsertFn(ctx, in)
}

func (m *mockGateway) PendingOrders(ctx context.Context, operatorID uuid.UUID) ([]model.PendingOrder, error) {
	m.pendingRefreshes++
	if m.pendingOrdersFn != nil {
		return m.pendingOrdersFn(ctx, operatorID)
	}
	return []model.PendingOrder{}, nil
}

func (m *mockGateway) PendingOrderItems(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.PendingOrderLine, error) {
	if m.pendingItemsFn != nil {
		return m.pendingItemsFn(ctx, orderID, operatorID)
	}
	return []model.PendingOrderLine{}, nil
}

func (m *mockGateway) CancelPendingOrder(ctx context.Context, in gateway.CancelPendingOrderInput) (*model.PendingOrder, error) {
	m.mutations++
	return m.cancelOrderFn(ctx, in)
}

func (m *mockGateway) CancelPendingOrderItem(ctx context.Context, in gateway.CancelPendingOrderItemInput) (model.OrderStatusChange, error) {
	m.mutations++
	return m.cancelItemFn(ctx, in)
}

func (m *mockGateway) CompletePendingOrder(ctx context.Context, in gateway.CompletePendingOrderInput) (*model.Order, error) {
	m.mutations++
	return m.completeFn(ctx, in)
}

func (m *mockGateway) CreateOrder(ctx context.Context, in gateway.CreateOrderInput) (model.Order, error) {
	m.mutations++
	return m.createOrderFn(ctx, in)
}

func (m *mockGateway) OrdersByOperator(ctx context.Context, operatorID uuid.UUID) ([]model.Order, error) {
	return m.ordersByUserFn(ctx, operatorID)
}

func (m *mockGateway) OrderItems(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.OrderItemDetail, error) {
	return m.orderItemsFn(ctx, orderID, operatorID)
}

func (m *mockGateway) CancelOrderItem(ctx context.Context, in gateway.CancelOrderItemInput) error {
	m.mutations++
	return m.cancelOrderItemFn(ctx, in)
}

// mockSessions answers Require with the session in open, or
// ErrSessionRequired when it is nil.
type mockSessions struct {
	open   *model.Session
	checks int
}

func (m *mockSessions) Require(context.Context) (model.Session, error) {
	m.checks++
	if m.open == nil {
		return model.Session{}, cashsession.ErrSessionRequired
	}
	return *m.open, nil
}

// --- Fixtures ---

var (
	operator = model.Operator{ID: uuid.New(), Name: "Amine", Role: enum.RoleServer}
	espresso = model.Product{ID: uuid.New(), Name: "Espresso", Price: decimal.RequireFromString("15.00")}
	tableT3  = model.Table{ID: uuid.New(), Label: "T3", Active: true}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openSession() *model.Session {
	return &model.Session{ID: uuid.New(), OperatorID: operator.ID, StartTime: time.Now()}
}

func pendingOrder(number int, total string, ks enum.KitchenStatus) model.PendingOrder {
	tid := tableT3.ID
	return model.PendingOrder{
		ID:            uuid.New(),
		OrderNumber:   number,
		TotalAmount:   dec(total),
		CreatedAt:     time.Now(),
		Status:        enum.OrderStatusPending,
		TableID:       &tid,
		TableLabel:    tableT3.Label,
		KitchenStatus: ks,
	}
}

type fixture struct {
	gw       *mockGateway
	sessions *mockSessions
	state    *state.AppState
	coord    *coordinator.Coordinator
}

func newFixture() *fixture {
	f := &fixture{
		gw:       &mockGateway{},
		sessions: &mockSessions{open: openSession()},
		state:    state.New(),
	}
	f.state.SetOperator(operator)
	f.state.SetActiveSession(f.sessions.open)
	f.coord = coordinator.New(f.gw, f.sessions, f.state, zap.NewNop())
	return f
}

// withPending seeds the pending snapshot and makes refreshes return orders.
func (f *fixture) withPending(orders ...model.PendingOrder) {
	f.state.SetPendingOrders(orders, nil)
	f.gw.pendingOrdersFn = func(context.Context, uuid.UUID) ([]model.PendingOrder, error) {
		return orders, nil
	}
}
