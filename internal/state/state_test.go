package state

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafepos/terminal/internal/model"
)

func product(name, price string) model.Product {
	return model.Product{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price)}
}

func TestAddToCart_SameProductIncrements(t *testing.T) {
	s := New()
	espresso := product("Espresso", "15")
	croissant := product("Croissant", "8.5")

	s.AddToCart(espresso)
	s.AddToCart(croissant)
	s.AddToCart(espresso)

	cart := s.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, espresso.ID, cart[0].ProductID)
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, 1, cart[1].Quantity)
	assert.Equal(t, "38.5", model.CartTotal(cart).String())
}

func TestRemoveFromCart_RemovesWholeLine(t *testing.T) {
	s := New()
	espresso := product("Espresso", "15")
	s.AddToCart(espresso)
	s.AddToCart(espresso)

	s.RemoveFromCart(espresso.ID)
	assert.Empty(t, s.Cart())
}

func TestCart_ReturnsCopy(t *testing.T) {
	s := New()
	s.AddToCart(product("Espresso", "15"))

	cart := s.Cart()
	cart[0].Quantity = 99
	assert.Equal(t, 1, s.Cart()[0].Quantity)
}

func TestClearOrder_KeepsOperatorAndSession(t *testing.T) {
	s := New()
	op := model.Operator{ID: uuid.New(), Name: "Ana"}
	s.SetOperator(op)
	s.SetActiveSession(&model.Session{ID: uuid.New()})
	s.SelectTable(model.Table{ID: uuid.New(), Label: "T3"})
	s.AddToCart(product("Espresso", "15"))

	s.ClearOrder()

	assert.Empty(t, s.Cart())
	_, hasTable := s.Table()
	assert.False(t, hasTable)
	assert.Equal(t, op.ID, s.OperatorID())
	_, hasSession := s.ActiveSession()
	assert.True(t, hasSession)
}

func TestLogout_ResetsEverything(t *testing.T) {
	s := New()
	s.SetOperator(model.Operator{ID: uuid.New()})
	s.SetActiveSession(&model.Session{ID: uuid.New()})
	s.SelectTable(model.Table{ID: uuid.New()})
	s.AddToCart(product("Espresso", "15"))
	order := model.PendingOrder{ID: uuid.New()}
	s.SetPendingOrders([]model.PendingOrder{order}, nil)
	s.SetPendingLines(order.ID, []model.PendingOrderLine{{ID: uuid.New()}})

	s.Logout()

	assert.Equal(t, uuid.Nil, s.OperatorID())
	_, hasSession := s.ActiveSession()
	assert.False(t, hasSession)
	assert.Empty(t, s.Cart())
	orders, err := s.PendingOrders()
	assert.Empty(t, orders)
	assert.NoError(t, err)
	_, ok := s.PendingOrder(order.ID)
	assert.False(t, ok)
}

func TestSetActiveSession_StoresCopy(t *testing.T) {
	s := New()
	sess := &model.Session{ID: uuid.New()}
	s.SetActiveSession(sess)
	sess.ID = uuid.New()

	got, ok := s.ActiveSession()
	require.True(t, ok)
	assert.NotEqual(t, sess.ID, got.ID)

	s.SetActiveSession(nil)
	_, ok = s.ActiveSession()
	assert.False(t, ok)
}

func TestSetPendingOrders_FailureEmptiesList(t *testing.T) {
	s := New()
	s.SetPendingOrders([]model.PendingOrder{{ID: uuid.New()}}, nil)

	s.SetPendingOrders(nil, errors.New("offline"))

	orders, err := s.PendingOrders()
	assert.Empty(t, orders)
	assert.EqualError(t, err, "offline")
}

func TestSetPendingOrders_DropsLinesOfVanishedOrders(t *testing.T) {
	s := New()
	a, b := model.PendingOrder{ID: uuid.New()}, model.PendingOrder{ID: uuid.New()}
	lineA, lineB := uuid.New(), uuid.New()
	s.SetPendingOrders([]model.PendingOrder{a, b}, nil)
	s.SetPendingLines(a.ID, []model.PendingOrderLine{{ID: lineA, Quantity: 2}})
	s.SetPendingLines(b.ID, []model.PendingOrderLine{{ID: lineB, Quantity: 1}})

	s.SetPendingOrders([]model.PendingOrder{b}, nil)

	_, ok := s.PendingLine(a.ID, lineA)
	assert.False(t, ok)
	line, ok := s.PendingLine(b.ID, lineB)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
}

func TestDropPendingOrder(t *testing.T) {
	s := New()
	a, b := model.PendingOrder{ID: uuid.New()}, model.PendingOrder{ID: uuid.New()}
	s.SetPendingOrders([]model.PendingOrder{a, b}, nil)
	s.SetPendingLines(a.ID, []model.PendingOrderLine{{ID: uuid.New()}})

	s.DropPendingOrder(a.ID)

	orders, _ := s.PendingOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, b.ID, orders[0].ID)

	s.SetPendingLines(b.ID, nil)
	_, ok := s.PendingLine(b.ID, uuid.New())
	assert.False(t, ok)
}
