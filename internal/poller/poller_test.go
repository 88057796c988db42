package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/ws"
)

// --- Mocks ---

type mockSource struct {
	mu     sync.Mutex
	orders []model.PendingOrder
	err    error
	calls  int
}

func (m *mockSource) RefreshPending(ctx context.Context) ([]model.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.orders, m.err
}

func (m *mockSource) set(orders ...model.PendingOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = orders
}

func (m *mockSource) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockNotifier struct {
	mu        sync.Mutex
	sent      []Notification
	refreshes int
	lastErr   error
}

func (m *mockNotifier) Notify(operatorID uuid.UUID, n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
}

func (m *mockNotifier) Refreshed(operatorID uuid.UUID, orders []model.PendingOrder, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	m.lastErr = err
}

func (m *mockNotifier) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, n := range m.sent {
		out = append(out, n.Message)
	}
	return out
}

type fixedOperator struct{ id uuid.UUID }

func (f *fixedOperator) OperatorID() uuid.UUID { return f.id }

func newTestPoller(cfg Config) (*Poller, *mockSource, *mockNotifier, *fixedOperator) {
	src := &mockSource{}
	n := &mockNotifier{}
	op := &fixedOperator{id: uuid.New()}
	return New(src, n, op, cfg, zap.NewNop()), src, n, op
}

func ready(num int, table string) model.PendingOrder {
	return model.PendingOrder{
		ID:            uuid.New(),
		OrderNumber:   num,
		TableLabel:    table,
		Status:        enum.OrderStatusPending,
		KitchenStatus: enum.KitchenStatusReady,
	}
}

// =====================
// Notification text
// =====================

func TestNotificationFor(t *testing.T) {
	tests := []struct {
		name  string
		order model.PendingOrder
		ok    bool
		msg   string
	}{
		{"ready with table", ready(12, "T3"), true, "Commande #12 (Table T3) est prête."},
		{"ready direct sale", ready(7, ""), true, "Commande #7 est prête."},
		{
			name: "rejected with reason and note",
			order: model.PendingOrder{
				OrderNumber: 9, KitchenStatus: enum.KitchenStatusRejected,
				KitchenReason: enum.KitchenReasonOutOfStock, KitchenNote: "plus de lait",
			},
			ok:  true,
			msg: "Commande #9 • Rupture de stock\nNote: plus de lait",
		},
		{
			name:  "rejected unknown reason",
			order: model.PendingOrder{OrderNumber: 4, KitchenStatus: enum.KitchenStatusRejected, KitchenReason: "four"},
			ok:    true,
			msg:   "Commande #4 • four",
		},
		{
			name:  "rejected bare",
			order: model.PendingOrder{OrderNumber: 5, KitchenStatus: enum.KitchenStatusRejected},
			ok:    true,
			msg:   "Commande #5",
		},
		{"new is silent", model.PendingOrder{OrderNumber: 1, KitchenStatus: enum.KitchenStatusNew}, false, ""},
		{"untouched is silent", model.PendingOrder{OrderNumber: 1}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := notificationFor(tt.order)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.msg, n.Message)
		})
	}
}

func TestKitchenReasonLabel(t *testing.T) {
	assert.Equal(t, "Panne matériel", KitchenReasonLabel("panne"))
	assert.Equal(t, "Autre", KitchenReasonLabel("autre"))
	assert.Equal(t, "", KitchenReasonLabel(""))
}

// =====================
// Refresh
// =====================

func TestRefresh_NotifiesOnce(t *testing.T) {
	p, src, n, _ := newTestPoller(Config{})
	o := ready(12, "T3")
	src.set(o)

	for i := 0; i < 3; i++ {
		_, err := p.Refresh(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Commande #12 (Table T3) est prête."}, n.messages())
	assert.Equal(t, 3, n.refreshes)
}

func TestRefresh_NewNoteNotifiesAgain(t *testing.T) {
	p, src, n, _ := newTestPoller(Config{})
	o := model.PendingOrder{ID: uuid.New(), OrderNumber: 3, KitchenStatus: enum.KitchenStatusRejected, KitchenNote: "a"}
	src.set(o)
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	o.KitchenNote = "b"
	src.set(o)
	_, err = p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Len(t, n.messages(), 2)
}

func TestRefresh_EvictsOrdersThatLeft(t *testing.T) {
	p, src, n, _ := newTestPoller(Config{})
	a, b := ready(1, ""), ready(2, "")
	src.set(a, b)
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, p.notified.len())

	src.set(b)
	_, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.notified.len())
	assert.True(t, p.notified.has(notifiedKey(b)))
	assert.Len(t, n.messages(), 2)
}

func TestRefresh_CapEvictsOldest(t *testing.T) {
	p, src, _, _ := newTestPoller(Config{NotifiedCap: 2})
	a, b, c := ready(1, ""), ready(2, ""), ready(3, "")
	src.set(a, b, c)
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, p.notified.len())
	assert.False(t, p.notified.has(notifiedKey(a)))
	assert.True(t, p.notified.has(notifiedKey(c)))
}

func TestRefresh_ErrorReported(t *testing.T) {
	p, src, n, _ := newTestPoller(Config{})
	src.err = errors.New("offline")

	orders, err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Nil(t, orders)
	assert.EqualError(t, n.lastErr, "offline")
	assert.Empty(t, n.messages())
}

func TestRefresh_LoggedOut(t *testing.T) {
	p, src, n, op := newTestPoller(Config{})
	src.set(ready(1, ""))
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	op.id = uuid.Nil
	orders, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Nil(t, orders)
	assert.Equal(t, 1, src.count())
	assert.Equal(t, 0, p.notified.len())

	// The next operator sees the same kitchen update again.
	op.id = uuid.New()
	_, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, n.messages(), 2)
}

// =====================
// Run loop
// =====================

func TestRun_TriggerAndTicks(t *testing.T) {
	p, src, _, _ := newTestPoller(Config{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Not mounted: ticks are ignored.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, src.count())

	p.Trigger()
	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)

	p.Mount()
	require.Eventually(t, func() bool { return src.count() >= 4 }, time.Second, 5*time.Millisecond)

	p.Unmount()
	assert.False(t, p.Mounted())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestTrigger_NeverBlocks(t *testing.T) {
	p, _, _, _ := newTestPoller(Config{})
	for i := 0; i < 10; i++ {
		p.Trigger()
	}
	assert.Len(t, p.trigger, 1)
}

// =====================
// Hub notifier
// =====================

type mockBroadcaster struct {
	events []ws.Event
}

func (m *mockBroadcaster) BroadcastToOperator(operatorID uuid.UUID, event ws.Event) {
	m.events = append(m.events, event)
}

func TestHubNotifier(t *testing.T) {
	b := &mockBroadcaster{}
	h := NewHubNotifier(b, zap.NewNop())
	op := uuid.New()

	n, _ := notificationFor(ready(12, "T3"))
	h.Notify(op, n)
	rej, _ := notificationFor(model.PendingOrder{OrderNumber: 2, KitchenStatus: enum.KitchenStatusRejected})
	h.Notify(op, rej)
	h.Refreshed(op, []model.PendingOrder{ready(1, "")}, nil)
	h.Refreshed(op, nil, errors.New("offline"))

	require.Len(t, b.events, 4)
	assert.Equal(t, ws.EventKitchenReady, b.events[0].Type)
	assert.Contains(t, string(b.events[0].Payload), "est prête")
	assert.Equal(t, ws.EventKitchenRejected, b.events[1].Type)
	assert.JSONEq(t, `{"count":1}`, string(b.events[2].Payload))
	assert.JSONEq(t, `{"count":0,"error":"offline"}`, string(b.events[3].Payload))
}
