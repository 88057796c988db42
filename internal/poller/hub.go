package poller

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/ws"
)

// Broadcaster defines the hub method needed by HubNotifier.
type Broadcaster interface {
	BroadcastToOperator(operatorID uuid.UUID, event ws.Event)
}

// HubNotifier pushes poller output to the operator's screens.
type HubNotifier struct {
	hub    Broadcaster
	logger *zap.Logger
}

// NewHubNotifier creates a HubNotifier.
func NewHubNotifier(hub Broadcaster, logger *zap.Logger) *HubNotifier {
	return &HubNotifier{hub: hub, logger: logger}
}

// Notify sends a kitchen.ready or kitchen.rejected event.
func (h *HubNotifier) Notify(operatorID uuid.UUID, n Notification) {
	typ := ws.EventKitchenReady
	if n.KitchenStatus != enum.KitchenStatusReady {
		typ = ws.EventKitchenRejected
	}
	h.logger.Info("Kitchen update",
		zap.Stringer("order_id", n.OrderID),
		zap.Int("order_number", n.OrderNumber),
		zap.String("kitchen_status", string(n.KitchenStatus)),
	)
	h.send(operatorID, typ, n)
}

type refreshedPayload struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// Refreshed sends an orders.refreshed event so screens reload the list.
func (h *HubNotifier) Refreshed(operatorID uuid.UUID, orders []model.PendingOrder, err error) {
	p := refreshedPayload{Count: len(orders)}
	if err != nil {
		p.Error = err.Error()
	}
	h.send(operatorID, ws.EventOrdersRefreshed, p)
}

func (h *HubNotifier) send(operatorID uuid.UUID, typ string, payload any) {
	ev, err := ws.NewEvent(typ, payload)
	if err != nil {
		h.logger.Error("Encode event", zap.String("type", typ), zap.Error(err))
		return
	}
	h.hub.BroadcastToOperator(operatorID, ev)
}
