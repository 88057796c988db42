package poller

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/model"
)

// Notification is a kitchen update shown once to the operator.
type Notification struct {
	OrderID       uuid.UUID          `json:"order_id"`
	OrderNumber   int                `json:"order_number"`
	KitchenStatus enum.KitchenStatus `json:"kitchen_status"`
	Title         string             `json:"title"`
	Message       string             `json:"message"`
}

var kitchenReasonLabels = map[string]string{
	enum.KitchenReasonOutOfStock: "Rupture de stock",
	enum.KitchenReasonBreakdown:  "Panne matériel",
	enum.KitchenReasonOther:      "Autre",
}

// KitchenReasonLabel returns the display label of a kitchen rejection
// reason. Unknown reasons are shown as sent.
func KitchenReasonLabel(reason string) string {
	if l, ok := kitchenReasonLabels[reason]; ok {
		return l
	}
	return reason
}

// notificationFor builds the message for an order the kitchen marked
// ready or rejected. ok is false for every other kitchen status.
func notificationFor(o model.PendingOrder) (Notification, bool) {
	n := Notification{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		KitchenStatus: o.KitchenStatus,
	}

	switch o.KitchenStatus {
	case enum.KitchenStatusReady:
		n.Title = "Commande prête"
		if o.TableLabel != "" {
			n.Message = fmt.Sprintf("Commande #%d (Table %s) est prête.", o.OrderNumber, o.TableLabel)
		} else {
			n.Message = fmt.Sprintf("Commande #%d est prête.", o.OrderNumber)
		}
	case enum.KitchenStatusRejected:
		n.Title = "Commande refusée"
		var b strings.Builder
		fmt.Fprintf(&b, "Commande #%d", o.OrderNumber)
		if label := KitchenReasonLabel(o.KitchenReason); label != "" {
			b.WriteString(" • ")
			b.WriteString(label)
		}
		if o.KitchenNote != "" {
			b.WriteString("\nNote: ")
			b.WriteString(o.KitchenNote)
		}
		n.Message = b.String()
	default:
		return Notification{}, false
	}
	return n, true
}

// notifiedKey identifies one kitchen update of an order. A new note on a
// rejected order is a new update.
func notifiedKey(o model.PendingOrder) string {
	return o.ID.String() + ":" + string(o.KitchenStatus) + ":" + o.KitchenNote
}

// notifiedSet remembers which kitchen updates were already shown. Keys of
// orders that left the pending list are evicted on every sync and the
// oldest keys go first once the cap is reached.
type notifiedSet struct {
	cap   int
	order []string
	keys  map[string]uuid.UUID
}

func newNotifiedSet(cap int) *notifiedSet {
	if cap <= 0 {
		cap = DefaultNotifiedCap
	}
	return &notifiedSet{cap: cap, keys: make(map[string]uuid.UUID)}
}

func (s *notifiedSet) has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s *notifiedSet) add(key string, orderID uuid.UUID) {
	if s.has(key) {
		return
	}
	s.keys[key] = orderID
	s.order = append(s.order, key)
	for len(s.order) > s.cap {
		delete(s.keys, s.order[0])
		s.order = s.order[1:]
	}
}

// retain drops keys of orders that are not in live.
func (s *notifiedSet) retain(live map[uuid.UUID]struct{}) {
	kept := s.order[:0]
	for _, k := range s.order {
		if _, ok := live[s.keys[k]]; ok {
			kept = append(kept, k)
			continue
		}
		delete(s.keys, k)
	}
	s.order = kept
}

func (s *notifiedSet) reset() {
	s.order = nil
	s.keys = make(map[string]uuid.UUID)
}

func (s *notifiedSet) len() int {
	return len(s.order)
}
