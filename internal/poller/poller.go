// Package poller keeps the pending-order list fresh while the orders
// screen is shown and turns kitchen status changes into one-time
// notifications.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/model"
)

const (
	DefaultInterval    = 10 * time.Second
	DefaultNotifiedCap = 512
)

// Source defines the refresh needed by the poller.
type Source interface {
	RefreshPending(ctx context.Context) ([]model.PendingOrder, error)
}

// Notifier receives kitchen notifications and refresh results.
type Notifier interface {
	Notify(operatorID uuid.UUID, n Notification)
	Refreshed(operatorID uuid.UUID, orders []model.PendingOrder, err error)
}

// Operators reports who is logged in.
type Operators interface {
	OperatorID() uuid.UUID
}

// Config holds the poller settings.
type Config struct {
	Interval    time.Duration
	NotifiedCap int
}

// Poller refreshes pending orders on a ticker while mounted and on demand.
type Poller struct {
	source    Source
	notifier  Notifier
	operators Operators
	interval  time.Duration
	logger    *zap.Logger

	trigger chan struct{}

	mu       sync.Mutex // serializes refreshes
	notified *notifiedSet
	lastOp   uuid.UUID

	mountMu sync.Mutex
	mounted bool
}

// New creates a Poller. Zero config values fall back to the defaults.
func New(source Source, notifier Notifier, operators Operators, cfg Config, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{
		source:    source,
		notifier:  notifier,
		operators: operators,
		interval:  cfg.Interval,
		logger:    logger,
		trigger:   make(chan struct{}, 1),
		notified:  newNotifiedSet(cfg.NotifiedCap),
	}
}

// Run refreshes on every trigger, and on every tick while mounted, until
// ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.trigger:
		case <-ticker.C:
			if !p.Mounted() {
				continue
			}
		}
		if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("Pending refresh failed", zap.Error(err))
		}
	}
}

// Trigger requests an immediate refresh. It never blocks; a trigger that
// is already queued absorbs this one.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Mount starts periodic refreshes and refreshes right away, as when the
// orders screen gains focus.
func (p *Poller) Mount() {
	p.mountMu.Lock()
	p.mounted = true
	p.mountMu.Unlock()
	p.Trigger()
}

// Unmount stops periodic refreshes. Triggers still work.
func (p *Poller) Unmount() {
	p.mountMu.Lock()
	p.mounted = false
	p.mountMu.Unlock()
}

// Mounted reports whether periodic refreshes are on.
func (p *Poller) Mounted() bool {
	p.mountMu.Lock()
	defer p.mountMu.Unlock()
	return p.mounted
}

// Refresh reloads the pending orders and notifies kitchen updates that
// were not shown yet.
func (p *Poller) Refresh(ctx context.Context) ([]model.PendingOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	op := p.operators.OperatorID()
	if op != p.lastOp {
		p.notified.reset()
		p.lastOp = op
	}
	if op == uuid.Nil {
		return nil, nil
	}

	orders, err := p.source.RefreshPending(ctx)
	p.notifier.Refreshed(op, orders, err)
	if err != nil {
		return nil, err
	}

	live := make(map[uuid.UUID]struct{}, len(orders))
	for _, o := range orders {
		live[o.ID] = struct{}{}
	}
	p.notified.retain(live)

	for _, o := range orders {
		n, ok := notificationFor(o)
		if !ok {
			continue
		}
		key := notifiedKey(o)
		if p.notified.has(key) {
			continue
		}
		p.notifier.Notify(op, n)
		p.notified.add(key, o.ID)
	}
	return orders, nil
}
