// Package bus carries domain events to in-process subscribers. It keeps slow
// best-effort work (notification mail) off request and webhook response paths.
package bus

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/refurbly/storefront/internal/domain/event"
	"go.uber.org/zap"
)

const (
	queueCapacity  = 1024
	handlerFanout  = 8
	handlerTimeout = 30 * time.Second
)

// Bus is an in-memory event bus. It is not durable; events accepted before a crash
// can be lost, which is acceptable for the best-effort work routed through it.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string][]event.Handler
	queue     chan event.Event
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	log       *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) *Bus {
	return &Bus{
		subs:  make(map[string][]event.Handler),
		queue: make(chan event.Event, queueCapacity),
		done:  make(chan struct{}),
		log:   logger.With("component", "bus"),
	}
}

func (b *Bus) Subscribe(eventName string, h event.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		b.cancel = cancel
		go b.dispatchLoop(bg)
		b.log.Infow("event_bus_started")
	})
}

func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.queue)
		select {
		case <-b.done:
		case <-ctx.Done():
		}
		if b.cancel != nil {
			b.cancel()
		}
		b.log.Infow("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e event.Event) error {
	if e == nil {
		return nil
	}
	select {
	case b.queue <- e:
		return nil
	case <-ctx.Done():
		b.log.Warnw("event_enqueue_aborted", "event", e.EventName(), "error", ctx.Err())
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e event.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]event.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debugw("event_dropped_no_subscriber", "event", name)
		return
	}

	// Handlers must finish even when the publishing request's context ends.
	ctx = context.WithoutCancel(ctx)

	sem := make(chan struct{}, handlerFanout)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Errorw("event_handler_panic",
						"event", name,
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			err := h(hctx, e)
			cancel()
			if err != nil {
				b.log.Warnw("event_handler_error", "event", name, "error", err)
			}
		}()
	}

	wg.Wait()
}
