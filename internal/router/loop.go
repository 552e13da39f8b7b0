package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/depotbot/depotbot/internal/channel"
)

const (
	// fetchBackoff paces retries when the update fetch fails.
	fetchBackoff = 3 * time.Second
	// queueCapacity bounds each identity's pending events; a full
	// queue applies backpressure to the fetch loop.
	queueCapacity = 16
	// handlerTimeout bounds one handler invocation. Dispatch runs on a
	// context detached from shutdown so an in-flight event is never
	// abandoned mid-handler.
	handlerTimeout = 30 * time.Second
	// maxConcurrentDispatch caps handlers running at once across all
	// identities.
	maxConcurrentDispatch = 8
)

// Loop fetches batches of events and feeds them to per-identity
// workers: events for one identity are handled strictly in arrival
// order, while different identities proceed concurrently up to a
// global bound.
type Loop struct {
	source     channel.Source
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	workers map[int64]chan channel.Event
	wg      sync.WaitGroup
	slots   chan struct{}
}

// NewLoop builds the fetch/dispatch loop.
func NewLoop(log *slog.Logger, source channel.Source, dispatcher *Dispatcher) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		source:     source,
		dispatcher: dispatcher,
		logger:     log.With(slog.String("component", "loop")),
		workers:    make(map[int64]chan channel.Event),
		slots:      make(chan struct{}, maxConcurrentDispatch),
	}
}

// Run fetches and dispatches until ctx is canceled, then drains all
// queued and in-flight events before returning. The cursor is held in
// memory only; a restart re-fetches from the platform default, which
// the idempotent store writes make safe.
func (l *Loop) Run(ctx context.Context) error {
	cursor := 0
	for ctx.Err() == nil {
		events, next, err := l.source.FetchEvents(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			l.logger.Warn("fetch events failed", slog.Any("error", err))
			select {
			case <-time.After(fetchBackoff):
			case <-ctx.Done():
			}
			continue
		}
		cursor = next
		for _, ev := range events {
			l.enqueue(ev)
		}
	}

	l.drain()
	return ctx.Err()
}

func (l *Loop) enqueue(ev channel.Event) {
	l.mu.Lock()
	queue, ok := l.workers[workerKey(ev)]
	if !ok {
		queue = make(chan channel.Event, queueCapacity)
		l.workers[workerKey(ev)] = queue
		l.wg.Add(1)
		go l.worker(queue)
	}
	l.mu.Unlock()
	queue <- ev
}

// workerKey serializes events per sender; events without a sender fall
// back to the chat so they still have a stable ordering key.
func workerKey(ev channel.Event) int64 {
	if ev.Sender.ID != 0 {
		return ev.Sender.ID
	}
	return ev.ChatID
}

func (l *Loop) worker(queue <-chan channel.Event) {
	defer l.wg.Done()
	for ev := range queue {
		l.slots <- struct{}{}
		func() {
			defer func() { <-l.slots }()
			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()
			// Dispatch logs its own failures; the loop never stops
			// on a handler error.
			_ = l.dispatcher.Dispatch(ctx, ev)
		}()
	}
}

// drain closes all worker queues and waits for in-flight handlers.
func (l *Loop) drain() {
	l.mu.Lock()
	for _, queue := range l.workers {
		close(queue)
	}
	l.mu.Unlock()
	l.wg.Wait()
}
