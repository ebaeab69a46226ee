package orchestration

import (
	"github.com/nolavoice/nola-core/core/events"
)

// EventHandler receives orchestration events. Handlers run synchronously on
// the emitting goroutine and must not block; anything slow belongs behind the
// handler's own queue.
type EventHandler func(events.Event)

// eventEmitter fans orchestration events out to the registered handlers in
// registration order. A panicking handler is dropped from the current emit
// but never takes the orchestrator down with it.
type eventEmitter struct {
	handlers []EventHandler
}

func newEventEmitter(handlers ...EventHandler) *eventEmitter {
	emitter := &eventEmitter{}
	for _, handler := range handlers {
		emitter.Register(handler)
	}
	return emitter
}

// Register adds a handler. Registration happens during orchestrator
// construction, before any event flows, so no locking is needed here.
func (e *eventEmitter) Register(handler EventHandler) {
	if e == nil || handler == nil {
		return
	}
	e.handlers = append(e.handlers, handler)
}

func (e *eventEmitter) Emit(event events.Event) {
	if e == nil || event == nil {
		return
	}
	for _, handler := range e.handlers {
		e.dispatch(handler, event)
	}
}

func (e *eventEmitter) dispatch(handler EventHandler, event events.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Warn("event handler panicked", "kind", string(event.Kind()), "panic", recovered)
		}
	}()
	handler(event)
}
