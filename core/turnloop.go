package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const turnQueueCapacity = 10

// turnLoop serializes turn processing: finalized utterances queue up and are
// processed strictly one at a time. A turn queued behind an interrupted one
// starts as soon as the interrupted turn's pipeline unwinds, never before.
type turnLoop struct {
	queue   chan queuedUtterance
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

type queuedUtterance struct {
	utterance Utterance
	queuedAt  time.Time
}

func newTurnLoop() *turnLoop {
	return &turnLoop{
		queue:   make(chan queuedUtterance, turnQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (loop *turnLoop) CanIngest() bool {
	if loop == nil {
		return false
	}

	select {
	case <-loop.closeCh:
		return false
	default:
		return true
	}
}

func (loop *turnLoop) StartLoop(baseCtx context.Context, processTurn func(context.Context, Utterance) error) (started bool) {
	if loop == nil || processTurn == nil || !loop.CanIngest() {
		return false
	}

	loop.startOnce.Do(func() {
		if !loop.CanIngest() {
			return
		}

		started = true
		loop.started.Store(true)
		go func() {
			defer close(loop.done)

			for {
				select {
				case <-loop.closeCh:
					return
				case queued := <-loop.queue:
					if !loop.CanIngest() {
						return
					}
					loop.processQueuedUtterance(baseCtx, queued, processTurn)
				}
			}
		}()
	})

	return started
}

func (loop *turnLoop) Stop() {
	if loop == nil {
		return
	}

	loop.endOnce.Do(func() { close(loop.closeCh) })
}

func (loop *turnLoop) Clear() {
	if loop == nil {
		return
	}

	for {
		select {
		case <-loop.queue:
		default:
			return
		}
	}
}

func (loop *turnLoop) AwaitDone() {
	if loop == nil {
		return
	}

	if loop.started.Load() {
		<-loop.done
	}
}

// Ingest queues a finalized utterance for turn processing. It never blocks on
// turn processing itself, only on queue capacity.
func (loop *turnLoop) Ingest(utterance Utterance) bool {
	if loop == nil || !loop.CanIngest() {
		return false
	}

	queued := queuedUtterance{utterance: utterance, queuedAt: time.Now()}
	select {
	case <-loop.closeCh:
		return false
	case loop.queue <- queued:
		return true
	}
}

func (loop *turnLoop) processQueuedUtterance(
	baseContext context.Context,
	queued queuedUtterance,
	processTurn func(context.Context, Utterance) error,
) {
	if loop == nil || processTurn == nil {
		return
	}

	turnCtx, turnCancel := context.WithCancel(baseContext)
	defer turnCancel()

	go func() {
		select {
		case <-loop.closeCh:
			turnCancel()
		case <-turnCtx.Done():
		}
	}()

	ctx, span := tracer.Start(turnCtx, "process turn")
	defer span.End()

	queuedTime := time.Since(queued.queuedAt).Seconds()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("assistant_turn.queued_time", queuedTime)))
	span.SetAttributes(attribute.Float64("assistant_turn.queued_time", queuedTime))

	if err := processTurn(ctx, queued.utterance); err != nil {
		err := fmt.Errorf("failed to process turn: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (loop *turnLoop) queuedUtteranceCount() int {
	if loop == nil {
		return 0
	}

	return len(loop.queue)
}
