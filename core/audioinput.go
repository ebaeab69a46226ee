package orchestration

import (
	"context"
	"sync/atomic"
)

// AudioInput is a microphone-style capture source. Stream starts delivering
// captured frames to onAudio and returns once capture is running; frames keep
// flowing until the source is stopped.
type AudioInput interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
}

// audioInput runs the configured capture source and keeps Start/Close
// idempotent. All methods are no-ops when no source is configured.
type audioInput struct {
	client AudioInput

	capturing atomic.Bool
}

func newAudioInput(client AudioInput) *audioInput {
	return &audioInput{client: client}
}

func (a *audioInput) Start(ctx context.Context, onAudio func(audio []byte)) error {
	if a == nil || a.client == nil {
		return nil
	}
	if !a.capturing.CompareAndSwap(false, true) {
		return nil
	}

	if err := a.client.Stream(ctx, onAudio); err != nil {
		a.capturing.Store(false)
		return err
	}
	return nil
}

func (a *audioInput) Close() error {
	if a == nil || a.client == nil || !a.capturing.CompareAndSwap(true, false) {
		return nil
	}

	switch c := a.client.(type) {
	case interface{ StopCapture() error }:
		return c.StopCapture()
	case interface{ Close() error }:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}
