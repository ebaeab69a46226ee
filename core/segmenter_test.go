package orchestration

import (
	"sync"
	"testing"
	"time"
)

type utteranceRecorder struct {
	mu         sync.Mutex
	utterances []Utterance
}

func (r *utteranceRecorder) record(utterance Utterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.utterances = append(r.utterances, utterance)
}

func (r *utteranceRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.utterances)
}

func (r *utteranceRecorder) at(i int) Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.utterances[i]
}

func TestSegmenterFinalizesAfterSilenceGap(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(30*time.Millisecond))
	defer segmenter.Close()

	start := time.Now()
	segmenter.Push(RecognitionEvent{Text: "what's the", Timestamp: start})
	segmenter.Push(RecognitionEvent{Text: "weather", Timestamp: start.Add(100 * time.Millisecond)})

	waitForCondition(t, 2*time.Second, "utterance to finalize after the gap", func() bool {
		return recorder.count() == 1
	})

	utterance := recorder.at(0)
	if utterance.Text != "what's the weather" {
		t.Fatalf("expected buffered segments to merge into one utterance, got %q", utterance.Text)
	}
	if !utterance.IsFinal {
		t.Fatalf("expected the produced utterance to be final")
	}
	if !utterance.StartTime.Equal(start) {
		t.Fatalf("expected start boundary %v, got %v", start, utterance.StartTime)
	}
	if !utterance.EndTime.Equal(start.Add(100 * time.Millisecond)) {
		t.Fatalf("expected end boundary at the last segment, got %v", utterance.EndTime)
	}
}

func TestSegmenterFinalHintBypassesGap(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(10*time.Second))
	defer segmenter.Close()

	segmenter.Push(RecognitionEvent{Text: "stop talking", IsFinalHint: true})

	waitForCondition(t, time.Second, "final hint to finalize without waiting for the gap", func() bool {
		return recorder.count() == 1
	})

	if got := recorder.at(0).Text; got != "stop talking" {
		t.Fatalf("expected hint-finalized utterance, got %q", got)
	}
}

func TestSegmenterDiscardsWhitespaceOnlyBuffer(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(20*time.Millisecond))
	defer segmenter.Close()

	segmenter.Push(RecognitionEvent{Text: "   "})
	segmenter.Push(RecognitionEvent{Text: "\t\n", IsFinalHint: true})

	time.Sleep(100 * time.Millisecond)
	if got := recorder.count(); got != 0 {
		t.Fatalf("expected whitespace-only input to produce no utterance, got %d", got)
	}

	segmenter.Push(RecognitionEvent{Text: "real words", IsFinalHint: true})
	waitForCondition(t, time.Second, "segmenter to still work after discarded buffers", func() bool {
		return recorder.count() == 1
	})
}

func TestSegmenterMinimumLengthFilterDiscardsStutter(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record,
		WithSilenceGap(10*time.Second),
		WithMinUtteranceLength(4),
	)
	defer segmenter.Close()

	segmenter.Push(RecognitionEvent{Text: "uh", IsFinalHint: true})
	time.Sleep(50 * time.Millisecond)
	if got := recorder.count(); got != 0 {
		t.Fatalf("expected short utterance to be discarded, got %d", got)
	}

	segmenter.Push(RecognitionEvent{Text: "okay then", IsFinalHint: true})
	waitForCondition(t, time.Second, "long-enough utterance to pass the filter", func() bool {
		return recorder.count() == 1
	})
}

func TestSegmenterNewSegmentExtendsGap(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(80*time.Millisecond))
	defer segmenter.Close()

	segmenter.Push(RecognitionEvent{Text: "one"})
	time.Sleep(40 * time.Millisecond)
	segmenter.Push(RecognitionEvent{Text: "two"})
	time.Sleep(40 * time.Millisecond)
	segmenter.Push(RecognitionEvent{Text: "three"})

	waitForCondition(t, 2*time.Second, "the extended buffer to finalize once", func() bool {
		return recorder.count() == 1
	})

	if got := recorder.at(0).Text; got != "one two three" {
		t.Fatalf("expected one merged utterance, got %q", got)
	}

	time.Sleep(150 * time.Millisecond)
	if got := recorder.count(); got != 1 {
		t.Fatalf("expected no further utterances, got %d", got)
	}
}

func TestSegmenterResetDiscardsBufferedText(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(30*time.Millisecond))
	defer segmenter.Close()

	segmenter.Push(RecognitionEvent{Text: "about to be discarded"})
	segmenter.Reset()

	time.Sleep(100 * time.Millisecond)
	if got := recorder.count(); got != 0 {
		t.Fatalf("expected reset to discard the buffer, got %d utterances", got)
	}

	segmenter.Push(RecognitionEvent{Text: "fresh session", IsFinalHint: true})
	waitForCondition(t, time.Second, "segmenter to accept input after reset", func() bool {
		return recorder.count() == 1
	})
	if got := recorder.at(0).Text; got != "fresh session" {
		t.Fatalf("expected only post-reset text, got %q", got)
	}
}

func TestSegmenterCloseFlushesPendingBuffer(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(10*time.Second))

	segmenter.Push(RecognitionEvent{Text: "cut off by"})
	segmenter.Push(RecognitionEvent{Text: "session end"})
	segmenter.Close()

	waitForCondition(t, time.Second, "close to finalize the buffered text", func() bool {
		return recorder.count() == 1
	})
	if got := recorder.at(0).Text; got != "cut off by session end" {
		t.Fatalf("expected the pending buffer flushed on close, got %q", got)
	}
}

func TestSegmenterIgnoresPushAfterClose(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(20*time.Millisecond))

	segmenter.Close()
	segmenter.Push(RecognitionEvent{Text: "after close", IsFinalHint: true})
	segmenter.Close()

	time.Sleep(100 * time.Millisecond)
	if got := recorder.count(); got != 0 {
		t.Fatalf("expected no utterances after close, got %d", got)
	}
}

func TestSegmenterDeliversUtterancesInOrder(t *testing.T) {
	recorder := &utteranceRecorder{}
	segmenter := NewSegmenter(recorder.record, WithSilenceGap(10*time.Second))
	defer segmenter.Close()

	segmenter.Push(RecognitionEvent{Text: "first", IsFinalHint: true})
	segmenter.Push(RecognitionEvent{Text: "second", IsFinalHint: true})
	segmenter.Push(RecognitionEvent{Text: "third", IsFinalHint: true})

	waitForCondition(t, 2*time.Second, "all utterances to deliver", func() bool {
		return recorder.count() == 3
	})

	for i, expected := range []string{"first", "second", "third"} {
		if got := recorder.at(i).Text; got != expected {
			t.Fatalf("expected utterance %d to be %q, got %q", i, expected, got)
		}
	}
}

func TestSegmenterPendingExposesBufferedText(t *testing.T) {
	segmenter := NewSegmenter(nil, WithSilenceGap(10*time.Second))
	defer segmenter.Close()

	segmenter.Push(RecognitionEvent{Text: "still"})
	segmenter.Push(RecognitionEvent{Text: "listening"})

	if got := segmenter.Pending(); got != "still listening" {
		t.Fatalf("expected pending buffer %q, got %q", "still listening", got)
	}

	segmenter.Flush()
	if got := segmenter.Pending(); got != "" {
		t.Fatalf("expected pending buffer to clear after flush, got %q", got)
	}
}
