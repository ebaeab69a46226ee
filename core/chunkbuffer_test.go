package orchestration

import (
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

func TestChunkCutterCutsAtSentenceBoundary(t *testing.T) {
	cutter := newChunkCutter("", 0, 0)

	if got := cutter.Append("It's sunny"); len(got) != 0 {
		t.Fatalf("expected no cut before a boundary, got %v", got)
	}
	got := cutter.Append(" today. And")
	if len(got) != 1 || got[0] != "It's sunny today." {
		t.Fatalf("expected boundary cut %q, got %v", "It's sunny today.", got)
	}
	got = cutter.Append(" warm.")
	if len(got) != 1 || got[0] != "And warm." {
		t.Fatalf("expected trailing sentence %q, got %v", "And warm.", got)
	}
	if remainder := cutter.Flush(); remainder != "" {
		t.Fatalf("expected empty remainder, got %q", remainder)
	}
}

func TestChunkCutterCutsLongTextAtLastWhitespace(t *testing.T) {
	cutter := newChunkCutter("", 0, 10)

	got := cutter.Append("It's sunny today.")
	if len(got) != 2 || got[0] != "It's sunny" || got[1] != "today." {
		t.Fatalf("expected a length cut then a boundary cut, got %v", got)
	}
	if remainder := cutter.Flush(); remainder != "" {
		t.Fatalf("expected empty remainder, got %q", remainder)
	}
}

func TestChunkCutterBoundsPendingWithOnlyLeadingWhitespace(t *testing.T) {
	cutter := newChunkCutter("", 0, 10)

	got := cutter.Append(" " + strings.Repeat("a", 50))
	if len(got) == 0 {
		t.Fatalf("expected the length cap to force cuts through spaceless text")
	}
	if pending := utf8.RuneCountInString(cutter.Pending()); pending > 10 {
		t.Fatalf("expected pending to stay within the cap, got %d runes", pending)
	}
}

func TestChunkCutterHoldsBoundaryUnderMinLength(t *testing.T) {
	cutter := newChunkCutter("", 12, 0)

	if got := cutter.Append("Hi. there."); len(got) != 0 {
		t.Fatalf("expected boundaries inside a short buffer to be held, got %v", got)
	}
	got := cutter.Append(" Yes.")
	if len(got) != 1 || got[0] != "Hi. there. Yes." {
		t.Fatalf("expected one cut once the floor is reached, got %v", got)
	}
}

func TestChunkCutterHardCutsUnbrokenText(t *testing.T) {
	cutter := newChunkCutter("", 0, 5)

	got := cutter.Append("abcdefghij")
	if len(got) != 1 || got[0] != "abcde" {
		t.Fatalf("expected hard cut %q, got %v", "abcde", got)
	}
	if remainder := cutter.Flush(); remainder != "fghij" {
		t.Fatalf("expected remainder %q, got %q", "fghij", remainder)
	}
}

func TestChunkCutterKeepsDecimalPointIntact(t *testing.T) {
	cutter := newChunkCutter("", 0, 0)

	got := cutter.Append("pi is about 3.14 rounded.")
	if len(got) != 1 || got[0] != "pi is about 3.14 rounded." {
		t.Fatalf("expected decimal point to survive inside the chunk, got %v", got)
	}
}

func TestChunkCutterCutsFullWidthBoundaries(t *testing.T) {
	cutter := newChunkCutter("", 0, 0)

	got := cutter.Append("今天天气很好。明天也是。")
	if len(got) != 2 {
		t.Fatalf("expected two full-width sentence cuts, got %v", got)
	}
	if got[0] != "今天天气很好。" || got[1] != "明天也是。" {
		t.Fatalf("expected full-width sentences, got %v", got)
	}
}

func TestChunkCutterCutsMultipleBoundariesInOneDelta(t *testing.T) {
	cutter := newChunkCutter("", 0, 0)

	got := cutter.Append("Yes. No! Maybe")
	if len(got) != 2 || got[0] != "Yes." || got[1] != "No!" {
		t.Fatalf("expected two sentence cuts, got %v", got)
	}
	if remainder := cutter.Flush(); remainder != "Maybe" {
		t.Fatalf("expected remainder %q, got %q", "Maybe", remainder)
	}
}

func TestChunkCutterHonorsConfiguredBoundaries(t *testing.T) {
	cutter := newChunkCutter("|", 0, 0)

	got := cutter.Append("first part| second part. still pending")
	if len(got) != 1 || got[0] != "first part|" {
		t.Fatalf("expected cut only at configured boundary, got %v", got)
	}
	if remainder := cutter.Flush(); remainder != "second part. still pending" {
		t.Fatalf("expected default boundaries to be replaced, got %q", remainder)
	}
}

func TestChunkCutterDropsWhitespaceOnlyCuts(t *testing.T) {
	cutter := newChunkCutter("", 0, 3)

	if got := cutter.Append("      "); len(got) != 0 {
		t.Fatalf("expected whitespace-only cuts to be dropped, got %v", got)
	}
	if remainder := cutter.Flush(); remainder != "" {
		t.Fatalf("expected empty remainder, got %q", remainder)
	}
}

func TestChunkQueueYieldsInPushOrder(t *testing.T) {
	queue := newChunkQueue()
	queue.Push(Chunk{TurnID: 1, Sequence: 1, Text: "first"})
	queue.Push(Chunk{TurnID: 1, Sequence: 2, Text: "second"})

	var mu sync.Mutex
	var collected []Chunk
	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.Chunks(func(chunk Chunk) bool {
			mu.Lock()
			collected = append(collected, chunk)
			mu.Unlock()
			return true
		})
	}()

	waitForCondition(t, time.Second, "queued chunks to be consumed", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(collected) == 2
	})

	queue.Push(Chunk{TurnID: 1, Sequence: 3, Text: "third", IsLast: true})
	queue.Complete()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected iteration to finish after completion")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, expected := range []string{"first", "second", "third"} {
		if collected[i].Text != expected {
			t.Fatalf("expected chunk %d to be %q, got %q", i, expected, collected[i].Text)
		}
		if collected[i].Sequence != i+1 {
			t.Fatalf("expected sequence %d, got %d", i+1, collected[i].Sequence)
		}
	}
}

func TestChunkQueueClearUnblocksIteration(t *testing.T) {
	queue := newChunkQueue()

	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.Chunks(func(Chunk) bool { return true })
	}()

	time.Sleep(20 * time.Millisecond)
	queue.Clear()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected clear to unblock iteration")
	}

	queue.Push(Chunk{TurnID: 1, Sequence: 1, Text: "late"})
	if !queue.Drained() {
		t.Fatalf("expected pushes after clear to be dropped")
	}
}

func TestChunkQueueDrainedTracksConsumption(t *testing.T) {
	queue := newChunkQueue()
	if !queue.Drained() {
		t.Fatalf("expected a fresh queue to be drained")
	}

	queue.Push(Chunk{TurnID: 1, Sequence: 1, Text: "pending"})
	if queue.Drained() {
		t.Fatalf("expected an unconsumed chunk to keep the queue undrained")
	}

	queue.Complete()
	queue.Chunks(func(Chunk) bool { return true })
	if !queue.Drained() {
		t.Fatalf("expected the queue to drain after consumption")
	}
}
