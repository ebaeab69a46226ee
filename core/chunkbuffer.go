package orchestration

import (
	"strings"
	"sync"
	"unicode"
)

const (
	// defaultChunkBoundaryRunes are the sentence-terminal runes a response is
	// cut at, covering ASCII and full-width CJK punctuation.
	defaultChunkBoundaryRunes = ".!?;:。！？；："
	// defaultMaxChunkRunes caps how long a chunk may grow before it is cut
	// even without a sentence boundary.
	defaultMaxChunkRunes = 280
)

// chunkCutter slices a streamed response into speakable chunks. A cut happens
// right after a boundary rune, or at the last whitespace once the pending text
// outgrows the length cap. Boundary cuts take precedence; the cap applies
// between boundaries. A minimum length, when set, holds boundary cuts back
// until the pending text reaches it, so stray short sentences do not become
// tiny synthesis requests. It is driven from a single goroutine and needs no
// lock.
type chunkCutter struct {
	boundaries map[rune]struct{}
	minRunes   int
	maxRunes   int
	pending    []rune
}

func newChunkCutter(boundaryRunes string, minRunes, maxRunes int) *chunkCutter {
	if boundaryRunes == "" {
		boundaryRunes = defaultChunkBoundaryRunes
	}
	if maxRunes <= 0 {
		maxRunes = defaultMaxChunkRunes
	}
	boundaries := make(map[rune]struct{}, len(boundaryRunes))
	for _, r := range boundaryRunes {
		boundaries[r] = struct{}{}
	}
	return &chunkCutter{
		boundaries: boundaries,
		minRunes:   minRunes,
		maxRunes:   maxRunes,
	}
}

// Append consumes one streamed delta and returns the chunks it completed, in
// order. Text after the last cut stays pending for the next delta.
func (c *chunkCutter) Append(delta string) []string {
	var cut []string
	for _, r := range delta {
		c.pending = append(c.pending, r)
		if c.isBoundary(r) {
			// A period between digits is a decimal point, not a boundary.
			if r == '.' && len(c.pending) >= 2 && unicode.IsDigit(c.pending[len(c.pending)-2]) {
				continue
			}
			if c.minRunes > 0 && len(c.pending) < c.minRunes {
				continue
			}
			if text := c.takePending(len(c.pending)); text != "" {
				cut = append(cut, text)
			}
			continue
		}
		if len(c.pending) > c.maxRunes {
			cutAt := lastWhitespace(c.pending)
			// A leading whitespace, or none at all, cannot host a cut; fall
			// back to a hard cut at the cap so pending stays bounded.
			if cutAt <= 0 {
				cutAt = c.maxRunes
			}
			if text := c.takePending(cutAt); text != "" {
				cut = append(cut, text)
			}
		}
	}
	return cut
}

// Flush returns whatever is still pending, trimmed, and resets the cutter.
// A non-empty remainder is the caller's final chunk.
func (c *chunkCutter) Flush() string {
	text := strings.TrimSpace(string(c.pending))
	c.pending = c.pending[:0]
	return text
}

// Pending returns the uncut text accumulated since the last cut.
func (c *chunkCutter) Pending() string {
	return string(c.pending)
}

func (c *chunkCutter) isBoundary(r rune) bool {
	_, ok := c.boundaries[r]
	return ok
}

// takePending cuts the first n pending runes out as a trimmed chunk and keeps
// the rest pending.
func (c *chunkCutter) takePending(n int) string {
	text := strings.TrimSpace(string(c.pending[:n]))
	c.pending = append(c.pending[:0], c.pending[n:]...)
	return text
}

func lastWhitespace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// chunkQueue carries cut chunks from the response side to the playback side.
// Chunks yields them strictly in push order and blocks until more arrive, the
// queue is completed, or it is cleared.
type chunkQueue struct {
	mu           sync.Mutex
	chunks       []Chunk
	consumed     int
	complete     bool
	cleared      bool
	updateSignal chan struct{}
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{
		updateSignal: make(chan struct{}, 1),
	}
}

func (q *chunkQueue) Push(chunk Chunk) {
	q.mu.Lock()
	if q.cleared {
		q.mu.Unlock()
		return
	}
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()
	q.signalUpdate()
}

// Complete marks that no further chunks will be pushed. Chunks drains what is
// queued and then returns.
func (q *chunkQueue) Complete() {
	q.mu.Lock()
	q.complete = true
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *chunkQueue) Chunks(yield func(Chunk) bool) {
	for {
		q.mu.Lock()
		if q.cleared {
			q.mu.Unlock()
			return
		}

		if q.consumed < len(q.chunks) {
			chunk := q.chunks[q.consumed]
			q.consumed++
			q.mu.Unlock()
			if !yield(chunk) {
				return
			}
			continue
		}

		if q.complete {
			q.mu.Unlock()
			return
		}

		q.mu.Unlock()
		<-q.updateSignal
	}
}

// Drained reports whether every pushed chunk has been consumed or discarded.
func (q *chunkQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cleared || q.consumed >= len(q.chunks)
}

// Clear discards everything still queued and unblocks Chunks. Pushes after a
// clear are dropped.
func (q *chunkQueue) Clear() {
	q.mu.Lock()
	q.cleared = true
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *chunkQueue) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}
