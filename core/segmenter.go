package orchestration

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const defaultSilenceGap = time.Second

// Segmenter folds raw recognition events into finalized utterances. Text
// accumulates in a buffer until either a recognizer final hint arrives or the
// configured silence gap elapses with nothing new; the buffer then becomes
// exactly one utterance. Empty and whitespace-only buffers are discarded
// without producing anything.
//
// Push never blocks on downstream work: finalized utterances are handed to
// the callback from a dedicated emitter goroutine, in finalization order.
type Segmenter struct {
	onUtterance func(Utterance)

	gap      time.Duration
	speaker  string
	minRunes int

	mu       sync.Mutex
	segments []string
	firstAt  time.Time
	lastAt   time.Time
	gapTimer *time.Timer
	timerGen uint64
	closed   bool

	outbox       []Utterance
	updateSignal chan struct{}
}

type SegmenterOption func(*Segmenter)

// WithSilenceGap sets how long the recognizer must stay silent before the
// buffered text finalizes into an utterance.
func WithSilenceGap(gap time.Duration) SegmenterOption {
	return func(s *Segmenter) {
		if gap > 0 {
			s.gap = gap
		}
	}
}

// WithSpeaker sets the speaker label stamped on produced utterances.
func WithSpeaker(speaker string) SegmenterOption {
	return func(s *Segmenter) {
		s.speaker = speaker
	}
}

// WithMinUtteranceLength discards finalized utterances shorter than the given
// number of runes. Useful for filtering recognizer stutter like lone
// interjections.
func WithMinUtteranceLength(runes int) SegmenterOption {
	return func(s *Segmenter) {
		s.minRunes = runes
	}
}

// NewSegmenter creates a segmenter delivering finalized utterances to
// onUtterance. The silence gap defaults to one second.
func NewSegmenter(onUtterance func(Utterance), opts ...SegmenterOption) *Segmenter {
	segmenter := &Segmenter{
		onUtterance:  onUtterance,
		gap:          defaultSilenceGap,
		speaker:      "user",
		updateSignal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(segmenter)
	}

	go segmenter.emitLoop()
	return segmenter
}

// Push ingests one recognition event. Text extends the current buffer and
// re-arms the silence gap; a final hint finalizes the buffer immediately
// without waiting for the gap. Events pushed after Close are ignored.
func (s *Segmenter) Push(event RecognitionEvent) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if strings.TrimSpace(event.Text) != "" {
		if len(s.segments) == 0 {
			s.firstAt = event.Timestamp
		}
		s.segments = append(s.segments, event.Text)
		s.lastAt = event.Timestamp
	}

	if event.IsFinalHint {
		s.finalizeLocked()
		return
	}

	if len(s.segments) > 0 {
		s.armGapTimerLocked()
	}
}

// Flush finalizes whatever is buffered right now, as if a final hint arrived.
func (s *Segmenter) Flush() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.finalizeLocked()
}

// Reset discards the buffered text and disarms the gap timer, leaving the
// segmenter ready for a fresh session. Already finalized utterances still
// deliver.
func (s *Segmenter) Reset() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardBufferLocked()
}

// Close stops the segmenter. Session end counts as end-of-speech: a non-empty
// pending buffer finalizes into one last utterance, and everything already in
// the outbox still delivers before the emitter goroutine exits.
func (s *Segmenter) Close() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.finalizeLocked()
	s.closed = true
	s.mu.Unlock()

	s.signalUpdate()
}

// Pending returns the buffered not-yet-finalized text.
func (s *Segmenter) Pending() string {
	if s == nil {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(strings.Join(s.segments, " "))
}

func (s *Segmenter) armGapTimerLocked() {
	if s.gapTimer != nil {
		s.gapTimer.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.gapTimer = time.AfterFunc(s.gap, func() {
		s.finalizeAfterGap(gen)
	})
}

func (s *Segmenter) finalizeAfterGap(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A stale timer that lost the race to a newer segment must not finalize
	// the extended buffer early.
	if s.closed || gen != s.timerGen {
		return
	}
	s.finalizeLocked()
}

func (s *Segmenter) finalizeLocked() {
	text := strings.TrimSpace(strings.Join(s.segments, " "))
	startedAt, endedAt := s.firstAt, s.lastAt
	s.discardBufferLocked()

	if text == "" {
		return
	}
	if s.minRunes > 0 && utf8.RuneCountInString(text) < s.minRunes {
		logger.Debug("discarding short utterance", "length", utf8.RuneCountInString(text))
		return
	}

	s.outbox = append(s.outbox, Utterance{
		Speaker:   s.speaker,
		Text:      text,
		StartTime: startedAt,
		EndTime:   endedAt,
		IsFinal:   true,
	})
	s.signalUpdate()
}

func (s *Segmenter) discardBufferLocked() {
	if s.gapTimer != nil {
		s.gapTimer.Stop()
		s.gapTimer = nil
	}
	s.timerGen++
	s.segments = nil
	s.firstAt = time.Time{}
	s.lastAt = time.Time{}
}

func (s *Segmenter) signalUpdate() {
	select {
	case s.updateSignal <- struct{}{}:
	default:
	}
}

func (s *Segmenter) emitLoop() {
	for {
		s.mu.Lock()
		if len(s.outbox) > 0 {
			utterance := s.outbox[0]
			s.outbox = s.outbox[1:]
			s.mu.Unlock()
			if s.onUtterance != nil {
				s.onUtterance(utterance)
			}
			continue
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		<-s.updateSignal
	}
}
