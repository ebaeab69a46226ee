// Package orchestration is the turn-taking and interrupt engine of a spoken
// dialogue companion. It decides when an utterance is complete, streams the
// model response into speakable chunks, sequences playback, detects barge-in,
// cancels in-flight work, and guarantees that the conversation ledger records
// exactly what the user heard.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nolavoice/nola-core/core/audio"
	"github.com/nolavoice/nola-core/core/events"
	"github.com/nolavoice/nola-core/core/memory"
)

// ErrNotStarted reports use of an orchestrator before Start.
var ErrNotStarted = errors.New("orchestrator not started")

// speakerSystem marks self-starter utterances submitted by the idle monitor.
// They trigger turns like user speech but are never committed as user records.
const speakerSystem = "system"

// Orchestrator is the coordination facade: it owns the segmenter, the turn
// loop, the conversation ledger, and the per-turn pipelines. All turn state
// transitions serialize through its single turn-processing goroutine;
// utterance ingestion stays responsive throughout, which is what makes
// barge-in detection possible.
type Orchestrator struct {
	sessionID string

	instructions  string
	boundaryRunes string
	minChunkRunes int
	maxChunkRunes int
	stallTimeout  time.Duration
	bargeInPolicy BargeInPolicy
	pauseOnSpeech bool

	transcriptPath string
	memoryCapacity int
	idleThreshold  time.Duration
	idleInterval   time.Duration
	idlePrompts    []string
	segmenterOpts  []SegmenterOption
	handlers       []EventHandler

	llm          StreamingLLM
	player       ChunkPlayer
	synthesizer  SpeechSynthesizer
	audioOutput  AudioOutput
	captureInput AudioInput
	sttClient    SpeechToText
	encoding     audio.EncodingInfo
	classifier   InterruptClassifier

	ledger       *memory.Ledger
	store        *memory.Store
	emitter      *eventEmitter
	status       *statusTracker
	idle         *idleMonitor
	loop         *turnLoop
	segmenter    *Segmenter
	speechToText *speechToText
	audioInput   *audioInput
	conversation conversation

	pipeline        atomic.Pointer[turnPipeline]
	pausedForSpeech atomic.Bool

	started   atomic.Bool
	closeOnce sync.Once
}

// NewOrchestrator assembles an engine from the configured collaborators.
// Nothing runs until Start.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sessionID:     uuid.NewString(),
		bargeInPolicy: BargeInOnFinal,
		encoding:      audio.GetDefaultEncodingInfo(),
		conversation:  newConversation(),
		loop:          newTurnLoop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	ledgerOpts := []memory.LedgerOption{memory.WithCommitHook(o.onLedgerCommit)}
	if o.memoryCapacity > 0 {
		ledgerOpts = append(ledgerOpts, memory.WithMaxRecords(o.memoryCapacity))
	}
	o.ledger = memory.NewLedger(ledgerOpts...)
	o.status = newStatusTracker()
	o.emitter = newEventEmitter(o.handlers...)
	o.segmenter = NewSegmenter(o.handleUtterance, o.segmenterOpts...)
	o.speechToText = newSpeechToText(o.sttClient, speechToTextCallbacks{
		emit:            o.emit,
		onSegment:       o.handleRecognitionSegment,
		onSpeechFinal:   o.handleRecognitionFinal,
		onSpeechStarted: o.handleSpeechStarted,
		onSpeechEnded:   o.handleSpeechEnded,
	})
	o.audioInput = newAudioInput(o.captureInput)
	o.idle = newIdleMonitor(o.idleThreshold, o.idleInterval, o.idlePrompts,
		o.isBusy,
		func(prompt string) { o.submitUtterance(speakerSystem, prompt) },
	)

	return o
}

// Start brings the engine up: it opens the transcript store when one is
// configured, starts the serialized turn loop, connects the speech-to-text
// collaborator, and arms the idle monitor. Start may be called once.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o == nil {
		return ErrNotStarted
	}
	if !o.started.CompareAndSwap(false, true) {
		return errors.New("orchestrator already started")
	}

	if o.transcriptPath != "" {
		store, records, err := memory.OpenStore(o.transcriptPath)
		if err != nil {
			return fmt.Errorf("failed to open transcript store: %w", err)
		}
		o.store = store
		o.ledger.Restore(records...)
		for _, record := range records {
			o.conversation.resumeAfterTurn(record.TurnID)
		}
	}

	if !o.loop.StartLoop(ctx, o.processTurn) {
		return errors.New("failed to start turn loop")
	}

	if err := o.speechToText.Start(ctx, o.encoding); err != nil {
		o.loop.Stop()
		return fmt.Errorf("failed to start speech-to-text: %w", err)
	}

	if err := o.audioInput.Start(ctx, func(frame []byte) { _ = o.SendAudio(frame) }); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	o.idle.Start()
	return nil
}

// Close tears the engine down. An active turn is finalized as interrupted so
// its partial response still reaches the ledger before the store closes.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}

	var closeErr error
	o.closeOnce.Do(func() {
		o.idle.Stop()
		if err := o.audioInput.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
		o.segmenter.Close()
		if err := o.speechToText.Close(context.Background()); err != nil {
			closeErr = errors.Join(closeErr, err)
		}

		o.loop.Stop()
		o.loop.Clear()
		if pipeline := o.pipeline.Load(); pipeline != nil {
			o.interruptTurn(pipeline)
		}
		o.loop.AwaitDone()

		if o.store != nil {
			if err := o.store.Close(); err != nil {
				closeErr = errors.Join(closeErr, err)
			}
		}
	})
	return closeErr
}

// PushRecognition feeds one raw recognition event into the segmenter. It is
// the entry point for callers that run their own ASR instead of the built-in
// speech-to-text wiring.
func (o *Orchestrator) PushRecognition(event RecognitionEvent) {
	if o == nil {
		return
	}
	if text := strings.TrimSpace(event.Text); text != "" {
		o.emit(events.NewUserTranscriptSegment(text))
	}
	o.segmenter.Push(event)
}

// SendAudio forwards captured audio to the speech-to-text collaborator.
func (o *Orchestrator) SendAudio(frame []byte) error {
	if o == nil {
		return ErrNotStarted
	}
	o.emit(events.NewUserAudioFrame(frame))
	return o.speechToText.SendAudio(frame)
}

// handleRecognitionSegment receives a finalized transcript segment from the
// speech-to-text collaborator and extends the current utterance buffer.
func (o *Orchestrator) handleRecognitionSegment(segment string) {
	o.segmenter.Push(RecognitionEvent{Text: segment})
}

// handleRecognitionFinal receives the recognizer's end-of-speech signal and
// finalizes whatever the segmenter has buffered without waiting for the gap.
func (o *Orchestrator) handleRecognitionFinal() {
	o.segmenter.Push(RecognitionEvent{IsFinalHint: true})
}

// handleUtterance is the single entry point for finalized utterances, called
// in segmentation order. It resolves barge-in against the active turn before
// queueing the utterance for processing, so ingestion never waits on a turn.
func (o *Orchestrator) handleUtterance(utterance Utterance) {
	o.emit(events.NewUserUtteranceFinal(utterance.Speaker, utterance.Text, utterance.StartTime, utterance.EndTime))
	o.idle.Touch()

	if pipeline := o.pipeline.Load(); pipeline != nil && pipeline.turn.isResponding() {
		if o.bargeInPolicy == BargeInNone {
			logger.Debug("dropping utterance while responding", "policy", string(o.bargeInPolicy))
			o.resumePausedPlayback(pipeline)
			return
		}
		if !o.shouldBargeIn(pipeline, utterance) {
			o.resumePausedPlayback(pipeline)
			return
		}
		o.interruptTurn(pipeline)
	}
	o.pausedForSpeech.Store(false)

	if !o.loop.Ingest(utterance) {
		logger.Warn("dropping utterance: turn queue unavailable", "speaker", utterance.Speaker)
	}
}

// shouldBargeIn consults the configured classifier. Classifier failures fall
// back to honoring the barge-in; staying silent on a real prompt is the worse
// mistake.
func (o *Orchestrator) shouldBargeIn(pipeline *turnPipeline, utterance Utterance) bool {
	if o.classifier == nil || utterance.Speaker == speakerSystem {
		return true
	}

	ctx := pipeline.Ctx()
	if ctx == nil {
		ctx = context.Background()
	}
	class, err := o.classifier.Classify(ctx, utterance.Text, pipeline.AccumulatedText())
	if err != nil {
		logger.Warn("interrupt classification failed, honoring barge-in", "error", err)
		return true
	}
	return class == InterruptClassPrompt
}

// interruptTurn finalizes the active turn as interrupted: it claims the
// single finalization slot, cancels generation and playback, snapshots the
// accumulated text as it stood at cancellation, and commits it to the ledger.
// If the completion or error path already claimed the turn this is a no-op.
func (o *Orchestrator) interruptTurn(pipeline *turnPipeline) bool {
	turn := pipeline.turn
	if turn == nil || !turn.claimFinalize(EndReasonInterrupted, nil) {
		return false
	}

	pipeline.Cancel()
	accumulated := pipeline.AccumulatedText()
	turn.settle(accumulated)
	o.ledger.Commit(turn.id, memory.RoleAssistant, accumulated, memory.TagInterrupted)
	o.emit(events.NewTurnInterrupted(turn.id, accumulated))
	return true
}

// processTurn drives one queued utterance through a full turn. It runs on the
// turn loop goroutine, strictly one turn at a time.
func (o *Orchestrator) processTurn(ctx context.Context, utterance Utterance) error {
	turn, err := o.conversation.startTurn(utterance)
	if err != nil {
		return fmt.Errorf("failed to start turn: %w", err)
	}

	o.emit(events.NewTurnStarted(turn.id, utterance.Text))
	if utterance.Speaker != speakerSystem {
		o.ledger.Commit(turn.id, memory.RoleUser, utterance.Text, memory.TagNone)
	}

	player, closePlayer := o.newTurnPlayer(turn.id)
	pipeline := newTurnPipeline(turn, turnPipelineConfig{
		llm:           o.llm,
		player:        player,
		ledger:        o.ledger,
		instructions:  o.instructions,
		boundaryRunes: o.boundaryRunes,
		minChunkRunes: o.minChunkRunes,
		maxChunkRunes: o.maxChunkRunes,
		stallTimeout:  o.stallTimeout,
		emit:          o.emit,
	})
	o.pipeline.Store(pipeline)

	snapshot, runErr := pipeline.Run(ctx)
	o.pipeline.CompareAndSwap(pipeline, nil)
	closePlayer()
	o.idle.Touch()

	if err := o.conversation.finalizeTurn(snapshot); err != nil {
		logger.Warn("turn archival disagreed with bookkeeping", "turn_id", snapshot.ID, "error", err)
	}
	return runErr
}

// newTurnPlayer picks the playback collaborator for one turn. A directly
// configured ChunkPlayer wins; otherwise a per-turn speech player is opened
// against the synthesis collaborator.
func (o *Orchestrator) newTurnPlayer(turnID int64) (ChunkPlayer, func()) {
	if o.player != nil {
		return o.player, func() {}
	}
	if o.synthesizer == nil {
		return nil, func() {}
	}

	player := newSpeechPlayer(turnID, o.synthesizer, o.audioOutput, o.encoding, o.emit)
	return player, func() {
		if err := player.Close(); err != nil {
			logger.Warn("failed to close speech player", "turn_id", turnID, "error", err)
		}
	}
}

// handleSpeechStarted pauses playback the moment voice activity begins, when
// configured to. The pause is provisional: it lifts again if the speech never
// finalizes into an utterance.
func (o *Orchestrator) handleSpeechStarted() {
	if !o.pauseOnSpeech {
		return
	}
	if pipeline := o.pipeline.Load(); pipeline != nil && pipeline.turn.isResponding() {
		if o.pausedForSpeech.CompareAndSwap(false, true) {
			pipeline.Pause()
		}
	}
}

// handleSpeechEnded re-arms playback if the detected speech produced nothing.
// The check waits out the segmenter gap so a still-forming utterance is not
// mistaken for noise.
func (o *Orchestrator) handleSpeechEnded() {
	if !o.pauseOnSpeech || !o.pausedForSpeech.Load() {
		return
	}

	time.AfterFunc(o.segmenter.gap+50*time.Millisecond, func() {
		if o.segmenter.Pending() != "" {
			return
		}
		if pipeline := o.pipeline.Load(); pipeline != nil {
			o.resumePausedPlayback(pipeline)
		}
	})
}

func (o *Orchestrator) resumePausedPlayback(pipeline *turnPipeline) {
	if o.pausedForSpeech.CompareAndSwap(true, false) {
		pipeline.Unpause()
	}
}

// submitUtterance turns typed or generated text into a finalized utterance,
// subject to the same barge-in rules as speech.
func (o *Orchestrator) submitUtterance(speaker, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	now := time.Now()
	o.handleUtterance(Utterance{
		Speaker:   speaker,
		Text:      text,
		StartTime: now,
		EndTime:   now,
		IsFinal:   true,
	})
}

// onLedgerCommit runs once per committed record: it mirrors the record into
// the transcript store and surfaces it on the event stream.
func (o *Orchestrator) onLedgerCommit(record memory.Record) {
	if o.store != nil {
		if err := o.store.Append(record); err != nil {
			logger.Warn("failed to persist ledger record", "turn_id", record.TurnID, "error", err)
		}
	}
	o.emit(events.NewMemoryRecordCommitted(record.TurnID, string(record.Role), record.Text, string(record.Tag)))
}

// isBusy reports whether anything conversational is in flight. The idle
// monitor holds its clock at zero while this is true.
func (o *Orchestrator) isBusy() bool {
	return o.IsResponding() || o.status.IsListening() || o.loop.queuedUtteranceCount() > 0 || o.segmenter.Pending() != ""
}

// emit routes one event through the status tracker and out to the handlers.
func (o *Orchestrator) emit(event events.Event) {
	o.status.Observe(event)
	o.emitter.Emit(event)
}

// IsResponding reports whether a turn is currently in the responding state.
func (o *Orchestrator) IsResponding() bool {
	if o == nil {
		return false
	}
	pipeline := o.pipeline.Load()
	return pipeline != nil && pipeline.turn.isResponding()
}

// IsPlaying reports whether a response chunk is audibly sounding right now.
func (o *Orchestrator) IsPlaying() bool {
	if o == nil {
		return false
	}
	return o.pipeline.Load().IsPlaying()
}

// IsListening reports whether user speech activity is currently detected.
func (o *Orchestrator) IsListening() bool {
	if o == nil {
		return false
	}
	return o.status.IsListening()
}

// CurrentAccumulatedText returns the response text streamed so far for the
// active turn, or an empty string when idle.
func (o *Orchestrator) CurrentAccumulatedText() string {
	if o == nil {
		return ""
	}
	return o.pipeline.Load().AccumulatedText()
}

// Status assembles a point-in-time snapshot for presentation layers.
func (o *Orchestrator) Status() Status {
	if o == nil {
		return Status{}
	}

	status := o.status.Snapshot()
	if pipeline := o.pipeline.Load(); pipeline != nil && pipeline.turn.isResponding() {
		status.IsResponding = true
		status.IsPlaying = pipeline.IsPlaying()
		status.TurnID = pipeline.turn.id
		status.AccumulatedText = pipeline.AccumulatedText()
	}
	status.IdleFor = o.status.IdleFor(status.IsResponding)
	return status
}

// History returns the finalized turns in the order they happened.
func (o *Orchestrator) History() []Turn {
	if o == nil {
		return nil
	}
	return o.conversation.History()
}

// Ledger exposes the conversation ledger for context building and queries.
func (o *Orchestrator) Ledger() *memory.Ledger {
	if o == nil {
		return nil
	}
	return o.ledger
}

// SessionID identifies this conversation session.
func (o *Orchestrator) SessionID() string {
	if o == nil {
		return ""
	}
	return o.sessionID
}
