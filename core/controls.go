package orchestration

// SubmitText feeds typed input through the same path as speech: it becomes a
// finalized utterance, subject to the same barge-in rules, and triggers a
// turn.
func (o *Orchestrator) SubmitText(text string) {
	if o == nil {
		return
	}
	o.submitUtterance("user", text)
}

// Interrupt manually cancels the active turn without a new trigger: the turn
// finalizes as interrupted, its partial text is committed, and the engine
// returns to idle. A no-op when nothing is responding.
func (o *Orchestrator) Interrupt() {
	if o == nil {
		return
	}
	if pipeline := o.pipeline.Load(); pipeline != nil {
		o.interruptTurn(pipeline)
	}
}

// PausePlayback holds back the next chunk of the active turn; the chunk
// currently sounding finishes. Generation keeps running.
func (o *Orchestrator) PausePlayback() {
	if o == nil {
		return
	}
	o.pipeline.Load().Pause()
}

// ResumePlayback releases a paused turn's playback.
func (o *Orchestrator) ResumePlayback() {
	if o == nil {
		return
	}
	o.pipeline.Load().Unpause()
}

// StopSpeaking halts playback for the rest of the active turn while letting
// generation run to completion; the full response still reaches the ledger.
func (o *Orchestrator) StopSpeaking() {
	if o == nil {
		return
	}
	if pipeline := o.pipeline.Load(); pipeline != nil {
		pipeline.StopSpeaking()
	}
}
