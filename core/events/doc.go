// Package events defines the typed orchestration event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - turn_state.*
//   - assistant_response.*
//   - assistant_speech.*
//   - assistant_playback.*
//   - memory.*
//
// Semantics used across the package:
//
//   - Frame: binary audio frame/chunk payload.
//   - Segment: append-only text piece emitted in stream order.
//   - Chunk: sentence-aligned response slice with a playback sequence number.
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Final: terminal immutable text/state for the current stream/turn phase.
//   - Ended: lifecycle boundary indicating stream or playback completion.
//
// user_input events
//
//   - UserAudioFrame (user_input.audio_frame): raw user input audio frame.
//   - UserSpeechStarted (user_input.speech_started): speech activity began.
//   - UserSpeechEnded (user_input.speech_ended): speech activity ended.
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim transcript snapshot; interim text never triggers a new
//     turn or a barge-in.
//   - UserTranscriptSegment (user_input.transcript_segment): finalized
//     recognizer segment extending the current segmentation buffer.
//   - UserUtteranceFinal (user_input.utterance_final): segmentation boundary;
//     the finalized utterance that drives turn-taking.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): a turn entered the responding state.
//   - TurnCompleted (turn_state.completed): response generation and playback
//     both ran to their natural end.
//   - TurnInterrupted (turn_state.interrupted): a newer final utterance barged
//     in; payload carries the text accumulated up to cancellation.
//   - TurnFailed (turn_state.failed): the turn ended on a model or synthesis
//     failure; payload carries the reportable error.
//
// assistant_response events
//
//   - AssistantResponseStarted (assistant_response.started): model stream
//     opened for the turn.
//   - AssistantResponseSegment (assistant_response.segment): raw streamed
//     model text delta.
//   - AssistantResponseChunk (assistant_response.chunk): sentence-aligned cut
//     handed to playback, with its sequence number.
//   - AssistantResponseFinal (assistant_response.final): model stream ended;
//     payload carries the full accumulated response.
//
// assistant_speech events
//
//   - AssistantSpeechFrame (assistant_speech.frame): synthesized speech audio
//     frame.
//   - AssistantSpeechMarkGenerated (assistant_speech.mark_generated): TTS mark
//     generated with the transcript text associated with that mark.
//   - AssistantSpeechFinal (assistant_speech.final): TTS generation ended.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): playback of the
//     turn's first chunk began.
//   - AssistantPlaybackChunkStarted (assistant_playback.chunk_started): a
//     chunk began sounding.
//   - AssistantPlaybackChunkPlayed (assistant_playback.chunk_played): a chunk
//     finished sounding; chunks are confirmed strictly in sequence order.
//   - AssistantPlaybackStopped (assistant_playback.stopped): playback was
//     halted and queued chunks were discarded.
//   - AssistantPlaybackEnded (assistant_playback.ended): playback drained
//     naturally; payload carries the transcript of everything played.
//
// memory events
//
//   - MemoryRecordCommitted (memory.record_committed): a record entered the
//     conversation ledger; emitted at most once per turn and role.
package events
