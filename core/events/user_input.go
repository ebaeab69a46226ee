package events

import "time"

const (
	// KindUserAudioFrame identifies raw audio captured from user input.
	KindUserAudioFrame Kind = "user_input.audio_frame"
	// KindUserSpeechStarted identifies start of user speech activity.
	KindUserSpeechStarted Kind = "user_input.speech_started"
	// KindUserSpeechEnded identifies end of user speech activity.
	KindUserSpeechEnded Kind = "user_input.speech_ended"
	// KindUserTranscriptInterimUpdated identifies mutable interim transcript updates.
	KindUserTranscriptInterimUpdated Kind = "user_input.transcript_interim_updated"
	// KindUserTranscriptSegment identifies a finalized recognizer segment.
	KindUserTranscriptSegment Kind = "user_input.transcript_segment"
	// KindUserUtteranceFinal identifies a finalized, turn-driving utterance.
	KindUserUtteranceFinal Kind = "user_input.utterance_final"
)

// UserAudioFrame carries a user input audio frame.
type UserAudioFrame struct {
	Base
	Audio []byte
}

// NewUserAudioFrame creates a user input audio frame event.
func NewUserAudioFrame(audio []byte) UserAudioFrame {
	return UserAudioFrame{Base: NewBase(KindUserAudioFrame), Audio: audio}
}

// UserSpeechStarted marks when user speech activity starts.
type UserSpeechStarted struct{ Base }

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted() UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted)}
}

// UserSpeechEnded marks when user speech activity ends.
type UserSpeechEnded struct{ Base }

// NewUserSpeechEnded creates a user speech ended event.
func NewUserSpeechEnded() UserSpeechEnded {
	return UserSpeechEnded{Base: NewBase(KindUserSpeechEnded)}
}

// UserTranscriptInterimUpdated carries the mutable interim transcript snapshot.
// Interim text is presentation-only; it never finalizes a turn.
type UserTranscriptInterimUpdated struct {
	Base
	Transcript string
}

// NewUserTranscriptInterimUpdated creates an interim transcript snapshot update event.
func NewUserTranscriptInterimUpdated(transcript string) UserTranscriptInterimUpdated {
	return UserTranscriptInterimUpdated{Base: NewBase(KindUserTranscriptInterimUpdated), Transcript: transcript}
}

// UserTranscriptSegment carries a finalized recognizer segment. Segments are
// append-only pieces of the utterance currently being buffered; they extend
// the segmentation buffer but never trigger a turn by themselves.
type UserTranscriptSegment struct {
	Base
	Segment string
}

// NewUserTranscriptSegment creates a finalized transcript segment event.
func NewUserTranscriptSegment(segment string) UserTranscriptSegment {
	return UserTranscriptSegment{Base: NewBase(KindUserTranscriptSegment), Segment: segment}
}

// UserUtteranceFinal carries a finalized utterance produced by segmentation.
// The event timestamp is the utterance end boundary, not the emission time.
type UserUtteranceFinal struct {
	Base
	Speaker    string
	Transcript string
	StartTime  time.Time
	EndTime    time.Time
}

// NewUserUtteranceFinal creates a final utterance event stamped with the
// utterance end boundary.
func NewUserUtteranceFinal(speaker, transcript string, startTime, endTime time.Time) UserUtteranceFinal {
	return UserUtteranceFinal{
		Base:       NewBaseAt(KindUserUtteranceFinal, endTime),
		Speaker:    speaker,
		Transcript: transcript,
		StartTime:  startTime,
		EndTime:    endTime,
	}
}
