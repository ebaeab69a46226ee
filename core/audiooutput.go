package orchestration

// AudioOutput is the device sink synthesized speech plays through. Mark
// registers a named position in the output buffer; the callback fires once
// the device has sounded everything queued before it. ClearBuffer discards
// queued audio and pending marks, which is how an interrupt silences the
// speaker mid-sentence.
type AudioOutput interface {
	SendAudio(audio []byte) error
	Mark(mark string, callback func(string)) error
	ClearBuffer()
}
