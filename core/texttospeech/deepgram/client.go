// Package deepgram streams text to Deepgram's realtime speak API over a
// websocket and delivers synthesized audio through the texttospeech callback
// contract.
package deepgram

import (
	"context"
	"fmt"
	"slices"
)

type Voice string

const (
	VoiceAsteria Voice = "aura-asteria-en"
	VoiceLuna    Voice = "aura-luna-en"
	VoiceStella  Voice = "aura-stella-en"
	VoiceAthena  Voice = "aura-athena-en"
	VoiceHera    Voice = "aura-hera-en"
	VoiceOrion   Voice = "aura-orion-en"
	VoiceArcas   Voice = "aura-arcas-en"
	VoicePerseus Voice = "aura-perseus-en"
	VoiceAngus   Voice = "aura-angus-en"
	VoiceOrpheus Voice = "aura-orpheus-en"
	VoiceHelios  Voice = "aura-helios-en"
	VoiceZeus    Voice = "aura-zeus-en"
)

const defaultVoice = VoiceAsteria

// GetAvailableVoices lists the voices the speak API accepts.
func GetAvailableVoices() []Voice {
	return []Voice{
		VoiceAsteria, VoiceLuna, VoiceStella, VoiceAthena, VoiceHera,
		VoiceOrion, VoiceArcas, VoicePerseus, VoiceAngus, VoiceOrpheus,
		VoiceHelios, VoiceZeus,
	}
}

// TextToSpeechClient is a synthesis client factory: each turn opens its own
// speech generator against it.
type TextToSpeechClient struct {
	voice Voice
}

// NewTextToSpeechClient creates a synthesis client for the given voice. The
// Deepgram API key is read from the DEEPGRAM_API_KEY environment variable
// when a generator opens.
func NewTextToSpeechClient(ctx context.Context, voice Voice) (*TextToSpeechClient, error) {
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	return &TextToSpeechClient{voice: voice}, nil
}

func (c *TextToSpeechClient) SetVoice(voice Voice) {
	if slices.Contains(GetAvailableVoices(), voice) {
		c.voice = voice
	}
}
