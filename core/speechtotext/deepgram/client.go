// Package deepgram streams audio to Deepgram's realtime listen API over a
// websocket and maps its responses onto the speechtotext callback contract.
package deepgram

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TranscriptionClient is a streaming recognition client. A zero value is
// usable; Transcribe opens the websocket.
type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
}

// NewTranscriptionClient creates a recognition client. The Deepgram API key
// is read from the DEEPGRAM_API_KEY environment variable when the stream
// opens.
func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{}
}

// Close asks Deepgram to flush and close the stream. The read loop shuts the
// websocket down once the server acknowledges.
func (s *TranscriptionClient) Close(ctx context.Context) error {
	return s.StopStream()
}
