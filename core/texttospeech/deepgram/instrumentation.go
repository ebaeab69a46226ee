package deepgram

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/nolavoice/nola-core/core/texttospeech/deepgram"

var logger = otelslog.NewLogger(scopeName)
