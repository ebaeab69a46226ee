package deepgram

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/nolavoice/nola-core/core/speechtotext/deepgram"

var logger = otelslog.NewLogger(scopeName)
