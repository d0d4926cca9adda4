package logger

import (
	"icr-prover/pkg/utilities/timeutil"

	"github.com/rs/zerolog"
)

// Sink receives a copy of every entry at or above the logger level.
type Sink func(msg string, level zerolog.Level, timestamp timeutil.TimeUTC)

func AddSinkToLoggerInstance(loggerInstance *Logger, sink Sink) {
	loggerInstance.sink = sink
}
