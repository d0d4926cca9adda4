package rabbitmq

import (
	"fmt"
	"os"

	"icr-prover/pkg/logger"
	logger_message "icr-prover/pkg/utilities/logger"
	"icr-prover/pkg/utilities/timeutil"

	"github.com/rs/zerolog"
)

func CreateRabbitmqLoggerSink(service string, publisher IRabbitmqPublisher) logger.Sink {
	return func(msg string, level zerolog.Level, timestamp timeutil.TimeUTC) {
		loggerMessage := logger_message.LoggerMessage{
			Service:   service,
			Level:     level.String(),
			Message:   msg,
			Timestamp: timestamp,
		}

		if err := publisher.Publish(loggerMessage); err != nil {
			// not through the logger, that would recurse into the sink
			fmt.Fprintf(os.Stderr, "failed to publish log message to RabbitMQ: %v\n", err)
		}
	}
}
