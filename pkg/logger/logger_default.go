package logger

import "sync"

type LoggerArg struct {
	Key   string
	Value string
}

type GlobalLoggerConfig struct {
	Args []LoggerArg
}

var (
	defaultLogger *Logger
	defaultArgs   []LoggerArg
	onceLogger    sync.Once
)

func InitDefaultLogger(config GlobalLoggerConfig) {
	onceLogger.Do(func() {
		defaultArgs = config.Args
		defaultLogger = withArgs(New(), defaultArgs)
	})
}

// ApplyConfig swaps the level and output format of the default logger once
// the config file has been read. Must not race with logging.
func ApplyConfig(cfg LoggerConfig) {
	configured := withArgs(NewFromConfig(cfg), defaultArgs)
	l := Default()
	l.zl = configured.zl
}

func withArgs(l *Logger, args []LoggerArg) *Logger {
	ctx := l.zl.With()
	for _, arg := range args {
		ctx = ctx.Str(arg.Key, arg.Value)
	}
	l.zl = ctx.Logger()
	return l
}

func Default() *Logger {
	if defaultLogger == nil {
		panic("default logger not initialized: call InitDefaultLogger() first")
	}
	return defaultLogger
}
