package logger

import (
	"go.uber.org/zap"
)

// Log is usable before Init; it discards everything until then.
var Log = zap.NewNop().Sugar()

func Init(debug bool) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered entries, ignoring the error zap reports for stdout/stderr.
func Sync() {
	_ = Log.Sync()
}
