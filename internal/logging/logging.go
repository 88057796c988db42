// Package logging builds the agent's zap logger.
package logging

import (
	"os"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger, or a development one when debug is set.
// When file is non-empty, JSON output is also appended to it; the returned
// close func releases the file.
func New(file string, debug bool) (*zap.Logger, func() error, error) {
	var (
		base *zap.Logger
		err  error
	)
	if debug {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "build logger")
	}

	f, err := OpenLogFile(file)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error {
		_ = base.Sync()
		if f != nil {
			return f.Close()
		}
		return nil
	}
	return AttachFileLogger(base, f, debug), closeFn, nil
}

// OpenLogFile opens logFile for appending. An empty name means no file.
func OpenLogFile(logFile string) (*os.File, error) {
	if logFile == "" {
		return nil, nil
	}

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	return file, nil
}

// AttachFileLogger tees base into a JSON core writing to file.
func AttachFileLogger(base *zap.Logger, file *os.File, debug bool) *zap.Logger {
	if file == nil {
		return base
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(file), level)
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}
