package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink is the logging capability handed to every component. One Sink is
// built per top-level operation (setup run, verification run).
type Sink interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	SSHConnectionAttempt(method, target string)
	SetupStep(step, target string)
	SetupError(step string, err error)
	SetupSuccess(step string)
}

type Options struct {
	// File is opened in append mode. Empty disables the file stream.
	File  string
	Level string
	// Console defaults to os.Stdout.
	Console io.Writer
	// Extra receives the same encoded lines as the console.
	Extra io.Writer
}

type Logger struct {
	*zap.SugaredLogger
	file *os.File
}

var _ Sink = (*Logger)(nil)

func NewLogger(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig())

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(console)), level),
	}

	var file *os.File
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(f), level))
	}

	if opts.Extra != nil {
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.Lock(zapcore.AddSync(opts.Extra)), level))
	}

	return &Logger{
		SugaredLogger: zap.New(zapcore.NewTee(cores...)).Sugar(),
		file:          file,
	}, nil
}

// FromZap wraps an existing zap logger, e.g. one backed by zaptest/observer.
func FromZap(l *zap.Logger) *Logger {
	return &Logger{SugaredLogger: l.Sugar()}
}

func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

// Close flushes buffered entries and releases the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05,000"),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

func (l *Logger) SSHConnectionAttempt(method, target string) {
	l.Infow("Attempting SSH connection",
		"type", "ssh_connection",
		"method", method,
		"target", target,
	)
}

func (l *Logger) SetupStep(step, target string) {
	l.Infow("Executing setup step",
		"type", "setup",
		"step", step,
		"target", target,
	)
}

func (l *Logger) SetupError(step string, err error) {
	l.Errorw("Setup step failed",
		"type", "setup",
		"step", step,
		"error", err.Error(),
	)
}

func (l *Logger) SetupSuccess(step string) {
	l.Infow("Setup step succeeded",
		"type", "setup",
		"step", step,
	)
}
