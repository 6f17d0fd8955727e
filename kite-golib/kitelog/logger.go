package kitelog

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var release = os.Getenv("RELEASE")

// Basic logs JSON lines with caller information, errors to stderr and everything else to stdout
var Basic = New(os.Stdout, os.Stderr)

// Logger wraps a zap logger and a Durations tracker
type Logger struct {
	z         *zap.Logger
	sugar     *zap.SugaredLogger
	Durations Durations
}

// Interface encapsulates the relevant methods of log.Logger
type Interface interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// New creates a Logger that splits its output between out and errOut based on level.
func New(out, errOut io.Writer) *Logger {
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl < zapcore.ErrorLevel
	})

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder := zapcore.NewJSONEncoder(config)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(errOut)), isErrorLevel),
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), isInfoLevel),
	)

	var opts []zap.Option
	opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	if release != "" {
		opts = append(opts, zap.Fields(zap.String("release", release)))
	}
	return fromZap(zap.New(core, opts...))
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return fromZap(zap.NewNop())
}

func fromZap(z *zap.Logger) *Logger {
	return &Logger{z: z, sugar: z.Sugar()}
}

// With returns a derived Logger that adds the key/value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	out := fromZap(l.sugar.With(keysAndValues...).Desugar())
	return out
}

// Printf implements Interface
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Info(fmt.Sprintf(format, v...))
}

// Println implements Interface
func (l *Logger) Println(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	l.sugar.Info(msg[:len(msg)-1])
}

// Infow logs a message with structured context
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warnw logs a warning with structured context
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Errorw logs an error with structured context
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Fatalf logs at fatal level and exits
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.z.Sync()
}
