package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Level type
type Level uint32

const (
	// ErrorLevel level. Used for errors that should definitely be noted.
	ErrorLevel Level = iota
	// WarnLevel level. Non-critical entries that deserve eyes.
	WarnLevel
	// InfoLevel level. General operational entries about what's going on
	// inside the application.
	InfoLevel
	// DebugLevel level. Usually only enabled when debugging.
	DebugLevel
	// TraceLevel level. Finer-grained informational events than debug.
	TraceLevel
)

var LevelMap = map[Level]string{
	ErrorLevel: "error",
	WarnLevel:  "warn",
	InfoLevel:  "info",
	DebugLevel: "debug",
	TraceLevel: "trace",
}

// LogPayload carries a single log entry to the log func
type LogPayload struct {
	Level   Level
	Fields  map[string]interface{}
	Error   error
	Message string
}

type LogFunc func(payload LogPayload)

func NoopLogFunc(payload LogPayload) {}

func NewNoopLogger() *LogWrapper {
	return NewLogWrapper(NoopLogFunc, nil)
}

// NewSimpleLogFunc returns a log func that prints key=value pairs to
// stdout for entries at or below the given level
func NewSimpleLogFunc(level Level) LogFunc {
	return func(payload LogPayload) {
		if level < payload.Level {
			return
		}

		m := map[string]interface{}{
			"msg":   payload.Message,
			"level": LevelMap[payload.Level],
		}

		for k, v := range payload.Fields {
			if k != "msg" && k != "level" {
				m[k] = v
			}
		}

		if payload.Error != nil {
			m["error"] = payload.Error
		}

		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, fmt.Sprintf("%s=%q", k, m[k]))
		}

		fmt.Println(strings.Join(fields, " "))
	}
}

// LogWrapper wraps a log func with accumulated fields
type LogWrapper struct {
	LogFunc LogFunc
	Fields  map[string]interface{}
	Error   error
}

// NewLogWrapper returns a new log wrapper
func NewLogWrapper(logFunc LogFunc, fields map[string]interface{}) *LogWrapper {
	if fields == nil {
		fields = map[string]interface{}{}
	}

	return &LogWrapper{
		LogFunc: logFunc,
		Fields:  fields,
	}
}

// clone clones a log wrapper to iteratively build the log
func (l *LogWrapper) clone() *LogWrapper {
	newWrapper := &LogWrapper{
		LogFunc: l.LogFunc,
		Error:   l.Error,
		Fields:  map[string]interface{}{},
	}

	for k, v := range l.Fields {
		newWrapper.Fields[k] = v
	}

	return newWrapper
}

func (l *LogWrapper) WithError(err error) *LogWrapper {
	newWrapper := l.clone()
	newWrapper.Error = err
	return newWrapper
}

func (l *LogWrapper) WithField(key string, value interface{}) *LogWrapper {
	newWrapper := l.clone()
	newWrapper.Fields[key] = value
	return newWrapper
}

func (l *LogWrapper) log(level Level, format string, v ...interface{}) {
	l.LogFunc(LogPayload{
		Level:   level,
		Fields:  l.Fields,
		Error:   l.Error,
		Message: fmt.Sprintf(format, v...),
	})
}

func (l *LogWrapper) Tracef(format string, v ...interface{}) {
	l.log(TraceLevel, format, v...)
}

func (l *LogWrapper) Debugf(format string, v ...interface{}) {
	l.log(DebugLevel, format, v...)
}

func (l *LogWrapper) Infof(format string, v ...interface{}) {
	l.log(InfoLevel, format, v...)
}

func (l *LogWrapper) Warnf(format string, v ...interface{}) {
	l.log(WarnLevel, format, v...)
}

func (l *LogWrapper) Errorf(format string, v ...interface{}) {
	l.log(ErrorLevel, format, v...)
}
