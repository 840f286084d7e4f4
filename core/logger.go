package core

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

type logLevel int

const (
	debugLevel logLevel = iota
	infoLevel
	warnLevel
	errorLevel
)

// SimpleLogger is a line-oriented Logger for terminals and tests. Level
// comes from LOG_LEVEL (DEBUG, INFO, WARN, ERROR); INFO when unset.
type SimpleLogger struct {
	level  logLevel
	fields map[string]interface{}
}

// NewSimpleLogger creates a logger at the level named by LOG_LEVEL.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		level:  parseLevel(os.Getenv("LOG_LEVEL")),
		fields: map[string]interface{}{},
	}
}

func parseLevel(s string) logLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return debugLevel
	case "WARN", "WARNING":
		return warnLevel
	case "ERROR":
		return errorLevel
	default:
		return infoLevel
	}
}

// WithFields returns a logger that adds fields to every line.
func (l *SimpleLogger) WithFields(fields map[string]interface{}) *SimpleLogger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &SimpleLogger{level: l.level, fields: merged}
}

func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) {
	l.emit(debugLevel, "DEBUG", msg, fields)
}

func (l *SimpleLogger) Info(msg string, fields map[string]interface{}) {
	l.emit(infoLevel, "INFO", msg, fields)
}

func (l *SimpleLogger) Warn(msg string, fields map[string]interface{}) {
	l.emit(warnLevel, "WARN", msg, fields)
}

func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) {
	l.emit(errorLevel, "ERROR", msg, fields)
}

func (l *SimpleLogger) emit(lvl logLevel, name, msg string, fields map[string]interface{}) {
	if lvl < l.level {
		return
	}
	parts := []string{fmt.Sprintf("[%s]", name), msg}
	parts = append(parts, formatFields(l.fields)...)
	parts = append(parts, formatFields(fields)...)
	log.Println(strings.Join(parts, " "))
}

// formatFields renders fields sorted by key so lines are stable.
func formatFields(fields map[string]interface{}) []string {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return out
}
