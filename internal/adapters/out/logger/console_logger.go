package logger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
)

type ConsoleLogger struct {
	defaultFields out.LogFields
	module        string
	location      *time.Location
	minLevel      out.LogLevel
}

func NewConsoleLogger(timezone, level string) (*ConsoleLogger, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	return &ConsoleLogger{
		defaultFields: make(out.LogFields),
		location:      loc,
		minLevel:      out.ParseLogLevel(level),
	}, nil
}

func (l *ConsoleLogger) WithFields(fields out.LogFields) out.LoggerPort {
	newLogger := &ConsoleLogger{
		defaultFields: make(out.LogFields),
		module:        l.module,
		location:      l.location,
		minLevel:      l.minLevel,
	}

	for k, v := range l.defaultFields {
		newLogger.defaultFields[k] = v
	}
	for k, v := range fields {
		newLogger.defaultFields[k] = v
	}

	return newLogger
}

func (l *ConsoleLogger) WithModule(module string) out.LoggerPort {
	return &ConsoleLogger{
		defaultFields: l.defaultFields,
		module:        module,
		location:      l.location,
		minLevel:      l.minLevel,
	}
}

func (l *ConsoleLogger) Debug(event string, fields out.LogFields) {
	l.log(out.LogLevelDebug, event, fields)
}

func (l *ConsoleLogger) Info(event string, fields out.LogFields) {
	l.log(out.LogLevelInfo, event, fields)
}

func (l *ConsoleLogger) Warn(event string, fields out.LogFields) {
	l.log(out.LogLevelWarn, event, fields)
}

func (l *ConsoleLogger) Error(event string, fields out.LogFields) {
	l.log(out.LogLevelError, event, fields)
}

func (l *ConsoleLogger) log(level out.LogLevel, event string, fields out.LogFields) {
	if level < l.minLevel {
		return
	}

	module := l.module
	if module == "" {
		module = "unknown"
	}

	merged := make(out.LogFields, len(l.defaultFields)+len(fields))
	for k, v := range l.defaultFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	timestamp := time.Now().In(l.location).Format("2006-01-02 15:04:05.000")

	var levelColor string
	switch level {
	case out.LogLevelDebug:
		levelColor = colorGray
	case out.LogLevelInfo:
		levelColor = colorGreen
	case out.LogLevelWarn:
		levelColor = colorYellow
	case out.LogLevelError:
		levelColor = colorRed
	}

	fmt.Printf("%s[%s]%s %s[%s]%s %s[%s]%s %s %s\n",
		colorGray, timestamp, colorReset,
		levelColor, level, colorReset,
		colorCyan, module, colorReset,
		event,
		renderFields(merged),
	)
}

// renderFields собирает поля в одну строку key=value
// с устойчивым порядком ключей
func renderFields(fields out.LogFields) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := fields[k]
		switch v := value.(type) {
		case string, fmt.Stringer, error:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%s", k, encoded))
		}
	}

	return strings.Join(parts, " ")
}
