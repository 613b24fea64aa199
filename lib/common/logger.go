package common

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Component Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// componentLogger writes one line per message:
//
//	2024-01-02T15:04:05.000Z WARN  repo      | message
//
// The level can be changed while other goroutines log.
type componentLogger struct {
	component string
	level     atomic.Int32
	out       *lineWriter
}

func (l *componentLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *componentLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *componentLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.out.write("DEBUG", l.component, format, args)
	}
}

func (l *componentLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.out.write("INFO", l.component, format, args)
	}
}

func (l *componentLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.out.write("WARN", l.component, format, args)
	}
}

func (l *componentLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.out.write("ERROR", l.component, format, args)
	}
}

func (l *componentLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.out.write("PANIC", l.component, "%s", []interface{}{msg})
	panic(msg)
}

// lineWriter serializes log lines of all components onto one writer.
type lineWriter struct {
	mutex sync.Mutex
	w     io.Writer
	now   func() time.Time
}

func (lw *lineWriter) write(level, component, format string, args []interface{}) {
	line := fmt.Sprintf("%s %-5s %-9s | %s\n",
		lw.now().UTC().Format("2006-01-02T15:04:05.000Z"), level, component, fmt.Sprintf(format, args...))

	lw.mutex.Lock()
	defer lw.mutex.Unlock()
	_, _ = io.WriteString(lw.w, line)
}

// stderr is shared by all component loggers. Command output on stdout stays
// machine readable.
var stderr = &lineWriter{w: os.Stderr, now: time.Now}

// CreateLogger is the logger.Factory of the application.
func CreateLogger(component string) logger.ILogger {
	l := &componentLogger{component: component, out: stderr}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel.
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// LoggerNames lists the components that log: the query translator, the
// working set, the version gate, the snapshot store, the pebble engine and
// the commands.
var LoggerNames = []string{"query", "repo", "version", "snapshot", "pebbledb", "cmd"}

// ParseComponentLevels parses "component=level" pairs separated by commas,
// e.g. "repo=debug,pebbledb=warn". An empty string yields no overrides.
func ParseComponentLevels(s string) (map[string]string, error) {
	levels := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		component, level, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid component log level %q (expected component=level)", pair)
		}
		levels[strings.TrimSpace(component)] = strings.TrimSpace(level)
	}
	return levels, nil
}

// componentLevels resolves the level of every component: the override if
// one is configured, the global level otherwise.
func componentLevels(config Config) (map[string]logger.LogLevel, error) {
	global, err := ParseLogLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}

	levels := make(map[string]logger.LogLevel, len(LoggerNames))
	for _, name := range LoggerNames {
		levels[name] = global
	}
	for component, level := range config.ComponentLogLevels {
		if _, known := levels[component]; !known {
			return nil, fmt.Errorf("unknown log component %q. must be one of %s", component, strings.Join(LoggerNames, ", "))
		}
		parsed, err := ParseLogLevel(level)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", component, err)
		}
		levels[component] = parsed
	}
	return levels, nil
}

func formatComponentLevels(levels map[string]string) string {
	if len(levels) == 0 {
		return "(none)"
	}
	pairs := make([]string, 0, len(levels))
	for component, level := range levels {
		pairs = append(pairs, component+"="+level)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// dragonboat refuses a second factory, several nodes may be opened in one process
var installFactory sync.Once

// InitLoggers installs the logger factory on first use and applies the
// configured levels to every component. It can be called again to change
// the levels.
func InitLoggers(config Config) error {
	levels, err := componentLevels(config)
	if err != nil {
		return err
	}

	installFactory.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})
	for name, level := range levels {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
