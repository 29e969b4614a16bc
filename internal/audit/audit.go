// Package audit records what the rewriter changed on behalf of each request.
package audit

import (
	"sync"

	"github.com/rs/zerolog"
)

// EventType represents the type of audit event
type EventType string

const (
	EventNameSubstituted  EventType = "name_substituted"
	EventLinkRetargeted   EventType = "link_retargeted"
	EventMenuRewritten    EventType = "menu_rewritten"
	EventNoticeSuppressed EventType = "notice_suppressed"
	EventRewriteFailed    EventType = "rewrite_failed"
)

// Event represents an audit log event
type Event struct {
	Type        EventType
	RequestID   string
	Opportunity string
	Viewer      string
	Target      string
	Href        string
	Error       string
}

// Recorder is what the API logs rewrite events through
type Recorder interface {
	Log(event *Event)
}

// Logger writes audit events as zerolog entries
type Logger struct {
	mu      sync.RWMutex
	logger  zerolog.Logger
	level   string
	enabled bool
}

// NewLogger creates an audit logger writing through logger.
// level is "minimal", "standard" or "verbose".
func NewLogger(logger zerolog.Logger, enabled bool, level string) *Logger {
	return &Logger{
		logger:  logger.With().Str("log", "audit").Logger(),
		level:   level,
		enabled: enabled,
	}
}

// Log logs an audit event
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	level := l.level
	l.mu.RUnlock()

	if !enabled || !shouldLog(level, event.Type) {
		return
	}

	e := l.logger.Info().Str("type", string(event.Type))
	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.Opportunity != "" {
		e = e.Str("opportunity", event.Opportunity)
	}
	if event.Viewer != "" {
		e = e.Str("viewer", event.Viewer)
	}
	if event.Target != "" {
		e = e.Str("target", event.Target)
	}
	if event.Href != "" {
		e = e.Str("href", event.Href)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	e.Msg("audit")
}

func shouldLog(level string, eventType EventType) bool {
	switch level {
	case "minimal":
		return eventType == EventNoticeSuppressed ||
			eventType == EventLinkRetargeted ||
			eventType == EventRewriteFailed
	case "standard":
		return eventType != EventMenuRewritten
	default:
		return true
	}
}

// Enable enables audit logging
func (l *Logger) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Disable disables audit logging
func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// NopLogger is a recorder that does nothing
type NopLogger struct{}

// Log does nothing
func (NopLogger) Log(_ *Event) {}
