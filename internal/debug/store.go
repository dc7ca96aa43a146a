// Package debug records the bridge's upstream interactions into an in-session,
// append-only history that can be summarized and exported
package debug

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notification-bridge/internal/metrics"
)

const (
	// NotEnabledMessage is returned by exports when debugging is off
	NotEnabledMessage = "Debug logging is not enabled. Please enable debugging to export logs."
	// NoEventsMessage is returned by exports of an empty session
	NoEventsMessage = "No debug events recorded in this session."

	exportTitle  = "Notification Bridge - Debug Session Export"
	exportFooter = "End of Debug Session Export"
)

// Options configures a Store
type Options struct {
	// EnableDebugger is the configuration flag
	EnableDebugger bool
	// DebugBuild is the build-type flag; the store never activates without it
	DebugBuild bool
	// Clock supplies event timestamps; defaults to time.Now
	Clock  func() time.Time
	Logger *logrus.Logger
}

// Store is the session's debug history. It is owned by whoever constructs
// it and shared by handle; the history is only mutated through Record.
type Store struct {
	enabled bool
	clock   func() time.Time
	logger  *logrus.Logger

	mu     sync.Mutex
	events []Event
}

// NewStore creates a debug store. Recording is enabled only when both the
// configuration flag and the build-type flag are set.
func NewStore(opts Options) *Store {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Store{
		enabled: opts.EnableDebugger && opts.DebugBuild,
		clock:   clock,
		logger:  logger,
		events:  make([]Event, 0),
	}
}

// Enabled reports whether Record appends events
func (s *Store) Enabled() bool {
	return s != nil && s.enabled
}

// Record appends a new event. It is a no-op returning false when
// debugging is disabled.
func (s *Store) Record(eventType string, data Fields) (Event, bool) {
	if !s.Enabled() {
		return Event{}, false
	}

	s.mu.Lock()
	event := Event{
		ID:        uuid.New().String(),
		Timestamp: s.clock(),
		EventType: eventType,
		Data:      data.Clone(),
	}
	s.events = append(s.events, event)
	count := len(s.events)
	s.mu.Unlock()

	metrics.DebugEventsRecordedTotal.Inc()
	s.logger.WithFields(logrus.Fields{
		"debug_event": eventType,
		"event_id":    event.ID,
		"total":       count,
	}).Debug("Debug event recorded")

	return event, true
}

// Len returns the number of recorded events
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Events returns a snapshot of the history, oldest first
func (s *Store) Events() []Event {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Get returns the event with the given id
func (s *Store) Get(id string) (Event, bool) {
	for _, event := range s.Events() {
		if event.ID == id {
			return event, true
		}
	}
	return Event{}, false
}

// ExportAll renders the whole session, oldest event first
func (s *Store) ExportAll() string {
	if !s.Enabled() {
		return NotEnabledMessage
	}

	events := s.Events()
	if len(events) == 0 {
		return NoEventsMessage
	}

	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(&b, exportTitle)
	fmt.Fprintf(&b, "Generated: %s\n", s.clock().Format(exportTimeLayout))
	fmt.Fprintf(&b, "Total Events: %d\n", len(events))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	for i, event := range events {
		fmt.Fprintf(&b, "Event #%d\n", i+1)
		b.WriteString(FormatForExport(event))
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, rule)
	b.WriteString(exportFooter)

	return b.String()
}

// ExportEvent renders a single event with its own header
func (s *Store) ExportEvent(event Event) string {
	var b strings.Builder
	fmt.Fprintln(&b, "Notification Bridge - Debug Event Export")
	fmt.Fprintf(&b, "Generated: %s\n", s.clock().Format(exportTimeLayout))
	fmt.Fprintln(&b)
	b.WriteString(FormatForExport(event))
	return b.String()
}
