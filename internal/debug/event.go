package debug

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	eventTimeLayout  = "2006-01-02 15:04:05.000"
	exportTimeLayout = "2006-01-02 15:04:05"
	summarySeparator = " • "
)

// Event is one recorded interaction with the upstream SDK. Events are
// immutable once recorded; Data must not be modified.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Data      Fields    `json:"data"`
}

// summaryKeys are the well-known data keys surfaced in a summary, in order
var summaryKeys = []struct {
	key   string
	label string
}{
	{"items_count", "Items"},
	{"order_id", "Order"},
	{"creativeId", "Creative"},
	{"event_type", "Type"},
}

// Summarize highlights the well-known keys of an event followed by its
// field count. Absent keys are omitted.
func Summarize(event Event) string {
	parts := make([]string, 0, len(summaryKeys)+1)
	for _, k := range summaryKeys {
		if v, ok := event.Data[k.key]; ok && v.Kind() != KindNull {
			parts = append(parts, fmt.Sprintf("%s: %s", k.label, v.String()))
		}
	}
	parts = append(parts, fmt.Sprintf("Payload: %d fields", len(event.Data)))
	return strings.Join(parts, summarySeparator)
}

// FormatForExport renders a single event as a human-readable block
func FormatForExport(event Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s\n", event.Timestamp.Format(eventTimeLayout), event.EventType)
	if summary := Summarize(event); summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", summary)
	}
	b.WriteString("Data:\n")
	b.WriteString(prettyData(event.Data))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n")

	return b.String()
}

func prettyData(data Fields) string {
	if data == nil {
		data = Fields{}
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data.Interface())
	}
	return string(out)
}
