// Package transcript renders session conversations for export.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/internal/store"
)

// Format selects the export rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat validates a format string, defaulting empty to JSON.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or text)", s)
	}
}

// ContentType returns the HTTP content type for the format.
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

// Export is the JSON export shape; the text form renders the same fields.
type Export struct {
	SessionID      string           `json:"session_id"`
	SimulationID   string           `json:"simulation_id"`
	SimulationName string           `json:"simulation_name,omitempty"`
	State          string           `json:"state"`
	StartedAt      time.Time        `json:"started_at"`
	LastActivityAt time.Time        `json:"last_activity_at"`
	MessageCount   int              `json:"message_count"`
	Messages       []schema.Message `json:"messages"`
}

// Render produces the export bytes for a session. simulation may be nil when
// only the session record is available.
func Render(session *store.SessionRecord, simulation *store.SimulationRecord, format Format) ([]byte, error) {
	export := Export{
		SessionID:      session.ID,
		SimulationID:   session.SimulationID,
		State:          string(session.State),
		StartedAt:      session.StartedAt,
		LastActivityAt: session.LastActivityAt,
		MessageCount:   len(session.History),
		Messages:       session.History,
	}
	if simulation != nil {
		export.SimulationName = simulation.Name
	}

	if format == FormatText {
		return []byte(renderText(&export)), nil
	}
	return json.MarshalIndent(export, "", "  ")
}

func renderText(export *Export) string {
	var sb strings.Builder

	title := export.SimulationName
	if title == "" {
		title = export.SimulationID
	}
	fmt.Fprintf(&sb, "Transcript: %s\n", title)
	fmt.Fprintf(&sb, "Session:    %s (%s)\n", export.SessionID, export.State)
	fmt.Fprintf(&sb, "Started:    %s\n", export.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Messages:   %d\n\n", export.MessageCount)

	for _, m := range export.Messages {
		fmt.Fprintf(&sb, "[%s] %s:\n%s\n\n",
			m.Timestamp.Format("15:04:05"), speakerLabel(m.Role), m.Content)
	}
	return sb.String()
}

func speakerLabel(role string) string {
	switch role {
	case schema.RoleStudent:
		return "Student"
	case schema.RoleAdvisor:
		return "Advisor"
	case schema.RoleSystem:
		return "System"
	default:
		return role
	}
}
