package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HookPayload is the structured event document handed to hook actions on stdin.
// Raw keeps the original bytes so actions see exactly what the host sent.
type HookPayload struct {
	ToolInput        json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse     json.RawMessage `json:"tool_response,omitempty"`
	Raw              []byte          `json:"-"`
	SessionID        string          `json:"session_id,omitempty"`
	EventName        string          `json:"hook_event_name,omitempty"`
	CWD              string          `json:"cwd,omitempty"`
	ToolName         string          `json:"tool_name,omitempty"`
	Prompt           string          `json:"prompt,omitempty"`
	Message          string          `json:"message,omitempty"`
	NotificationType string          `json:"notification_type,omitempty"`
	Source           string          `json:"source,omitempty"`
	ProjectID        string          `json:"project_id,omitempty"`
	TaskID           int             `json:"task_id,omitempty"`
}

// ParseHookPayload decodes an event document. Empty input yields an empty payload.
func ParseHookPayload(data []byte) (*HookPayload, error) {
	p := &HookPayload{}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse hook payload: %w", err)
	}
	p.Raw = data
	return p, nil
}

// Subject returns the text a matcher is evaluated against:
// the tool name for tool events, otherwise the notification type or source.
func (p *HookPayload) Subject(event HookEvent) string {
	if event.IsToolEvent() {
		return p.ToolName
	}
	if p.NotificationType != "" {
		return p.NotificationType
	}
	return p.Source
}

// Document returns the bytes passed to an action's standard input.
func (p *HookPayload) Document() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(p)
}

// ContainsMarker reports whether the skip marker appears anywhere in the document.
func (p *HookPayload) ContainsMarker(marker string) bool {
	if marker == "" {
		return false
	}
	doc, err := p.Document()
	if err != nil {
		return false
	}
	return bytes.Contains(doc, []byte(marker))
}
