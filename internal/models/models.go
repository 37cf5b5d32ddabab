package models

import (
	"encoding/json"
	"fmt"
)

// ModelID is the opaque identifier the bridge uses for a model, e.g. "mistral:latest".
type ModelID string

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Model   ModelID `json:"model,omitempty"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, model ModelID) Message {
	return Message{Role: RoleAssistant, Content: content, Model: model}
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ConnState tracks the socket lifecycle only. Whether a reply is in
// flight is tracked separately by StreamState.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type StreamState int

const (
	StreamIdle StreamState = iota
	Streaming
)

func (s StreamState) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

// HistorySummary is one entry of the bridge's chat history listing.
type HistorySummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts either a bare string or an object carrying an id
// and one of label, title or name.
func (h *HistorySummary) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		h.ID = s
		h.Label = s
		return nil
	}

	var obj struct {
		ID    json.RawMessage `json:"id"`
		Label string          `json:"label"`
		Title string          `json:"title"`
		Name  string          `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("history summary: %w", err)
	}

	h.ID = rawID(obj.ID)
	switch {
	case obj.Label != "":
		h.Label = obj.Label
	case obj.Title != "":
		h.Label = obj.Title
	case obj.Name != "":
		h.Label = obj.Name
	default:
		h.Label = h.ID
	}
	if h.ID == "" {
		h.ID = h.Label
	}
	return nil
}

// rawID renders string and numeric ids the same way.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ArchivedMessage is a finalized message read back from the transcript archive.
type ArchivedMessage struct {
	Message
	CreatedAtUnix int64
}

// ArchiveSummary describes the archived messages for one model.
type ArchiveSummary struct {
	Model         ModelID
	Count         int
	UpdatedAtUnix int64
}
