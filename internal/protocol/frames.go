// Package protocol defines the JSON frames exchanged with the chat bridge
// over its websocket.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"ollamachat/internal/models"
)

// Outbound frame types.
const (
	TypeMessage      = "message"
	TypeLoadHistory  = "load_history"
	TypeClearHistory = "clear_history"
)

// Inbound frame types.
const (
	TypeStreamStart    = "stream_start"
	TypeStream         = "stream"
	TypeStreamEnd      = "stream_end"
	TypeError          = "error"
	TypeChatHistories  = "chat_histories"
	TypeHistoryLoaded  = "history_loaded"
	TypeHistoryCleared = "history_cleared"
	TypeSystem         = "system"
	TypeWelcome        = "welcome"
)

var ErrMissingType = errors.New("frame has no type")

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewMessage(content string) Message {
	return Message{Type: TypeMessage, Content: content}
}

type LoadHistory struct {
	Type      string `json:"type"`
	HistoryID string `json:"history_id"`
}

func NewLoadHistory(id string) LoadHistory {
	return LoadHistory{Type: TypeLoadHistory, HistoryID: id}
}

type ClearHistory struct {
	Type string `json:"type"`
}

func NewClearHistory() ClearHistory {
	return ClearHistory{Type: TypeClearHistory}
}

// Inbound is the union of every frame the bridge sends. Only the fields
// relevant to Type are populated.
type Inbound struct {
	Type             string                  `json:"type"`
	Content          string                  `json:"content,omitempty"`
	Histories        []models.HistorySummary `json:"histories,omitempty"`
	Messages         []models.Message        `json:"messages,omitempty"`
	Model            string                  `json:"model,omitempty"`
	ModelDisplayName string                  `json:"modelDisplayName,omitempty"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("decode frame: %w", err)
	}
	if in.Type == "" {
		return Inbound{}, ErrMissingType
	}
	return in, nil
}
