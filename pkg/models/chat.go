package models

import (
	"encoding/json"
	"strings"
)

// ChatRequest is the body of POST /chat and of each /ws/chat frame.
type ChatRequest struct {
	Message string     `json:"message"`
	Context string     `json:"context,omitempty"`
	History []ChatTurn `json:"history,omitempty"`
}

// ChatTurn is one prior exchange supplied by the client.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// UnmarshalJSON accepts {role, content} as well as the Gemini-style
// {role, parts: [{text}]} shape clients often replay verbatim.
func (t *ChatTurn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Text    string `json:"text"`
		Parts   []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Role = strings.ToLower(strings.TrimSpace(raw.Role))
	if t.Role == "assistant" {
		t.Role = "model"
	}
	switch {
	case raw.Content != "":
		t.Content = raw.Content
	case raw.Text != "":
		t.Content = raw.Text
	default:
		texts := make([]string, 0, len(raw.Parts))
		for _, p := range raw.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		t.Content = strings.Join(texts, "\n")
	}
	return nil
}

// ActionKind is the closed set of client-side actions a chat can emit.
type ActionKind string

const (
	ActionBuy       ActionKind = "buy"
	ActionSell      ActionKind = "sell"
	ActionPortfolio ActionKind = "portfolio"
)

// TradeOrder is the payload of a buy or sell action.
type TradeOrder struct {
	Symbol   string `json:"symbol"`
	Quantity int    `json:"quantity"`
}

// ChatReply is either a text answer ({response}) or a client action
// ({type: "action", action, data, message}).
type ChatReply struct {
	Response string     `json:"response,omitempty"`
	Type     string     `json:"type,omitempty"`
	Action   ActionKind `json:"action,omitempty"`
	Data     any        `json:"data,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// TextReply builds a plain text reply.
func TextReply(text string) ChatReply {
	return ChatReply{Response: text}
}

// ActionReply builds an action reply. A nil payload is sent as {}.
func ActionReply(kind ActionKind, data any, message string) ChatReply {
	if data == nil {
		data = struct{}{}
	}
	return ChatReply{Type: "action", Action: kind, Data: data, Message: message}
}

// IsAction reports whether the reply carries a client action.
func (r ChatReply) IsAction() bool { return r.Type == "action" }
