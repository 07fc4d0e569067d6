package ws

import "encoding/json"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	MsgValidationStarted  MessageType = "validation_started"
	MsgRuleOutcome        MessageType = "rule_outcome"
	MsgValidationComplete MessageType = "validation_complete"
	MsgError              MessageType = "error"
	MsgSync               MessageType = "sync"
	MsgSnapshot           MessageType = "snapshot"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RuleOutcomePayload accompanies MsgRuleOutcome.
type RuleOutcomePayload struct {
	ValidationID string `json:"validation_id"`
	Index        int    `json:"index"`
	Total        int    `json:"total"`
	Outcome      any    `json:"outcome"`
}

// NewMessage creates a new Message with the given type and payload.
func NewMessage(typ MessageType, payload any) ([]byte, error) {
	var p json.RawMessage
	if payload != nil {
		var err error
		p, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Message{Type: typ, Payload: p})
}
