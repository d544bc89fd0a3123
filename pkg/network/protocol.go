package network

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/go-orrery/pkg/engine"
)

// MessageType defines the type of telemetry message
type MessageType string

const (
	// Server to client
	LayoutMessage MessageType = "layout"
	FrameMessage  MessageType = "frame"
	PongMessage   MessageType = "pong"
	ErrorMessage  MessageType = "error"

	// Client to server
	PingMessage          MessageType = "ping"
	LayoutRequestMessage MessageType = "layout_request"
)

// Message is the JSON envelope exchanged over the telemetry websocket.
// Exactly one payload field is set for a given Type.
type Message struct {
	Type   MessageType         `json:"type"`
	Layout *engine.SceneLayout `json:"layout,omitempty"`
	Frame  *engine.FrameState  `json:"frame,omitempty"`
	Nonce  uint64              `json:"nonce,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func encodeMessage(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return data, nil
}

func decodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("decode message: missing type")
	}
	return msg, nil
}
