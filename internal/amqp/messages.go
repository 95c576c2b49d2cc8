package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeMessage announces that the document at Path changed. Receivers
// reload from the shared database; the message carries no document data.
type ChangeMessage struct {
	Path      string    `json:"path"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(path, origin string) *ChangeMessage {
	return &ChangeMessage{
		Path:      path,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a change message; a message without a path
// is rejected.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Path == "" {
		return nil, fmt.Errorf("change message without path")
	}
	return &msg, nil
}
