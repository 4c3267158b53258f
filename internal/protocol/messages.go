package protocol

import (
	"encoding/json"

	"github.com/park285/cheese-chess-live/internal/domain"
)

// MessageType is the discriminant carried in "serverMessageType".
type MessageType string

const (
	MessageLoadGame     MessageType = "LOAD_GAME"
	MessageNotification MessageType = "NOTIFICATION"
	MessageError        MessageType = "ERROR"
)

// ServerMessage is every outbound frame. Exactly one of Game, Message or
// ErrorMessage is set, matching the type.
type ServerMessage struct {
	ServerMessageType MessageType  `json:"serverMessageType"`
	Game              *domain.Game `json:"game,omitempty"`
	Message           string       `json:"message,omitempty"`
	ErrorMessage      string       `json:"errorMessage,omitempty"`
}

func LoadGame(g *domain.Game) ServerMessage {
	return ServerMessage{ServerMessageType: MessageLoadGame, Game: g.Clone()}
}

func Notification(text string) ServerMessage {
	return ServerMessage{ServerMessageType: MessageNotification, Message: text}
}

func Error(text string) ServerMessage {
	return ServerMessage{ServerMessageType: MessageError, ErrorMessage: text}
}

func (m ServerMessage) Marshal() ([]byte, error) { return json.Marshal(m) }

// DecodeServerMessage parses an outbound frame; clients and tests use it.
func DecodeServerMessage(raw []byte) (ServerMessage, error) {
	var m ServerMessage
	err := json.Unmarshal(raw, &m)
	return m, err
}
