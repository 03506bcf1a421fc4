package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// inbound actions.
const (
	actionCreateGame   = "create-game"
	actionJoinGame     = "join-game"
	actionMakeMove     = "make-move"
	actionResetGame    = "reset-game"
	actionGetGameState = "get-game-state"
)

// outbound actions.
const (
	actionGameCreated        = "game-created"
	actionGameJoined         = "game-joined"
	actionPlayerAssigned     = "player-assigned"
	actionGameUpdated        = "game-updated"
	actionGameReset          = "game-reset"
	actionGameState          = "game-state"
	actionPlayerDisconnected = "player-disconnected"
	actionRoomClosed         = "room-closed"
	actionGameError          = "game-error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type MoveRequest struct {
	Position *int `json:"position"`
}

type GamePayload struct {
	Game         entity.Snapshot `json:"game"`
	PlayerSymbol string          `json:"playerSymbol,omitempty"`
}

type AssignedPayload struct {
	PlayerSymbol string `json:"playerSymbol"`
}

type RoomClosedPayload struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func encode(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", action, err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}
