package entity

import "time"

// Snapshot - immutable point-in-time view of a room, safe to serialise and send
// after the room lock is released.
type Snapshot struct {
	RoomCode      string    `json:"roomCode"`
	Players       Players   `json:"players"`
	Board         Board     `json:"board"`
	CurrentPlayer string    `json:"currentPlayer"`
	GameStatus    string    `json:"gameStatus"`
	Winner        string    `json:"winner,omitempty"`
	WinningLine   []int     `json:"winningLine,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Players struct {
	X *PlayerView `json:"X"`
	O *PlayerView `json:"O"`
}

type PlayerView struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

func (that *Player) view() *PlayerView {
	if that == nil {
		return nil
	}

	return &PlayerView{Name: that.Name, Connected: that.Connected}
}

func (that Snapshot) IsFinished() bool {
	return that.GameStatus == StatusFinished
}

func (that Snapshot) IsDraw() bool {
	return that.IsFinished() && that.Winner == ""
}
