package entity

import "time"

// Result - record of one finished round.
type Result struct {
	RoomCode    string    `json:"roomCode"`
	Winner      string    `json:"winner,omitempty"`
	WinningLine []int     `json:"winningLine,omitempty"`
	PlayerX     string    `json:"playerX"`
	PlayerO     string    `json:"playerO"`
	FinishedAt  time.Time `json:"finishedAt"`
}

func NewResult(snapshot Snapshot, finishedAt time.Time) *Result {
	result := &Result{
		RoomCode:    snapshot.RoomCode,
		Winner:      snapshot.Winner,
		WinningLine: snapshot.WinningLine,
		FinishedAt:  finishedAt,
	}

	if snapshot.Players.X != nil {
		result.PlayerX = snapshot.Players.X.Name
	}
	if snapshot.Players.O != nil {
		result.PlayerO = snapshot.Players.O.Name
	}

	return result
}

func (that *Result) IsDraw() bool {
	return that.Winner == ""
}

type Stats struct {
	Games int64 `json:"games"`
	XWins int64 `json:"xWins"`
	OWins int64 `json:"oWins"`
	Draws int64 `json:"draws"`
}
