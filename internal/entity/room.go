package entity

import (
	"sync"
	"time"
)

const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"

	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""

	ReasonAbandoned = "abandoned"
	ReasonExpired   = "expired"
)

// Board - 9 cells in row-major order, each EmptyCell or a marker.
type Board [9]string

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

func (that Board) Filled() int {
	n := 0
	for _, cell := range that {
		if cell != EmptyCell {
			n++
		}
	}

	return n
}

// Room - authoritative state of one game session. All fields are guarded by the
// room's own lock; callers outside the coordinator only ever see Snapshots.
type Room struct {
	mu      sync.Mutex
	removed bool

	Code        string
	First       *Player
	Second      *Player
	Board       Board
	Turn        string
	Status      string
	Winner      string
	WinningLine []int
	CreatedAt   time.Time
}

func NewRoom(code string, first *Player, createdAt time.Time) *Room {
	return &Room{
		Code:      code,
		First:     first,
		Turn:      PlayerX,
		Status:    StatusWaiting,
		CreatedAt: createdAt,
	}
}

func (that *Room) Lock() {
	that.mu.Lock()
}

func (that *Room) Unlock() {
	that.mu.Unlock()
}

// MarkRemoved - flags the room as discarded. Must be called with the lock held so
// operations that looked the room up before its removal observe it.
func (that *Room) MarkRemoved() {
	that.removed = true
}

func (that *Room) IsRemoved() bool {
	return that.removed
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsActive() bool {
	return that.Status == StatusActive
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

// MarkerOf - returns the marker played by connID, or "" if it holds no slot.
func (that *Room) MarkerOf(connID string) string {
	switch {
	case that.First.Is(connID):
		return PlayerX
	case that.Second.Is(connID):
		return PlayerO
	default:
		return ""
	}
}

func (that *Room) PlayerOf(connID string) *Player {
	switch {
	case that.First.Is(connID):
		return that.First
	case that.Second.Is(connID):
		return that.Second
	default:
		return nil
	}
}

func (that *Room) Players() []*Player {
	players := make([]*Player, 0, 2)
	if that.First != nil {
		players = append(players, that.First)
	}
	if that.Second != nil {
		players = append(players, that.Second)
	}

	return players
}

// ConnectedIDs - connection identities of the occupants still connected.
func (that *Room) ConnectedIDs() []string {
	ids := make([]string, 0, 2)
	for _, player := range that.Players() {
		if player.Connected {
			ids = append(ids, player.ConnID)
		}
	}

	return ids
}

func (that *Room) AllDisconnected() bool {
	for _, player := range that.Players() {
		if player.Connected {
			return false
		}
	}

	return true
}

func (that *Room) Age(now time.Time) time.Duration {
	return now.Sub(that.CreatedAt)
}

// Restart - clears the board and outcome for a new round with the same players.
func (that *Room) Restart() {
	that.Board = Board{}
	that.Turn = PlayerX
	that.Status = StatusActive
	that.Winner = ""
	that.WinningLine = nil
}

func (that *Room) Snapshot() Snapshot {
	snapshot := Snapshot{
		RoomCode:      that.Code,
		Players:       Players{X: that.First.view(), O: that.Second.view()},
		Board:         that.Board,
		CurrentPlayer: that.Turn,
		GameStatus:    that.Status,
		Winner:        that.Winner,
		CreatedAt:     that.CreatedAt,
	}

	if that.WinningLine != nil {
		snapshot.WinningLine = append([]int(nil), that.WinningLine...)
	}

	return snapshot
}

func Opponent(marker string) string {
	if marker == PlayerX {
		return PlayerO
	}
	return PlayerX
}
