package entity

// Player - occupant of one of the two slots of a room. A slot is never cleared while
// the room exists, only its Connected flag flips on disconnect.
type Player struct {
	Name      string `json:"name"`
	ConnID    string `json:"-"`
	Connected bool   `json:"connected"`
}

func NewPlayer(name, connID string) *Player {
	return &Player{
		Name:      name,
		ConnID:    connID,
		Connected: true,
	}
}

func (that *Player) Is(connID string) bool {
	return that != nil && connID != "" && that.ConnID == connID
}
