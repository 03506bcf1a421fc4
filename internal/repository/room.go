package repository

import (
	"sort"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// RoomStore - keyed container of all live rooms and of the connection → room
// membership. It holds no game logic; per-room exclusion is the room's own lock.
type RoomStore interface {
	Put(code string, room *entity.Room)
	PutIfAbsent(code string, room *entity.Room) bool
	Get(code string) (*entity.Room, bool)
	Remove(code string)
	All() []*entity.Room
	Count() int

	Bind(connID, code string)
	Lookup(connID string) (string, bool)
	Unbind(connID string)
}

type memoryRooms struct {
	roomsMu sync.RWMutex
	rooms   map[string]*entity.Room

	membersMu sync.RWMutex
	members   map[string]string // connID -> room code
}

func NewRoomStore() RoomStore {
	return &memoryRooms{
		rooms:   make(map[string]*entity.Room),
		members: make(map[string]string),
	}
}

func (that *memoryRooms) Put(code string, room *entity.Room) {
	that.roomsMu.Lock()
	defer that.roomsMu.Unlock()

	that.rooms[code] = room
}

// PutIfAbsent - stores room under code unless the code is taken; reports whether it
// was stored.
func (that *memoryRooms) PutIfAbsent(code string, room *entity.Room) bool {
	that.roomsMu.Lock()
	defer that.roomsMu.Unlock()

	if _, ok := that.rooms[code]; ok {
		return false
	}

	that.rooms[code] = room

	return true
}

func (that *memoryRooms) Get(code string) (*entity.Room, bool) {
	that.roomsMu.RLock()
	defer that.roomsMu.RUnlock()

	room, ok := that.rooms[code]

	return room, ok
}

func (that *memoryRooms) Remove(code string) {
	that.roomsMu.Lock()
	defer that.roomsMu.Unlock()

	delete(that.rooms, code)
}

// All - rooms ordered by code.
func (that *memoryRooms) All() []*entity.Room {
	that.roomsMu.RLock()
	codes := make([]string, 0, len(that.rooms))
	for code := range that.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rooms := make([]*entity.Room, 0, len(codes))
	for _, code := range codes {
		rooms = append(rooms, that.rooms[code])
	}
	that.roomsMu.RUnlock()

	return rooms
}

func (that *memoryRooms) Count() int {
	that.roomsMu.RLock()
	defer that.roomsMu.RUnlock()

	return len(that.rooms)
}

func (that *memoryRooms) Bind(connID, code string) {
	that.membersMu.Lock()
	defer that.membersMu.Unlock()

	that.members[connID] = code
}

func (that *memoryRooms) Lookup(connID string) (string, bool) {
	that.membersMu.RLock()
	defer that.membersMu.RUnlock()

	code, ok := that.members[connID]

	return code, ok
}

func (that *memoryRooms) Unbind(connID string) {
	that.membersMu.Lock()
	defer that.membersMu.Unlock()

	delete(that.members, connID)
}
