package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

type roomStore interface {
	PutIfAbsent(code string, room *entity.Room) bool
	Get(code string) (*entity.Room, bool)
	Remove(code string)
	All() []*entity.Room
	Count() int

	Bind(connID, code string)
	Lookup(connID string) (string, bool)
	Unbind(connID string)
}

// Assignment - marker a connection plays in its room.
type Assignment struct {
	ConnID string
	Marker string
}

// Event - result of a state transition: the snapshot taken at the end of it and the
// connections it must be delivered to. Recipients only ever lists connected players.
type Event struct {
	Code        string
	Snapshot    entity.Snapshot
	Recipients  []string
	Assignments []Assignment

	// Removed is set when the transition discarded the room; Reason tells why.
	Removed bool
	Reason  string
}

// Coordinator - the only writer of room state. Every operation runs validate → mutate
// → snapshot under the room's own lock; failures never mutate.
type Coordinator struct {
	logger *slog.Logger
	rooms  roomStore

	expiry time.Duration
	now    func() time.Time
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(that *Coordinator) {
		that.now = now
	}
}

func NewCoordinator(logger *slog.Logger, rooms roomStore, expiry time.Duration, opts ...Option) *Coordinator {
	that := &Coordinator{
		logger: logger.With("component", "coordinator"),
		rooms:  rooms,
		expiry: expiry,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(that)
	}

	return that
}

func (that *Coordinator) CreateRoom(code, name, connID string) (*Event, error) {
	code, ok := pkg.NormalizeRoomCode(code)
	if !ok {
		return nil, fmt.Errorf("%w: invalid room code", apperror.ErrNotFound)
	}

	if current, bound := that.rooms.Lookup(connID); bound {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, current)
	}

	player := entity.NewPlayer(pkg.NormalizePlayerName(name, entity.PlayerX), connID)
	room := entity.NewRoom(code, player, that.now())

	room.Lock()
	defer room.Unlock()

	if !that.rooms.PutIfAbsent(code, room) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyExists, code)
	}
	that.rooms.Bind(connID, code)

	that.logger.Info("room created", "roomCode", code, "connID", connID, "player", player.Name)

	return &Event{
		Code:        code,
		Snapshot:    room.Snapshot(),
		Recipients:  []string{connID},
		Assignments: []Assignment{{ConnID: connID, Marker: entity.PlayerX}},
	}, nil
}

func (that *Coordinator) JoinRoom(code, name, connID string) (*Event, error) {
	code, ok := pkg.NormalizeRoomCode(code)
	if !ok {
		return nil, fmt.Errorf("%w: invalid room code", apperror.ErrNotFound)
	}

	if current, bound := that.rooms.Lookup(connID); bound {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, current)
	}

	room, err := that.lockRoom(code)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	if room.Second != nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrFull, code)
	}

	if !room.IsWaiting() {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyStarted, code)
	}

	room.Second = entity.NewPlayer(pkg.NormalizePlayerName(name, entity.PlayerO), connID)
	room.Status = entity.StatusActive
	that.rooms.Bind(connID, code)

	that.logger.Info("player joined room", "roomCode", code, "connID", connID, "player", room.Second.Name)

	event := that.event(room)
	for _, player := range room.Players() {
		if player.Connected {
			event.Assignments = append(event.Assignments, Assignment{
				ConnID: player.ConnID,
				Marker: room.MarkerOf(player.ConnID),
			})
		}
	}

	return event, nil
}

func (that *Coordinator) ApplyMove(connID string, cell int) (*Event, error) {
	room, err := that.lockMemberRoom(connID)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	if !room.IsActive() {
		return nil, fmt.Errorf("%w: room %s is %s", apperror.ErrNotActive, room.Code, room.Status)
	}

	marker := room.MarkerOf(connID)
	if marker == "" {
		return nil, fmt.Errorf("%w: room %s", apperror.ErrNotAPlayer, room.Code)
	}

	if marker != room.Turn {
		return nil, fmt.Errorf("%w: %s to move", apperror.ErrWrongTurn, room.Turn)
	}

	if !tictactoe.IsLegalMove(room.Board, cell) {
		return nil, fmt.Errorf("%w: cell %d", apperror.ErrIllegalMove, cell)
	}

	room.Board[cell] = marker

	outcome := tictactoe.Evaluate(room.Board)
	if outcome.Finished {
		room.Status = entity.StatusFinished
		room.Winner = outcome.Winner
		room.WinningLine = outcome.Line

		that.logger.Info("game finished", "roomCode", room.Code, "winner", outcome.Winner, "line", outcome.Line)
	} else {
		room.Turn = entity.Opponent(marker)
	}

	that.logger.Debug("move applied", "roomCode", room.Code, "connID", connID, "marker", marker, "cell", cell)

	return that.event(room), nil
}

// ResetRoom - starts a new round in a finished room; X moves first again.
func (that *Coordinator) ResetRoom(connID string) (*Event, error) {
	room, err := that.lockMemberRoom(connID)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	if !room.IsFinished() {
		return nil, fmt.Errorf("%w: room %s is %s", apperror.ErrNotFinished, room.Code, room.Status)
	}

	room.Restart()

	that.logger.Info("game reset", "roomCode", room.Code, "connID", connID)

	return that.event(room), nil
}

func (that *Coordinator) QueryState(code string) (entity.Snapshot, error) {
	code, ok := pkg.NormalizeRoomCode(code)
	if !ok {
		return entity.Snapshot{}, fmt.Errorf("%w: invalid room code", apperror.ErrNotFound)
	}

	room, err := that.lockRoom(code)
	if err != nil {
		return entity.Snapshot{}, err
	}
	defer room.Unlock()

	return room.Snapshot(), nil
}

// Disconnect - marks connID's slot as disconnected and drops its membership. The room
// is discarded once nobody in it is connected or it outlived the expiry. Reports false
// when connID was not in a room, which is not an error.
func (that *Coordinator) Disconnect(connID string) (*Event, bool) {
	log := that.logger.With("method", "Disconnect", "connID", connID)

	code, ok := that.rooms.Lookup(connID)
	if !ok {
		return nil, false
	}
	that.rooms.Unbind(connID)

	room, err := that.lockRoom(code)
	if err != nil {
		return nil, false
	}
	defer room.Unlock()

	if player := room.PlayerOf(connID); player != nil {
		player.Connected = false
	}

	event := that.event(room)

	switch {
	case room.AllDisconnected():
		event.Reason = entity.ReasonAbandoned
	case room.Age(that.now()) > that.expiry:
		event.Reason = entity.ReasonExpired
	}

	if event.Reason != "" {
		that.removeLocked(room)
		event.Removed = true
		event.Snapshot = room.Snapshot()

		log.Info("room removed", "roomCode", code, "reason", event.Reason)
	} else {
		log.Info("player disconnected", "roomCode", code)
	}

	return event, true
}

// EvictExpired - removes every room older than the expiry, returning one event per
// removed room addressed to its still connected players.
func (that *Coordinator) EvictExpired() []*Event {
	now := that.now()

	var events []*Event
	for _, room := range that.rooms.All() {
		if event := that.evictIfExpired(room, now); event != nil {
			events = append(events, event)
		}
	}

	return events
}

func (that *Coordinator) RoomCount() int {
	return that.rooms.Count()
}

func (that *Coordinator) evictIfExpired(room *entity.Room, now time.Time) *Event {
	room.Lock()
	defer room.Unlock()

	if room.IsRemoved() || room.Age(now) <= that.expiry {
		return nil
	}

	event := that.event(room)
	event.Removed = true
	event.Reason = entity.ReasonExpired

	that.removeLocked(room)

	that.logger.Info("room expired", "roomCode", room.Code, "age", room.Age(now).String())

	return event
}

// removeLocked - discards room and the membership of both of its occupants. The room
// lock must be held.
func (that *Coordinator) removeLocked(room *entity.Room) {
	room.MarkRemoved()
	that.rooms.Remove(room.Code)

	for _, player := range room.Players() {
		if code, ok := that.rooms.Lookup(player.ConnID); ok && code == room.Code {
			that.rooms.Unbind(player.ConnID)
		}
	}
}

func (that *Coordinator) lockMemberRoom(connID string) (*entity.Room, error) {
	code, ok := that.rooms.Lookup(connID)
	if !ok {
		return nil, fmt.Errorf("%w: connection is not in a room", apperror.ErrNotFound)
	}

	return that.lockRoom(code)
}

// lockRoom - returns the room locked; the caller must unlock it.
func (that *Coordinator) lockRoom(code string) (*entity.Room, error) {
	room, ok := that.rooms.Get(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, code)
	}

	room.Lock()
	if room.IsRemoved() {
		room.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, code)
	}

	return room, nil
}

func (that *Coordinator) event(room *entity.Room) *Event {
	return &Event{
		Code:       room.Code,
		Snapshot:   room.Snapshot(),
		Recipients: room.ConnectedIDs(),
	}
}
