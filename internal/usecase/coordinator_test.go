package usecase

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

const expiry = 24 * time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeClock, repository.RoomStore) {
	t.Helper()

	clock := newFakeClock()
	store := repository.NewRoomStore()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return NewCoordinator(logger, store, expiry, WithClock(clock.Now)), clock, store
}

// startGame creates ABC123 for c1 (X) and joins c2 (O).
func startGame(t *testing.T, coordinator *Coordinator) {
	t.Helper()

	_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
	require.NoError(t, err)
	_, err = coordinator.JoinRoom("ABC123", "Bob", "c2")
	require.NoError(t, err)
}

func play(t *testing.T, coordinator *Coordinator, cells ...int) *Event {
	t.Helper()

	var event *Event
	for i, cell := range cells {
		connID := "c1"
		if i%2 == 1 {
			connID = "c2"
		}

		var err error
		event, err = coordinator.ApplyMove(connID, cell)
		require.NoError(t, err, "move %d at cell %d", i, cell)
	}

	return event
}

func TestCoordinator_CreateRoom(t *testing.T) {
	t.Run("Creator gets X in a waiting room", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)

		// When: Alice creates a room with a lower case code
		event, err := coordinator.CreateRoom("abc123", "Alice", "c1")

		// Then: the code is normalised and only the creator is addressed
		require.NoError(t, err)
		assert.Equal(t, "ABC123", event.Code)
		assert.Equal(t, []string{"c1"}, event.Recipients)
		assert.Equal(t, []Assignment{{ConnID: "c1", Marker: entity.PlayerX}}, event.Assignments)

		snapshot := event.Snapshot
		assert.Equal(t, entity.StatusWaiting, snapshot.GameStatus)
		assert.Equal(t, entity.PlayerX, snapshot.CurrentPlayer)
		assert.Equal(t, "Alice", snapshot.Players.X.Name)
		assert.True(t, snapshot.Players.X.Connected)
		assert.Nil(t, snapshot.Players.O)
		assert.Equal(t, entity.Board{}, snapshot.Board)
		assert.Equal(t, 1, coordinator.RoomCount())
	})

	t.Run("Taken code is rejected", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
		require.NoError(t, err)

		// When: another connection asks for the same code in another case
		_, err = coordinator.CreateRoom("abc123", "Eve", "c9")

		// Then
		require.ErrorIs(t, err, apperror.ErrAlreadyExists)
		assert.Equal(t, 1, coordinator.RoomCount())
	})

	t.Run("Invalid code is not found", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)

		_, err := coordinator.CreateRoom("no way!", "Alice", "c1")

		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Equal(t, 0, coordinator.RoomCount())
	})

	t.Run("Connection already in a room is rejected", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
		require.NoError(t, err)

		_, err = coordinator.CreateRoom("XYZ789", "Alice", "c1")

		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)
		assert.Equal(t, 1, coordinator.RoomCount())
	})

	t.Run("Empty name gets a default", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)

		event, err := coordinator.CreateRoom("ABC123", "  ", "c1")

		require.NoError(t, err)
		assert.Equal(t, "Player X", event.Snapshot.Players.X.Name)
	})
}

func TestCoordinator_JoinRoom(t *testing.T) {
	t.Run("Create then join starts the game", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
		require.NoError(t, err)

		// When: Bob joins
		event, err := coordinator.JoinRoom("ABC123", "Bob", "c2")

		// Then: both players get their markers and X is to move
		require.NoError(t, err)
		snapshot := event.Snapshot
		assert.Equal(t, entity.StatusActive, snapshot.GameStatus)
		assert.Equal(t, "Alice", snapshot.Players.X.Name)
		assert.Equal(t, "Bob", snapshot.Players.O.Name)
		assert.Equal(t, entity.PlayerX, snapshot.CurrentPlayer)
		assert.ElementsMatch(t, []string{"c1", "c2"}, event.Recipients)
		assert.ElementsMatch(t, []Assignment{
			{ConnID: "c1", Marker: entity.PlayerX},
			{ConnID: "c2", Marker: entity.PlayerO},
		}, event.Assignments)
	})

	t.Run("Missing room", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)

		_, err := coordinator.JoinRoom("NOPE", "Bob", "c2")

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Third player is rejected", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)

		_, err := coordinator.JoinRoom("ABC123", "Carol", "c3")

		require.ErrorIs(t, err, apperror.ErrFull)
	})

	t.Run("Creator cannot join again", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
		require.NoError(t, err)

		_, err = coordinator.JoinRoom("ABC123", "Alice", "c1")

		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)
	})

	t.Run("Room left by the opponent is already started", func(t *testing.T) {
		coordinator, _, store := newTestCoordinator(t)
		startGame(t, coordinator)

		// Given: a room whose second slot is gone but which is past waiting
		room, ok := store.Get("ABC123")
		require.True(t, ok)
		room.Lock()
		room.Second = nil
		room.Unlock()

		// When
		_, err := coordinator.JoinRoom("ABC123", "Carol", "c3")

		// Then
		require.ErrorIs(t, err, apperror.ErrAlreadyStarted)
	})
}

func TestCoordinator_ApplyMove(t *testing.T) {
	t.Run("Top row wins for X", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)

		// When: X plays 0,1,2 and O plays 3,4
		event := play(t, coordinator, 0, 3, 1, 4, 2)

		// Then
		snapshot := event.Snapshot
		assert.Equal(t, entity.StatusFinished, snapshot.GameStatus)
		assert.Equal(t, entity.PlayerX, snapshot.Winner)
		assert.Equal(t, []int{0, 1, 2}, snapshot.WinningLine)
		assert.ElementsMatch(t, []string{"c1", "c2"}, event.Recipients)
	})

	t.Run("Full board without a line is a draw", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)

		// When: X O X / X O O / O X X
		event := play(t, coordinator, 0, 1, 2, 4, 3, 5, 7, 6, 8)

		// Then
		snapshot := event.Snapshot
		assert.Equal(t, entity.StatusFinished, snapshot.GameStatus)
		assert.Empty(t, snapshot.Winner)
		assert.Nil(t, snapshot.WinningLine)
		assert.True(t, snapshot.IsDraw())
	})

	t.Run("Turn alternates from X", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)

		cells := []int{4, 0, 8, 2, 1}
		for k, cell := range cells {
			state, err := coordinator.QueryState("ABC123")
			require.NoError(t, err)

			expected := entity.PlayerX
			if k%2 == 1 {
				expected = entity.PlayerO
			}
			require.Equal(t, expected, state.CurrentPlayer, "before move %d", k)

			connID := map[string]string{entity.PlayerX: "c1", entity.PlayerO: "c2"}[expected]
			_, err = coordinator.ApplyMove(connID, cell)
			require.NoError(t, err)
		}
	})

	t.Run("Errors never mutate the room", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)
		play(t, coordinator, 4)

		before, err := coordinator.QueryState("ABC123")
		require.NoError(t, err)

		tests := []struct {
			name   string
			connID string
			cell   int
			want   error
		}{
			{"wrong turn", "c1", 0, apperror.ErrWrongTurn},
			{"occupied cell", "c2", 4, apperror.ErrIllegalMove},
			{"negative cell", "c2", -1, apperror.ErrIllegalMove},
			{"cell out of range", "c2", 9, apperror.ErrIllegalMove},
			{"not in a room", "c9", 0, apperror.ErrNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := coordinator.ApplyMove(tt.connID, tt.cell)
				require.ErrorIs(t, err, tt.want)

				after, err := coordinator.QueryState("ABC123")
				require.NoError(t, err)
				assert.Equal(t, before, after)
			})
		}
	})

	t.Run("Waiting room is not active", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
		require.NoError(t, err)

		_, err = coordinator.ApplyMove("c1", 0)

		require.ErrorIs(t, err, apperror.ErrNotActive)
	})

	t.Run("Finished room is not active", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)
		play(t, coordinator, 0, 3, 1, 4, 2)

		_, err := coordinator.ApplyMove("c2", 5)

		require.ErrorIs(t, err, apperror.ErrNotActive)
	})

	t.Run("Member without a slot is not a player", func(t *testing.T) {
		coordinator, _, store := newTestCoordinator(t)
		startGame(t, coordinator)

		// Given: a connection mapped to the room without holding a slot
		store.Bind("c3", "ABC123")

		_, err := coordinator.ApplyMove("c3", 0)

		require.ErrorIs(t, err, apperror.ErrNotAPlayer)
	})

	t.Run("Concurrent moves in one turn accept exactly one", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)

		for cell := range 9 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				if _, err := coordinator.ApplyMove("c1", cell); err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		state, err := coordinator.QueryState("ABC123")
		require.NoError(t, err)
		assert.Equal(t, 1, accepted)
		assert.Equal(t, 1, state.Board.Filled())
		assert.Equal(t, entity.PlayerO, state.CurrentPlayer)
	})
}

func TestCoordinator_ResetRoom(t *testing.T) {
	t.Run("Finished room restarts once", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)
		play(t, coordinator, 0, 3, 1, 4, 2)

		// When: O asks for a new round
		event, err := coordinator.ResetRoom("c2")

		// Then: a clean board with X to move
		require.NoError(t, err)
		snapshot := event.Snapshot
		assert.Equal(t, entity.StatusActive, snapshot.GameStatus)
		assert.Equal(t, entity.Board{}, snapshot.Board)
		assert.Equal(t, entity.PlayerX, snapshot.CurrentPlayer)
		assert.Empty(t, snapshot.Winner)
		assert.Nil(t, snapshot.WinningLine)

		// And: resetting again fails
		_, err = coordinator.ResetRoom("c1")
		require.ErrorIs(t, err, apperror.ErrNotFinished)
	})

	t.Run("Waiting room cannot be reset", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
		require.NoError(t, err)

		_, err = coordinator.ResetRoom("c1")

		require.ErrorIs(t, err, apperror.ErrNotFinished)
	})

	t.Run("Unknown connection", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)

		_, err := coordinator.ResetRoom("c1")

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestCoordinator_QueryState(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	startGame(t, coordinator)

	t.Run("Any connection may observe a room", func(t *testing.T) {
		state, err := coordinator.QueryState("abc123")

		require.NoError(t, err)
		assert.Equal(t, "ABC123", state.RoomCode)
		assert.Equal(t, entity.StatusActive, state.GameStatus)
	})

	t.Run("Missing room", func(t *testing.T) {
		_, err := coordinator.QueryState("XYZ")

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Invalid code", func(t *testing.T) {
		_, err := coordinator.QueryState("")

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestCoordinator_Disconnect(t *testing.T) {
	t.Run("One player leaves", func(t *testing.T) {
		coordinator, _, store := newTestCoordinator(t)
		startGame(t, coordinator)

		// When: Bob drops
		event, ok := coordinator.Disconnect("c2")

		// Then: Alice is told and the room stays
		require.True(t, ok)
		assert.False(t, event.Removed)
		assert.Equal(t, []string{"c1"}, event.Recipients)
		assert.False(t, event.Snapshot.Players.O.Connected)
		assert.True(t, event.Snapshot.Players.X.Connected)
		assert.Equal(t, 1, coordinator.RoomCount())

		_, bound := store.Lookup("c2")
		assert.False(t, bound)
	})

	t.Run("Both players leave and the room goes", func(t *testing.T) {
		coordinator, _, store := newTestCoordinator(t)
		startGame(t, coordinator)

		_, ok := coordinator.Disconnect("c1")
		require.True(t, ok)
		event, ok := coordinator.Disconnect("c2")
		require.True(t, ok)

		assert.True(t, event.Removed)
		assert.Equal(t, entity.ReasonAbandoned, event.Reason)
		assert.Empty(t, event.Recipients)
		assert.Equal(t, 0, coordinator.RoomCount())

		_, err := coordinator.QueryState("ABC123")
		require.ErrorIs(t, err, apperror.ErrNotFound)

		_, bound := store.Lookup("c1")
		assert.False(t, bound)
	})

	t.Run("Creator alone leaves a waiting room", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		_, err := coordinator.CreateRoom("ABC123", "Alice", "c1")
		require.NoError(t, err)

		event, ok := coordinator.Disconnect("c1")

		require.True(t, ok)
		assert.True(t, event.Removed)
		assert.Equal(t, 0, coordinator.RoomCount())

		// And: the code can be reused
		_, err = coordinator.CreateRoom("ABC123", "Alice", "c5")
		require.NoError(t, err)
	})

	t.Run("Expired room goes on the first disconnect", func(t *testing.T) {
		coordinator, clock, store := newTestCoordinator(t)
		startGame(t, coordinator)
		clock.Advance(expiry + time.Minute)

		event, ok := coordinator.Disconnect("c2")

		require.True(t, ok)
		assert.True(t, event.Removed)
		assert.Equal(t, entity.ReasonExpired, event.Reason)
		assert.Equal(t, []string{"c1"}, event.Recipients)

		_, bound := store.Lookup("c1")
		assert.False(t, bound)
	})

	t.Run("Repeated disconnect is a no-op", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)
		startGame(t, coordinator)
		coordinator.Disconnect("c1")
		coordinator.Disconnect("c2")

		event, ok := coordinator.Disconnect("c2")

		assert.False(t, ok)
		assert.Nil(t, event)
	})

	t.Run("Unknown connection is a no-op", func(t *testing.T) {
		coordinator, _, _ := newTestCoordinator(t)

		_, ok := coordinator.Disconnect("nobody")

		assert.False(t, ok)
	})
}

func TestCoordinator_EvictExpired(t *testing.T) {
	coordinator, clock, store := newTestCoordinator(t)

	// Given: an old room and a fresh one
	startGame(t, coordinator)
	clock.Advance(expiry - time.Hour)
	_, err := coordinator.CreateRoom("FRESH", "Carol", "c3")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	// When: sweeping
	events := coordinator.EvictExpired()

	// Then: only the old one is removed, addressed to its players
	require.Len(t, events, 1)
	assert.Equal(t, "ABC123", events[0].Code)
	assert.Equal(t, entity.ReasonExpired, events[0].Reason)
	assert.True(t, events[0].Removed)
	assert.ElementsMatch(t, []string{"c1", "c2"}, events[0].Recipients)
	assert.Equal(t, 1, coordinator.RoomCount())

	_, bound := store.Lookup("c1")
	assert.False(t, bound)
	_, bound = store.Lookup("c3")
	assert.True(t, bound)

	// And: operations on the evicted room fail
	_, err = coordinator.ApplyMove("c1", 0)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	// And: a second sweep finds nothing
	assert.Empty(t, coordinator.EvictExpired())
}
