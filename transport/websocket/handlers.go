package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const recordTimeout = 3 * time.Second

// dispatch - decodes one frame and runs its handler. Handler errors are only ever
// sent back to the connection that caused them.
func (that *Server) dispatch(ctx context.Context, c *client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		that.replyError(c, fmt.Errorf("%w: malformed message", apperror.ErrIllegalMove))
		return
	}

	handle, ok := that.handlers[msg.Action]
	if !ok {
		that.replyError(c, fmt.Errorf("%w: unknown action %q", apperror.ErrIllegalMove, msg.Action))
		return
	}

	if err := handle(ctx, c, &msg); err != nil {
		that.replyError(c, err)
	}
}

func (that *Server) replyError(c *client, err error) {
	kind := apperror.Kind(err)
	message := err.Error()

	if kind == apperror.KindInternal {
		that.logger.Error("failed to handle message", "connID", c.id, "error", err)
		message = "internal error"
	} else {
		that.logger.Debug("request rejected", "connID", c.id, "kind", kind, "error", err)
	}

	that.metrics.Error(kind)
	that.unicast(c.id, actionGameError, ErrorPayload{Kind: kind, Message: message})
}

func (that *Server) handleCreateGame(_ context.Context, c *client, msg *Message) error {
	var req RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	event, err := that.rooms.CreateRoom(req.RoomCode, req.PlayerName, c.id)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	that.unicast(c.id, actionGameCreated, GamePayload{
		Game:         event.Snapshot,
		PlayerSymbol: entity.PlayerX,
	})

	return nil
}

func (that *Server) handleJoinGame(_ context.Context, c *client, msg *Message) error {
	var req RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	event, err := that.rooms.JoinRoom(req.RoomCode, req.PlayerName, c.id)
	if err != nil {
		return fmt.Errorf("failed to join game: %w", err)
	}

	that.broadcast(event.Recipients, actionGameJoined, GamePayload{Game: event.Snapshot})
	for _, assignment := range event.Assignments {
		that.unicast(assignment.ConnID, actionPlayerAssigned, AssignedPayload{PlayerSymbol: assignment.Marker})
	}

	return nil
}

func (that *Server) handleMakeMove(ctx context.Context, c *client, msg *Message) error {
	var req MoveRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	if req.Position == nil {
		return fmt.Errorf("%w: position is required", apperror.ErrIllegalMove)
	}

	event, err := that.rooms.ApplyMove(c.id, *req.Position)
	if err != nil {
		return fmt.Errorf("failed to make move: %w", err)
	}

	that.metrics.Moves.Inc()
	that.broadcast(event.Recipients, actionGameUpdated, GamePayload{Game: event.Snapshot})

	if event.Snapshot.IsFinished() {
		that.finishGame(ctx, event.Snapshot)
	}

	return nil
}

func (that *Server) handleResetGame(_ context.Context, c *client, _ *Message) error {
	event, err := that.rooms.ResetRoom(c.id)
	if err != nil {
		return fmt.Errorf("failed to reset game: %w", err)
	}

	that.broadcast(event.Recipients, actionGameReset, GamePayload{Game: event.Snapshot})

	return nil
}

func (that *Server) handleGetGameState(_ context.Context, c *client, msg *Message) error {
	var req RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	snapshot, err := that.rooms.QueryState(req.RoomCode)
	if err != nil {
		return fmt.Errorf("failed to get game state: %w", err)
	}

	that.unicast(c.id, actionGameState, GamePayload{Game: snapshot})

	return nil
}

// finishGame - counts a finished round and stores it in the background, so a slow
// store never holds up the mover's next frame. Storage failures never reach the players.
func (that *Server) finishGame(ctx context.Context, snapshot entity.Snapshot) {
	that.metrics.GameFinished(snapshot.Winner)

	if that.results == nil {
		return
	}

	result := entity.NewResult(snapshot, time.Now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)

	that.recording.Add(1)
	go func() {
		defer that.recording.Done()
		defer cancel()

		if err := that.results.Record(ctx, result); err != nil {
			that.logger.Error("failed to record result", "roomCode", result.RoomCode, "error", err)
		}
	}()
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: malformed %s payload", apperror.ErrIllegalMove, msg.Action)
	}

	return nil
}
