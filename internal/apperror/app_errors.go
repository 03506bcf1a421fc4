package apperror

import "errors"

var (
	ErrAlreadyExists  = errors.New("room already exists")
	ErrNotFound       = errors.New("room not found")
	ErrFull           = errors.New("room is full")
	ErrAlreadyStarted = errors.New("game already in progress")
	ErrNotActive      = errors.New("game is not in progress")
	ErrNotAPlayer     = errors.New("connection is not a player in this room")
	ErrWrongTurn      = errors.New("it's not your turn")
	ErrIllegalMove    = errors.New("illegal move")
	ErrNotFinished    = errors.New("game is not finished")
	ErrAlreadyInRoom  = errors.New("connection is already in a room")
)

const KindInternal = "internal"

var kinds = []struct {
	err  error
	kind string
}{
	{ErrAlreadyExists, "already_exists"},
	{ErrNotFound, "not_found"},
	{ErrFull, "full"},
	{ErrAlreadyStarted, "already_started"},
	{ErrNotActive, "not_active"},
	{ErrNotAPlayer, "not_a_player"},
	{ErrWrongTurn, "wrong_turn"},
	{ErrIllegalMove, "illegal_move"},
	{ErrNotFinished, "not_finished"},
	{ErrAlreadyInRoom, "already_in_room"},
}

// Kind - returns the stable client-facing kind of err, or KindInternal when err
// does not wrap any of the known sentinels.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindInternal
}
