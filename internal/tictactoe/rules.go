package tictactoe

import "github.com/rocketscienceinc/tictactoe-rooms/internal/entity"

// WinCombos - the 8 winning triples, scanned rows → columns → diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Outcome struct {
	Finished bool
	Winner   string
	Line     []int
}

func (that Outcome) IsDraw() bool {
	return that.Finished && that.Winner == ""
}

// IsLegalMove - true iff cell is on the board and still empty.
func IsLegalMove(board entity.Board, cell int) bool {
	return cell >= 0 && cell < len(board) && board[cell] == entity.EmptyCell
}

// Evaluate - reports the first uniform triple in WinCombos order, a draw when the
// board is full without one, or an unfinished outcome otherwise.
func Evaluate(board entity.Board) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return Outcome{
				Finished: true,
				Winner:   a,
				Line:     []int{combo[0], combo[1], combo[2]},
			}
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return Outcome{}
	}

	return Outcome{Finished: true}
}
