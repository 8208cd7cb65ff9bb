package engine

import (
	"slices"
	"strings"

	chess "github.com/corentings/chess/v2"

	"github.com/walterschell/chessboard/board"
)

// DrawReason names the rule that draws the current position.
type DrawReason string

const (
	NoDraw           DrawReason = ""
	DrawStalemate    DrawReason = "stalemate"
	DrawThreefold    DrawReason = "threefold"
	DrawInsufficient DrawReason = "insufficient"
	DrawFiftyMove    DrawReason = "fifty-move"
)

// Status is derived from the current position only.
type Status struct {
	Turn       board.Color
	InCheck    bool
	Checkmate  bool
	Stalemate  bool
	Draw       bool
	DrawReason DrawReason
}

// Status computes the flags for the current position. When several draw
// rules hold, the reason is picked in the order stalemate, threefold
// repetition, insufficient material, fifty-move rule.
func (a *Adapter) Status() Status {
	pos := a.game.Position()
	st := Status{Turn: board.FromChessColor(pos.Turn())}
	switch pos.Status() {
	case chess.Checkmate:
		st.Checkmate = true
		st.InCheck = true
	case chess.Stalemate:
		st.Stalemate = true
	}
	if !st.Checkmate {
		st.InCheck = a.inCheck()
	}

	method := a.game.Method()
	eligible := a.game.EligibleDraws()
	switch {
	case st.Stalemate:
		st.DrawReason = DrawStalemate
	case method == chess.FivefoldRepetition || slices.Contains(eligible, chess.ThreefoldRepetition):
		st.DrawReason = DrawThreefold
	case method == chess.InsufficientMaterial:
		st.DrawReason = DrawInsufficient
	case method == chess.SeventyFiveMoveRule || slices.Contains(eligible, chess.FiftyMoveRule):
		st.DrawReason = DrawFiftyMove
	}
	st.Draw = st.DrawReason != NoDraw && !st.Checkmate
	if st.Checkmate {
		st.DrawReason = NoDraw
	}
	return st
}

// inCheck uses the check tag of the last played move. A position loaded from
// FEN has no move, so the engine is asked instead.
func (a *Adapter) inCheck() bool {
	if moves := a.game.Moves(); len(a.line) > 0 && len(moves) > 0 {
		return moves[len(moves)-1].HasTag(chess.Check)
	}
	return kingAttacked(a.game.Position())
}

// kingAttacked reports whether the side to move has its king attacked. The
// position is decoded again with the other side to move and the king is
// attacked when one of that side's legal moves lands on its square. A checking
// piece that is itself pinned is not seen.
func kingAttacked(pos *chess.Position) bool {
	turn := pos.Turn()
	var king chess.Square
	found := false
	for sq, p := range pos.Board().SquareMap() {
		if p.Type() == chess.King && p.Color() == turn {
			king, found = sq, true
			break
		}
	}
	if !found {
		return false
	}

	fields := strings.Fields(pos.String())
	if len(fields) != 6 {
		return false
	}
	fields[1] = "w"
	if turn == chess.White {
		fields[1] = "b"
	}
	fields[3] = "-"
	opt, err := chess.FEN(strings.Join(fields, " "))
	if err != nil {
		log.Debug("cannot test for check", "fen", pos.String(), "error", err)
		return false
	}
	for _, mv := range chess.NewGame(opt).ValidMoves() {
		if mv.S2() == king {
			return true
		}
	}
	return false
}
