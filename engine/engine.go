// Package engine adapts the corentings/chess rules engine to the board model.
// An Adapter owns exactly one engine game and is not safe for concurrent use;
// callers serialize access to it.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	chess "github.com/corentings/chess/v2"

	"github.com/walterschell/chessboard/board"
)

var log = slog.Default().With("package", "engine")

// IllegalMoveError is returned when the rules engine rejects a move.
type IllegalMoveError struct {
	Move board.Move
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s", e.Move)
}

// Result describes a move the engine accepted.
type Result struct {
	SAN      string
	Position string
}

// Adapter wraps a single engine game. The game is always rebuilt from root by
// replaying line, so repetition counting sees exactly the played positions.
type Adapter struct {
	game *chess.Game
	root string
	line []string
}

// New returns an adapter holding the starting position.
func New() *Adapter {
	return &Adapter{game: chess.NewGame(), root: board.StartFEN}
}

// Encode returns the FEN of the current position.
func (a *Adapter) Encode() string {
	return a.game.FEN()
}

// Board returns the occupancy matrix of the current position.
func (a *Adapter) Board() board.Board {
	return board.FromChess(a.game.Position().Board())
}

// Line returns the SAN moves played since the current root position.
func (a *Adapter) Line() []string {
	return slices.Clone(a.line)
}

// Decode replaces the engine state with the given FEN. On error the current
// state is left untouched.
func (a *Adapter) Decode(fen string) (string, error) {
	game, err := newGame(fen)
	if err != nil {
		return "", &board.ParseError{Input: fen, Err: err}
	}
	a.game, a.root, a.line = game, game.FEN(), nil
	return a.game.FEN(), nil
}

// Reset restores the starting position.
func (a *Adapter) Reset() {
	a.game, a.root, a.line = chess.NewGame(), board.StartFEN, nil
}

// AttemptMove applies m if it is legal. A pawn reaching the last rank without
// a promotion piece promotes to a queen. The engine is only mutated on success.
func (a *Adapter) AttemptMove(m board.Move) (Result, error) {
	pos := a.game.Position()
	mv, ok := findMove(pos, m)
	if !ok {
		return Result{}, &IllegalMoveError{Move: m}
	}
	san := chess.AlgebraicNotation{}.Encode(pos, mv)
	if err := a.game.PushMove(san, &chess.PushMoveOptions{ForceMainline: true}); err != nil {
		return Result{}, fmt.Errorf("push %s: %w", san, err)
	}
	a.line = append(a.line, san)
	log.Debug("move applied", "move", m.String(), "san", san)
	return Result{SAN: san, Position: a.game.FEN()}, nil
}

// Rewind takes back the last move of the current line. It reports false when
// there is nothing to take back.
func (a *Adapter) Rewind() (bool, error) {
	if len(a.line) == 0 {
		return false, nil
	}
	game, err := replay(a.root, a.line[:len(a.line)-1])
	if err != nil {
		return false, err
	}
	a.game = game
	a.line = a.line[:len(a.line)-1]
	return true, nil
}

// LegalDestinations lists the squares the piece on from may move to, in
// matrix order.
func (a *Adapter) LegalDestinations(from board.Square) []board.Square {
	seen := make(map[board.Square]bool)
	for _, mv := range a.game.ValidMoves() {
		if board.FromChessSquare(mv.S1()) == from {
			seen[board.FromChessSquare(mv.S2())] = true
		}
	}
	var out []board.Square
	for _, sq := range board.AllSquares() {
		if seen[sq] {
			out = append(out, sq)
		}
	}
	return out
}

// IsLegal reports whether any legal move goes from one square to the other.
func (a *Adapter) IsLegal(from, to board.Square) bool {
	for _, mv := range a.game.ValidMoves() {
		if board.FromChessSquare(mv.S1()) == from && board.FromChessSquare(mv.S2()) == to {
			return true
		}
	}
	return false
}

func findMove(pos *chess.Position, m board.Move) (*chess.Move, bool) {
	from, to := m.From.Chess(), m.To.Chess()
	var fallback *chess.Move
	moves := pos.ValidMoves()
	for i := range moves {
		mv := &moves[i]
		if mv.S1() != from || mv.S2() != to {
			continue
		}
		switch {
		case m.Promotion != board.NoPieceType && mv.Promo() == m.Promotion.Chess():
			return mv, true
		case m.Promotion == board.NoPieceType && mv.Promo() == chess.NoPieceType:
			return mv, true
		case m.Promotion == board.NoPieceType && mv.Promo() == chess.Queen:
			fallback = mv
		}
	}
	return fallback, fallback != nil
}

func newGame(fen string) (*chess.Game, error) {
	if fen == board.StartFEN {
		return chess.NewGame(), nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt), nil
}

func replay(root string, line []string) (*chess.Game, error) {
	game, err := newGame(root)
	if err != nil {
		return nil, err
	}
	for i, san := range line {
		if err := game.PushMove(san, &chess.PushMoveOptions{ForceMainline: true}); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, san, err)
		}
	}
	return game, nil
}

var errNoMoves = errors.New("no playable moves")
