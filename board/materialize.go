package board

import (
	"fmt"
	"log/slog"

	chess "github.com/corentings/chess/v2"
)

var log = slog.Default().With("package", "board")

// ParseError reports malformed notation on a strict load path.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Materialize decodes a FEN string into a Board. Malformed input yields a
// *ParseError.
func Materialize(fen string) (Board, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return Board{}, &ParseError{Input: fen, Err: err}
	}
	return FromChess(chess.NewGame(opt).Position().Board()), nil
}

// MaterializeOrStart is the render path: malformed input is replaced by the
// starting board instead of failing.
func MaterializeOrStart(fen string) Board {
	b, err := Materialize(fen)
	if err != nil {
		log.Warn("falling back to starting board", "error", err)
		return Start()
	}
	return b
}
