package gamestate

import (
	"errors"

	"github.com/walterschell/chessboard/board"
	"github.com/walterschell/chessboard/engine"
)

// ErrReadOnly is returned by every mutating call while the store is gated.
var ErrReadOnly = errors.New("gamestate: store is read-only")

// ErrStalePosition is returned by MakeMoveAt when the position moved on.
var ErrStalePosition = errors.New("gamestate: position changed")

// Aliases so callers can branch on store outcomes without importing the
// adapter packages.
type (
	IllegalMoveError = engine.IllegalMoveError
	ParseError       = board.ParseError
)
