// Package opponent supplies the non-human side of a game. While the engine
// thinks the store is gated read-only so the human cannot move.
package opponent

import (
	"context"
	"errors"
	"fmt"

	"github.com/walterschell/chessboard/board"
	"github.com/walterschell/chessboard/gamestate"
)

// ErrNoMove is returned when the engine has no move to offer.
var ErrNoMove = errors.New("engine has no move")

// Mover picks a move for a position.
type Mover interface {
	BestMove(ctx context.Context, fen string, limits Limits) (string, error)
}

type Player struct {
	mover  Mover
	color  board.Color
	limits Limits
}

func NewPlayer(mover Mover, color board.Color, limits Limits) *Player {
	return &Player{mover: mover, color: color, limits: limits}
}

func (p *Player) Color() board.Color {
	return p.color
}

// Reply plays one move for the player's color if it is that side's turn and
// the game is not over. It returns the SAN played, or "" when it did nothing.
// The store is held while the engine thinks; a position changed in the
// meantime fails with gamestate.ErrStalePosition.
func (p *Player) Reply(ctx context.Context, store *gamestate.Store) (string, error) {
	st := store.State()
	if st.Turn != p.color || st.Checkmate || st.Draw || st.ReadOnly {
		return "", nil
	}

	release := store.Hold()
	defer release()
	uci, err := p.mover.BestMove(ctx, st.Position, p.limits)
	if err != nil {
		return "", fmt.Errorf("best move for %s: %w", p.color, err)
	}

	mv, err := board.ParseMove(uci)
	if err != nil {
		return "", err
	}
	san, err := store.MakeMoveAt(st.Version, mv)
	if err != nil {
		return "", fmt.Errorf("engine move %s: %w", uci, err)
	}
	log.Info("opponent moved", "color", p.color.String(), "move", uci, "san", san)
	return san, nil
}
