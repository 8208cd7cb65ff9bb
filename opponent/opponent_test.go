package opponent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/walterschell/chessboard/board"
	"github.com/walterschell/chessboard/gamestate"
)

type fakeMover struct {
	move     string
	err      error
	store    *gamestate.Store
	readOnly bool
	calls    int
	fen      string
	during   func()
}

func (m *fakeMover) BestMove(ctx context.Context, fen string, limits Limits) (string, error) {
	m.calls++
	m.fen = fen
	if m.store != nil {
		m.readOnly = m.store.State().ReadOnly
	}
	if m.during != nil {
		m.during()
	}
	return m.move, m.err
}

func TestParseBestMove(t *testing.T) {
	got, err := parseBestMove("bestmove e2e4 ponder e7e5")
	if err != nil || got != "e2e4" {
		t.Errorf("expected e2e4, got %q (%v)", got, err)
	}
	if _, err := parseBestMove("bestmove (none)"); !errors.Is(err, ErrNoMove) {
		t.Errorf("expected ErrNoMove, got %v", err)
	}
	if _, err := parseBestMove("info depth 1"); err == nil {
		t.Error("expected error for non bestmove line")
	}
}

func TestGoCommand(t *testing.T) {
	if got := (Limits{Depth: 5, MoveTime: time.Second}).goCommand(); got != "go depth 5" {
		t.Errorf("unexpected %q", got)
	}
	if got := (Limits{MoveTime: 1500 * time.Millisecond}).goCommand(); got != "go movetime 1500" {
		t.Errorf("unexpected %q", got)
	}
	if got := (Limits{}).goCommand(); got != "go depth 10" {
		t.Errorf("unexpected %q", got)
	}
}

func TestReply(t *testing.T) {
	store := gamestate.New()
	if _, err := store.MakeMove(board.Move{From: board.MustParseSquare("e2"), To: board.MustParseSquare("e4")}); err != nil {
		t.Fatalf("move: %v", err)
	}
	mover := &fakeMover{move: "e7e5", store: store}
	p := NewPlayer(mover, board.Black, Limits{Depth: 1})

	san, err := p.Reply(context.Background(), store)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if san != "e5" {
		t.Errorf("expected e5, got %s", san)
	}
	if !mover.readOnly {
		t.Error("expected the store to be read-only while the engine thinks")
	}
	st := store.State()
	if st.ReadOnly {
		t.Error("expected the gate to be released")
	}
	if st.Turn != board.White || len(st.SANHistory) != 2 {
		t.Errorf("unexpected state after reply %+v", st)
	}
	if mover.fen != st.PositionHistory[1] {
		t.Errorf("engine was asked about %s", mover.fen)
	}
}

func TestReplyNotOurTurn(t *testing.T) {
	store := gamestate.New()
	mover := &fakeMover{move: "e7e5"}
	p := NewPlayer(mover, board.Black, Limits{})
	san, err := p.Reply(context.Background(), store)
	if err != nil || san != "" {
		t.Errorf("expected no-op, got %q (%v)", san, err)
	}
	if mover.calls != 0 {
		t.Error("engine should not be consulted off turn")
	}
}

func TestReplyErrors(t *testing.T) {
	t.Run("engine failure", func(t *testing.T) {
		store := gamestate.New()
		p := NewPlayer(&fakeMover{err: ErrNoMove}, board.White, Limits{})
		if _, err := p.Reply(context.Background(), store); !errors.Is(err, ErrNoMove) {
			t.Errorf("expected ErrNoMove, got %v", err)
		}
		if store.State().ReadOnly {
			t.Error("gate left closed after failure")
		}
	})
	t.Run("gated while thinking", func(t *testing.T) {
		store := gamestate.New()
		mover := &fakeMover{move: "e2e4"}
		mover.during = func() { store.SetReadOnly(true) }
		p := NewPlayer(mover, board.White, Limits{})
		if _, err := p.Reply(context.Background(), store); !errors.Is(err, gamestate.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
		st := store.State()
		if !st.ReadOnly || len(st.SANHistory) != 0 {
			t.Errorf("expected the caller's gate to survive and no move, got %+v", st)
		}
	})
	t.Run("illegal engine move", func(t *testing.T) {
		store := gamestate.New()
		p := NewPlayer(&fakeMover{move: "e2e5"}, board.White, Limits{})
		_, err := p.Reply(context.Background(), store)
		var illegal *gamestate.IllegalMoveError
		if !errors.As(err, &illegal) {
			t.Errorf("expected illegal move error, got %v", err)
		}
	})
}
