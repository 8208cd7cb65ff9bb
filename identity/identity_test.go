package identity

import (
	"errors"
	"maps"
	"testing"

	"github.com/walterschell/chessboard/board"
)

func mustBoard(t *testing.T, fen string) board.Board {
	t.Helper()
	b, err := board.Materialize(fen)
	if err != nil {
		t.Fatalf("materialize %q: %v", fen, err)
	}
	return b
}

func move(from, to string) *board.Move {
	return &board.Move{From: board.MustParseSquare(from), To: board.MustParseSquare(to)}
}

func at(s string) board.Square {
	return board.MustParseSquare(s)
}

func checkBijective(t *testing.T, m Map, b board.Board) {
	t.Helper()
	occupied := b.Occupied()
	if len(m) != len(occupied) {
		t.Errorf("map has %d entries for %d occupied squares", len(m), len(occupied))
	}
	seen := make(map[ID]board.Square)
	for _, sq := range occupied {
		id, ok := m[sq]
		if !ok {
			t.Errorf("occupied square %s has no id", sq)
			continue
		}
		if other, dup := seen[id]; dup {
			t.Errorf("id %d on both %s and %s", id, other, sq)
		}
		seen[id] = sq
	}
}

func containsID(m Map, id ID) bool {
	_, ok := m.Find(id)
	return ok
}

func TestSeed(t *testing.T) {
	tr := NewTracker()
	b := board.Start()
	m := tr.Seed(b)
	checkBijective(t, m, b)
	if len(m) != 32 {
		t.Errorf("expected 32 ids, got %d", len(m))
	}
}

func TestReconcileExplicitMove(t *testing.T) {
	tr := NewTracker()
	prevBoard := board.Start()
	prev := tr.Seed(prevBoard)
	next := mustBoard(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")

	m, err := tr.Reconcile(prev, prevBoard, next, move("e2", "e4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkBijective(t, m, next)
	if m[at("e4")] != prev[at("e2")] {
		t.Errorf("expected e4 to carry the id from e2")
	}
	for sq, id := range prev {
		if sq == at("e2") {
			continue
		}
		if m[sq] != id {
			t.Errorf("square %s changed id from %d to %d", sq, id, m[sq])
		}
	}
}

func TestReconcileCapture(t *testing.T) {
	tr := NewTracker()
	prevBoard := mustBoard(t, "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1")
	prev := tr.Seed(prevBoard)
	next := mustBoard(t, "4k3/8/8/3P4/8/8/8/4K3 b - - 0 1")
	captured := prev[at("d5")]

	for name, mv := range map[string]*board.Move{"explicit": move("e4", "d5"), "inferred": nil} {
		t.Run(name, func(t *testing.T) {
			m, err := tr.Reconcile(prev, prevBoard, next, mv)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			checkBijective(t, m, next)
			if m[at("d5")] != prev[at("e4")] {
				t.Errorf("expected the capturing pawn to keep its id")
			}
			if containsID(m, captured) {
				t.Errorf("captured id %d is still on the board", captured)
			}
		})
	}
}

func TestReconcilePromotionKeepsID(t *testing.T) {
	tr := NewTracker()
	prevBoard := mustBoard(t, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	prev := tr.Seed(prevBoard)
	next := mustBoard(t, "Q3k3/8/8/8/8/8/8/4K3 b - - 0 1")

	m, err := tr.Reconcile(prev, prevBoard, next, move("a7", "a8"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m[at("a8")] != prev[at("a7")] {
		t.Errorf("expected promoted piece to keep the pawn's id")
	}
}

func TestReconcileCastling(t *testing.T) {
	prevFEN := "4k3/8/8/8/8/8/8/4K2R w K - 0 1"
	nextFEN := "4k3/8/8/8/8/8/8/5RK1 b - - 1 1"

	t.Run("inferred is ambiguous", func(t *testing.T) {
		tr := NewTracker()
		prevBoard := mustBoard(t, prevFEN)
		prev := tr.Seed(prevBoard)
		next := mustBoard(t, nextFEN)

		m, err := tr.Reconcile(prev, prevBoard, next, nil)
		var amb *AmbiguousReconciliationError
		if !errors.As(err, &amb) {
			t.Fatalf("expected *AmbiguousReconciliationError, got %v", err)
		}
		if len(amb.Origins) != 2 || len(amb.Destinations) != 2 {
			t.Errorf("expected 2 origins and 2 destinations, got %+v", amb)
		}
		checkBijective(t, m, next)
		for _, sq := range []string{"f1", "g1"} {
			if containsID(prev, m[at(sq)]) {
				t.Errorf("expected a fresh id on %s", sq)
			}
		}
		if m[at("e8")] != prev[at("e8")] {
			t.Errorf("expected untouched king to keep its id")
		}
	})

	t.Run("explicit moves the king", func(t *testing.T) {
		tr := NewTracker()
		prevBoard := mustBoard(t, prevFEN)
		prev := tr.Seed(prevBoard)
		next := mustBoard(t, nextFEN)

		m, err := tr.Reconcile(prev, prevBoard, next, move("e1", "g1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkBijective(t, m, next)
		if m[at("g1")] != prev[at("e1")] {
			t.Errorf("expected king id to follow the king")
		}
		if containsID(m, prev[at("h1")]) {
			t.Errorf("expected the rook's old id to be retired")
		}
	})
}

func TestReconcileNoChangeIsStable(t *testing.T) {
	tr := NewTracker()
	b := board.Start()
	prev := tr.Seed(b)
	m, err := tr.Reconcile(prev, b, b, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !maps.Equal(m, prev) {
		t.Errorf("expected identical map for an unchanged board")
	}
}

func TestReconcileUnreflectedMoveFallsBack(t *testing.T) {
	tr := NewTracker()
	prevBoard := board.Start()
	prev := tr.Seed(prevBoard)
	next := mustBoard(t, "rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1")

	// The explicit move names an empty destination, so the diff decides.
	m, err := tr.Reconcile(prev, prevBoard, next, move("e2", "e4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m[at("f3")] != prev[at("g1")] {
		t.Errorf("expected the knight id to be inferred from the diff")
	}
}

func TestIDsNeverReused(t *testing.T) {
	tr := NewTracker()
	b := board.Start()
	first := tr.Seed(b)
	var highest ID
	for _, id := range first {
		highest = max(highest, id)
	}
	second := tr.Seed(b)
	for sq, id := range second {
		if id <= highest {
			t.Errorf("square %s reused id %d", sq, id)
		}
	}
}
