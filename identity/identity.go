// Package identity keeps a stable synthetic id on every piece across
// successive boards so a renderer can move an element instead of replacing it.
package identity

import (
	"fmt"
	"log/slog"

	"github.com/walterschell/chessboard/board"
)

var log = slog.Default().With("package", "identity")

// ID is a synthetic piece id. Zero is never minted.
type ID uint64

// Map assigns an id to every occupied square.
type Map map[board.Square]ID

func (m Map) Clone() Map {
	out := make(Map, len(m))
	for sq, id := range m {
		out[sq] = id
	}
	return out
}

// Find returns the square holding id.
func (m Map) Find(id ID) (board.Square, bool) {
	for sq, got := range m {
		if got == id {
			return sq, true
		}
	}
	return board.Square{}, false
}

// AmbiguousReconciliationError reports that no single implied move could be
// inferred between two boards. The map returned with it is still valid; the
// changed squares simply received fresh ids.
type AmbiguousReconciliationError struct {
	Origins      []board.Square
	Destinations []board.Square
}

func (e *AmbiguousReconciliationError) Error() string {
	return fmt.Sprintf("ambiguous reconciliation: %d origins, %d destinations", len(e.Origins), len(e.Destinations))
}

// Tracker mints ids. Ids are never reused, including those of captured pieces.
type Tracker struct {
	last ID
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) mint() ID {
	t.last++
	return t.last
}

// Seed assigns fresh ids to every occupied square of b.
func (t *Tracker) Seed(b board.Board) Map {
	m := make(Map)
	for _, sq := range b.Occupied() {
		m[sq] = t.mint()
	}
	return m
}

// Reconcile computes the id map for next given the map for prev.
//
// With an explicit move the id on mv.From follows the piece to mv.To, even
// when it promoted. Without one, a single vacated square and a single newly
// filled or replaced square are read as an implied move; anything else is
// reported as an *AmbiguousReconciliationError and the changed squares get
// fresh ids. The returned map is always complete for next.
func (t *Tracker) Reconcile(prev Map, prevBoard, next board.Board, mv *board.Move) (Map, error) {
	if mv != nil {
		if id, ok := prev[mv.From]; ok && !next.At(mv.To).IsZero() {
			return t.carry(prev, prevBoard, next, &placement{id: id, to: mv.To}), nil
		}
		log.Debug("explicit move not reflected on board, inferring", "move", mv.String())
	}

	var origins, destinations []board.Square
	for _, sq := range board.AllSquares() {
		before, after := prevBoard.At(sq), next.At(sq)
		switch {
		case before == after:
		case after.IsZero():
			origins = append(origins, sq)
		default:
			destinations = append(destinations, sq)
		}
	}
	if len(origins) == 1 && len(destinations) == 1 {
		if id, ok := prev[origins[0]]; ok {
			return t.carry(prev, prevBoard, next, &placement{id: id, to: destinations[0]}), nil
		}
	}

	m := t.carry(prev, prevBoard, next, nil)
	if len(origins) == 0 && len(destinations) == 0 {
		return m, nil
	}
	return m, &AmbiguousReconciliationError{Origins: origins, Destinations: destinations}
}

type placement struct {
	id ID
	to board.Square
}

// carry keeps the id of every square whose occupant did not change and mints
// ids for the rest. A moved id is placed first and never carried elsewhere.
func (t *Tracker) carry(prev Map, prevBoard, next board.Board, moved *placement) Map {
	m := make(Map)
	var skip ID
	if moved != nil {
		m[moved.to] = moved.id
		skip = moved.id
	}
	for _, sq := range next.Occupied() {
		if _, done := m[sq]; done {
			continue
		}
		if id, ok := prev[sq]; ok && id != skip && prevBoard.At(sq) == next.At(sq) {
			m[sq] = id
			continue
		}
		m[sq] = t.mint()
	}
	return m
}
