// Package gamestate keeps one chess game session consistent: position, status
// flags, histories, the renderable board and piece identities all change
// together under a single lock.
package gamestate

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/walterschell/chessboard/board"
	"github.com/walterschell/chessboard/engine"
	"github.com/walterschell/chessboard/identity"
)

// State is an observable snapshot of a session. Slices and maps are copies.
type State struct {
	Position        string            `json:"position"`
	Turn            board.Color       `json:"turn"`
	LastMove        *board.Move       `json:"lastMove"`
	PositionHistory []string          `json:"positionHistory"`
	SANHistory      []string          `json:"sanHistory"`
	InCheck         bool              `json:"inCheck"`
	Checkmate       bool              `json:"checkmate"`
	Stalemate       bool              `json:"stalemate"`
	Draw            bool              `json:"draw"`
	DrawReason      engine.DrawReason `json:"drawReason,omitempty"`
	ReadOnly        bool              `json:"readOnly"`
	Board           board.Board       `json:"board"`
	Identities      identity.Map      `json:"identities"`
	// Version increases by one on every position change.
	Version uint64 `json:"version"`
}

func (s State) clone() State {
	s.PositionHistory = slices.Clone(s.PositionHistory)
	s.SANHistory = slices.Clone(s.SANHistory)
	s.Identities = s.Identities.Clone()
	if s.LastMove != nil {
		mv := *s.LastMove
		s.LastMove = &mv
	}
	return s
}

type options struct {
	logger   *slog.Logger
	startFEN string
}

type Option func(*options)

// WithLogger replaces the package logger for one store.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStartFEN opens the session on fen instead of the standard start.
// An unparsable fen is logged and ignored. Reset still restores the
// standard start.
func WithStartFEN(fen string) Option {
	return func(o *options) {
		o.startFEN = fen
	}
}

// Store owns one rules engine exclusively. All methods are safe to call from
// multiple goroutines; calls are serialized.
type Store struct {
	mu      sync.Mutex
	rules   *engine.Adapter
	tracker *identity.Tracker
	state   State
	log     *slog.Logger

	// gated is the flag set through SetReadOnly; holds counts Hold calls.
	// State.ReadOnly is set while either is active.
	gated bool
	holds int

	dirty   bool
	subs    map[int]func(State)
	nextSub int
	// pubMu keeps deliveries in commit order.
	pubMu sync.Mutex
}

// New returns a store holding the starting position.
func New(opts ...Option) *Store {
	o := options{logger: slog.Default().With("package", "gamestate")}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		rules:   engine.New(),
		tracker: identity.NewTracker(),
		log:     o.logger,
		subs:    make(map[int]func(State)),
	}
	if o.startFEN != "" {
		if _, err := s.rules.Decode(o.startFEN); err != nil {
			s.log.Warn("ignoring start position", "fen", o.startFEN, "error", err)
		}
	}
	start := s.rules.Encode()
	b := board.MaterializeOrStart(start)
	s.state = State{
		Position:        start,
		PositionHistory: []string{start},
		SANHistory:      []string{},
		Board:           b,
		Identities:      s.tracker.Seed(b),
	}
	s.applyStatus()
	return s
}

// State returns a snapshot of the session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every committed change.
// fn runs on the goroutine that made the change, after the lock is released,
// and snapshots arrive in commit order. fn may read the store but must not
// call its mutating methods.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// MakeMove plays mv. It fails with ErrReadOnly while gated and with an
// *IllegalMoveError, leaving the state unchanged, when the engine rejects it.
// It returns the SAN of the move.
func (s *Store) MakeMove(mv board.Move) (string, error) {
	var san string
	err := s.mutate(func() (err error) {
		san, err = s.play(mv)
		return err
	})
	return san, err
}

// Hold gates the store for a turn source that is computing a move, without
// touching the flag set through SetReadOnly. The move is then applied with
// MakeMoveAt. release is safe to call more than once.
func (s *Store) Hold() (release func()) {
	s.mu.Lock()
	s.holds++
	s.syncGate()
	s.unlockAndPublish()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holds--
			s.syncGate()
			s.unlockAndPublish()
		})
	}
}

// MakeMoveAt plays mv only if the position is still at version. It is meant
// for the holder of a Hold: held gates do not block it but SetReadOnly does.
// A changed position fails with ErrStalePosition.
func (s *Store) MakeMoveAt(version uint64, mv board.Move) (string, error) {
	var san string
	check := func() error {
		switch {
		case s.gated:
			return ErrReadOnly
		case s.state.Version != version:
			return ErrStalePosition
		}
		return nil
	}
	err := s.apply(check, func() (err error) {
		san, err = s.play(mv)
		return err
	})
	return san, err
}

func (s *Store) play(mv board.Move) (string, error) {
	res, err := s.rules.AttemptMove(mv)
	if err != nil {
		return "", err
	}
	s.state.PositionHistory = append(s.state.PositionHistory, res.Position)
	s.state.SANHistory = append(s.state.SANHistory, res.SAN)
	last := board.Move{From: mv.From, To: mv.To, Promotion: mv.Promotion}
	s.commit(res.Position, board.MaterializeOrStart(res.Position), &last)
	return res.SAN, nil
}

// Undo takes back the last move. It is a no-op without history. The restored
// position has no last move, so it is never animated.
func (s *Store) Undo() error {
	return s.mutate(func() error {
		n := len(s.state.PositionHistory)
		if n <= 1 {
			return nil
		}
		target := s.state.PositionHistory[n-2]
		ok, err := s.rules.Rewind()
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.rules.Decode(target); err != nil {
				return err
			}
		}
		s.state.PositionHistory = s.state.PositionHistory[:n-1]
		if k := len(s.state.SANHistory); k > 0 {
			s.state.SANHistory = s.state.SANHistory[:k-1]
		}
		s.commit(target, board.MaterializeOrStart(target), nil)
		return nil
	})
}

// Reset restores the starting position and clears both histories.
func (s *Store) Reset() error {
	return s.mutate(func() error {
		s.rules.Reset()
		start := s.rules.Encode()
		s.state.PositionHistory = []string{start}
		s.state.SANHistory = []string{}
		s.commit(start, board.MaterializeOrStart(start), nil)
		return nil
	})
}

// LoadFEN replaces the position with fen. Malformed input returns a
// *ParseError and leaves the state untouched.
func (s *Store) LoadFEN(fen string) error {
	return s.mutate(func() error {
		b, err := board.Materialize(fen)
		if err != nil {
			return err
		}
		pos, err := s.rules.Decode(fen)
		if err != nil {
			return err
		}
		s.state.PositionHistory = []string{pos}
		s.state.SANHistory = []string{}
		s.commit(pos, b, nil)
		return nil
	})
}

// LoadPGN imports a game leniently. The SAN history receives every imported
// move but the position history holds only the final position, so Undo cannot
// step back into the imported moves.
func (s *Store) LoadPGN(text string) error {
	return s.mutate(func() error {
		sans, err := s.rules.ImportNotation(text, true)
		if err != nil {
			return err
		}
		pos := s.rules.Encode()
		s.state.PositionHistory = []string{pos}
		s.state.SANHistory = sans
		s.commit(pos, board.MaterializeOrStart(pos), nil)
		return nil
	})
}

// SetReadOnly gates or releases every mutating call. Releasing does not lift
// a gate taken with Hold.
func (s *Store) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	s.gated = readOnly
	s.syncGate()
	s.unlockAndPublish()
}

func (s *Store) syncGate() {
	readOnly := s.gated || s.holds > 0
	if s.state.ReadOnly != readOnly {
		s.state.ReadOnly = readOnly
		s.dirty = true
	}
}

// LegalTargets lists the squares the piece on from may move to.
func (s *Store) LegalTargets(from board.Square) []board.Square {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.LegalDestinations(from)
}

// IsLegal reports whether moving from one square to the other is legal now.
func (s *Store) IsLegal(from, to board.Square) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.IsLegal(from, to)
}

func (s *Store) mutate(fn func() error) error {
	return s.apply(func() error {
		if s.state.ReadOnly {
			return ErrReadOnly
		}
		return nil
	}, fn)
}

func (s *Store) apply(check, fn func() error) error {
	s.mu.Lock()
	err := check()
	if err == nil {
		err = fn()
	}
	s.unlockAndPublish()
	return err
}

// unlockAndPublish releases mu and delivers any pending snapshot. pubMu is
// taken before mu is released so deliveries cannot overtake each other.
func (s *Store) unlockAndPublish() {
	snap, subs := s.flush()
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()
	publish(snap, subs)
}

// commit moves the session to pos. The caller has already updated the
// histories and the engine.
func (s *Store) commit(pos string, b board.Board, last *board.Move) {
	ids, err := s.tracker.Reconcile(s.state.Identities, s.state.Board, b, last)
	if err != nil {
		s.log.Debug("identities reassigned", "error", err)
	}
	s.state.Position = pos
	s.state.Board = b
	s.state.Identities = ids
	s.state.LastMove = last
	s.state.Version++
	s.applyStatus()
	s.dirty = true
}

func (s *Store) applyStatus() {
	st := s.rules.Status()
	s.state.Turn = st.Turn
	s.state.InCheck = st.InCheck
	s.state.Checkmate = st.Checkmate
	s.state.Stalemate = st.Stalemate
	s.state.Draw = st.Draw
	s.state.DrawReason = st.DrawReason
}

func (s *Store) flush() (State, []func(State)) {
	if !s.dirty {
		return State{}, nil
	}
	s.dirty = false
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return s.state.clone(), subs
}

func publish(snap State, subs []func(State)) {
	for _, fn := range subs {
		fn(snap)
	}
}
