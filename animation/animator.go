// Package animation plays the visual transition for the piece that just moved.
//
// Each move runs a two step machine. Snapped places the element on the origin
// square with transitions off and commits layout. One frame later it moves to
// Transitioning with a timed transition to the destination. When the surface
// reports the transition finished it is Settled and later repositions are
// instantaneous again. The commit between the steps is required: without it
// the renderer collapses both placements into a jump.
package animation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/walterschell/chessboard/board"
	"github.com/walterschell/chessboard/gamestate"
	"github.com/walterschell/chessboard/identity"
)

var log = slog.Default().With("package", "animation")

type Phase int

const (
	Idle Phase = iota
	Snapped
	Transitioning
	Settled
)

var phaseNames = []string{"idle", "snapped", "transitioning", "settled"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Surface is the rendering collaborator that owns the piece elements.
type Surface interface {
	// Measure returns the current board container rectangle.
	Measure() Rect
	// Place positions the element for id. A zero transition disables
	// animation for the placement.
	Place(id identity.ID, at Point, transition time.Duration)
	// CommitLayout forces pending placements to be applied.
	CommitLayout()
}

// FrameScheduler runs fn on the next rendering frame.
type FrameScheduler interface {
	RequestFrame(fn func())
}

type options struct {
	duration time.Duration
	flipped  bool
}

type Option func(*options)

// WithDuration sets the length of the move transition.
func WithDuration(d time.Duration) Option {
	return func(o *options) {
		o.duration = d
	}
}

// WithFlipped draws black at the bottom.
func WithFlipped(flipped bool) Option {
	return func(o *options) {
		o.flipped = flipped
	}
}

type track struct {
	gen   uint64
	phase Phase
	to    board.Square
}

// Animator is driven from the rendering loop and is not safe for concurrent
// use.
type Animator struct {
	surface Surface
	frames  FrameScheduler
	opts    options

	grid    *Grid
	version uint64
	primed  bool
	gen     uint64
	tracks  map[identity.ID]*track
}

func New(surface Surface, frames FrameScheduler, opts ...Option) *Animator {
	o := options{duration: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	return &Animator{
		surface: surface,
		frames:  frames,
		opts:    o,
		tracks:  make(map[identity.ID]*track),
	}
}

// Observe feeds a store snapshot to the animator. The first snapshot seen is
// the initial render and never animates. It reports whether a transition was
// scheduled.
func (a *Animator) Observe(st gamestate.State) bool {
	var id identity.ID
	ok := false
	if st.LastMove != nil {
		id, ok = st.Identities[st.LastMove.To]
	}
	return a.Play(st.Version, st.LastMove, id, ok)
}

// Play schedules the transition of id along mv for a position version. It
// runs at most once per version and only when a last move and a resolved id
// are present. A newer call supersedes an in-flight transition of the same id.
func (a *Animator) Play(version uint64, mv *board.Move, id identity.ID, resolved bool) bool {
	if a.primed && version <= a.version {
		return false
	}
	first := !a.primed
	a.primed, a.version = true, version
	if first || mv == nil || !resolved {
		return false
	}

	for old, tr := range a.tracks {
		if tr.phase == Settled {
			delete(a.tracks, old)
		}
	}
	grid := a.layout()
	a.gen++
	tr := &track{gen: a.gen, phase: Snapped, to: mv.To}
	a.tracks[id] = tr
	a.surface.Place(id, grid.Locate(mv.From), 0)
	a.surface.CommitLayout()
	log.Debug("snapped", "id", id, "from", mv.From.String(), "version", version)

	gen := tr.gen
	a.frames.RequestFrame(func() {
		a.start(id, gen)
	})
	return true
}

func (a *Animator) start(id identity.ID, gen uint64) {
	tr, ok := a.tracks[id]
	if !ok || tr.gen != gen || tr.phase != Snapped {
		return
	}
	tr.phase = Transitioning
	a.surface.Place(id, a.layout().Locate(tr.to), a.opts.duration)
}

// TransitionEnd is called by the surface when the transition of id finishes.
func (a *Animator) TransitionEnd(id identity.ID) {
	tr, ok := a.tracks[id]
	if !ok || tr.phase != Transitioning {
		return
	}
	tr.phase = Settled
	a.surface.Place(id, a.layout().Locate(tr.to), 0)
}

// Phase reports where the transition of id stands.
func (a *Animator) Phase(id identity.ID) Phase {
	if tr, ok := a.tracks[id]; ok {
		return tr.phase
	}
	return Idle
}

// InvalidateLayout drops the cached geometry. The next placement measures
// the surface again.
func (a *Animator) InvalidateLayout() {
	a.grid = nil
}

// Reposition places every piece of ids on its square without animation, for
// example after a resize. Elements mid-transition keep animating toward their
// destination.
func (a *Animator) Reposition(ids identity.Map) {
	grid := a.layout()
	for sq, id := range ids {
		if tr, ok := a.tracks[id]; ok && tr.phase == Transitioning {
			a.surface.Place(id, grid.Locate(tr.to), a.opts.duration)
			continue
		}
		a.surface.Place(id, grid.Locate(sq), 0)
	}
}

func (a *Animator) layout() Grid {
	if a.grid == nil {
		g := NewGrid(a.surface.Measure(), a.opts.flipped)
		a.grid = &g
	}
	return *a.grid
}
