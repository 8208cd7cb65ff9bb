package animation

import "github.com/walterschell/chessboard/board"

type Point struct {
	X, Y float64
}

// Rect is a measured container in pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Grid maps squares to pixel positions. Cells are always square: the board
// uses the smaller container dimension and the remainder is split evenly as
// padding.
type Grid struct {
	Origin  Point
	Cell    float64
	Flipped bool
}

func NewGrid(r Rect, flipped bool) Grid {
	size := min(r.Width, r.Height)
	if size < 0 {
		size = 0
	}
	return Grid{
		Origin: Point{
			X: r.X + (r.Width-size)/2,
			Y: r.Y + (r.Height-size)/2,
		},
		Cell:    size / 8,
		Flipped: flipped,
	}
}

// Locate returns the top-left corner of sq.
func (g Grid) Locate(sq board.Square) Point {
	row, col := sq.Row(), sq.Col()
	if g.Flipped {
		row, col = 7-row, 7-col
	}
	return Point{
		X: g.Origin.X + float64(col)*g.Cell,
		Y: g.Origin.Y + float64(row)*g.Cell,
	}
}
