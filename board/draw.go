package board

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	lightSquare = color.New(color.BgHiWhite, color.FgBlack)
	darkSquare  = color.New(color.BgGreen, color.FgBlack)
	highlighted = color.New(color.BgYellow, color.FgBlack)
)

// Draw writes the board to w with rank and file labels. Squares listed in
// marks are highlighted. With flipped set, black is drawn at the bottom.
func Draw(w io.Writer, b Board, flipped bool, marks ...Square) error {
	marked := make(map[Square]bool, len(marks))
	for _, sq := range marks {
		marked[sq] = true
	}
	for i := range 8 {
		row := i
		if flipped {
			row = 7 - i
		}
		if _, err := fmt.Fprintf(w, "%d ", 8-row); err != nil {
			return err
		}
		for j := range 8 {
			col := j
			if flipped {
				col = 7 - j
			}
			sq := SquareAt(row, col)
			glyph := b[row][col].Symbol()
			if glyph == "" {
				glyph = " "
			}
			paint := lightSquare
			switch {
			case marked[sq]:
				paint = highlighted
			case (row+col)%2 == 1:
				paint = darkSquare
			}
			if _, err := fmt.Fprint(w, paint.Sprint(" "+glyph+" ")); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	files := "   a  b  c  d  e  f  g  h"
	if flipped {
		files = "   h  g  f  e  d  c  b  a"
	}
	_, err := fmt.Fprintln(w, files)
	return err
}
