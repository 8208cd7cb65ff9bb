package board

import (
	"fmt"
	"strings"

	chess "github.com/corentings/chess/v2"
)

// Square is a board coordinate. File 0 is 'a', Rank 0 is '1'.
type Square struct {
	File int
	Rank int
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Square{}, fmt.Errorf("board: invalid square %q", s)
	}
	return Square{File: int(s[0] - 'a'), Rank: int(s[1] - '1')}, nil
}

// MustParseSquare is ParseSquare for literals known to be valid.
func MustParseSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

// SquareAt maps a matrix cell back to its coordinate.
func SquareAt(row, col int) Square {
	return Square{File: col, Rank: 7 - row}
}

func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) Row() int { return 7 - s.Rank }
func (s Square) Col() int { return s.File }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File), byte('1' + s.Rank)})
}

func (s Square) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(text []byte) error {
	sq, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// Chess converts to the engine's square.
func (s Square) Chess() chess.Square {
	return chess.NewSquare(chess.File(s.File), chess.Rank(s.Rank))
}

func FromChessSquare(sq chess.Square) Square {
	return Square{File: int(sq.File()), Rank: int(sq.Rank())}
}

var allSquares = func() []Square {
	out := make([]Square, 0, 64)
	for row := range 8 {
		for col := range 8 {
			out = append(out, SquareAt(row, col))
		}
	}
	return out
}()

// AllSquares returns the 64 squares in matrix order, a8 first.
func AllSquares() []Square {
	return append([]Square(nil), allSquares...)
}

// Move is a coordinate move as entered by the player.
type Move struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Promotion PieceType `json:"promotion,omitempty"`
}

// ParseMove parses coordinate notation such as "e2e4" or "e7e8q".
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("board: invalid move %q", s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		if m.Promotion, err = ParsePieceType(s[4:]); err != nil {
			return Move{}, err
		}
	}
	return m, nil
}

func (m Move) String() string {
	return m.From.String() + m.To.String() + m.Promotion.Letter()
}
