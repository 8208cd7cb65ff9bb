// Package board holds the renderable chess board model and the transform from
// FEN notation to an 8x8 occupancy matrix.
package board

import (
	"encoding/json"
	"fmt"
	"strings"

	chess "github.com/corentings/chess/v2"
)

// StartFEN is the canonical starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var (
	pieceTypeNames = []string{"", "pawn", "knight", "bishop", "rook", "queen", "king"}
	pieceLetters   = []string{"", "p", "n", "b", "r", "q", "k"}
)

func (t PieceType) String() string {
	if int(t) >= len(pieceTypeNames) {
		return ""
	}
	return pieceTypeNames[t]
}

// Letter returns the lower case FEN letter for the piece type.
func (t PieceType) Letter() string {
	if int(t) >= len(pieceLetters) {
		return ""
	}
	return pieceLetters[t]
}

func (t PieceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PieceType) UnmarshalText(text []byte) error {
	pt, err := ParsePieceType(string(text))
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// ParsePieceType accepts either the full name ("queen") or the FEN letter ("q").
// The empty string parses to NoPieceType.
func ParsePieceType(s string) (PieceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NoPieceType, nil
	}
	for i, name := range pieceTypeNames[1:] {
		pt := PieceType(i + 1)
		if s == name || s == pt.Letter() {
			return pt, nil
		}
	}
	return NoPieceType, fmt.Errorf("board: unknown piece type %q", s)
}

type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Other returns the opposing color.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	switch string(text) {
	case "white", "w":
		*c = White
	case "black", "b":
		*c = Black
	case "":
		*c = NoColor
	default:
		return fmt.Errorf("board: unknown color %q", text)
	}
	return nil
}

// Piece is the zero value when a cell is empty.
type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
}

func (p Piece) IsZero() bool {
	return p.Type == NoPieceType
}

var symbols = map[PieceType][2]string{
	King:   {"♔", "♚"},
	Queen:  {"♕", "♛"},
	Rook:   {"♖", "♜"},
	Bishop: {"♗", "♝"},
	Knight: {"♘", "♞"},
	Pawn:   {"♙", "♟"},
}

// Symbol returns the Unicode chess glyph for the piece, or "" for an empty cell.
func (p Piece) Symbol() string {
	s, ok := symbols[p.Type]
	if !ok {
		return ""
	}
	if p.Color == Black {
		return s[1]
	}
	return s[0]
}

func (p Piece) String() string {
	if p.IsZero() {
		return "-"
	}
	if p.Color == White {
		return strings.ToUpper(p.Type.Letter())
	}
	return p.Type.Letter()
}

// MarshalJSON encodes an empty cell as null.
func (p Piece) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	type piece Piece
	return json.Marshal(piece(p))
}

// Board is the 8x8 occupancy matrix. Row 0 is rank 8, column 0 is file a.
type Board [8][8]Piece

// At returns the piece on sq, or the zero Piece when sq is empty or off the board.
func (b Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b[sq.Row()][sq.Col()]
}

func (b *Board) Set(sq Square, p Piece) {
	if sq.Valid() {
		b[sq.Row()][sq.Col()] = p
	}
}

// Occupied lists the occupied squares from a8 to h1, row by row.
func (b Board) Occupied() []Square {
	var out []Square
	for _, sq := range AllSquares() {
		if !b.At(sq).IsZero() {
			out = append(out, sq)
		}
	}
	return out
}

// Start returns the board of the canonical starting position.
func Start() Board {
	var b Board
	back := []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for col, pt := range back {
		b[0][col] = Piece{Type: pt, Color: Black}
		b[1][col] = Piece{Type: Pawn, Color: Black}
		b[6][col] = Piece{Type: Pawn, Color: White}
		b[7][col] = Piece{Type: pt, Color: White}
	}
	return b
}

// FromChess copies the engine's board into the occupancy matrix.
func FromChess(cb *chess.Board) Board {
	var b Board
	for sq, p := range cb.SquareMap() {
		b.Set(FromChessSquare(sq), FromChessPiece(p))
	}
	return b
}

func FromChessPiece(p chess.Piece) Piece {
	if p == chess.NoPiece {
		return Piece{}
	}
	return Piece{Type: FromChessPieceType(p.Type()), Color: FromChessColor(p.Color())}
}

func FromChessPieceType(pt chess.PieceType) PieceType {
	switch pt {
	case chess.Pawn:
		return Pawn
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	case chess.King:
		return King
	default:
		return NoPieceType
	}
}

// Chess converts to the engine's piece type.
func (t PieceType) Chess() chess.PieceType {
	switch t {
	case Pawn:
		return chess.Pawn
	case Knight:
		return chess.Knight
	case Bishop:
		return chess.Bishop
	case Rook:
		return chess.Rook
	case Queen:
		return chess.Queen
	case King:
		return chess.King
	default:
		return chess.NoPieceType
	}
}

func FromChessColor(c chess.Color) Color {
	switch c {
	case chess.White:
		return White
	case chess.Black:
		return Black
	default:
		return NoColor
	}
}
