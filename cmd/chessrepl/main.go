// Command chessrepl plays a game on the terminal.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/walterschell/chessboard/board"
	"github.com/walterschell/chessboard/gamestate"
)

const usage = `commands:
  move e2 e4 [q]   play a move, optional promotion piece
  undo             take back the last move
  reset            start over
  fen <fen>        load a position
  pgn <file>       load a game
  legal e2         list targets of a square
  quit`

type repl struct {
	store   *gamestate.Store
	out     io.Writer
	flipped bool
}

var errQuit = errors.New("quit")

func (r *repl) draw() {
	st := r.store.State()
	var marks []board.Square
	if st.LastMove != nil {
		marks = append(marks, st.LastMove.From, st.LastMove.To)
	}
	if err := board.Draw(r.out, st.Board, r.flipped, marks...); err != nil {
		fmt.Fprintln(r.out, err)
	}
	switch {
	case st.Checkmate:
		fmt.Fprintf(r.out, "checkmate, %s wins\n", st.Turn.Other())
	case st.Draw:
		fmt.Fprintf(r.out, "draw (%s)\n", st.DrawReason)
	case st.InCheck:
		fmt.Fprintf(r.out, "%s to move, in check\n", st.Turn)
	default:
		fmt.Fprintf(r.out, "%s to move\n", st.Turn)
	}
}

func (r *repl) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	args := fields[1:]
	switch fields[0] {
	case "move", "m":
		mv, err := parseMoveArgs(args)
		if err != nil {
			return err
		}
		san, err := r.store.MakeMove(mv)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, san)
	case "undo":
		return r.store.Undo()
	case "reset":
		return r.store.Reset()
	case "fen":
		if len(args) == 0 {
			fmt.Fprintln(r.out, r.store.State().Position)
			return nil
		}
		return r.store.LoadFEN(strings.Join(args, " "))
	case "pgn":
		if len(args) != 1 {
			return errors.New("usage: pgn <file>")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return r.store.LoadPGN(string(data))
	case "legal":
		if len(args) != 1 {
			return errors.New("usage: legal <square>")
		}
		sq, err := board.ParseSquare(args[0])
		if err != nil {
			return err
		}
		var names []string
		for _, t := range r.store.LegalTargets(sq) {
			names = append(names, t.String())
		}
		fmt.Fprintln(r.out, strings.Join(names, " "))
	case "flip":
		r.flipped = !r.flipped
	case "quit", "exit":
		return errQuit
	default:
		fmt.Fprintln(r.out, usage)
	}
	return nil
}

// parseMoveArgs accepts "e2 e4 [q]" or the packed "e2e4[q]".
func parseMoveArgs(args []string) (board.Move, error) {
	if len(args) == 1 {
		return board.ParseMove(args[0])
	}
	if len(args) < 2 || len(args) > 3 {
		return board.Move{}, errors.New("usage: move <from> <to> [promotion]")
	}
	return board.ParseMove(strings.Join(args, ""))
}

func run(in io.Reader, out io.Writer, flipped bool, opts ...gamestate.Option) error {
	r := &repl{store: gamestate.New(opts...), out: out, flipped: flipped}
	r.draw()
	scanner := bufio.NewScanner(in)
	for fmt.Fprint(out, "> "); scanner.Scan(); fmt.Fprint(out, "> ") {
		err := r.exec(scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		r.draw()
	}
	return scanner.Err()
}

func main() {
	flipped := flag.Bool("flipped", false, "Draw the board from black's side")
	quiet := flag.Bool("quiet", true, "Only log warnings and errors")
	fen := flag.String("fen", "", "Start from this position")
	flag.Parse()
	if *quiet {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}
	if err := run(os.Stdin, os.Stdout, *flipped, gamestate.WithStartFEN(*fen)); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
