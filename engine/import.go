package engine

import (
	"fmt"
	"regexp"
	"strings"

	chess "github.com/corentings/chess/v2"

	"github.com/walterschell/chessboard/board"
)

var (
	fenTagRe  = regexp.MustCompile(`\[\s*FEN\s+"([^"]*)"\s*\]`)
	tagPairRe = regexp.MustCompile(`\[[^\]]*\]`)
	commentRe = regexp.MustCompile(`\{[^}]*\}|;[^\n]*`)
	nagRe     = regexp.MustCompile(`\$\d+`)
	moveNumRe = regexp.MustCompile(`^\d+\.+`)
	coordRe   = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)
)

const annotations = "!?"

// ImportNotation loads a game from PGN movetext and returns its SAN moves.
// The engine's PGN parser is tried first. With lenient set, text it rejects is
// replayed token by token and the import stops at the first token that is not
// a legal move. On error the current state is left untouched.
func (a *Adapter) ImportNotation(text string, lenient bool) ([]string, error) {
	root, line, err := parsePGN(text)
	if err != nil && lenient {
		log.Warn("strict PGN parse failed, replaying movetext", "error", err)
		root, line, err = parseMovetext(text)
	}
	if err != nil {
		return nil, &board.ParseError{Input: text, Err: err}
	}
	game, err := replay(root, line)
	if err != nil {
		return nil, &board.ParseError{Input: text, Err: err}
	}
	a.game, a.root, a.line = game, root, line
	log.Info("game imported", "moves", len(line), "position", game.FEN())
	return a.Line(), nil
}

func parsePGN(text string) (string, []string, error) {
	opt, err := chess.PGN(strings.NewReader(text))
	if err != nil {
		return "", nil, err
	}
	game := chess.NewGame(opt)
	moves := game.Moves()
	positions := game.Positions()
	if len(moves) == 0 {
		return "", nil, errNoMoves
	}
	if len(positions) < len(moves)+1 {
		return "", nil, fmt.Errorf("game has %d moves but %d positions", len(moves), len(positions))
	}
	line := make([]string, len(moves))
	for i, mv := range moves {
		line[i] = chess.AlgebraicNotation{}.Encode(positions[i], mv)
	}
	return positions[0].String(), line, nil
}

func parseMovetext(text string) (string, []string, error) {
	root := board.StartFEN
	if m := fenTagRe.FindStringSubmatch(text); m != nil {
		root = strings.TrimSpace(m[1])
	}
	game, err := newGame(root)
	if err != nil {
		return "", nil, err
	}
	root = game.FEN()

	text = tagPairRe.ReplaceAllString(text, " ")
	text = commentRe.ReplaceAllString(text, " ")
	text = nagRe.ReplaceAllString(text, " ")
	text = stripVariations(text)

	var line []string
	for _, tok := range strings.Fields(text) {
		tok = moveNumRe.ReplaceAllString(tok, "")
		tok = strings.TrimRight(tok, annotations)
		if tok == "" || isResult(tok) {
			continue
		}
		san, ok := decodeToken(game.Position(), tok)
		if !ok {
			log.Warn("stopping import at unplayable token", "token", tok, "played", len(line))
			break
		}
		if err := game.PushMove(san, &chess.PushMoveOptions{ForceMainline: true}); err != nil {
			log.Warn("stopping import at rejected move", "token", tok, "error", err)
			break
		}
		line = append(line, san)
	}
	if len(line) == 0 {
		return "", nil, errNoMoves
	}
	return root, line, nil
}

// decodeToken accepts SAN as well as coordinate notation and returns the
// canonical SAN of the matching legal move. Coordinate tokens are matched
// first since SAN decoding reads "g1f3" as the pawn move f3.
func decodeToken(pos *chess.Position, tok string) (string, bool) {
	if coordRe.MatchString(tok) {
		mv, err := chess.UCINotation{}.Decode(pos, tok)
		if err != nil || !isValid(pos, mv) {
			return "", false
		}
		return chess.AlgebraicNotation{}.Encode(pos, mv), true
	}
	mv, err := chess.AlgebraicNotation{}.Decode(pos, tok)
	if err != nil {
		return "", false
	}
	return chess.AlgebraicNotation{}.Encode(pos, mv), true
}

func isValid(pos *chess.Position, mv *chess.Move) bool {
	for _, valid := range pos.ValidMoves() {
		if valid.S1() == mv.S1() && valid.S2() == mv.S2() && valid.Promo() == mv.Promo() {
			return true
		}
	}
	return false
}

func stripVariations(text string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isResult(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	}
	return false
}
