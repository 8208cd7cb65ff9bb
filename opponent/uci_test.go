package opponent

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// newScriptedEngine wires an UCIEngine to answer, which maps each command
// to an optional reply sent after a delay.
func newScriptedEngine(t *testing.T, answer func(cmd string) (string, time.Duration)) *UCIEngine {
	t.Helper()
	r, w := io.Pipe()
	e := &UCIEngine{stdin: w, responses: make(chan string, 100), ready: true}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			reply, delay := answer(scanner.Text())
			if reply == "" {
				continue
			}
			go func() {
				time.Sleep(delay)
				e.responses <- reply
			}()
		}
	}()
	t.Cleanup(func() { w.Close() })
	return e
}

func TestBestMoveAfterTimeout(t *testing.T) {
	searches := 0
	e := newScriptedEngine(t, func(cmd string) (string, time.Duration) {
		if !strings.HasPrefix(cmd, "go") {
			return "", 0
		}
		searches++
		if searches == 1 {
			return "bestmove e2e4", 300 * time.Millisecond
		}
		return "bestmove g8f6", 0
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.BestMove(ctx, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", Limits{Depth: 1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	got, err := e.BestMove(context.Background(), "rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq - 0 1", Limits{Depth: 1})
	if err != nil {
		t.Fatalf("best move: %v", err)
	}
	if got != "g8f6" {
		t.Errorf("expected g8f6, got %s", got)
	}
}

func TestBestMoveDropsLeftoverOutput(t *testing.T) {
	e := newScriptedEngine(t, func(cmd string) (string, time.Duration) {
		if strings.HasPrefix(cmd, "go") {
			return "bestmove g8f6", 0
		}
		return "", 0
	})
	e.responses <- "bestmove a2a3"

	got, err := e.BestMove(context.Background(), "rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq - 0 1", Limits{Depth: 1})
	if err != nil {
		t.Fatalf("best move: %v", err)
	}
	if got != "g8f6" {
		t.Errorf("expected g8f6, got %s", got)
	}
}
