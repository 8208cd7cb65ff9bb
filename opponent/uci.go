package opponent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var log = slog.Default().With("package", "opponent")

// stopGrace bounds the wait for the engine to answer stop.
var stopGrace = time.Second

// Limits bounds a search. Depth wins when both are set.
type Limits struct {
	Depth    int
	MoveTime time.Duration
}

func (l Limits) goCommand() string {
	switch {
	case l.Depth > 0:
		return fmt.Sprintf("go depth %d", l.Depth)
	case l.MoveTime > 0:
		return fmt.Sprintf("go movetime %d", l.MoveTime.Milliseconds())
	default:
		return "go depth 10"
	}
}

// UCIEngine drives an external UCI engine process such as Stockfish.
type UCIEngine struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Scanner
	ready     bool
	mutex     sync.Mutex
	responses chan string
}

// NewUCIEngine starts the engine at path and waits for it to be ready.
func NewUCIEngine(ctx context.Context, path string) (*UCIEngine, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	engine := &UCIEngine{
		cmd:       cmd,
		stdin:     stdin,
		stdout:    bufio.NewScanner(stdout),
		responses: make(chan string, 100),
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", path, err)
	}

	go engine.readOutput()
	if err := engine.initialize(ctx); err != nil {
		engine.Close()
		return nil, err
	}
	return engine, nil
}

func (e *UCIEngine) initialize(ctx context.Context) error {
	e.sendCommand("uci")
	e.sendCommand("setoption name Ponder value false")
	e.sendCommand("isready")

	if _, err := e.await(ctx, func(line string) bool { return strings.Contains(line, "readyok") }); err != nil {
		return fmt.Errorf("engine initialization failed: %w", err)
	}
	e.ready = true
	return nil
}

func (e *UCIEngine) sendCommand(cmd string) error {
	log.Debug("sending command", "command", cmd)
	e.mutex.Lock()
	defer e.mutex.Unlock()
	_, err := fmt.Fprintln(e.stdin, cmd)
	return err
}

func (e *UCIEngine) readOutput() {
	for e.stdout.Scan() {
		response := e.stdout.Text()
		log.Debug("received response", "response", response)
		e.responses <- response
	}
	close(e.responses)
}

// await consumes engine output until match accepts a line.
func (e *UCIEngine) await(ctx context.Context, match func(string) bool) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-e.responses:
			if !ok {
				return "", io.ErrUnexpectedEOF
			}
			if match(line) {
				return line, nil
			}
		}
	}
}

// BestMove asks the engine for its move in the position given as FEN and
// returns it in coordinate notation.
func (e *UCIEngine) BestMove(ctx context.Context, fen string, limits Limits) (string, error) {
	if !e.ready {
		return "", fmt.Errorf("engine not ready")
	}
	e.drain()
	if err := e.sendCommand("position fen " + fen); err != nil {
		return "", err
	}
	if err := e.sendCommand(limits.goCommand()); err != nil {
		return "", err
	}
	line, err := e.await(ctx, isBestMove)
	if err != nil {
		e.abandon()
		return "", err
	}
	return parseBestMove(line)
}

// abandon stops the running search and consumes its bestmove so the next
// request does not read it.
func (e *UCIEngine) abandon() {
	e.sendCommand("stop")
	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if _, err := e.await(ctx, isBestMove); err != nil {
		log.Warn("engine did not answer stop", "error", err)
	}
}

// drain drops output left over from earlier requests.
func (e *UCIEngine) drain() {
	for {
		select {
		case line, ok := <-e.responses:
			if !ok {
				return
			}
			log.Debug("discarding stale output", "response", line)
		default:
			return
		}
	}
}

func isBestMove(line string) bool {
	return strings.HasPrefix(line, "bestmove")
}

func parseBestMove(line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[0] != "bestmove" {
		return "", fmt.Errorf("unexpected engine output %q", line)
	}
	if parts[1] == "(none)" || parts[1] == "0000" {
		return "", ErrNoMove
	}
	return parts[1], nil
}

// Close shuts down the engine process.
func (e *UCIEngine) Close() error {
	e.sendCommand("quit")
	return e.cmd.Wait()
}
