package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/walterschell/chessboard/board"
	"github.com/walterschell/chessboard/config"
	"github.com/walterschell/chessboard/gamestate"
	"github.com/walterschell/chessboard/opponent"
)

var log = slog.Default().With("package", "main")

func stdoutLogger(next http.Handler) http.Handler {
	return handlers.LoggingHandler(os.Stdout, next)
}

type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *Client) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Game is one session served over HTTP.
type Game struct {
	ID       string
	store    *gamestate.Store
	opponent *opponent.Player
}

type Application struct {
	router    *mux.Router
	games     map[string]*Game
	gamesLock sync.RWMutex
	upgrader  websocket.Upgrader

	mover     opponent.Mover
	limits    opponent.Limits
	moverLock sync.Mutex
}

type ApplicationOption func(*Application)

// WithOpponent lets new games request an engine opponent.
func WithOpponent(mover opponent.Mover, limits opponent.Limits) ApplicationOption {
	return func(app *Application) {
		app.mover = mover
		app.limits = limits
	}
}

func NewApplication(opts ...ApplicationOption) *Application {
	result := Application{
		router: mux.NewRouter(),
		games:  make(map[string]*Game),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(&result)
	}
	result.router.NotFoundHandler = stdoutLogger(http.HandlerFunc(notFoundHandler))
	result.router.Use(stdoutLogger)
	result.router.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	))

	result.router.HandleFunc("/games", result.createHandler).Methods(http.MethodPost)
	games := result.router.PathPrefix("/games/{id}").Subrouter()
	games.HandleFunc("", result.stateHandler).Methods(http.MethodGet)
	games.HandleFunc("/move", result.moveHandler).Methods(http.MethodPost)
	games.HandleFunc("/undo", result.undoHandler).Methods(http.MethodPost)
	games.HandleFunc("/reset", result.resetHandler).Methods(http.MethodPost)
	games.HandleFunc("/fen", result.fenHandler).Methods(http.MethodPost)
	games.HandleFunc("/pgn", result.pgnHandler).Methods(http.MethodPost)
	games.HandleFunc("/readonly", result.readOnlyHandler).Methods(http.MethodPost)
	games.HandleFunc("/legal/{square}", result.legalHandler).Methods(http.MethodGet)
	games.HandleFunc("/ws", result.wsHandler).Methods(http.MethodGet)
	return &result
}

func (app *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app.router.ServeHTTP(w, r)
}

func (app *Application) createHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Opponent board.Color `json:"opponent"`
		FEN      string      `json:"fen"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}
	if req.FEN != "" {
		if _, err := board.Materialize(req.FEN); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Opponent != board.NoColor && app.mover == nil {
		http.Error(w, "No opponent engine configured", http.StatusBadRequest)
		return
	}

	app.gamesLock.Lock()
	id := petname.Generate(2, "-")
	for app.games[id] != nil {
		id = petname.Generate(3, "-")
	}
	game := &Game{ID: id, store: gamestate.New(
		gamestate.WithLogger(log.With("game", id)),
		gamestate.WithStartFEN(req.FEN),
	)}
	if req.Opponent != board.NoColor {
		game.opponent = opponent.NewPlayer(app.mover, req.Opponent, app.limits)
	}
	app.games[id] = game
	app.gamesLock.Unlock()

	log.Info("game created", "id", id, "opponent", req.Opponent.String())
	app.maybeReply(game)
	writeJSON(w, http.StatusCreated, struct {
		ID    string          `json:"id"`
		State gamestate.State `json:"state"`
	}{id, game.store.State()})
}

func (app *Application) game(w http.ResponseWriter, r *http.Request) *Game {
	app.gamesLock.RLock()
	game := app.games[mux.Vars(r)["id"]]
	app.gamesLock.RUnlock()
	if game == nil {
		notFoundHandler(w, r)
	}
	return game
}

func (app *Application) stateHandler(w http.ResponseWriter, r *http.Request) {
	if game := app.game(w, r); game != nil {
		writeJSON(w, http.StatusOK, game.store.State())
	}
}

func (app *Application) moveHandler(w http.ResponseWriter, r *http.Request) {
	game := app.game(w, r)
	if game == nil {
		return
	}
	var mv board.Move
	if err := json.NewDecoder(r.Body).Decode(&mv); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	san, err := game.store.MakeMove(mv)
	if err != nil {
		writeError(w, err)
		return
	}
	app.maybeReply(game)
	writeJSON(w, http.StatusOK, struct {
		SAN   string          `json:"san"`
		State gamestate.State `json:"state"`
	}{san, game.store.State()})
}

func (app *Application) undoHandler(w http.ResponseWriter, r *http.Request) {
	app.apply(w, r, func(s *gamestate.Store) error { return s.Undo() })
}

func (app *Application) resetHandler(w http.ResponseWriter, r *http.Request) {
	app.apply(w, r, func(s *gamestate.Store) error { return s.Reset() })
}

func (app *Application) fenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FEN string `json:"fen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	app.apply(w, r, func(s *gamestate.Store) error { return s.LoadFEN(req.FEN) })
}

func (app *Application) pgnHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PGN string `json:"pgn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	app.apply(w, r, func(s *gamestate.Store) error { return s.LoadPGN(req.PGN) })
}

func (app *Application) readOnlyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReadOnly bool `json:"readOnly"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	app.apply(w, r, func(s *gamestate.Store) error {
		s.SetReadOnly(req.ReadOnly)
		return nil
	})
}

func (app *Application) apply(w http.ResponseWriter, r *http.Request, fn func(*gamestate.Store) error) {
	game := app.game(w, r)
	if game == nil {
		return
	}
	if err := fn(game.store); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.store.State())
}

func (app *Application) legalHandler(w http.ResponseWriter, r *http.Request) {
	game := app.game(w, r)
	if game == nil {
		return
	}
	sq, err := board.ParseSquare(mux.Vars(r)["square"])
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	targets := game.store.LegalTargets(sq)
	if targets == nil {
		targets = []board.Square{}
	}
	writeJSON(w, http.StatusOK, struct {
		Targets []board.Square `json:"targets"`
	}{targets})
}

func (app *Application) wsHandler(w http.ResponseWriter, r *http.Request) {
	game := app.game(w, r)
	if game == nil {
		return
	}
	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}
	log.Info("new websocket connection", "remote", conn.RemoteAddr().String(), "game", game.ID)
	client := &Client{conn: conn}
	cancel := game.store.Subscribe(func(st gamestate.State) {
		if err := client.send(st); err != nil {
			log.Warn("error writing state", "error", err)
		}
	})
	if err := client.send(game.store.State()); err != nil {
		cancel()
		conn.Close()
		return
	}
	go func() {
		defer conn.Close()
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Info("websocket closed", "game", game.ID, "error", err)
				return
			}
		}
	}()
}

// maybeReply lets the engine answer in the background when it is its turn.
func (app *Application) maybeReply(game *Game) {
	if game.opponent == nil || game.store.State().Turn != game.opponent.Color() {
		return
	}
	go func() {
		app.moverLock.Lock()
		defer app.moverLock.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := game.opponent.Reply(ctx, game.store); err != nil {
			log.Error("opponent failed to move", "game", game.ID, "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var (
		illegal *gamestate.IllegalMoveError
		parse   *gamestate.ParseError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gamestate.ErrReadOnly):
		status = http.StatusConflict
	case errors.As(err, &illegal):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &parse):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{err.Error()})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "File Not Found", http.StatusNotFound)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	flag.UintVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	flag.Parse()
	if cfg.Port == 0 || cfg.Port > 65535 {
		fmt.Println("Invalid port number")
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	var (
		opts    []ApplicationOption
		closers []io.Closer
	)
	if cfg.UCIPath != "" {
		uciEngine, err := opponent.NewUCIEngine(context.Background(), cfg.UCIPath)
		if err != nil {
			fmt.Printf("Failed to start engine: %v\n", err)
			os.Exit(1)
		}
		closers = append(closers, uciEngine)
		opts = append(opts, WithOpponent(uciEngine, opponent.Limits{Depth: cfg.UCIDepth, MoveTime: cfg.UCIMoveTime}))
	}

	fmt.Printf("Starting server on :%d\n", cfg.Port)
	if err := serve(fmt.Sprintf(":%d", cfg.Port), NewApplication(opts...), closers...); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// serve runs the application on addr and closes closers once it stops.
func serve(addr string, app *Application, closers ...io.Closer) error {
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn("error closing", "error", err)
			}
		}
	}()
	return http.ListenAndServe(addr, app)
}
