// internal/handlers/battle_server.go
package handlers

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/database"
	"github.com/jason-s-yu/battlecards/internal/middleware"
	"github.com/jason-s-yu/battlecards/internal/models"
	"github.com/jason-s-yu/battlecards/internal/session"
	"github.com/jason-s-yu/battlecards/internal/theme"
	"github.com/sirupsen/logrus"
)

// Defaults are applied to battles whose create request leaves fields empty.
type Defaults struct {
	Strategy       string
	Rules          battle.Rules
	AllowedOrigins []string
	WriteTimeout   time.Duration
}

// BattleServer holds the live sessions, the theme catalog and the WebSocket
// connections attached to each battle.
type BattleServer struct {
	Store    *session.Store
	Catalog  *theme.Catalog
	Defaults Defaults
	Logger   *logrus.Logger

	connMu sync.Mutex
	conns  map[uuid.UUID]map[*websocket.Conn]struct{}

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewBattleServer(logger *logrus.Logger, catalog *theme.Catalog, defaults Defaults) *BattleServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if catalog == nil {
		catalog = theme.Default()
	}
	if defaults.Strategy == "" {
		defaults.Strategy = battle.StrategyRandom
	}
	if defaults.Rules.HandSize == 0 {
		defaults.Rules = battle.DefaultRules()
	}
	if defaults.WriteTimeout <= 0 {
		defaults.WriteTimeout = 3 * time.Second
	}
	if len(defaults.AllowedOrigins) == 0 {
		defaults.AllowedOrigins = []string{"*"}
	}
	return &BattleServer{
		Store:    session.NewStore(),
		Catalog:  catalog,
		Defaults: defaults,
		Logger:   logger,
		conns:    make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ParseOrigins splits a comma separated ALLOWED_ORIGINS value.
func ParseOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Routes wires every endpoint behind the request logging middleware.
func (bs *BattleServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	mux.HandleFunc("GET /themes", bs.handleThemes)

	mux.HandleFunc("POST /battle/create", bs.handleCreateBattle)
	mux.HandleFunc("GET /battle/{id}", bs.handleGetBattle)
	mux.HandleFunc("POST /battle/{id}/action", bs.handleAction)
	mux.HandleFunc("GET /battle/ws/{id}", bs.BattleWSHandler)

	mux.HandleFunc("POST /user/create", CreateUserHandler)
	mux.HandleFunc("POST /user/login", LoginHandler)
	mux.HandleFunc("GET /user/me", MeHandler)

	return middleware.LogMiddleware(bs.Logger)(mux)
}

// NewSession creates, stores and wires a battle for owner.
func (bs *BattleServer) NewSession(owner uuid.UUID, opts session.Options) *session.Session {
	sess := session.New(owner, opts, bs.Logger)
	sess.BroadcastFn = bs.createBroadcastFunc(sess.ID)
	sess.OnEnd = bs.recordResult
	bs.Store.Add(sess)

	if database.DB != nil {
		view := sess.View()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.CreateBattle(ctx, sess.ID, owner, sess.Theme.ID, view.Strategy, view.Rules); err != nil {
				bs.Logger.WithError(err).WithField("battle", sess.ID).Warn("failed to store battle")
			}
		}()
	}
	return sess
}

// recordResult persists a finished battle when Postgres is connected.
func (bs *BattleServer) recordResult(result models.BattleResult) {
	if database.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.RecordBattleResult(ctx, result); err != nil {
			bs.Logger.WithError(err).WithField("battle", result.BattleID).Error("failed to record battle result")
		}
	}()
}

// randomTheme picks a catalog theme for requests that do not name one.
func (bs *BattleServer) randomTheme() (theme.Theme, bool) {
	bs.rngMu.Lock()
	defer bs.rngMu.Unlock()
	return bs.Catalog.Random(bs.rng)
}

// createBroadcastFunc returns a function suitable for Session.BroadcastFn.
// It marshals the event and writes it to every connection attached to the battle.
// Writes happen on the caller's goroutine so a round always reaches clients before the battle end.
func (bs *BattleServer) createBroadcastFunc(battleID uuid.UUID) func(ev session.Event) {
	return func(ev session.Event) {
		conns := bs.connections(battleID)
		if len(conns) == 0 {
			return
		}
		msgBytes, err := json.Marshal(ev)
		if err != nil {
			bs.Logger.Errorf("Failed to marshal broadcast event (%s) for battle %s: %v", ev.Type, battleID, err)
			return
		}
		for _, c := range conns {
			ctx, cancel := context.WithTimeout(context.Background(), bs.Defaults.WriteTimeout)
			err := c.Write(ctx, websocket.MessageText, msgBytes)
			cancel()
			if err != nil {
				bs.Logger.Warnf("Failed to write %s to battle %s: %v", ev.Type, battleID, err)
			}
		}
	}
}

func (bs *BattleServer) attach(battleID uuid.UUID, c *websocket.Conn) {
	bs.connMu.Lock()
	defer bs.connMu.Unlock()
	if bs.conns[battleID] == nil {
		bs.conns[battleID] = make(map[*websocket.Conn]struct{})
	}
	bs.conns[battleID][c] = struct{}{}
}

func (bs *BattleServer) detach(battleID uuid.UUID, c *websocket.Conn) {
	bs.connMu.Lock()
	defer bs.connMu.Unlock()
	delete(bs.conns[battleID], c)
	if len(bs.conns[battleID]) == 0 {
		delete(bs.conns, battleID)
	}
}

func (bs *BattleServer) connections(battleID uuid.UUID) []*websocket.Conn {
	bs.connMu.Lock()
	defer bs.connMu.Unlock()
	out := make([]*websocket.Conn, 0, len(bs.conns[battleID]))
	for c := range bs.conns[battleID] {
		out = append(out, c)
	}
	return out
}

// SweepIdle drops battles idle for longer than maxIdle and closes their connections.
func (bs *BattleServer) SweepIdle(maxIdle time.Duration) int {
	removed := bs.Store.Sweep(maxIdle, time.Now())
	for _, id := range removed {
		for _, c := range bs.connections(id) {
			c.Close(BattleClosedError, "battle closed for inactivity")
			bs.detach(id, c)
		}
		bs.Logger.WithField("battle", id).Info("swept idle battle")
	}
	return len(removed)
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (bs *BattleServer) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bs.SweepIdle(maxIdle)
		}
	}
}
