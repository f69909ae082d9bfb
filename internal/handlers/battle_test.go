// internal/handlers/battle_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/auth"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/session"
	"github.com/jason-s-yu/battlecards/internal/theme"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// ephemeral keys, no DB needed
	if err := auth.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *BattleServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewBattleServer(logger, theme.Default(), Defaults{})
}

func tokenFor(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := auth.CreateJWT(id, false)
	require.NoError(t, err)
	return token
}

// scriptedBattle stores a battle whose opponent plays its cards left to right.
func scriptedBattle(bs *BattleServer, owner uuid.UUID, player, opponent []int) *session.Session {
	th, _ := bs.Catalog.ByTitle("Cowboys")
	return bs.NewSession(owner, session.Options{
		Theme:    th,
		Strategy: battle.FirstStrategy{},
		Dealer:   battle.NewStaticDealer(player, opponent),
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Cookie", "auth_token="+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPingAndThemes(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = do(t, h, http.MethodGet, "/themes", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var themes []theme.Theme
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &themes))
	assert.Len(t, themes, 10)
}

func TestCreateBattleIssuesGuestToken(t *testing.T) {
	bs := newTestServer(t)
	h := bs.Routes()

	w := do(t, h, http.MethodPost, "/battle/create", "", `{"theme":"noir","strategy":"greedy","seed":7}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "guest cookie expected")
	owner, err := auth.AuthenticateJWT(cookie.Value)
	require.NoError(t, err)

	var view session.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, owner, view.OwnerID)
	assert.Equal(t, "noir", view.ThemeTitle)
	assert.Equal(t, battle.StrategyGreedy, view.Strategy)
	assert.Len(t, view.PlayerHand, battle.DefaultHandSize)
	assert.Equal(t, battle.PhaseIdle, view.Phase)
	assert.Equal(t, 1, bs.Store.Len())

	// the same token reuses the identity
	w = do(t, h, http.MethodPost, "/battle/create", cookie.Value, `{"rules":{"handSize":2}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Result().Cookies())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, owner, view.OwnerID)
	assert.Len(t, view.PlayerHand, 2)
	assert.Len(t, bs.Store.ByOwner(owner), 2)
}

func TestCreateBattleRejectsBadInput(t *testing.T) {
	h := newTestServer(t).Routes()
	cases := map[string]string{
		"bad json":      `{`,
		"unknown theme": `{"theme":"vaporwave"}`,
		"unknown id":    fmt.Sprintf(`{"themeId":"%s"}`, uuid.New()),
		"bad strategy":  `{"strategy":"psychic"}`,
		"bad rules":     `{"rules":{"handSize":0}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/battle/create", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestGetBattleOwnership(t *testing.T) {
	bs := newTestServer(t)
	h := bs.Routes()
	owner := uuid.New()
	sess := scriptedBattle(bs, owner, []int{5}, []int{3})
	path := "/battle/" + sess.ID.String()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, path, tokenFor(t, owner), "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, path, tokenFor(t, uuid.New()), "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, path, "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/battle/"+uuid.New().String(), tokenFor(t, owner), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/battle/not-a-uuid", tokenFor(t, owner), "").Code)
}

func TestBattleActions(t *testing.T) {
	bs := newTestServer(t)
	h := bs.Routes()
	owner := uuid.New()
	token := tokenFor(t, owner)
	sess := scriptedBattle(bs, owner, []int{5, 1}, []int{3, 9})
	path := "/battle/" + sess.ID.String() + "/action"

	// unknown card
	w := do(t, h, http.MethodPost, path, token, fmt.Sprintf(`{"type":"choose","cardId":"%s"}`, uuid.New()))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)

	w = do(t, h, http.MethodPost, path, token, `{"type":"shuffle"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var view session.View
	for round := 1; round <= 2; round++ {
		card := sess.View().PlayerHand[0]
		w = do(t, h, http.MethodPost, path, token, fmt.Sprintf(`{"type":"choose","cardId":"%s"}`, card.ID))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, round, view.Round)
	}
	assert.Equal(t, battle.OutcomeDraw, view.Outcome)
	assert.Equal(t, battle.Score{Player: 1, Opponent: 1}, view.Score)

	// the battle is over until reset
	w = do(t, h, http.MethodPost, path, token, fmt.Sprintf(`{"type":"choose","cardId":"%s"}`, uuid.New()))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, path, token, `{"type":"reset"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, battle.OutcomeInProgress, view.Outcome)
	assert.Len(t, view.PlayerHand, 2)

	w = do(t, h, http.MethodPost, path, tokenFor(t, uuid.New()), `{"type":"reset"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserEndpointsWithoutDatabase(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, http.MethodPost, "/user/create", "", `{"email":"a@b.c","password":"longenough"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = do(t, h, http.MethodPost, "/user/login", "", `{"email":"a@b.c","password":"longenough"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/user/me", "", "").Code)

	id := uuid.New()
	w = do(t, h, http.MethodGet, "/user/me", tokenFor(t, id), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "theme=noir; auth_token=abc; other=1")
	assert.Equal(t, "abc", tokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", tokenFromRequest(req))

	assert.Empty(t, tokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, []string{"http://a", "http://b"}, ParseOrigins(" http://a, ,http://b"))
}

func TestSweepIdle(t *testing.T) {
	bs := newTestServer(t)
	scriptedBattle(bs, uuid.New(), []int{1}, []int{2})
	assert.Zero(t, bs.SweepIdle(time.Hour))
	assert.Equal(t, 1, bs.SweepIdle(-time.Second))
	assert.Zero(t, bs.Store.Len())
}

func readEvent(t *testing.T, ctx context.Context, c *websocket.Conn) session.Event {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var ev session.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func dialBattle(ctx context.Context, srv *httptest.Server, battleID uuid.UUID, token string, protocols ...string) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/battle/ws/" + battleID.String()
	header := http.Header{}
	header.Set("Cookie", "auth_token="+token)
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: protocols,
		HTTPHeader:   header,
	})
	return c, err
}

func TestBattleWebSocketPlaysToEnd(t *testing.T) {
	bs := newTestServer(t)
	srv := httptest.NewServer(bs.Routes())
	defer srv.Close()

	owner := uuid.New()
	sess := scriptedBattle(bs, owner, []int{2, 8}, []int{4, 6})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := dialBattle(ctx, srv, sess.ID, tokenFor(t, owner), Subprotocol)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	ev := readEvent(t, ctx, c)
	require.Equal(t, session.EventSync, ev.Type)
	require.NotNil(t, ev.State)
	hand := ev.State.PlayerHand
	require.Len(t, hand, 2)

	send := func(v interface{}) {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, c.Write(ctx, websocket.MessageText, data))
	}

	send(map[string]string{"type": "ping"})
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))

	send(BattleMessage{Type: "choose", CardID: uuid.New()})
	ev = readEvent(t, ctx, c)
	assert.Equal(t, session.EventError, ev.Type)

	send(BattleMessage{Type: "choose", CardID: hand[0].ID})
	ev = readEvent(t, ctx, c)
	require.Equal(t, session.EventRound, ev.Type)
	assert.Equal(t, battle.SideOpponent, ev.Round.Winner)

	send(BattleMessage{Type: "choose", CardID: hand[1].ID})
	ev = readEvent(t, ctx, c)
	require.Equal(t, session.EventRound, ev.Type)
	assert.Equal(t, battle.SidePlayer, ev.Round.Winner)

	ev = readEvent(t, ctx, c)
	require.Equal(t, session.EventEnd, ev.Type)
	assert.Equal(t, string(battle.OutcomeDraw), ev.Payload["outcome"])
}

func TestBattleWebSocketRejects(t *testing.T) {
	bs := newTestServer(t)
	srv := httptest.NewServer(bs.Routes())
	defer srv.Close()

	owner := uuid.New()
	sess := scriptedBattle(bs, owner, []int{1}, []int{1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// missing subprotocol
	c, err := dialBattle(ctx, srv, sess.ID, tokenFor(t, owner))
	require.NoError(t, err)
	_, _, err = c.Read(ctx)
	assert.Equal(t, BadSubprotocolError, websocket.CloseStatus(err))

	// someone else's battle
	c, err = dialBattle(ctx, srv, sess.ID, tokenFor(t, uuid.New()), Subprotocol)
	require.NoError(t, err)
	_, _, err = c.Read(ctx)
	assert.Equal(t, NotBattleOwnerError, websocket.CloseStatus(err))

	// bad token
	c, err = dialBattle(ctx, srv, sess.ID, "garbage", Subprotocol)
	require.NoError(t, err)
	_, _, err = c.Read(ctx)
	assert.Equal(t, InvalidAuthTokenError, websocket.CloseStatus(err))

	// unknown battle fails the handshake
	_, err = dialBattle(ctx, srv, uuid.New(), tokenFor(t, owner), Subprotocol)
	assert.Error(t, err)
}

func TestCreateBattleBodyOptional(t *testing.T) {
	bs := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/battle/create", bytes.NewReader(nil))
	w := httptest.NewRecorder()
	bs.Routes().ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}
