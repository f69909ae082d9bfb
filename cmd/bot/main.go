// cmd/bot/main.go plays battles against a running server over the WebSocket API.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jason-s-yu/battlecards/internal/auth"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/handlers"
	"github.com/jason-s-yu/battlecards/internal/session"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	themeName := flag.String("theme", "", "theme title (random when empty)")
	opponent := flag.String("opponent", "", "opponent strategy")
	play := flag.String("play", battle.StrategyGreedy, "strategy the bot plays with")
	games := flag.Int("games", 1, "battles to play, resetting between them")
	flag.Parse()

	picker, err := battle.StrategyByName(*play, time.Now().UnixNano())
	if err != nil {
		log.Fatal(err)
	}

	view, token, err := createBattle(*server, *themeName, *opponent)
	if err != nil {
		log.Fatalf("create battle: %v", err)
	}
	log.WithFields(log.Fields{"battle": view.BattleID, "theme": view.ThemeTitle, "opponent": view.Strategy}).Info("battle created")

	conn, err := dial(*server, view.BattleID.String(), token)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	tally := map[battle.Outcome]int{}
	for played := 0; played < *games; {
		var ev session.Event
		if err := conn.ReadJSON(&ev); err != nil {
			log.Fatalf("read: %v", err)
		}
		switch ev.Type {
		case session.EventSync, session.EventReset, session.EventRound:
			if ev.Round != nil {
				log.Debugf("round %d: %d vs %d, winner %q", ev.Round.Round, ev.Round.PlayerCard.Power, ev.Round.OpponentCard.Power, ev.Round.Winner)
			}
			if ev.State == nil || ev.State.Outcome.Terminal() || len(ev.State.PlayerHand) == 0 {
				continue
			}
			card := pick(picker, ev.State.PlayerHand)
			if err := send(conn, handlers.BattleMessage{Type: "choose", CardID: card}); err != nil {
				log.Fatalf("write: %v", err)
			}
		case session.EventEnd:
			played++
			outcome := battle.Outcome(fmt.Sprint(ev.Payload["outcome"]))
			tally[outcome]++
			log.WithFields(log.Fields{"game": played, "outcome": outcome, "score": ev.Payload["score"]}).Info("battle ended")
			if played < *games {
				if err := send(conn, handlers.BattleMessage{Type: "reset"}); err != nil {
					log.Fatalf("write: %v", err)
				}
			}
		case session.EventError:
			log.Warnf("server error: %v", ev.Payload["message"])
		}
	}
	log.WithFields(log.Fields{
		"win":  tally[battle.OutcomeWin],
		"lose": tally[battle.OutcomeLose],
		"draw": tally[battle.OutcomeDraw],
	}).Info("done")
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// pick runs the bot's strategy over its hand. The opponent card is unknown until the round resolves.
func pick(s battle.Strategy, hand []session.ViewCard) uuid.UUID {
	cards := make([]battle.Card, len(hand))
	for i, c := range hand {
		cards[i] = battle.Card{ID: c.ID, Element: c.Element, Power: c.Power, Color: c.Color}
	}
	idx := s.Pick(cards, battle.Card{})
	if idx < 0 || idx >= len(cards) {
		idx = 0
	}
	return cards[idx].ID
}

func send(conn *websocket.Conn, msg handlers.BattleMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// createBattle opens a battle as a guest and returns its view plus the issued token.
func createBattle(server, themeName, opponent string) (session.View, string, error) {
	body, _ := json.Marshal(map[string]string{"theme": themeName, "strategy": opponent})
	resp, err := http.Post(strings.TrimRight(server, "/")+"/battle/create", "application/json", bytes.NewReader(body))
	if err != nil {
		return session.View{}, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return session.View{}, "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			token = c.Value
		}
	}
	if token == "" {
		return session.View{}, "", fmt.Errorf("server did not issue a token")
	}
	var view session.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return session.View{}, "", err
	}
	return view, token, nil
}

func dial(server, battleID, token string) (*websocket.Conn, error) {
	u, err := url.Parse(strings.TrimRight(server, "/") + "/battle/ws/" + battleID)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	dialer := websocket.Dialer{
		Subprotocols:     []string{handlers.Subprotocol},
		HandshakeTimeout: writeWait,
	}
	header := http.Header{}
	header.Set("Cookie", auth.CookieName+"="+token)
	conn, _, err := dialer.Dial(u.String(), header)
	return conn, err
}
