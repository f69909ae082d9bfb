// internal/handlers/battle_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/middleware"
	"github.com/jason-s-yu/battlecards/internal/models"
	"github.com/jason-s-yu/battlecards/internal/session"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "battle"

// BattleMessage is an incoming WebSocket message.
type BattleMessage struct {
	Type   string    `json:"type"`
	CardID uuid.UUID `json:"cardId"`
}

// BattleWSHandler upgrades the connection for /battle/ws/{id}, authenticates the owner,
// sends the current view and then routes client messages to the session.
func (bs *BattleServer) BattleWSHandler(w http.ResponseWriter, r *http.Request) {
	battleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid battle id format", http.StatusBadRequest)
		return
	}
	sess, ok := bs.Store.Get(battleID)
	if !ok {
		http.Error(w, "Battle not found", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: bs.Defaults.AllowedOrigins,
	})
	if err != nil {
		bs.Logger.Warnf("WebSocket accept error for battle %s: %v", battleID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "Client must use the 'battle' subprotocol.")
		return
	}

	userID, err := CurrentUser(r)
	if err != nil {
		c.Close(InvalidAuthTokenError, "Authentication failed.")
		return
	}
	if sess.OwnerID != userID {
		bs.Logger.Warnf("User %s tried to join battle %s owned by %s", userID, battleID, sess.OwnerID)
		c.Close(NotBattleOwnerError, "You do not own this battle.")
		return
	}

	logger := bs.Logger.WithFields(logrus.Fields{"battle": battleID, "user": userID})
	middleware.LogWebSocketConnect(bs.Logger, battleID, userID, r.RemoteAddr)

	bs.attach(battleID, c)
	defer bs.detach(battleID, c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	view := sess.View()
	sendWsMessage(ctx, c, session.Event{Type: session.EventSync, BattleID: battleID, State: &view}, logger)

	err = readBattleMessages(ctx, c, sess, logger)
	middleware.LogWebSocketDisconnect(bs.Logger, battleID, userID, err)
	if err == nil {
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readBattleMessages reads until the connection closes. It returns nil on a normal close.
func readBattleMessages(ctx context.Context, c *websocket.Conn, sess *session.Session, logger logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.Warnf("Ignoring non-text message type %d", msgType)
			continue
		}

		var msg BattleMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON received: %v", err)
			sendWsMessage(ctx, c, session.ErrorEvent(sess.ID, "Invalid JSON format."), logger)
			continue
		}
		logger.Debugf("Received action '%s'", msg.Type)

		if msg.Type == "ping" {
			sendWsMessage(ctx, c, map[string]string{"type": "pong"}, logger)
			continue
		}

		// results reach the client through the session broadcast
		if _, err := sess.Apply(models.BattleAction{ActionType: msg.Type, CardID: msg.CardID}); err != nil {
			sendWsMessage(ctx, c, session.ErrorEvent(sess.ID, err.Error()), logger)
		}
	}
}

// sendWsMessage marshals a message and writes it with a timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}, logger logrus.FieldLogger) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		logger.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		logger.Debugf("Error writing WebSocket message: %v", err)
	}
}
