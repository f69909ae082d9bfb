// internal/handlers/battle.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/models"
	"github.com/jason-s-yu/battlecards/internal/session"
	"github.com/jason-s-yu/battlecards/internal/theme"
	"github.com/sirupsen/logrus"
)

// createBattleRequest is the body of POST /battle/create. Every field is optional.
type createBattleRequest struct {
	ThemeID  *uuid.UUID             `json:"themeId,omitempty"`
	Theme    string                 `json:"theme,omitempty"` // title, case-insensitive
	Strategy string                 `json:"strategy,omitempty"`
	Seed     int64                  `json:"seed,omitempty"`
	Rules    map[string]interface{} `json:"rules,omitempty"`
}

func (bs *BattleServer) handleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bs.Catalog.All())
}

func (bs *BattleServer) resolveTheme(req createBattleRequest) (theme.Theme, error) {
	switch {
	case req.ThemeID != nil:
		if t, ok := bs.Catalog.ByID(*req.ThemeID); ok {
			return t, nil
		}
		return theme.Theme{}, errors.New("unknown theme id")
	case req.Theme != "":
		if t, ok := bs.Catalog.ByTitle(req.Theme); ok {
			return t, nil
		}
		return theme.Theme{}, errors.New("unknown theme")
	}
	if t, ok := bs.randomTheme(); ok {
		return t, nil
	}
	return theme.Theme{}, errors.New("no themes available")
}

func (bs *BattleServer) handleCreateBattle(w http.ResponseWriter, r *http.Request) {
	var req createBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	userID, err := EnsureUser(w, r)
	if err != nil {
		bs.Logger.WithError(err).Error("failed to identify caller")
		writeError(w, http.StatusInternalServerError, "failed to identify caller")
		return
	}

	th, err := bs.resolveTheme(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rules, err := battle.ParseRules(req.Rules, bs.Defaults.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := req.Strategy
	if name == "" {
		name = bs.Defaults.Strategy
	}
	strategy, err := battle.StrategyByName(name, battle.StrategySeed(req.Seed))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := bs.NewSession(userID, session.Options{
		Theme:    th,
		Rules:    rules,
		Strategy: strategy,
		Seed:     req.Seed,
	})
	bs.Logger.WithFields(logrus.Fields{
		"battle":   sess.ID,
		"user":     userID,
		"theme":    th.Title,
		"strategy": strategy.Name(),
	}).Info("battle created")

	writeJSON(w, http.StatusCreated, sess.View())
}

// ownedSession resolves {id} and checks the caller owns it, writing the error response otherwise.
func (bs *BattleServer) ownedSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid battle id")
		return nil, false
	}
	userID, err := CurrentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	sess, ok := bs.Store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "battle not found")
		return nil, false
	}
	if sess.OwnerID != userID {
		writeError(w, http.StatusForbidden, "not your battle")
		return nil, false
	}
	return sess, true
}

func (bs *BattleServer) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	sess, ok := bs.ownedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (bs *BattleServer) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := bs.ownedSession(w, r)
	if !ok {
		return
	}
	var action models.BattleAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	view, err := sess.Apply(action)
	switch {
	case errors.Is(err, battle.ErrInvalidSelection):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		bs.Logger.WithError(err).WithField("battle", sess.ID).Error("action failed")
		writeError(w, http.StatusInternalServerError, "action failed")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}
