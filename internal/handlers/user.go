package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/auth"
	"github.com/jason-s-yu/battlecards/internal/database"
	"github.com/jason-s-yu/battlecards/internal/models"
	log "github.com/sirupsen/logrus"
)

// errUnauthenticated is returned when a request carries no valid token.
var errUnauthenticated = errors.New("missing or invalid auth token")

// CurrentUser returns the user ID from the request's token.
func CurrentUser(r *http.Request) (uuid.UUID, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return uuid.Nil, errUnauthenticated
	}
	id, err := auth.AuthenticateJWT(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errUnauthenticated, err)
	}
	return id, nil
}

// EnsureUser returns the caller's ID, issuing a guest token when the request has none.
// Guests get a users row when Postgres is connected so their results can be recorded.
func EnsureUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if id, err := CurrentUser(r); err == nil {
		return id, nil
	}

	guest := models.User{Username: "Guest", IsEphemeral: true}
	if database.DB != nil {
		if err := database.CreateUser(r.Context(), &guest); err != nil {
			return uuid.Nil, fmt.Errorf("failed to create guest user: %w", err)
		}
	} else {
		guest.ID = uuid.New()
	}

	token, err := auth.CreateJWT(guest.ID, true)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create guest JWT: %w", err)
	}
	setAuthCookie(w, token)
	return guest.ID, nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (req credentialsRequest) validate() error {
	if !strings.Contains(req.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// CreateUserHandler registers an account. A caller holding a guest token claims that guest
// row instead, so battles played as a guest stay on the record.
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "accounts are unavailable")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := &models.User{Email: req.Email, Password: req.Password, Username: req.Username}
	if user.Username == "" {
		user.Username = strings.SplitN(req.Email, "@", 2)[0]
	}

	ctx := r.Context()
	claimed := false
	if id, err := CurrentUser(r); err == nil {
		if existing, err := database.GetUserByID(ctx, id); err == nil && existing.IsEphemeral {
			user.ID = id
			if err := database.ClaimGuest(ctx, user); err != nil {
				respondCreateError(w, err)
				return
			}
			claimed = true
		}
	}
	if !claimed {
		if err := database.CreateUser(ctx, user); err != nil {
			respondCreateError(w, err)
			return
		}
	}

	token, err := auth.CreateJWT(user.ID, false)
	if err != nil {
		log.WithError(err).Error("failed to sign token for new user")
		writeError(w, http.StatusInternalServerError, "error creating user")
		return
	}
	setAuthCookie(w, token)
	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

func respondCreateError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email already exists")
		return
	}
	log.WithError(err).Error("failed to create user")
	writeError(w, http.StatusInternalServerError, "error creating user")
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginHandler handles user login requests. It expects a JSON payload with email and password,
// and returns a JSON response with an authentication token if the login is successful.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password"
//	}
//
// Response payload:
//
//	{
//	  "token": "{jwt}",
//	  "user": {...}
//	}
//
// The token is also sent via the Cookie header.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "accounts are unavailable")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, database.ErrInvalidCredentials) {
			log.WithError(err).Error("failed to authenticate user")
		}
		writeError(w, http.StatusForbidden, "authentication failed")
		return
	}

	setAuthCookie(w, token)
	user.Password = ""
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// MeHandler returns the caller's account and battle record.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := CurrentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if database.DB == nil {
		writeJSON(w, http.StatusOK, models.User{ID: id, Username: "Guest", IsEphemeral: true})
		return
	}
	user, err := database.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}
