package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/gamify-web/internal/auth"
	"github.com/tahcohcat/gamify-web/internal/logger"
	"github.com/tahcohcat/gamify-web/internal/models"
	"github.com/tahcohcat/gamify-web/internal/services"
)

type AuthHandler struct {
	users    *services.UserService
	progress *services.ProgressService
	manager  *auth.Manager
}

func NewAuthHandler(users *services.UserService, progress *services.ProgressService, manager *auth.Manager) *AuthHandler {
	return &AuthHandler{users: users, progress: progress, manager: manager}
}

// AuthResponse is returned by every successful login.
type AuthResponse struct {
	Success   bool         `json:"success"`
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// signIn sets the session cookie and issues a bearer token for user.
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	if err := h.manager.Login(w, r, user.ID); err != nil {
		logger.New().WithError(err).With("user_id", user.ID).Error("Failed to save session")
		writeErrorKind(w, http.StatusInternalServerError, "internal_error", "failed to start session")
		return
	}

	token, expires, err := h.manager.IssueToken(user.ID, user.Username)
	if err != nil {
		logger.New().WithError(err).With("user_id", user.ID).Error("Failed to issue token")
		writeErrorKind(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	writeJSON(w, status, AuthResponse{Success: true, User: user, Token: token, ExpiresAt: expires})
}

// POST /api/v1/auth/register - Create an account and sign in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorKind(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := services.ValidateCreateRequest(&req); err != nil {
		writeErrorKind(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := h.users.CreateUser(&req)
	switch {
	case errors.Is(err, services.ErrUsernameTaken), errors.Is(err, services.ErrEmailTaken):
		writeErrorKind(w, http.StatusConflict, "conflict", err.Error())
		return
	case err != nil:
		logger.New().WithError(err).Error("Failed to create user")
		writeErrorKind(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	logger.New().With("user_id", user.ID).Success("Registered " + user.Username)
	h.signIn(w, r, http.StatusCreated, user)
}

// POST /api/v1/auth/login - Sign in with username and password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorKind(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	user, err := h.users.AuthenticateUser(&req)
	switch {
	case errors.Is(err, services.ErrAccountDisabled):
		writeErrorKind(w, http.StatusForbidden, "account_disabled", err.Error())
		return
	case err != nil:
		writeErrorKind(w, http.StatusUnauthorized, "unauthenticated", "invalid username or password")
		return
	}

	h.signIn(w, r, http.StatusOK, user)
}

// POST /api/v1/auth/demo - Sign in to the shared demo account
func (h *AuthHandler) Demo(w http.ResponseWriter, r *http.Request) {
	user, created, err := h.users.GetOrCreateDemoUser()
	if err != nil {
		logger.New().WithError(err).Error("Failed to load demo user")
		writeErrorKind(w, http.StatusInternalServerError, "internal_error", "failed to load demo user")
		return
	}

	if created {
		if _, err := h.progress.SeedDemoProgress(r.Context(), user.ID); err != nil {
			logger.New().WithError(err).With("user_id", user.ID).Warn("Failed to seed demo progress")
		}
	}

	h.signIn(w, r, http.StatusOK, user)
}

// POST /api/v1/auth/logout - Clear the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Logout(w, r); err != nil {
		logger.New().WithError(err).Warn("Failed to clear session")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RegisterAuthRoutes mounts the account endpoints on r.
func RegisterAuthRoutes(r *mux.Router, h *AuthHandler) {
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/demo", h.Demo).Methods("POST")
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST")
}
